package silo

import "unsafe"

// bundleVisitor receives one component's TypeInfo and a pointer to its
// value, in no particular order; the callee is responsible for copying
// or moving out of valuePtr before returning.
type bundleVisitor func(info *TypeInfo, valuePtr unsafe.Pointer)

// Bundle is a compile-time heterogeneous tuple of components treated as a
// single unit for insertion (spec.md glossary). DynamicBundle is its
// type-erased equivalent, built at runtime by EntityBuilder or
// ColumnBatch; both satisfy this same interface, since the archetype
// insertion path never needs to know which one produced it.
type Bundle interface {
	componentInfos() []*TypeInfo
	put(visit bundleVisitor)
}

// DynamicBundle is an alias for Bundle emphasising the type-erased
// construction path (EntityBuilder, ColumnBatch) over the static,
// generic BundleN family.
type DynamicBundle = Bundle

// dedupeInfos validates that no component id repeats, per spec.md §4.E:
// "duplicate component in a bundle -> DuplicateBundleType error (no
// panic; insertion is refused atomically)".
func dedupeInfos(infos []*TypeInfo) error {
	seen := make(map[ComponentID]struct{}, len(infos))
	for _, info := range infos {
		if _, ok := seen[info.ID]; ok {
			return DuplicateBundleTypeError{Component: info.ID}
		}
		seen[info.ID] = struct{}{}
	}
	return nil
}

// Bundle1 is a single-component bundle.
type Bundle1[A any] struct {
	ta ComponentType[A]
	a  A
}

// NewBundle1 builds a one-component bundle.
func NewBundle1[A any](ta ComponentType[A], a A) Bundle1[A] {
	return Bundle1[A]{ta: ta, a: a}
}

func (b Bundle1[A]) componentInfos() []*TypeInfo { return []*TypeInfo{b.ta.info} }
func (b Bundle1[A]) put(visit bundleVisitor)     { visit(b.ta.info, unsafe.Pointer(&b.a)) }

// Bundle2 is a two-component bundle.
type Bundle2[A, B any] struct {
	ta ComponentType[A]
	a  A
	tb ComponentType[B]
	b  B
}

// NewBundle2 builds a two-component bundle. Returns an error if A and B
// resolve to the same component id.
func NewBundle2[A, B any](ta ComponentType[A], a A, tb ComponentType[B], b B) (Bundle2[A, B], error) {
	bd := Bundle2[A, B]{ta: ta, a: a, tb: tb, b: b}
	if err := dedupeInfos(bd.componentInfos()); err != nil {
		return Bundle2[A, B]{}, err
	}
	return bd, nil
}

func (b Bundle2[A, B]) componentInfos() []*TypeInfo {
	return []*TypeInfo{b.ta.info, b.tb.info}
}
func (b Bundle2[A, B]) put(visit bundleVisitor) {
	visit(b.ta.info, unsafe.Pointer(&b.a))
	visit(b.tb.info, unsafe.Pointer(&b.b))
}

// Bundle3 is a three-component bundle.
type Bundle3[A, B, C any] struct {
	ta ComponentType[A]
	a  A
	tb ComponentType[B]
	b  B
	tc ComponentType[C]
	c  C
}

// NewBundle3 builds a three-component bundle.
func NewBundle3[A, B, C any](ta ComponentType[A], a A, tb ComponentType[B], b B, tc ComponentType[C], c C) (Bundle3[A, B, C], error) {
	bd := Bundle3[A, B, C]{ta: ta, a: a, tb: tb, b: b, tc: tc, c: c}
	if err := dedupeInfos(bd.componentInfos()); err != nil {
		return Bundle3[A, B, C]{}, err
	}
	return bd, nil
}

func (b Bundle3[A, B, C]) componentInfos() []*TypeInfo {
	return []*TypeInfo{b.ta.info, b.tb.info, b.tc.info}
}
func (b Bundle3[A, B, C]) put(visit bundleVisitor) {
	visit(b.ta.info, unsafe.Pointer(&b.a))
	visit(b.tb.info, unsafe.Pointer(&b.b))
	visit(b.tc.info, unsafe.Pointer(&b.c))
}

// Bundle4 is a four-component bundle.
type Bundle4[A, B, C, D any] struct {
	ta ComponentType[A]
	a  A
	tb ComponentType[B]
	b  B
	tc ComponentType[C]
	c  C
	td ComponentType[D]
	d  D
}

// NewBundle4 builds a four-component bundle.
func NewBundle4[A, B, C, D any](ta ComponentType[A], a A, tb ComponentType[B], b B, tc ComponentType[C], c C, td ComponentType[D], d D) (Bundle4[A, B, C, D], error) {
	bd := Bundle4[A, B, C, D]{ta: ta, a: a, tb: tb, b: b, tc: tc, c: c, td: td, d: d}
	if err := dedupeInfos(bd.componentInfos()); err != nil {
		return Bundle4[A, B, C, D]{}, err
	}
	return bd, nil
}

func (b Bundle4[A, B, C, D]) componentInfos() []*TypeInfo {
	return []*TypeInfo{b.ta.info, b.tb.info, b.tc.info, b.td.info}
}
func (b Bundle4[A, B, C, D]) put(visit bundleVisitor) {
	visit(b.ta.info, unsafe.Pointer(&b.a))
	visit(b.tb.info, unsafe.Pointer(&b.b))
	visit(b.tc.info, unsafe.Pointer(&b.c))
	visit(b.td.info, unsafe.Pointer(&b.d))
}
