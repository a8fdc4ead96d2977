package silo

// Term is a single composable fetch primitive (spec.md §4.F): something
// that can say whether an archetype matches, what borrow it needs (if
// any), and how to turn a prepared per-archetype state plus a row index
// into a typed value of O. RefTerm, Mut, Opt, OptMut, SatisfiesTerm, and
// the With/Without/Or combinators below all implement Term for some O.
type Term[O any] interface {
	matches(a *archetype) bool
	access() (accessTerm, bool)
	prepare(a *archetype) any
	fetch(state any, row uint32) O
}

// matcher is the narrower interface used by With/Without/Or: anything
// that can test archetype membership. Every Term[O] already satisfies it.
type matcher interface {
	matches(a *archetype) bool
}

// Ref requires T and yields a shared view (spec.md §4.F "&T").
func (c ComponentType[T]) Ref() RefTerm[T] { return RefTerm[T]{id: c.info.ID} }

// Mut requires T and yields a unique view ("&mut T").
func (c ComponentType[T]) Mut() Mut[T] { return Mut[T]{id: c.info.ID} }

// Opt matches every archetype; its item is present only when T is.
func (c ComponentType[T]) Opt() Opt[T] { return Opt[T]{id: c.info.ID} }

// OptMut is Opt's unique-access counterpart.
func (c ComponentType[T]) OptMut() OptMut[T] { return OptMut[T]{id: c.info.ID} }

// With requires T's presence without borrowing it, for use as a bare
// filter argument to With/Without/Or combinators.
func (c ComponentType[T]) With() matcher { return hasMatcher{c.info.ID} }

// Without requires T's absence, for the same use.
func (c ComponentType[T]) Without() matcher { return notMatcher{c.info.ID} }

// SatisfiesTerm never borrows; it yields whether the entity carries T.
func (c ComponentType[T]) SatisfiesTerm() SatisfiesTerm[T] { return SatisfiesTerm[T]{id: c.info.ID} }

type hasMatcher struct{ id ComponentID }

func (h hasMatcher) matches(a *archetype) bool { return a.Has(h.id) }

type notMatcher struct{ id ComponentID }

func (n notMatcher) matches(a *archetype) bool { return !a.Has(n.id) }

// RefTerm is the Term for &T.
type RefTerm[T any] struct{ id ComponentID }

func (r RefTerm[T]) matches(a *archetype) bool { return a.Has(r.id) }
func (r RefTerm[T]) access() (accessTerm, bool) {
	return accessTerm{id: r.id, mode: accessShared}, true
}
func (r RefTerm[T]) prepare(a *archetype) any {
	idx, ok := a.columnFor(r.id)
	if !ok {
		return (*column)(nil)
	}
	return &a.columns[idx]
}
func (r RefTerm[T]) fetch(state any, row uint32) *T {
	col := state.(*column)
	return (*T)(col.at(row))
}

// Mut is the Term for &mut T.
type Mut[T any] struct{ id ComponentID }

func (m Mut[T]) matches(a *archetype) bool { return a.Has(m.id) }
func (m Mut[T]) access() (accessTerm, bool) {
	return accessTerm{id: m.id, mode: accessUnique}, true
}
func (m Mut[T]) prepare(a *archetype) any {
	idx, ok := a.columnFor(m.id)
	if !ok {
		return (*column)(nil)
	}
	return &a.columns[idx]
}
func (m Mut[T]) fetch(state any, row uint32) *T {
	col := state.(*column)
	return (*T)(col.at(row))
}

// OptionalRef is the item type for Opt and OptMut: Ok is false when the
// archetype the row belongs to does not carry the component.
type OptionalRef[T any] struct {
	Value *T
	Ok    bool
}

// Opt is the Term for Option<&T>.
type Opt[T any] struct{ id ComponentID }

func (o Opt[T]) matches(a *archetype) bool { return true }
func (o Opt[T]) access() (accessTerm, bool) {
	return accessTerm{id: o.id, mode: accessShared}, true
}
func (o Opt[T]) prepare(a *archetype) any {
	idx, ok := a.columnFor(o.id)
	if !ok {
		return (*column)(nil)
	}
	return &a.columns[idx]
}
func (o Opt[T]) fetch(state any, row uint32) OptionalRef[T] {
	col := state.(*column)
	if col == nil {
		return OptionalRef[T]{}
	}
	return OptionalRef[T]{Value: (*T)(col.at(row)), Ok: true}
}

// OptMut is the Term for Option<&mut T>.
type OptMut[T any] struct{ id ComponentID }

func (o OptMut[T]) matches(a *archetype) bool { return true }
func (o OptMut[T]) access() (accessTerm, bool) {
	return accessTerm{id: o.id, mode: accessUnique}, true
}
func (o OptMut[T]) prepare(a *archetype) any {
	idx, ok := a.columnFor(o.id)
	if !ok {
		return (*column)(nil)
	}
	return &a.columns[idx]
}
func (o OptMut[T]) fetch(state any, row uint32) OptionalRef[T] {
	col := state.(*column)
	if col == nil {
		return OptionalRef[T]{}
	}
	return OptionalRef[T]{Value: (*T)(col.at(row)), Ok: true}
}

// SatisfiesTerm never borrows; it yields whether the row's archetype
// carries T, constant across every row of a matched archetype.
type SatisfiesTerm[T any] struct{ id ComponentID }

func (s SatisfiesTerm[T]) matches(a *archetype) bool        { return true }
func (s SatisfiesTerm[T]) access() (accessTerm, bool)       { return accessTerm{}, false }
func (s SatisfiesTerm[T]) prepare(a *archetype) any         { return a.Has(s.id) }
func (s SatisfiesTerm[T]) fetch(state any, row uint32) bool { return state.(bool) }

// WithFilter wraps inner, additionally requiring filter's component set to
// be present (spec.md §4.F's With<Q,F>). The filter itself is never
// borrowed.
func WithFilter[O any](inner Term[O], filter matcher) Term[O] {
	return filterWrap[O]{inner: inner, filter: filter, want: true}
}

// WithoutFilter wraps inner, additionally requiring filter's component set
// to be absent (Without<Q,F>).
func WithoutFilter[O any](inner Term[O], filter matcher) Term[O] {
	return filterWrap[O]{inner: inner, filter: filter, want: false}
}

type filterWrap[O any] struct {
	inner Term[O]
	filter matcher
	want  bool
}

func (w filterWrap[O]) matches(a *archetype) bool {
	return w.inner.matches(a) && w.filter.matches(a) == w.want
}
func (w filterWrap[O]) access() (accessTerm, bool)   { return w.inner.access() }
func (w filterWrap[O]) prepare(a *archetype) any     { return w.inner.prepare(a) }
func (w filterWrap[O]) fetch(state any, row uint32) O { return w.inner.fetch(state, row) }

// OrResult tags which side(s) of an Or matched the row's archetype. Both
// may be true; per spec.md §9 the relative iteration order between
// archetypes where both sides match is implementation-defined and tests
// must not depend on it.
type OrResult struct {
	Left, Right bool
}

// Or matches an archetype matching either left or right (spec.md §4.F).
// Neither side is borrowed by the combinator itself: include a Ref/Mut/Opt
// term elsewhere in the same query tuple to actually read either side's
// data.
func Or(left, right matcher) Term[OrResult] {
	return orTerm{left: left, right: right}
}

type orTerm struct{ left, right matcher }

func (o orTerm) matches(a *archetype) bool  { return o.left.matches(a) || o.right.matches(a) }
func (o orTerm) access() (accessTerm, bool) { return accessTerm{}, false }
func (o orTerm) prepare(a *archetype) any {
	return OrResult{Left: o.left.matches(a), Right: o.right.matches(a)}
}
func (o orTerm) fetch(state any, row uint32) OrResult { return state.(OrResult) }

// checkAliasing rejects a query whose access set asks for the same
// component more than once when at least one of those accesses is unique
// (shared+unique or unique+unique; spec.md §4.F: "(&mut T, &T) is
// rejected at fetch construction"), before any archetype is touched.
func checkAliasing(terms []accessTerm) error {
	byID := make(map[ComponentID][]accessMode, len(terms))
	for _, t := range terms {
		byID[t.id] = append(byID[t.id], t.mode)
	}
	for id, modes := range byID {
		if len(modes) < 2 {
			continue
		}
		for _, m := range modes {
			if m == accessUnique {
				return AliasedAccessError{Component: id}
			}
		}
	}
	return nil
}

func collectAccess(terms ...interface {
	access() (accessTerm, bool)
}) []accessTerm {
	var out []accessTerm
	for _, t := range terms {
		if at, ok := t.access(); ok {
			out = append(out, at)
		}
	}
	return out
}
