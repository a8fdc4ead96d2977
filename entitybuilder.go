package silo

import "unsafe"

// EntityBuilder is a heap-backed arena that accumulates components of
// arbitrary types, then produces a BuiltEntity implementing
// DynamicBundle (spec.md §4.H). Each component is written at a cursor
// rounded up to its own alignment by alignUp, and its offset is recorded
// per field - EntityBuilderAdd forgetting to round the cursor is exactly
// the "known past bug" spec.md §9 calls out, so TestEntityBuilderAlignment
// checks the recorded offsets.
type EntityBuilder struct {
	arena  []byte
	cursor uintptr
	infos  []*TypeInfo
	offs   []uintptr
	clone  bool
}

// NewEntityBuilder returns an empty builder.
func NewEntityBuilder() *EntityBuilder {
	return &EntityBuilder{arena: make([]byte, 0, 256)}
}

// NewEntityBuilderClone returns an empty builder whose BuiltEntity can be
// spawned more than once: every added component must be Cloneable.
func NewEntityBuilderClone() *EntityBuilder {
	b := NewEntityBuilder()
	b.clone = true
	return b
}

// alignUp rounds cursor up to a multiple of align.
func alignUp(cursor uintptr, align uintptr) uintptr {
	if align == 0 {
		return cursor
	}
	return (cursor + align - 1) &^ (align - 1)
}

// EntityBuilderAdd stages one component of type T into the arena. Returns
// the builder for chaining.
func EntityBuilderAdd[T any](b *EntityBuilder, ct ComponentType[T], value T) *EntityBuilder {
	info := ct.info
	if b.clone && !info.Cloneable() {
		panic("component type added to a clone EntityBuilder must be cloneable")
	}
	off := alignUp(b.cursor, info.Align)
	need := off + info.Size
	if uintptr(cap(b.arena)) < need {
		grown := make([]byte, len(b.arena), need*2+64)
		copy(grown, b.arena)
		b.arena = grown
	}
	b.arena = b.arena[:need]
	ptr := unsafe.Pointer(&b.arena[off])
	*(*T)(ptr) = value
	b.infos = append(b.infos, info)
	b.offs = append(b.offs, off)
	b.cursor = need
	return b
}

// addRaw stages one component by moving it out of srcPtr (which is left
// zeroed, per TypeInfo.Move), used by World.Take to lift a live entity's
// components into a fresh builder without going through a typed
// ComponentType token.
func (b *EntityBuilder) addRaw(info *TypeInfo, srcPtr unsafe.Pointer) {
	off := alignUp(b.cursor, info.Align)
	need := off + info.Size
	if uintptr(cap(b.arena)) < need {
		grown := make([]byte, len(b.arena), need*2+64)
		copy(grown, b.arena)
		b.arena = grown
	}
	b.arena = b.arena[:need]
	dst := unsafe.Pointer(&b.arena[off])
	info.Move(dst, srcPtr)
	b.infos = append(b.infos, info)
	b.offs = append(b.offs, off)
	b.cursor = need
}

// Build finalizes the arena into a BuiltEntity bundle, validating that no
// component type was added twice.
func (b *EntityBuilder) Build() (*BuiltEntity, error) {
	if err := dedupeInfos(b.infos); err != nil {
		return nil, err
	}
	return &BuiltEntity{builder: b}, nil
}

// BuiltEntity is the DynamicBundle produced by EntityBuilder.Build. If
// the originating builder was a clone builder, the same BuiltEntity can
// be passed to World.Spawn repeatedly.
type BuiltEntity struct {
	builder *EntityBuilder
}

func (be *BuiltEntity) componentInfos() []*TypeInfo { return be.builder.infos }

func (be *BuiltEntity) put(visit bundleVisitor) {
	b := be.builder
	for i, info := range b.infos {
		ptr := unsafe.Pointer(&b.arena[b.offs[i]])
		if b.clone {
			// Clone into a throwaway scratch buffer so repeated Spawn calls
			// don't zero out the arena's copy via move-and-clear.
			tmp := make([]byte, info.Size)
			info.Clone(unsafe.Pointer(&tmp[0]), ptr)
			visit(info, unsafe.Pointer(&tmp[0]))
			continue
		}
		visit(info, ptr)
	}
}
