package silo

import (
	"reflect"
	"unsafe"
)

type archetypeID uint32

// defaultColumnCapacity is the minimum geometric growth step for a freshly
// allocated column, matching spec.md §4.C's "×2 with minimum 64".
const defaultColumnCapacity = 64

// column is one component's contiguous, aligned byte buffer for an
// archetype; the borrow counter guarding concurrent query access to it
// lives in the archetype's parallel borrows slice. The buffer is backed by a reflect-allocated array so indexing stays
// type-aware (alignment and layout come straight from the Go runtime)
// while still exposing a raw pointer for O(1) pointer arithmetic at fetch
// time, grounded on the same reflect.ArrayOf + unsafe.Pointer technique
// used for per-component column storage in the wider ECS example pack.
type column struct {
	info   *TypeInfo
	buffer reflect.Value // addressable [cap]T array
	ptr    unsafe.Pointer
}

func newColumn(info *TypeInfo, capacity int) column {
	if capacity < 1 {
		capacity = 1
	}
	buf := reflect.New(reflect.ArrayOf(capacity, info.RType)).Elem()
	return column{info: info, buffer: buf, ptr: buf.Addr().UnsafePointer()}
}

func (c *column) at(row uint32) unsafe.Pointer {
	return unsafe.Add(c.ptr, c.info.Size*uintptr(row))
}

func (c *column) grow(newCapacity int) {
	old := c.buffer
	c.buffer = reflect.New(reflect.ArrayOf(newCapacity, c.info.RType)).Elem()
	c.ptr = c.buffer.Addr().UnsafePointer()
	reflect.Copy(c.buffer, old)
}

// archetype is the columnar store for every entity sharing one exact set
// of component types (spec.md §3's Archetype). Its signature (sorted
// ComponentIDs) never changes after creation; only its rows do.
type archetype struct {
	id        archetypeID
	signature []ComponentID // sorted, deduplicated
	infos     []*TypeInfo   // parallel to signature
	index     map[ComponentID]int

	entitiesCol []Entity
	columns     []column
	borrows     []columnBorrow // parallel to columns; empty archetype has none

	length   uint32
	capacity uint32

	edges map[ComponentID]archetypeEdge
}

// archetypeEdge caches the neighbor archetype reached by adding or
// removing one component, avoiding a full signature hash/lookup on every
// hot-path insert/remove (spec.md §4.D).
type archetypeEdge struct {
	add    archetypeID
	hasAdd bool
	remove archetypeID
	hasRem bool
}

func newArchetypeStorage(id archetypeID, infos []*TypeInfo) *archetype {
	a := &archetype{
		id:      id,
		infos:   infos,
		index:   make(map[ComponentID]int, len(infos)),
		edges:   make(map[ComponentID]archetypeEdge),
		columns: make([]column, len(infos)),
	}
	a.signature = make([]ComponentID, len(infos))
	for i, info := range infos {
		a.signature[i] = info.ID
		a.index[info.ID] = i
		a.columns[i] = newColumn(info, 1)
	}
	if len(infos) > 0 {
		a.borrows = make([]columnBorrow, len(infos))
	}
	return a
}

// Empty reports whether this is the archetype with zero components.
func (a *archetype) Empty() bool { return len(a.signature) == 0 }

// Len returns the number of entity rows currently stored.
func (a *archetype) Len() int { return int(a.length) }

// Signature returns the sorted component id set this archetype stores.
func (a *archetype) Signature() []ComponentID { return a.signature }

// Has reports whether the archetype's signature contains id.
func (a *archetype) Has(id ComponentID) bool {
	_, ok := a.index[id]
	return ok
}

// columnFor returns the column index storing id, if this archetype has it.
func (a *archetype) columnFor(id ComponentID) (int, bool) {
	idx, ok := a.index[id]
	return idx, ok
}

// componentPtr returns a pointer to the row'th element of id's column.
func (a *archetype) componentPtr(id ComponentID, row uint32) (unsafe.Pointer, bool) {
	idx, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return a.columns[idx].at(row), true
}

// reserve grows every column (and the entity column) to at least n total
// rows of capacity, geometric (doubling, minimum defaultColumnCapacity).
func (a *archetype) reserve(n uint32) {
	if a.capacity >= n {
		return
	}
	newCap := a.capacity
	if newCap == 0 {
		newCap = defaultColumnCapacity
	}
	for newCap < n {
		newCap *= 2
	}
	for i := range a.columns {
		a.columns[i].grow(int(newCap))
	}
	grownEntities := make([]Entity, a.length, newCap)
	copy(grownEntities, a.entitiesCol)
	a.entitiesCol = grownEntities
	a.capacity = newCap
}

// allocRow grows storage if necessary and appends a new, zero-valued row
// for e, returning its row index. Callers still owe every column a
// constructed value (via TypeInfo.Move or a direct write).
func (a *archetype) allocRow(e Entity) uint32 {
	if a.length == a.capacity {
		a.reserve(a.length + 1)
	}
	row := a.length
	a.entitiesCol = append(a.entitiesCol, e)
	a.length++
	return row
}

// removeSwap drops row's own column bytes, then swap-removes it by moving
// the last row into its place (unless row was already last). Dropping row
// before the move is what makes this safe to call directly from Despawn,
// where nothing has relocated row's components elsewhere first; callers
// that already moved row's components out (an archetype transition) just
// pay a harmless no-op drop of an already-zeroed slot. It returns the
// entity that used to occupy the last row and now sits at row, so the
// caller can patch Entities' location table, or the dangling Entity(0) if
// row was already last and no row moved.
func (a *archetype) removeSwap(row uint32) Entity {
	last := a.length - 1
	moved := Entity(0)
	for i := range a.columns {
		col := &a.columns[i]
		col.info.Drop(col.at(row))
	}
	if row != last {
		moved = a.entitiesCol[last]
		a.entitiesCol[row] = moved
		for i := range a.columns {
			col := &a.columns[i]
			col.info.Move(col.at(row), col.at(last))
		}
	}
	a.entitiesCol = a.entitiesCol[:last]
	a.length--
	return moved
}

// entityAt returns the entity stored at row.
func (a *archetype) entityAt(row uint32) Entity { return a.entitiesCol[row] }

// ColumnBase returns the base pointer of id's column buffer along with its
// TypeInfo, for custom column-major consumers such as serialization
// (spec.md §6 archetype introspection). The returned pointer is valid for
// Len() elements of the reported size/alignment.
func (a *archetype) ColumnBase(id ComponentID) (ptr unsafe.Pointer, info *TypeInfo, ok bool) {
	idx, ok := a.index[id]
	if !ok {
		return nil, nil, false
	}
	return a.columns[idx].ptr, a.infos[idx], true
}
