package silo

import (
	"sync/atomic"
	"unsafe"
)

// World is the top-level facade: the entity allocator and archetype set
// bound together behind the public mutation and query API (spec.md §6).
// A World is not safe for concurrent mutation; concurrent query() readers
// are safe per the borrow rules enforced by BorrowState.
type World struct {
	entities   *entities
	archetypes *archetypeSet

	activeIterations atomic.Int32

	events       ArchetypeEvents
	notifiedUpTo archetypeID
}

// NewWorld creates an empty world, snapshotting Config's archetype event
// hooks at construction time.
func NewWorld() *World {
	return &World{
		entities:   newEntities(),
		archetypes: newArchetypeSet(),
		events:     Config.events,
	}
}

func (w *World) beginIteration() { w.activeIterations.Add(1) }
func (w *World) endIteration()   { w.activeIterations.Add(-1) }

func (w *World) locked() bool { return w.activeIterations.Load() > 0 }

func (w *World) checkUnlocked() error {
	if w.locked() {
		return LockedWorldError{}
	}
	return nil
}

// notifyArchetype fires the ArchetypeEvents hook the first time a is
// observed by this world; archetype ids are assigned in creation order so
// a simple high-water mark suffices to fire exactly once per archetype.
func (w *World) notifyArchetype(a *archetype) {
	if a.id <= w.notifiedUpTo {
		return
	}
	w.notifiedUpTo = a.id
	if w.events.OnArchetypeCreated != nil {
		w.events.OnArchetypeCreated(append([]ComponentID(nil), a.signature...))
	}
}

// Spawn inserts a new entity with bundle's components in a single
// archetype transition from the empty archetype.
func (w *World) Spawn(bundle Bundle) (Entity, error) {
	if err := w.checkUnlocked(); err != nil {
		return Entity(0), err
	}
	infos := bundle.componentInfos()
	target := w.archetypes.getOrCreate(infos)
	target.reserve(target.length + 1)

	e := w.entities.allocate()
	row := target.allocRow(e)
	bundle.put(func(info *TypeInfo, ptr unsafe.Pointer) {
		dst, _ := target.componentPtr(info.ID, row)
		info.Move(dst, ptr)
	})
	w.entities.setLocation(e.ID(), location{archetype: target.id, row: row})
	w.notifyArchetype(target)
	return e, nil
}

// SpawnAt force-allocates a specific (id, generation) handle and inserts
// bundle's components there, for deserialisation collaborators. It fails
// if the slot is live with the same or a newer generation, or if the
// slot's generation has already advanced past e's.
func (w *World) SpawnAt(e Entity, bundle Bundle) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	if err := w.entities.spawnAt(e); err != nil {
		return err
	}
	infos := bundle.componentInfos()
	target := w.archetypes.getOrCreate(infos)
	target.reserve(target.length + 1)

	row := target.allocRow(e)
	bundle.put(func(info *TypeInfo, ptr unsafe.Pointer) {
		dst, _ := target.componentPtr(info.ID, row)
		info.Move(dst, ptr)
	})
	w.entities.setLocation(e.ID(), location{archetype: target.id, row: row})
	w.notifyArchetype(target)
	return nil
}

// SpawnBatch spawns one entity per bundle, sharing a single reserve per
// distinct target archetype would require grouping by signature; for a
// heterogeneous slice of bundles this simply spawns each in turn. Use
// NewColumnBatch when every entity shares one known signature and bulk
// column writes are wanted.
func (w *World) SpawnBatch(bundles []Bundle) ([]Entity, error) {
	out := make([]Entity, 0, len(bundles))
	for _, b := range bundles {
		e, err := w.Spawn(b)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Despawn removes e and drops its remaining components.
func (w *World) Despawn(e Entity) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	loc, err := w.entities.free(e)
	if err != nil {
		return err
	}
	a := w.archetypes.get(loc.archetype)
	moved := a.removeSwap(loc.row)
	if !moved.Dangling() {
		w.entities.setLocation(moved.ID(), location{archetype: loc.archetype, row: loc.row})
	}
	return nil
}

// transitionEntity is the shared implementation behind Insert, Exchange,
// and RemoveComponents: it computes the archetype reached by adding
// bundle's components and removing removeIDs in a single step (spec.md
// §4.D's exchange), moving shared components across and letting bundle
// values override in-place overwrites, then swap-removes the old row.
// When the component set does not change, the bundle's values overwrite
// the entity's existing row in place.
func (w *World) transitionEntity(e Entity, removeIDs []ComponentID, bundle Bundle) (location, error) {
	if err := w.checkUnlocked(); err != nil {
		return location{}, err
	}
	loc, err := w.entities.resolve(e)
	if err != nil {
		return location{}, err
	}
	from := w.archetypes.get(loc.archetype)

	var removeSet map[ComponentID]bool
	if len(removeIDs) > 0 {
		removeSet = make(map[ComponentID]bool, len(removeIDs))
		for _, id := range removeIDs {
			removeSet[id] = true
		}
	}

	var bundleMap map[ComponentID]unsafe.Pointer
	var addInfos []*TypeInfo
	if bundle != nil {
		bundleMap = make(map[ComponentID]unsafe.Pointer, len(bundle.componentInfos()))
		bundle.put(func(info *TypeInfo, ptr unsafe.Pointer) {
			bundleMap[info.ID] = ptr
			// Present in the target either because it's genuinely new, or
			// because it was marked for removal and the bundle is putting
			// it right back (an Exchange "replace" of the same type).
			if !from.Has(info.ID) || removeSet[info.ID] {
				addInfos = append(addInfos, info)
			}
		})
	}

	target := w.archetypes.target(from, addInfos, removeSet)
	if target == from {
		// Same component set: overwrite the bundle's values in the
		// entity's existing row rather than moving the row.
		for _, info := range from.infos {
			if ptr, ok := bundleMap[info.ID]; ok {
				dst, _ := from.componentPtr(info.ID, loc.row)
				info.Drop(dst)
				info.Move(dst, ptr)
			}
		}
		return loc, nil
	}
	target.reserve(target.length + 1)
	newRow := target.allocRow(e)

	for _, info := range target.infos {
		dst, _ := target.componentPtr(info.ID, newRow)
		if ptr, ok := bundleMap[info.ID]; ok {
			info.Move(dst, ptr)
			continue
		}
		src, ok := from.componentPtr(info.ID, loc.row)
		if !ok {
			continue
		}
		info.Move(dst, src)
	}

	moved := from.removeSwap(loc.row)
	if !moved.Dangling() {
		w.entities.setLocation(moved.ID(), location{archetype: loc.archetype, row: loc.row})
	}
	newLoc := location{archetype: target.id, row: newRow}
	w.entities.setLocation(e.ID(), newLoc)
	w.notifyArchetype(target)
	return newLoc, nil
}

// Insert adds bundle's components to e, overwriting in place any
// component type e already carries (spec.md §6).
func (w *World) Insert(e Entity, bundle Bundle) error {
	_, err := w.transitionEntity(e, nil, bundle)
	return err
}

// AddComponent[T] inserts T on e, failing with ComponentExistsError if e
// already carries it, instead of silently overwriting as Insert does.
func AddComponent[T any](w *World, e Entity, value T) error {
	ct := RegisterComponent[T]()
	loc, err := w.entities.resolve(e)
	if err != nil {
		return err
	}
	if w.archetypes.get(loc.archetype).Has(ct.info.ID) {
		return ComponentExistsError{Component: ct.info.ID}
	}
	b := NewBundle1(ct, value)
	_, err = w.transitionEntity(e, nil, &b)
	return err
}

// RemoveComponents drops each listed component from e in a single
// archetype transition, without returning the removed values. Use
// RemoveComponent[T] when the value is needed.
func (w *World) RemoveComponents(e Entity, ids ...ComponentID) error {
	_, err := w.transitionEntity(e, ids, nil)
	return err
}

// Exchange performs a combined remove+insert in one archetype transition,
// avoiding the intermediate archetype two separate calls would produce.
func (w *World) Exchange(e Entity, removeIDs []ComponentID, insert Bundle) error {
	_, err := w.transitionEntity(e, removeIDs, insert)
	return err
}

// RemoveComponent removes T from e and returns its value, or
// MissingComponentError if e does not carry T.
func RemoveComponent[T any](w *World, e Entity) (T, error) {
	var zero T
	ct := RegisterComponent[T]()
	loc, err := w.entities.resolve(e)
	if err != nil {
		return zero, err
	}
	from := w.archetypes.get(loc.archetype)
	srcPtr, ok := from.componentPtr(ct.info.ID, loc.row)
	if !ok {
		return zero, MissingComponentError{Entity: e, Component: ct.info.ID}
	}
	var out T
	ct.info.Move(unsafe.Pointer(&out), srcPtr)
	if _, err := w.transitionEntity(e, []ComponentID{ct.info.ID}, nil); err != nil {
		return zero, err
	}
	return out, nil
}

// Clear despawns every entity in the world, dropping all component
// storage, and resets the entity allocator. The archetype set itself
// (and its generation counter) is left intact, matching spec.md §3's
// "archetypes are never destroyed".
func (w *World) Clear() error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	for _, a := range w.archetypes.all() {
		for a.length > 0 {
			a.removeSwap(a.length - 1)
		}
	}
	w.entities = newEntities()
	return nil
}

// Len reports the number of currently live entities.
func (w *World) Len() int { return w.entities.len() }

// Contains reports whether e is currently live.
func (w *World) Contains(e Entity) bool { return w.entities.alive(e) }

// FindEntityFromID reconstructs the live Entity handle for a raw id.
func (w *World) FindEntityFromID(id uint32) (Entity, bool) { return w.entities.findByID(id) }

// ArchetypeHandle is a read-only introspection view onto one archetype,
// the surface spec.md §6 promises custom column-major consumers (e.g. a
// serialization layer): its signature, length, and raw column pointers.
type ArchetypeHandle struct{ a *archetype }

// ID returns the archetype's stable (for this world's lifetime) id.
func (h ArchetypeHandle) ID() uint32 { return uint32(h.a.id) }

// Signature returns the sorted component id set this archetype stores.
func (h ArchetypeHandle) Signature() []ComponentID { return h.a.Signature() }

// Len returns the number of entity rows currently stored.
func (h ArchetypeHandle) Len() int { return h.a.Len() }

// ColumnBase returns the base pointer and TypeInfo of id's column, for
// raw column-major access. ok is false if this archetype does not store
// id.
func (h ArchetypeHandle) ColumnBase(id ComponentID) (ptr unsafe.Pointer, info *TypeInfo, ok bool) {
	return h.a.ColumnBase(id)
}

// EntityAt returns the entity stored at row.
func (h ArchetypeHandle) EntityAt(row uint32) Entity { return h.a.entityAt(row) }

// Archetypes returns every archetype ever created in this world, in
// creation order (including the always-present empty archetype at index
// 0).
func (w *World) Archetypes() []ArchetypeHandle {
	all := w.archetypes.all()
	out := make([]ArchetypeHandle, len(all))
	for i, a := range all {
		out[i] = ArchetypeHandle{a: a}
	}
	return out
}

// ArchetypesGeneration returns the monotonically increasing counter
// bumped every time a new archetype is created, for PreparedQuery-style
// cache invalidation by external collaborators.
func (w *World) ArchetypesGeneration() uint64 { return w.archetypes.generation }

// Take moves e entirely out of the world, returning a BuiltEntity bundle
// that can be spawned into another world (or the same one), per spec.md
// §6's take(). Per spec.md §9's open question, Take requires exclusive
// world access and is rejected mid-iteration like any other mutation.
func (w *World) Take(e Entity) (*BuiltEntity, error) {
	if err := w.checkUnlocked(); err != nil {
		return nil, err
	}
	loc, err := w.entities.resolve(e)
	if err != nil {
		return nil, err
	}
	a := w.archetypes.get(loc.archetype)
	b := NewEntityBuilder()
	for _, info := range a.infos {
		ptr, _ := a.componentPtr(info.ID, loc.row)
		b.addRaw(info, ptr)
	}
	if _, err := w.entities.free(e); err != nil {
		return nil, err
	}
	moved := a.removeSwap(loc.row)
	if !moved.Dangling() {
		w.entities.setLocation(moved.ID(), location{archetype: loc.archetype, row: loc.row})
	}
	return b.Build()
}

// Get returns a pointer to e's T component, or MissingComponentError if
// absent. The pointer is valid until the next structural mutation of e's
// archetype (insert/remove/despawn on any entity sharing it, or growth).
func Get[T any](w *World, e Entity) (*T, error) {
	ct := RegisterComponent[T]()
	loc, err := w.entities.resolve(e)
	if err != nil {
		return nil, err
	}
	a := w.archetypes.get(loc.archetype)
	ptr, ok := a.componentPtr(ct.info.ID, loc.row)
	if !ok {
		return nil, MissingComponentError{Entity: e, Component: ct.info.ID}
	}
	return (*T)(ptr), nil
}

// Satisfies reports whether e currently carries T.
func Satisfies[T any](w *World, e Entity) (bool, error) {
	ct := RegisterComponent[T]()
	loc, err := w.entities.resolve(e)
	if err != nil {
		return false, err
	}
	return w.archetypes.get(loc.archetype).Has(ct.info.ID), nil
}

// QueryOne evaluates a single Term against one entity, returning
// QueryOneError if the entity exists but its archetype does not match
// the term (spec.md §4.F's query_one).
func QueryOne[O any](w *World, e Entity, term Term[O]) (O, error) {
	var zero O
	loc, err := w.entities.resolve(e)
	if err != nil {
		return zero, err
	}
	a := w.archetypes.get(loc.archetype)
	if !term.matches(a) {
		return zero, QueryOneError{Entity: e}
	}
	state := term.prepare(a)
	return term.fetch(state, loc.row), nil
}

// EntityIterator walks every live entity in the world in archetype
// storage order, the iterator behind World.Iter (spec.md §6's iter()).
// It does not borrow any component column; it only locks the world
// against structural mutation while live, consistent with every other
// query iterator.
type EntityIterator struct {
	world   *World
	archs   []*archetype
	archIdx int
	row     uint32
	length  uint32
	started bool
}

// Iter starts an iterator over every live entity in the world.
func (w *World) Iter() *EntityIterator {
	w.beginIteration()
	return &EntityIterator{world: w, archs: w.archetypes.all(), archIdx: -1}
}

// Next advances to the next live entity.
func (it *EntityIterator) Next() bool {
	for {
		if it.started && it.row+1 < it.length {
			it.row++
			return true
		}
		it.archIdx++
		if it.archIdx >= len(it.archs) {
			it.world.endIteration()
			return false
		}
		a := it.archs[it.archIdx]
		if a.Len() == 0 {
			it.started = false
			continue
		}
		it.row = 0
		it.length = a.length
		it.started = true
		return true
	}
}

// Entity returns the current entity.
func (it *EntityIterator) Entity() Entity { return it.archs[it.archIdx].entityAt(it.row) }

// Get returns an EntityRef bound to the current entity.
func (it *EntityIterator) Get() EntityRef {
	return EntityRef{world: it.world, entity: it.Entity()}
}

// Close ends the iteration early, unlocking the world for mutation.
func (it *EntityIterator) Close() {
	if it.archIdx < len(it.archs) {
		it.world.endIteration()
		it.archIdx = len(it.archs)
	}
}
