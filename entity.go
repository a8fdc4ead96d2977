package silo

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// Entity is a generational handle identifying a logical object. The low
// 32 bits are a dense id, reused after despawn; the high 32 bits are a
// generation counter bumped on every reuse of that id. Generation 0 is
// reserved for the dangling sentinel and never matches a live entity, so
// Entity(0) itself (the zero value) represents "no entity" without any
// extra tag.
type Entity uint64

// NewEntity packs an id/generation pair into an Entity handle.
func NewEntity(id, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(id))
}

// ID returns the dense id component of the handle.
func (e Entity) ID() uint32 { return uint32(e) }

// Generation returns the generation component of the handle.
func (e Entity) Generation() uint32 { return uint32(e >> 32) }

// Dangling reports whether e is the zero-value sentinel, i.e. not a
// handle to any entity that could ever be spawned.
func (e Entity) Dangling() bool { return e.Generation() == 0 }

func (e Entity) String() string {
	if e.Dangling() {
		return "Entity(dangling)"
	}
	return fmt.Sprintf("Entity(%d:%d)", e.ID(), e.Generation())
}

// location is where a live entity's row currently sits.
type location struct {
	archetype archetypeID
	row       uint32
}

// entityMeta is the bookkeeping Entities keeps per allocated id slot.
type entityMeta struct {
	generation uint32
	loc        location
}

const archetypeNone archetypeID = 0

// entities is the generational id allocator and id->location table
// described by spec.md §3/§4.A. Ids start at 1 so that generation 0 (the
// dangling niche) can never collide with a real slot: slot 0 is never
// handed out.
type entities struct {
	meta     []entityMeta
	freeList []uint32
}

func newEntities() *entities {
	return &entities{
		meta: make([]entityMeta, 1), // index 0 unused, keeps id 0 == dangling
	}
}

// allocate pops a free id (bumping its generation) or grows the table,
// amortised O(1) either way.
func (es *entities) allocate() Entity {
	if n := len(es.freeList); n > 0 {
		id := es.freeList[n-1]
		es.freeList = es.freeList[:n-1]
		gen := es.meta[id].generation
		return NewEntity(id, gen)
	}
	id := uint32(len(es.meta))
	es.meta = append(es.meta, entityMeta{generation: 1})
	return NewEntity(id, 1)
}

// reserve grows the meta table ahead of a spawn_batch, vector-style.
func (es *entities) reserve(n int) {
	need := len(es.meta) + n
	if cap(es.meta) >= need {
		return
	}
	grown := make([]entityMeta, len(es.meta), max(need, 2*cap(es.meta)))
	copy(grown, es.meta)
	es.meta = grown
}

// spawnAt force-allocates a specific (id, generation), used by
// deserialisation collaborators. It fails if the slot is live with the
// same or a newer generation, or if the slot's generation has already
// advanced past e's.
func (es *entities) spawnAt(e Entity) error {
	id, gen := e.ID(), e.Generation()
	if gen == 0 {
		return fmt.Errorf("cannot spawn at dangling entity")
	}
	if int(id) < len(es.meta) {
		existing := es.meta[id]
		if existing.generation >= gen && existing.loc.archetype != archetypeNone {
			return fmt.Errorf("slot %d occupied by newer or equal generation %d", id, existing.generation)
		}
		if existing.generation > gen {
			return fmt.Errorf("slot %d already advanced past generation %d", id, gen)
		}
		es.removeFromFreeList(id)
		es.meta[id].generation = gen
		return nil
	}
	for uint32(len(es.meta)) < id {
		idx := uint32(len(es.meta))
		es.meta = append(es.meta, entityMeta{generation: 1, loc: location{archetype: archetypeNone}})
		es.freeList = append(es.freeList, idx)
	}
	es.meta = append(es.meta, entityMeta{generation: gen})
	return nil
}

func (es *entities) removeFromFreeList(id uint32) {
	for i, v := range es.freeList {
		if v == id {
			es.freeList[i] = es.freeList[len(es.freeList)-1]
			es.freeList = es.freeList[:len(es.freeList)-1]
			return
		}
	}
}

// free validates e's generation, marks the slot free with a bumped
// generation, and returns the location it previously occupied so the
// caller can clean up archetype storage.
func (es *entities) free(e Entity) (location, error) {
	if !es.alive(e) {
		return location{}, NoSuchEntityError{Entity: e}
	}
	id := e.ID()
	loc := es.meta[id].loc
	es.meta[id].generation++
	if es.meta[id].generation == 0 {
		es.meta[id].generation = 1 // skip back over the dangling niche on overflow
	}
	es.meta[id].loc = location{archetype: archetypeNone}
	es.freeList = append(es.freeList, id)
	return loc, nil
}

// alive reports whether e's generation matches the slot's current
// generation and the slot is actually occupied.
func (es *entities) alive(e Entity) bool {
	if e.Dangling() {
		return false
	}
	id := e.ID()
	if int(id) >= len(es.meta) {
		return false
	}
	m := es.meta[id]
	return m.generation == e.Generation() && m.loc.archetype != archetypeNone
}

// resolve returns the current location of a live entity.
func (es *entities) resolve(e Entity) (location, error) {
	if !es.alive(e) {
		return location{}, NoSuchEntityError{Entity: e}
	}
	return es.meta[e.ID()].loc, nil
}

// setLocation updates the stored location for a live id, called whenever
// a row moves (archetype transition or swap-remove of another row). The
// id always comes from an Entity this package already resolved or just
// allocated, so an out-of-range id here is an internal bookkeeping bug.
func (es *entities) setLocation(id uint32, loc location) {
	if int(id) >= len(es.meta) {
		panic(bark.AddTrace(fmt.Errorf("entities: setLocation on unallocated id %d", id)))
	}
	es.meta[id].loc = loc
}

// findByID reconstructs the live Entity handle for a raw id, used by
// deserialisation collaborators that only know the id.
func (es *entities) findByID(id uint32) (Entity, bool) {
	if int(id) >= len(es.meta) {
		return Entity(0), false
	}
	m := es.meta[id]
	if m.loc.archetype == archetypeNone {
		return Entity(0), false
	}
	return NewEntity(id, m.generation), true
}

// len reports the number of currently live entities.
func (es *entities) len() int {
	return len(es.meta) - 1 - len(es.freeList)
}
