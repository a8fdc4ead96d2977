package silo

import (
	"fmt"
	"sort"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// archetypeSet owns every archetype ever created in a world and is the
// registry/index described by spec.md §3/§4.D: a hashmap from a
// canonical, sorted component-id set to an archetype, plus a generation
// counter callers use to invalidate PreparedQuery caches. The empty
// archetype is created eagerly and always lives at a fixed index.
type archetypeSet struct {
	nextID     archetypeID
	byID       []*archetype // 1-indexed: byID[id-1]
	byMask     map[mask.Mask]archetypeID
	generation uint64
}

func newArchetypeSet() *archetypeSet {
	s := &archetypeSet{
		nextID: 1,
		byMask: make(map[mask.Mask]archetypeID),
	}
	s.getOrCreate(nil)
	return s
}

// empty returns the always-present, zero-component archetype.
func (s *archetypeSet) empty() *archetype { return s.byID[0] }

// get resolves an archetypeID produced internally by this same set. A
// miss here means an Entities location table entry points at an
// archetype this set never created - a programming error, not a
// user-facing one, so it aborts rather than returning an error.
func (s *archetypeSet) get(id archetypeID) *archetype {
	if id == 0 || int(id) > len(s.byID) {
		panic(bark.AddTrace(fmt.Errorf("archetype set: id %d out of range (have %d)", id, len(s.byID))))
	}
	return s.byID[id-1]
}

func (s *archetypeSet) all() []*archetype { return s.byID }

func maskFor(ids []ComponentID) mask.Mask {
	var m mask.Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}

// canonicalSignature sorts and deduplicates a component id set. Returns an
// error if a duplicate is found, matching spec.md §4.E's bundle rule.
func canonicalSignature(ids []ComponentID) ([]ComponentID, error) {
	out := append([]ComponentID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, DuplicateBundleTypeError{Component: out[i]}
		}
	}
	return out, nil
}

// getOrCreate looks up the archetype for an already deduplicated set of
// component infos, given in any order, creating it with its infos sorted
// by ComponentID if missing. Creation bumps the generation counter so
// outstanding PreparedQuery caches know to recompute their matched
// archetype list.
func (s *archetypeSet) getOrCreate(infos []*TypeInfo) *archetype {
	ids := make([]ComponentID, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	m := maskFor(ids)
	if id, ok := s.byMask[m]; ok {
		return s.byID[id-1]
	}

	id := s.nextID
	s.nextID++
	sorted := append([]*TypeInfo(nil), infos...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	created := newArchetypeStorage(id, sorted)
	s.byID = append(s.byID, created)
	s.byMask[m] = id
	s.generation++
	return created
}

// transitionAdd returns the archetype reached by adding component `add`
// to `from`, using and populating from's edge cache.
func (s *archetypeSet) transitionAdd(from *archetype, add *TypeInfo) *archetype {
	if e, ok := from.edges[add.ID]; ok && e.hasAdd {
		return s.byID[e.add-1]
	}
	infos := mergeInfos(from.infos, add, nil)
	to := s.getOrCreate(infos)
	e := from.edges[add.ID]
	e.add, e.hasAdd = to.id, true
	from.edges[add.ID] = e
	return to
}

// transitionRemove returns the archetype reached by removing component
// `remove` from `from`, using and populating from's edge cache.
func (s *archetypeSet) transitionRemove(from *archetype, remove ComponentID) *archetype {
	if e, ok := from.edges[remove]; ok && e.hasRem {
		return s.byID[e.remove-1]
	}
	infos := mergeInfos(from.infos, nil, map[ComponentID]bool{remove: true})
	to := s.getOrCreate(infos)
	e := from.edges[remove]
	e.remove, e.hasRem = to.id, true
	from.edges[remove] = e
	return to
}

// target resolves the archetype reached by adding `add` and removing
// `remove` from `from` in a single step, per spec.md §4.D's exchange.
func (s *archetypeSet) target(from *archetype, add []*TypeInfo, remove map[ComponentID]bool) *archetype {
	infos := mergeInfosMulti(from.infos, add, remove)
	return s.getOrCreate(infos)
}

func mergeInfos(base []*TypeInfo, add *TypeInfo, remove map[ComponentID]bool) []*TypeInfo {
	var adds []*TypeInfo
	if add != nil {
		adds = []*TypeInfo{add}
	}
	return mergeInfosMulti(base, adds, remove)
}

func mergeInfosMulti(base []*TypeInfo, add []*TypeInfo, remove map[ComponentID]bool) []*TypeInfo {
	seen := make(map[ComponentID]*TypeInfo, len(base)+len(add))
	for _, info := range base {
		if remove != nil && remove[info.ID] {
			continue
		}
		seen[info.ID] = info
	}
	for _, info := range add {
		seen[info.ID] = info
	}
	out := make([]*TypeInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
