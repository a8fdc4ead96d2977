package silo

// EntityRef is a handle+world pair, a convenience for code that already
// resolved one entity and wants repeated typed access to it without
// re-threading the World argument (spec.md §6).
type EntityRef struct {
	world  *World
	entity Entity
}

// Ref binds an EntityRef to e in w. It does not check that e is live;
// if it isn't, Components, EntityRefGet, EntityRefSatisfies and
// EntityRefQuery report NoSuchEntityError, Len reports 0 and
// EntityRefHas reports false.
func Ref(w *World, e Entity) EntityRef { return EntityRef{world: w, entity: e} }

// Entity returns the bound entity handle.
func (r EntityRef) Entity() Entity { return r.entity }

// Len reports how many components the bound entity currently carries.
func (r EntityRef) Len() int {
	loc, err := r.world.entities.resolve(r.entity)
	if err != nil {
		return 0
	}
	return len(r.world.archetypes.get(loc.archetype).signature)
}

// Components enumerates the bound entity's component ids.
func (r EntityRef) Components() ([]ComponentID, error) {
	loc, err := r.world.entities.resolve(r.entity)
	if err != nil {
		return nil, err
	}
	sig := r.world.archetypes.get(loc.archetype).signature
	return append([]ComponentID(nil), sig...), nil
}

// EntityRefGet returns a pointer to the bound entity's T component.
func EntityRefGet[T any](r EntityRef) (*T, error) { return Get[T](r.world, r.entity) }

// EntityRefHas reports whether the bound entity carries T, treating a
// resolution error (stale handle) as false.
func EntityRefHas[T any](r EntityRef) bool {
	ok, err := Satisfies[T](r.world, r.entity)
	return err == nil && ok
}

// EntityRefSatisfies reports whether the bound entity carries T.
func EntityRefSatisfies[T any](r EntityRef) (bool, error) { return Satisfies[T](r.world, r.entity) }

// EntityRefQuery evaluates term against the bound entity, the EntityRef
// equivalent of World.QueryOne.
func EntityRefQuery[O any](r EntityRef, term Term[O]) (O, error) {
	return QueryOne(r.world, r.entity, term)
}
