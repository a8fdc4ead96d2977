/*
Package silo provides an archetype-based Entity-Component-System (ECS)
world for games and simulations.

Silo stores entities in column-oriented groups called archetypes, one per
unique set of component types, and serves typed multi-component queries
over them with near-linear memory throughput. Silo is a library, not a
framework: there is no built-in scheduler and no "system" abstraction,
callers drive iteration from ordinary code.

Core Concepts:

  - Entity: a generational handle identifying a logical object.
  - Component: a value of any registered type attached to an entity.
  - Archetype: the columnar storage for all entities sharing one set of
    component types.
  - Query: a composable description of the components a caller wants to
    read or write, compiled into a Fetch that iterates matching
    archetypes.

Basic Usage:

	world := silo.NewWorld()

	position := silo.RegisterComponent[Position]()
	velocity := silo.RegisterComponent[Velocity]()

	b, _ := silo.NewBundle2(position, Position{}, velocity, Velocity{X: 1})
	e, _ := world.Spawn(b)

	q, _ := silo.NewQuery2(position.Mut(), velocity.Ref())
	it := q.Iter(world)
	for it.Next() {
		pos, vel := it.Get()
		pos.X += vel.X
	}

Silo does not persist entities, replicate them over a network, or run
systems in parallel on the caller's behalf; it is the storage and query
engine that such higher layers are built on.
*/
package silo
