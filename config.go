package silo

// ArchetypeEvents lets a collaborator (e.g. a serialization layer)
// observe archetype creation without polling ArchetypesGeneration,
// mirroring the teacher's table.TableEvents hook.
type ArchetypeEvents struct {
	OnArchetypeCreated func(signature []ComponentID)
}

// config holds process-wide tunables for every World. It is deliberately
// package-level, matching the teacher's own singleton Config.
type config struct {
	events ArchetypeEvents
}

// Config is the global tunable set new Worlds are created with.
var Config config

// SetArchetypeEvents installs the hook for Worlds created after this
// call (NewWorld snapshots it); such a World invokes it the first time it
// places an entity in an archetype it has not reported yet.
func (c *config) SetArchetypeEvents(events ArchetypeEvents) {
	c.events = events
}
