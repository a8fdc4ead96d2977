package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigArchetypeEventsFireOnce(t *testing.T) {
	prev := Config.events
	defer Config.SetArchetypeEvents(prev)

	var seen [][]ComponentID
	Config.SetArchetypeEvents(ArchetypeEvents{
		OnArchetypeCreated: func(sig []ComponentID) {
			seen = append(seen, sig)
		},
	})

	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	// Spawning a second entity into the same archetype must not re-fire.
	_, err = w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	vel := RegisterComponent[testVelocity]()
	require.NoError(t, w.Insert(e, NewBundle1(vel, testVelocity{})))

	assert.Len(t, seen, 2)
}
