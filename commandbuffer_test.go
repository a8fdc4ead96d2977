package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandBufferLocalHandleCrossReference(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()

	cb := NewCommandBuffer()
	local := cb.Spawn(NewBundle1(pos, testPosition{X: 1}))
	cb.Insert(local, NewBundle1(vel, testVelocity{X: 2}))

	result, err := cb.RunOn(w, true)
	require.NoError(t, err)
	require.Len(t, result.Spawned, 1)

	e := result.Spawned[0]
	p, err := Get[testPosition](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(1), p.X)
	v, err := Get[testVelocity](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(2), v.X)
}

func TestCommandBufferRealEntityTarget(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)

	cb := NewCommandBuffer()
	cb.Despawn(RealEntity(e))

	_, err = cb.RunOn(w, true)
	require.NoError(t, err)
	assert.False(t, w.Contains(e))
}

func TestCommandBufferStrictStopsAtFirstError(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)
	require.NoError(t, w.Despawn(e))

	cb := NewCommandBuffer()
	cb.Despawn(RealEntity(e)) // already despawned - fails
	cb.Spawn(NewBundle1(pos, testPosition{X: 9}))

	result, err := cb.RunOn(w, true)
	require.Error(t, err)
	assert.Empty(t, result.Spawned[0]) // second op never ran

	// the world must be unaffected by the op that never ran
	assert.Equal(t, 0, w.Len())
}

func TestCommandBufferNonStrictCollectsErrorsAndContinues(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)
	require.NoError(t, w.Despawn(e))

	cb := NewCommandBuffer()
	cb.Despawn(RealEntity(e)) // fails, but replay continues
	cb.Spawn(NewBundle1(pos, testPosition{X: 9}))

	result, err := cb.RunOn(w, false)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Len(t, result.Spawned, 1)
	assert.False(t, result.Spawned[0].Dangling())
	assert.Equal(t, 1, w.Len())
}

func TestCommandBufferStrictAbortSkipsLocalHandleOps(t *testing.T) {
	// A strict replay stops at the failing Despawn, so the later Spawn and
	// the Insert against its local handle never run, and RunOn returns the
	// Despawn's error.
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)
	require.NoError(t, w.Despawn(e))

	cb := NewCommandBuffer()
	cb.Despawn(RealEntity(e)) // fails first, strict mode stops here
	local := cb.Spawn(NewBundle1(pos, testPosition{}))
	cb.Insert(local, NewBundle1(pos, testPosition{X: 5}))

	_, err = cb.RunOn(w, true)
	require.Error(t, err)
}
