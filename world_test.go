package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldSpawnAndDespawn(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)
	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Contains(e))

	require.NoError(t, w.Despawn(e))
	assert.Equal(t, 0, w.Len())
	assert.False(t, w.Contains(e))

	_, err = Get[testPosition](w, e)
	var noSuch NoSuchEntityError
	require.ErrorAs(t, err, &noSuch)
}

func TestWorldInsertOverwritesInPlace(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)

	require.NoError(t, w.Insert(e, NewBundle1(pos, testPosition{X: 99})))
	p, err := Get[testPosition](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(99), p.X)
}

func TestWorldAddComponentRejectsDuplicate(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	err = AddComponent(w, e, testPosition{X: 5})
	var exists ComponentExistsError
	require.ErrorAs(t, err, &exists)
}

func TestWorldRemoveComponentReturnsValue(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()
	b, err := NewBundle2(pos, testPosition{X: 1}, vel, testVelocity{X: 7})
	require.NoError(t, err)
	e, err := w.Spawn(b)
	require.NoError(t, err)

	removed, err := RemoveComponent[testVelocity](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(7), removed.X)

	_, err = Get[testVelocity](w, e)
	var missing MissingComponentError
	require.ErrorAs(t, err, &missing)

	// Position must have survived the transition.
	p, err := Get[testPosition](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(1), p.X)
}

func TestWorldExchangeReplacesSameComponent(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)

	err = w.Exchange(e, []ComponentID{pos.info.ID}, NewBundle1(pos, testPosition{X: 123}))
	require.NoError(t, err)

	p, err := Get[testPosition](w, e)
	require.NoError(t, err)
	assert.Equal(t, float64(123), p.X)
}

func TestWorldClearResetsButKeepsArchetypes(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	_, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)
	genBefore := w.ArchetypesGeneration()

	require.NoError(t, w.Clear())
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, genBefore, w.ArchetypesGeneration())
}

func TestWorldFindEntityFromID(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	found, ok := w.FindEntityFromID(e.ID())
	require.True(t, ok)
	assert.Equal(t, e, found)
}

func TestWorldTakeMovesEntityOut(t *testing.T) {
	w1 := NewWorld()
	w2 := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w1.Spawn(NewBundle1(pos, testPosition{X: 3}))
	require.NoError(t, err)

	built, err := w1.Take(e)
	require.NoError(t, err)
	assert.False(t, w1.Contains(e))

	e2, err := w2.Spawn(built)
	require.NoError(t, err)
	p, err := Get[testPosition](w2, e2)
	require.NoError(t, err)
	assert.Equal(t, float64(3), p.X)
}

func TestWorldLockedDuringIteration(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	it := w.Iter()
	require.True(t, it.Next())

	err = w.Despawn(e)
	var locked LockedWorldError
	require.ErrorAs(t, err, &locked)

	it.Close()
	require.NoError(t, w.Despawn(e))
}

func TestWorldArchetypesIncludesEmpty(t *testing.T) {
	w := NewWorld()
	handles := w.Archetypes()
	require.Len(t, handles, 1)
	assert.Equal(t, 0, handles[0].Len())
}

func TestWorldQueryOneHelperErrorsOnMismatch(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	flag := RegisterComponent[testFlag]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	_, err = QueryOne(w, e, flag.Ref())
	var qerr QueryOneError
	require.ErrorAs(t, err, &qerr)
}

func TestWorldSatisfies(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	RegisterComponent[testFlag]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	ok, err := Satisfies[testPosition](w, e)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Satisfies[testFlag](w, e)
	require.NoError(t, err)
	assert.False(t, ok)
}
