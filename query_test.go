package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery2RefMutIteratesMatchingArchetypes(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()

	b, err := NewBundle2(pos, testPosition{X: 0}, vel, testVelocity{X: 1})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := w.Spawn(b)
		require.NoError(t, err)
	}
	// An entity lacking Velocity must not appear in the query results.
	_, err = w.Spawn(NewBundle1(pos, testPosition{X: 99}))
	require.NoError(t, err)

	q, err := NewQuery2(pos.Mut(), vel.Ref())
	require.NoError(t, err)

	it := q.IterMut(w)
	count := 0
	for it.Next() {
		p, v := it.Get()
		p.X += v.X
		count++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, 4, count)
}

func TestQueryWithWithoutFilter(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	flag := RegisterComponent[testFlag]()

	b1, err := NewBundle2(pos, testPosition{X: 1}, flag, testFlag{On: true})
	require.NoError(t, err)
	_, err = w.Spawn(b1)
	require.NoError(t, err)
	_, err = w.Spawn(NewBundle1(pos, testPosition{X: 2}))
	require.NoError(t, err)

	withFlag, err := NewQuery1(WithFilter(pos.Ref(), flag.With()))
	require.NoError(t, err)
	it := withFlag.Iter(w)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 1, count)

	withoutFlag, err := NewQuery1(WithoutFilter(pos.Ref(), flag.With()))
	require.NoError(t, err)
	it2 := withoutFlag.Iter(w)
	count2 := 0
	for it2.Next() {
		count2++
	}
	assert.Equal(t, 1, count2)
}

func TestQueryOptReturnsPresenceFlag(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()

	_, err := w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)
	b2, err := NewBundle2(pos, testPosition{X: 2}, vel, testVelocity{X: 5})
	require.NoError(t, err)
	_, err = w.Spawn(b2)
	require.NoError(t, err)

	q, err := NewQuery2(pos.Ref(), vel.Opt())
	require.NoError(t, err)
	it := q.Iter(w)
	present := 0
	absent := 0
	for it.Next() {
		_, v := it.Get()
		if v.Ok {
			present++
		} else {
			absent++
		}
	}
	assert.Equal(t, 1, present)
	assert.Equal(t, 1, absent)
}

func TestQuerySatisfiesTerm(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	flag := RegisterComponent[testFlag]()

	b, err := NewBundle2(pos, testPosition{}, flag, testFlag{On: true})
	require.NoError(t, err)
	_, err = w.Spawn(b)
	require.NoError(t, err)

	q, err := NewQuery2(pos.Ref(), flag.SatisfiesTerm())
	require.NoError(t, err)
	it := q.Iter(w)
	require.True(t, it.Next())
	_, hasFlag := it.Get()
	assert.True(t, hasFlag)
}

func TestQueryOrMatchesEitherSide(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	flag := RegisterComponent[testFlag]()
	label := RegisterComponent[testLabel]()

	b1, err := NewBundle2(pos, testPosition{}, flag, testFlag{On: true})
	require.NoError(t, err)
	_, err = w.Spawn(b1)
	require.NoError(t, err)

	b2, err := NewBundle2(pos, testPosition{}, label, testLabel{Name: "x"})
	require.NoError(t, err)
	_, err = w.Spawn(b2)
	require.NoError(t, err)

	_, err = w.Spawn(NewBundle1(pos, testPosition{}))
	require.NoError(t, err)

	q, err := NewQuery1(Or(flag.With(), label.With()))
	require.NoError(t, err)
	it := q.Iter(w)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestQueryNewQueryRejectsAliasedAccess(t *testing.T) {
	pos := RegisterComponent[testPosition]()

	_, err := NewQuery2(pos.Ref(), pos.Mut())
	var aliased AliasedAccessError
	require.ErrorAs(t, err, &aliased)
}

func TestQueryGenerationCacheInvalidatesOnNewArchetype(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()

	q, err := NewQuery1(pos.Ref())
	require.NoError(t, err)

	_, err = w.Spawn(NewBundle1(pos, testPosition{X: 1}))
	require.NoError(t, err)

	it := q.Iter(w)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 1, count)

	// Spawning into a brand new archetype with Position must be picked up
	// by the next iteration, not served from a stale cached archetype list.
	b2, err := NewBundle2(pos, testPosition{X: 2}, vel, testVelocity{})
	require.NoError(t, err)
	_, err = w.Spawn(b2)
	require.NoError(t, err)

	it2 := q.Iter(w)
	count2 := 0
	for it2.Next() {
		count2++
	}
	assert.Equal(t, 2, count2)
}

func TestQueryOneHelper(t *testing.T) {
	w := NewWorld()
	pos := RegisterComponent[testPosition]()
	e, err := w.Spawn(NewBundle1(pos, testPosition{X: 42}))
	require.NoError(t, err)

	p, err := QueryOne(w, e, pos.Ref())
	require.NoError(t, err)
	assert.Equal(t, float64(42), p.X)

	vel := RegisterComponent[testVelocity]()
	_, err = QueryOne(w, e, vel.Ref())
	var missing QueryOneError
	require.ErrorAs(t, err, &missing)
}
