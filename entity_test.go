package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityDangling(t *testing.T) {
	var e Entity
	assert.True(t, e.Dangling())
	assert.Equal(t, uint32(0), e.Generation())
}

func TestEntityRoundTrip(t *testing.T) {
	e := NewEntity(7, 3)
	assert.Equal(t, uint32(7), e.ID())
	assert.Equal(t, uint32(3), e.Generation())
	assert.False(t, e.Dangling())
}

func TestEntitiesAllocateDistinct(t *testing.T) {
	es := newEntities()

	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{"fresh allocations get distinct ids", func(t *testing.T) {
			a := es.allocate()
			b := es.allocate()
			assert.NotEqual(t, a.ID(), b.ID())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestEntitiesFreeAndGenerationSoundness(t *testing.T) {
	es := newEntities()
	e := es.allocate()
	es.setLocation(e.ID(), location{archetype: 1, row: 0})
	require.True(t, es.alive(e))

	loc, err := es.free(e)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), uint32(loc.archetype))

	// Stale handle rejected as NoSuchEntity.
	_, err = es.resolve(e)
	var nse NoSuchEntityError
	require.ErrorAs(t, err, &nse)

	// Same id reused with strictly greater generation.
	e2 := es.allocate()
	assert.Equal(t, e.ID(), e2.ID())
	assert.Greater(t, e2.Generation(), e.Generation())
}

func TestEntitiesSpawnAt(t *testing.T) {
	es := newEntities()
	target := NewEntity(7, 3)
	require.NoError(t, es.spawnAt(target))
	es.setLocation(target.ID(), location{archetype: 1, row: 0})
	require.True(t, es.alive(target))

	found, ok := es.findByID(7)
	require.True(t, ok)
	assert.Equal(t, target, found)

	// A fresh allocation must not collide with id 7.
	fresh := es.allocate()
	assert.NotEqual(t, uint32(7), fresh.ID())
}

func TestEntitiesLen(t *testing.T) {
	es := newEntities()
	assert.Equal(t, 0, es.len())
	e1 := es.allocate()
	es.setLocation(e1.ID(), location{archetype: 1, row: 0})
	e2 := es.allocate()
	es.setLocation(e2.ID(), location{archetype: 1, row: 1})
	assert.Equal(t, 2, es.len())
	_, err := es.free(e1)
	require.NoError(t, err)
	assert.Equal(t, 1, es.len())
}
