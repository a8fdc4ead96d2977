package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorrowSharedSharedAllowed(t *testing.T) {
	pos := RegisterComponent[testPosition]()
	a := newArchetypeStorage(1, []*TypeInfo{pos.typeInfo()})
	a.allocRow(NewEntity(1, 1))

	access := []accessTerm{{id: pos.info.ID, mode: accessShared}}
	g1, err := acquireAccess(a, access)
	require.NoError(t, err)
	g2, err := acquireAccess(a, access)
	require.NoError(t, err)

	g1.release()
	g2.release()
}

func TestBorrowUniqueConflictsWithShared(t *testing.T) {
	pos := RegisterComponent[testPosition]()
	a := newArchetypeStorage(1, []*TypeInfo{pos.typeInfo()})
	a.allocRow(NewEntity(1, 1))

	shared := []accessTerm{{id: pos.info.ID, mode: accessShared}}
	unique := []accessTerm{{id: pos.info.ID, mode: accessUnique}}

	g, err := acquireAccess(a, shared)
	require.NoError(t, err)

	_, err = acquireAccess(a, unique)
	var conflict ComponentBorrowConflictError
	assert.ErrorAs(t, err, &conflict)

	g.release()

	g2, err := acquireAccess(a, unique)
	require.NoError(t, err)
	g2.release()
}

func TestBorrowReleaseIsIdempotent(t *testing.T) {
	pos := RegisterComponent[testPosition]()
	a := newArchetypeStorage(1, []*TypeInfo{pos.typeInfo()})
	a.allocRow(NewEntity(1, 1))

	g, err := acquireAccess(a, []accessTerm{{id: pos.info.ID, mode: accessUnique}})
	require.NoError(t, err)
	g.release()
	g.release() // must not double-free or panic

	g2, err := acquireAccess(a, []accessTerm{{id: pos.info.ID, mode: accessUnique}})
	require.NoError(t, err)
	g2.release()
}

func TestBorrowDisjointColumnsIndependent(t *testing.T) {
	pos := RegisterComponent[testPosition]()
	vel := RegisterComponent[testVelocity]()
	a := newArchetypeStorage(1, []*TypeInfo{pos.typeInfo(), vel.typeInfo()})
	a.allocRow(NewEntity(1, 1))

	g1, err := acquireAccess(a, []accessTerm{{id: pos.info.ID, mode: accessUnique}})
	require.NoError(t, err)
	g2, err := acquireAccess(a, []accessTerm{{id: vel.info.ID, mode: accessUnique}})
	require.NoError(t, err)

	g1.release()
	g2.release()
}
