package silo

import (
	"sync/atomic"
)

// borrowUnique is the counter value recorded while a column is held
// uniquely; any other positive value counts concurrent shared borrowers.
const borrowUnique int32 = -1

// columnBorrow is the per-(archetype, component) atomic counter described
// by spec.md §3's BorrowState: zero means free, a positive count is N
// shared borrowers, and the distinguished borrowUnique value is one
// exclusive borrower. Query iterators, from both Iter and IterMut,
// acquire these per archetype and release them as they move on.
type columnBorrow struct {
	state atomic.Int32
}

func (b *columnBorrow) tryAcquireShared() bool {
	for {
		cur := b.state.Load()
		if cur == borrowUnique {
			return false
		}
		if b.state.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (b *columnBorrow) tryAcquireUnique() bool {
	return b.state.CompareAndSwap(0, borrowUnique)
}

func (b *columnBorrow) releaseShared() {
	b.state.Add(-1)
}

func (b *columnBorrow) releaseUnique() {
	b.state.Store(0)
}

// borrowGuard is a scoped acquisition of one or more column borrows. The
// owning iterator releases it when it moves to the next archetype,
// finishes, hits a borrow conflict, or is closed; an iterator abandoned
// without Close (for example by a panic in the loop body) keeps its
// current archetype's borrows. It records exactly what it acquired so
// release never frees a borrow it doesn't hold.
type borrowGuard struct {
	archetype *archetype
	shared    []ComponentID
	unique    []ComponentID
}

// acquireAccess attempts to acquire every column in access on archetype a
// with the requested mode. On the first failure it unwinds whatever it
// already acquired and returns a ComponentBorrowConflictError. Empty
// archetypes (no components) are never passed here: spec.md §4.F exempts
// them from borrow bookkeeping entirely.
func acquireAccess(a *archetype, access []accessTerm) (*borrowGuard, error) {
	g := &borrowGuard{archetype: a}
	for _, t := range access {
		col, ok := a.columnFor(t.id)
		if !ok {
			continue // archetype matched without this optional component
		}
		b := &a.borrows[col]
		switch t.mode {
		case accessShared:
			if !b.tryAcquireShared() {
				g.release()
				return nil, ComponentBorrowConflictError{Component: t.id, Archetype: a.id}
			}
			g.shared = append(g.shared, t.id)
		case accessUnique:
			if !b.tryAcquireUnique() {
				g.release()
				return nil, ComponentBorrowConflictError{Component: t.id, Archetype: a.id}
			}
			g.unique = append(g.unique, t.id)
		}
	}
	return g, nil
}

// release returns every borrow this guard holds. It is safe to call more
// than once; subsequent calls are no-ops.
func (g *borrowGuard) release() {
	if g == nil {
		return
	}
	for _, id := range g.shared {
		if col, ok := g.archetype.columnFor(id); ok {
			g.archetype.borrows[col].releaseShared()
		}
	}
	for _, id := range g.unique {
		if col, ok := g.archetype.columnFor(id); ok {
			g.archetype.borrows[col].releaseUnique()
		}
	}
	g.shared = nil
	g.unique = nil
}

type accessMode uint8

const (
	accessShared accessMode = iota
	accessUnique
)

// accessTerm is one (component, mode) pair in a Fetch's access set.
type accessTerm struct {
	id   ComponentID
	mode accessMode
}
