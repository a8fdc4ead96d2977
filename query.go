package silo

// Query1 is a single-term typed query, compiled once and reusable across
// many Iter/IterMut calls. It caches the archetypes it matched against
// the world's archetype generation, giving it the PreparedQuery role
// spec.md §4.F describes: the cache is rebuilt lazily only when
// ArchetypesGeneration has advanced since it was last used.
type Query1[O1 any] struct {
	t1     Term[O1]
	access []accessTerm

	cachedGen     uint64
	cachedMatched []*archetype
}

// NewQuery1 compiles a one-term query.
func NewQuery1[O1 any](t1 Term[O1]) (*Query1[O1], error) {
	access := collectAccess(t1)
	if err := checkAliasing(access); err != nil {
		return nil, err
	}
	return &Query1[O1]{t1: t1, access: access}, nil
}

func (q *Query1[O1]) matches(a *archetype) bool { return q.t1.matches(a) }

func (q *Query1[O1]) matched(w *World) []*archetype {
	if q.cachedMatched != nil && q.cachedGen == w.archetypes.generation {
		return q.cachedMatched
	}
	var out []*archetype
	for _, a := range w.archetypes.all() {
		if q.matches(a) {
			out = append(out, a)
		}
	}
	q.cachedMatched = out
	q.cachedGen = w.archetypes.generation
	return out
}

// Iter starts a dynamically borrow-checked iterator: it acquires atomic
// per-column borrows on each archetype it visits and releases them as it
// moves on, so overlapping disjoint-component queries from other
// goroutines can run concurrently.
func (q *Query1[O1]) Iter(w *World) *Iterator1[O1] { return newIterator1(q, w, false) }

// IterMut starts an iterator over the same rows as Iter. It does not
// skip borrow bookkeeping: it acquires the same per-column borrows as
// Iter (unique ones for Mut and OptMut terms), so it reports a
// ComponentBorrowConflictError against any outstanding iterator holding
// an incompatible borrow.
func (q *Query1[O1]) IterMut(w *World) *Iterator1[O1] { return newIterator1(q, w, true) }

// Iterator1 walks the archetypes a Query1 matched, yielding one row at a
// time in archetype-creation then storage order (spec.md §5's stable
// ordering guarantee).
type Iterator1[O1 any] struct {
	q       *Query1[O1]
	world   *World
	matched []*archetype
	mut     bool

	archIdx int
	guard   *borrowGuard
	state1  any
	row     uint32
	length  uint32
	started bool
	err     error
}

func newIterator1[O1 any](q *Query1[O1], w *World, mut bool) *Iterator1[O1] {
	it := &Iterator1[O1]{q: q, world: w, matched: q.matched(w), mut: mut, archIdx: -1}
	w.beginIteration()
	return it
}

// Err returns the first error encountered during iteration, if any (for
// example a ComponentBorrowConflictError from query()). Once Err returns
// non-nil, Next always returns false.
func (it *Iterator1[O1]) Err() error { return it.err }

func (it *Iterator1[O1]) releaseArchetype() {
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

// Next advances to the next matching row, acquiring the next archetype's
// borrows as it crosses an archetype boundary. It returns false at the
// end of iteration or on the first borrow conflict (see Err).
func (it *Iterator1[O1]) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.started && it.row+1 < it.length {
			it.row++
			return true
		}
		it.releaseArchetype()
		it.archIdx++
		if it.archIdx >= len(it.matched) {
			it.world.endIteration()
			return false
		}
		a := it.matched[it.archIdx]
		if a.Len() == 0 {
			it.started = false
			continue
		}
		if !a.Empty() {
			g, err := acquireAccess(a, it.q.access)
			if err != nil {
				it.err = err
				it.world.endIteration()
				it.archIdx = len(it.matched)
				return false
			}
			it.guard = g
		}
		it.state1 = it.q.t1.prepare(a)
		it.row = 0
		it.length = a.length
		it.started = true
		return true
	}
}

// Get returns the current row's item.
func (it *Iterator1[O1]) Get() O1 { return it.q.t1.fetch(it.state1, it.row) }

// Entity returns the entity at the current row.
func (it *Iterator1[O1]) Entity() Entity { return it.matched[it.archIdx].entityAt(it.row) }

// Close releases any outstanding borrow and ends the iteration early. It
// is safe to call more than once and safe to call after Next has
// returned false.
func (it *Iterator1[O1]) Close() {
	if it.archIdx < len(it.matched) {
		it.releaseArchetype()
		it.world.endIteration()
		it.archIdx = len(it.matched)
	}
}

// --- Query2 ---

// Query2 is a two-term typed query; see Query1 for the shared semantics.
type Query2[O1, O2 any] struct {
	t1     Term[O1]
	t2     Term[O2]
	access []accessTerm

	cachedGen     uint64
	cachedMatched []*archetype
}

// NewQuery2 compiles a two-term query, rejecting aliased access between
// t1 and t2 at construction (spec.md §4.F).
func NewQuery2[O1, O2 any](t1 Term[O1], t2 Term[O2]) (*Query2[O1, O2], error) {
	access := collectAccess(t1, t2)
	if err := checkAliasing(access); err != nil {
		return nil, err
	}
	return &Query2[O1, O2]{t1: t1, t2: t2, access: access}, nil
}

func (q *Query2[O1, O2]) matches(a *archetype) bool { return q.t1.matches(a) && q.t2.matches(a) }

func (q *Query2[O1, O2]) matched(w *World) []*archetype {
	if q.cachedMatched != nil && q.cachedGen == w.archetypes.generation {
		return q.cachedMatched
	}
	var out []*archetype
	for _, a := range w.archetypes.all() {
		if q.matches(a) {
			out = append(out, a)
		}
	}
	q.cachedMatched = out
	q.cachedGen = w.archetypes.generation
	return out
}

func (q *Query2[O1, O2]) Iter(w *World) *Iterator2[O1, O2]    { return newIterator2(q, w, false) }
func (q *Query2[O1, O2]) IterMut(w *World) *Iterator2[O1, O2] { return newIterator2(q, w, true) }

// Iterator2 is Iterator1's two-term counterpart.
type Iterator2[O1, O2 any] struct {
	q       *Query2[O1, O2]
	world   *World
	matched []*archetype
	mut     bool

	archIdx        int
	guard          *borrowGuard
	state1, state2 any
	row, length    uint32
	started        bool
	err            error
}

func newIterator2[O1, O2 any](q *Query2[O1, O2], w *World, mut bool) *Iterator2[O1, O2] {
	it := &Iterator2[O1, O2]{q: q, world: w, matched: q.matched(w), mut: mut, archIdx: -1}
	w.beginIteration()
	return it
}

func (it *Iterator2[O1, O2]) Err() error { return it.err }

func (it *Iterator2[O1, O2]) releaseArchetype() {
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

func (it *Iterator2[O1, O2]) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.started && it.row+1 < it.length {
			it.row++
			return true
		}
		it.releaseArchetype()
		it.archIdx++
		if it.archIdx >= len(it.matched) {
			it.world.endIteration()
			return false
		}
		a := it.matched[it.archIdx]
		if a.Len() == 0 {
			it.started = false
			continue
		}
		if !a.Empty() {
			g, err := acquireAccess(a, it.q.access)
			if err != nil {
				it.err = err
				it.world.endIteration()
				it.archIdx = len(it.matched)
				return false
			}
			it.guard = g
		}
		it.state1 = it.q.t1.prepare(a)
		it.state2 = it.q.t2.prepare(a)
		it.row = 0
		it.length = a.length
		it.started = true
		return true
	}
}

func (it *Iterator2[O1, O2]) Get() (O1, O2) {
	return it.q.t1.fetch(it.state1, it.row), it.q.t2.fetch(it.state2, it.row)
}

func (it *Iterator2[O1, O2]) Entity() Entity { return it.matched[it.archIdx].entityAt(it.row) }

func (it *Iterator2[O1, O2]) Close() {
	if it.archIdx < len(it.matched) {
		it.releaseArchetype()
		it.world.endIteration()
		it.archIdx = len(it.matched)
	}
}

// --- Query3 ---

// Query3 is a three-term typed query.
type Query3[O1, O2, O3 any] struct {
	t1     Term[O1]
	t2     Term[O2]
	t3     Term[O3]
	access []accessTerm

	cachedGen     uint64
	cachedMatched []*archetype
}

// NewQuery3 compiles a three-term query.
func NewQuery3[O1, O2, O3 any](t1 Term[O1], t2 Term[O2], t3 Term[O3]) (*Query3[O1, O2, O3], error) {
	access := collectAccess(t1, t2, t3)
	if err := checkAliasing(access); err != nil {
		return nil, err
	}
	return &Query3[O1, O2, O3]{t1: t1, t2: t2, t3: t3, access: access}, nil
}

func (q *Query3[O1, O2, O3]) matches(a *archetype) bool {
	return q.t1.matches(a) && q.t2.matches(a) && q.t3.matches(a)
}

func (q *Query3[O1, O2, O3]) matched(w *World) []*archetype {
	if q.cachedMatched != nil && q.cachedGen == w.archetypes.generation {
		return q.cachedMatched
	}
	var out []*archetype
	for _, a := range w.archetypes.all() {
		if q.matches(a) {
			out = append(out, a)
		}
	}
	q.cachedMatched = out
	q.cachedGen = w.archetypes.generation
	return out
}

func (q *Query3[O1, O2, O3]) Iter(w *World) *Iterator3[O1, O2, O3] {
	return newIterator3(q, w, false)
}
func (q *Query3[O1, O2, O3]) IterMut(w *World) *Iterator3[O1, O2, O3] {
	return newIterator3(q, w, true)
}

// Iterator3 is Iterator1's three-term counterpart.
type Iterator3[O1, O2, O3 any] struct {
	q       *Query3[O1, O2, O3]
	world   *World
	matched []*archetype
	mut     bool

	archIdx                int
	guard                  *borrowGuard
	state1, state2, state3 any
	row, length            uint32
	started                bool
	err                    error
}

func newIterator3[O1, O2, O3 any](q *Query3[O1, O2, O3], w *World, mut bool) *Iterator3[O1, O2, O3] {
	it := &Iterator3[O1, O2, O3]{q: q, world: w, matched: q.matched(w), mut: mut, archIdx: -1}
	w.beginIteration()
	return it
}

func (it *Iterator3[O1, O2, O3]) Err() error { return it.err }

func (it *Iterator3[O1, O2, O3]) releaseArchetype() {
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

func (it *Iterator3[O1, O2, O3]) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.started && it.row+1 < it.length {
			it.row++
			return true
		}
		it.releaseArchetype()
		it.archIdx++
		if it.archIdx >= len(it.matched) {
			it.world.endIteration()
			return false
		}
		a := it.matched[it.archIdx]
		if a.Len() == 0 {
			it.started = false
			continue
		}
		if !a.Empty() {
			g, err := acquireAccess(a, it.q.access)
			if err != nil {
				it.err = err
				it.world.endIteration()
				it.archIdx = len(it.matched)
				return false
			}
			it.guard = g
		}
		it.state1 = it.q.t1.prepare(a)
		it.state2 = it.q.t2.prepare(a)
		it.state3 = it.q.t3.prepare(a)
		it.row = 0
		it.length = a.length
		it.started = true
		return true
	}
}

func (it *Iterator3[O1, O2, O3]) Get() (O1, O2, O3) {
	return it.q.t1.fetch(it.state1, it.row),
		it.q.t2.fetch(it.state2, it.row),
		it.q.t3.fetch(it.state3, it.row)
}

func (it *Iterator3[O1, O2, O3]) Entity() Entity { return it.matched[it.archIdx].entityAt(it.row) }

func (it *Iterator3[O1, O2, O3]) Close() {
	if it.archIdx < len(it.matched) {
		it.releaseArchetype()
		it.world.endIteration()
		it.archIdx = len(it.matched)
	}
}

// --- Query4 ---

// Query4 is a four-term typed query.
type Query4[O1, O2, O3, O4 any] struct {
	t1     Term[O1]
	t2     Term[O2]
	t3     Term[O3]
	t4     Term[O4]
	access []accessTerm

	cachedGen     uint64
	cachedMatched []*archetype
}

// NewQuery4 compiles a four-term query.
func NewQuery4[O1, O2, O3, O4 any](t1 Term[O1], t2 Term[O2], t3 Term[O3], t4 Term[O4]) (*Query4[O1, O2, O3, O4], error) {
	access := collectAccess(t1, t2, t3, t4)
	if err := checkAliasing(access); err != nil {
		return nil, err
	}
	return &Query4[O1, O2, O3, O4]{t1: t1, t2: t2, t3: t3, t4: t4, access: access}, nil
}

func (q *Query4[O1, O2, O3, O4]) matches(a *archetype) bool {
	return q.t1.matches(a) && q.t2.matches(a) && q.t3.matches(a) && q.t4.matches(a)
}

func (q *Query4[O1, O2, O3, O4]) matched(w *World) []*archetype {
	if q.cachedMatched != nil && q.cachedGen == w.archetypes.generation {
		return q.cachedMatched
	}
	var out []*archetype
	for _, a := range w.archetypes.all() {
		if q.matches(a) {
			out = append(out, a)
		}
	}
	q.cachedMatched = out
	q.cachedGen = w.archetypes.generation
	return out
}

func (q *Query4[O1, O2, O3, O4]) Iter(w *World) *Iterator4[O1, O2, O3, O4] {
	return newIterator4(q, w, false)
}
func (q *Query4[O1, O2, O3, O4]) IterMut(w *World) *Iterator4[O1, O2, O3, O4] {
	return newIterator4(q, w, true)
}

// Iterator4 is Iterator1's four-term counterpart.
type Iterator4[O1, O2, O3, O4 any] struct {
	q       *Query4[O1, O2, O3, O4]
	world   *World
	matched []*archetype
	mut     bool

	archIdx                        int
	guard                          *borrowGuard
	state1, state2, state3, state4 any
	row, length                    uint32
	started                        bool
	err                            error
}

func newIterator4[O1, O2, O3, O4 any](q *Query4[O1, O2, O3, O4], w *World, mut bool) *Iterator4[O1, O2, O3, O4] {
	it := &Iterator4[O1, O2, O3, O4]{q: q, world: w, matched: q.matched(w), mut: mut, archIdx: -1}
	w.beginIteration()
	return it
}

func (it *Iterator4[O1, O2, O3, O4]) Err() error { return it.err }

func (it *Iterator4[O1, O2, O3, O4]) releaseArchetype() {
	if it.guard != nil {
		it.guard.release()
		it.guard = nil
	}
}

func (it *Iterator4[O1, O2, O3, O4]) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.started && it.row+1 < it.length {
			it.row++
			return true
		}
		it.releaseArchetype()
		it.archIdx++
		if it.archIdx >= len(it.matched) {
			it.world.endIteration()
			return false
		}
		a := it.matched[it.archIdx]
		if a.Len() == 0 {
			it.started = false
			continue
		}
		if !a.Empty() {
			g, err := acquireAccess(a, it.q.access)
			if err != nil {
				it.err = err
				it.world.endIteration()
				it.archIdx = len(it.matched)
				return false
			}
			it.guard = g
		}
		it.state1 = it.q.t1.prepare(a)
		it.state2 = it.q.t2.prepare(a)
		it.state3 = it.q.t3.prepare(a)
		it.state4 = it.q.t4.prepare(a)
		it.row = 0
		it.length = a.length
		it.started = true
		return true
	}
}

func (it *Iterator4[O1, O2, O3, O4]) Get() (O1, O2, O3, O4) {
	return it.q.t1.fetch(it.state1, it.row),
		it.q.t2.fetch(it.state2, it.row),
		it.q.t3.fetch(it.state3, it.row),
		it.q.t4.fetch(it.state4, it.row)
}

func (it *Iterator4[O1, O2, O3, O4]) Entity() Entity { return it.matched[it.archIdx].entityAt(it.row) }

func (it *Iterator4[O1, O2, O3, O4]) Close() {
	if it.archIdx < len(it.matched) {
		it.releaseArchetype()
		it.world.endIteration()
		it.archIdx = len(it.matched)
	}
}
