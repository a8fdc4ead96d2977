package silo

import "fmt"

// ColumnBatch spawns N entities sharing a known signature with a single
// archetype transition: the caller writes each declared column in bulk
// into a scratch buffer, and only on Commit does the archetype grow once
// and absorb every row. Either all N rows are committed for every
// declared column, or Commit reports BatchIncomplete and nothing in the
// world changes (spec.md §4.I).
type ColumnBatch struct {
	world   *World
	infos   []*TypeInfo
	temp    []column
	written []int
	n       int
}

// NewColumnBatch declares a batch of n entities sharing the given
// component set. Declaring the same component twice is rejected up
// front, matching Bundle's duplicate rule.
func (w *World) NewColumnBatch(n int, components ...Component) (*ColumnBatch, error) {
	infos := make([]*TypeInfo, len(components))
	for i, c := range components {
		infos[i] = c.typeInfo()
	}
	if err := dedupeInfos(infos); err != nil {
		return nil, err
	}
	temp := make([]column, len(infos))
	for i, info := range infos {
		temp[i] = newColumn(info, n)
	}
	return &ColumnBatch{world: w, infos: infos, temp: temp, written: make([]int, len(infos)), n: n}, nil
}

// ColumnBatchWrite bulk-writes one declared column's full N values into
// the batch's scratch buffer.
func ColumnBatchWrite[T any](cb *ColumnBatch, ct ComponentType[T], values []T) error {
	idx := cb.indexOf(ct.info.ID)
	if idx < 0 {
		return fmt.Errorf("component %v not declared for this batch", ct.info.Name)
	}
	if len(values) != cb.n {
		return fmt.Errorf("column %v: expected %d values, got %d", ct.info.Name, cb.n, len(values))
	}
	col := &cb.temp[idx]
	for i, v := range values {
		*(*T)(col.at(uint32(i))) = v
	}
	cb.written[idx] = cb.n
	return nil
}

func (cb *ColumnBatch) indexOf(id ComponentID) int {
	for i, info := range cb.infos {
		if info.ID == id {
			return i
		}
	}
	return -1
}

// Commit finalizes the batch: if every declared column received exactly
// N writes, it grows the target archetype once and moves every scratch
// row in. Otherwise it returns BatchIncompleteError and the world is left
// untouched - the scratch buffers are simply discarded.
func (cb *ColumnBatch) Commit() ([]Entity, error) {
	for _, w := range cb.written {
		if w != cb.n {
			return nil, BatchIncompleteError{Declared: cb.n, Written: w}
		}
	}
	if cb.n == 0 {
		return nil, nil
	}

	target := cb.world.archetypes.getOrCreate(cb.infos)
	cb.world.entities.reserve(cb.n)
	target.reserve(target.length + uint32(cb.n))

	out := make([]Entity, cb.n)
	for row := 0; row < cb.n; row++ {
		e := cb.world.entities.allocate()
		newRow := target.allocRow(e)
		for i, info := range cb.infos {
			dst, _ := target.componentPtr(info.ID, newRow)
			info.Move(dst, cb.temp[i].at(uint32(row)))
		}
		cb.world.entities.setLocation(e.ID(), location{archetype: target.id, row: newRow})
		out[row] = e
	}
	cb.world.notifyArchetype(target)
	return out, nil
}
