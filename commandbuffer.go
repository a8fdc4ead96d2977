package silo

import "fmt"

// BufferedEntity is either a real, already-live Entity or a reference to
// an entity a CommandBuffer has not spawned yet. Local references resolve
// to a real Entity only once RunOn replays the buffer (spec.md §4.G).
type BufferedEntity struct {
	real  Entity
	local int // -1 when real is valid; otherwise an index into the buffer's pending spawns
}

// RealEntity wraps an already-live entity for use as a CommandBuffer
// target.
func RealEntity(e Entity) BufferedEntity { return BufferedEntity{real: e, local: -1} }

type cmdKind uint8

const (
	cmdSpawn cmdKind = iota
	cmdInsert
	cmdRemove
	cmdDespawn
	cmdExchange
)

type cmdOp struct {
	kind        cmdKind
	target      BufferedEntity
	bundle      Bundle
	removeIDs   []ComponentID
	localResult int // >= 0 only for cmdSpawn
}

// CommandBuffer records world mutations against no world, for later
// atomic replay (spec.md §4.G). It is the deferred-mutation counterpart
// to World's direct spawn/insert/remove/despawn/exchange methods, useful
// when mutations are decided while iterating a query that forbids
// structural changes to the world it is reading.
type CommandBuffer struct {
	ops       []cmdOp
	nextLocal int
}

// NewCommandBuffer returns an empty buffer.
func NewCommandBuffer() *CommandBuffer { return &CommandBuffer{} }

// Spawn records a deferred spawn of bundle, returning a local handle that
// can be passed to Insert/Remove/Despawn/Exchange calls later in the same
// buffer, resolved to a real Entity when RunOn replays this op.
func (cb *CommandBuffer) Spawn(bundle Bundle) BufferedEntity {
	idx := cb.nextLocal
	cb.nextLocal++
	cb.ops = append(cb.ops, cmdOp{kind: cmdSpawn, bundle: bundle, localResult: idx})
	return BufferedEntity{local: idx}
}

// Insert records a deferred Insert against target.
func (cb *CommandBuffer) Insert(target BufferedEntity, bundle Bundle) {
	cb.ops = append(cb.ops, cmdOp{kind: cmdInsert, target: target, bundle: bundle, localResult: -1})
}

// Remove records a deferred component removal against target.
func (cb *CommandBuffer) Remove(target BufferedEntity, ids ...ComponentID) {
	cb.ops = append(cb.ops, cmdOp{kind: cmdRemove, target: target, removeIDs: ids, localResult: -1})
}

// Despawn records a deferred Despawn against target.
func (cb *CommandBuffer) Despawn(target BufferedEntity) {
	cb.ops = append(cb.ops, cmdOp{kind: cmdDespawn, target: target, localResult: -1})
}

// Exchange records a deferred combined remove+insert against target.
func (cb *CommandBuffer) Exchange(target BufferedEntity, removeIDs []ComponentID, insert Bundle) {
	cb.ops = append(cb.ops, cmdOp{kind: cmdExchange, target: target, bundle: insert, removeIDs: removeIDs, localResult: -1})
}

// CommandBufferResult reports what RunOn actually did: every entity
// spawned by a Spawn op, in call order, and every non-fatal error
// encountered along the way (when strict is false).
type CommandBufferResult struct {
	Spawned []Entity
	Errors  []error
}

// RunOn replays every recorded op against w in insertion order, resolving
// local handles to the real entities spawned earlier in this same
// replay. When strict is false, a failing op is recorded in the result's
// Errors and replay continues with the next op; when strict is true,
// RunOn stops and returns the first error immediately.
func (cb *CommandBuffer) RunOn(w *World, strict bool) (CommandBufferResult, error) {
	result := CommandBufferResult{Spawned: make([]Entity, cb.nextLocal)}

	resolve := func(be BufferedEntity) (Entity, error) {
		if be.local < 0 {
			return be.real, nil
		}
		e := result.Spawned[be.local]
		if e.Dangling() {
			return Entity(0), fmt.Errorf("command buffer: local entity %d was never spawned (earlier op failed)", be.local)
		}
		return e, nil
	}

	for _, op := range cb.ops {
		var err error
		switch op.kind {
		case cmdSpawn:
			var e Entity
			e, err = w.Spawn(op.bundle)
			if err == nil {
				result.Spawned[op.localResult] = e
			}
		case cmdInsert:
			var e Entity
			if e, err = resolve(op.target); err == nil {
				err = w.Insert(e, op.bundle)
			}
		case cmdRemove:
			var e Entity
			if e, err = resolve(op.target); err == nil {
				err = w.RemoveComponents(e, op.removeIDs...)
			}
		case cmdDespawn:
			var e Entity
			if e, err = resolve(op.target); err == nil {
				err = w.Despawn(e)
			}
		case cmdExchange:
			var e Entity
			if e, err = resolve(op.target); err == nil {
				err = w.Exchange(e, op.removeIDs, op.bundle)
			}
		}
		if err != nil {
			result.Errors = append(result.Errors, err)
			if strict {
				return result, err
			}
		}
	}
	return result, nil
}
