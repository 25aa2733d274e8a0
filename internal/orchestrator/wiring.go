package orchestrator

import (
	"fmt"
	"time"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/animation"
	"github.com/tablecore/engine/internal/awareness"
	"github.com/tablecore/engine/internal/interaction"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
	"github.com/tablecore/engine/internal/visual"
)

// flushFrameBudget caps waitForRenderer/flush at roughly 100 frames of a
// 60Hz loop (spec.md 4.7, 4.10).
const flushFrameBudget = 100 * time.Second / 60

// Engine is the assembled C8 bridge: one Bus wired to a store, an
// awareness channel, an animation scheduler, a visual manager, and a
// pointer FSM (spec.md 4.8's data flow: "local input -> C7 -> C3 (mutates
// C1) -> C1 observer fires -> C8 forwards to C6 -> C6 updates scene +
// invokes C5"). Remote edits re-enter at the C1 observer step.
type Engine struct {
	Bus        *Bus
	Store      store.ObjectStore
	Awareness  *awareness.Channel
	Scheduler  *animation.Scheduler
	Visual     *visual.Manager
	FSM        *interaction.FSM
	unsubStore store.Unsubscribe
}

// Wire assembles an Engine: it attaches Visual to s, subscribes the bus's
// objects-* tags to store changes, and registers handlers for the tags
// spec.md 4.8 names except wheel: TagWheel has no handler, so a wheel
// message gets the bus's no-handler error. screenCoords converts a world position to screen coordinates for
// request-screen-coords; pass nil to use an identity mapping.
func Wire(bus *Bus, s store.ObjectStore, aw *awareness.Channel, sched *animation.Scheduler, vis *visual.Manager, fsm *interaction.FSM, screenCoords func(types.Pos) types.Pos) *Engine {
	e := &Engine{Bus: bus, Store: s, Awareness: aw, Scheduler: sched, Visual: vis, FSM: fsm}
	if screenCoords == nil {
		screenCoords = func(p types.Pos) types.Pos { return p }
	}

	vis.Attach(s)
	e.unsubStore = s.OnObjectsChange(func(c store.Change) {
		if c.Empty() {
			return
		}
		if len(c.Added) > 0 {
			bus.Post(Message{Tag: TagObjectsAdded, Payload: c.Added})
		}
		if len(c.Updated) > 0 {
			bus.Post(Message{Tag: TagObjectsUpdated, Payload: c.Updated})
			// The store has no separate network round-trip in this engine:
			// a committed update IS the "observed back" signal spec.md 4.7's
			// pendingOperations fence waits for.
			fsm.ObserveSelectionSettled()
		}
		if len(c.Removed) > 0 {
			bus.Post(Message{Tag: TagObjectsRemoved, Payload: c.Removed})
		}
	})

	bus.On(TagPing, func(ctx Context, msg Message) (any, error) { return "pong", nil })
	bus.On(TagEcho, func(ctx Context, msg Message) (any, error) { return msg.Payload, nil })
	bus.On(TagResize, func(ctx Context, msg Message) (any, error) { return nil, nil })

	bus.On(TagPointerDown, func(ctx Context, msg Message) (any, error) {
		ev, ok := msg.Payload.(PointerDownEvent)
		if !ok {
			return nil, fmt.Errorf("orchestrator: pointer-down: unexpected payload %T", msg.Payload)
		}
		fsm.PointerDown(ev.Target, ev.Pos, ev.Mods)
		return nil, nil
	})
	bus.On(TagPointerMove, func(ctx Context, msg Message) (any, error) {
		pos, ok := msg.Payload.(types.Pos)
		if !ok {
			return nil, fmt.Errorf("orchestrator: pointer-move: unexpected payload %T", msg.Payload)
		}
		moves := fsm.PointerMove(pos)
		if len(moves) > 0 {
			e.applyMoves(moves)
		}
		return moves, nil
	})
	bus.On(TagPointerUp, func(ctx Context, msg Message) (any, error) { return fsm.PointerUp(), nil })
	bus.On(TagPointerCancel, func(ctx Context, msg Message) (any, error) { fsm.PointerCancel(); return nil, nil })
	bus.On(TagPointerLeave, func(ctx Context, msg Message) (any, error) { fsm.PointerLeave(); return nil, nil })

	bus.On(TagSyncObjects, func(ctx Context, msg Message) (any, error) { return s.GetAllObjects(), nil })
	bus.On(TagClearObjects, func(ctx Context, msg Message) (any, error) {
		s.ClearAllObjects(store.OriginLocal)
		return nil, nil
	})
	bus.On(TagObjectsAdded, func(ctx Context, msg Message) (any, error) { return nil, nil })
	bus.On(TagObjectsUpdated, func(ctx Context, msg Message) (any, error) { return nil, nil })
	bus.On(TagObjectsRemoved, func(ctx Context, msg Message) (any, error) { return nil, nil })

	bus.On(TagAwarenessUpdate, func(ctx Context, msg Message) (any, error) {
		ev, ok := msg.Payload.(AwarenessUpdateEvent)
		if !ok {
			return nil, fmt.Errorf("orchestrator: awareness-update: unexpected payload %T", msg.Payload)
		}
		aw.Update(ev.ActorID, ev.Cursor, ev.DraggingIDs)
		return nil, nil
	})

	bus.On(TagRequestScreenCoords, func(ctx Context, msg Message) (any, error) {
		p, ok := msg.Payload.(types.Pos)
		if !ok {
			return nil, fmt.Errorf("orchestrator: request-screen-coords: unexpected payload %T", msg.Payload)
		}
		return screenCoords(p), nil
	})

	bus.On(TagFlush, func(ctx Context, msg Message) (any, error) {
		return e.flush(flushFrameBudget), nil
	})
	bus.On(TagTestAnimation, func(ctx Context, msg Message) (any, error) {
		spec, ok := msg.Payload.(types.AnimationSpec)
		if !ok {
			return nil, fmt.Errorf("orchestrator: test-animation: unexpected payload %T", msg.Payload)
		}
		sched.Register(spec)
		return nil, nil
	})

	return e
}

// applyMoves writes a dragging-object move batch to the store in one
// transaction, setting _pos on each id that exists and skipping the rest.
// It writes through e.Store directly, not through the action layer's
// MoveObjects.
func (e *Engine) applyMoves(moves []actions.ObjectMove) {
	e.Store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, m := range moves {
			obj, ok := tx.GetObject(m.ID)
			if !ok {
				continue
			}
			obj.Pos = m.Pos
			tx.SetObject(m.ID, obj)
		}
	})
}

// flush polls pendingOperations down to zero, capped at maxWait, mirroring
// C10's waitForRenderer budget of ~100 frames (spec.md 4.7, 4.10).
func (e *Engine) flush(maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for e.FSM.PendingOperations() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// Close unsubscribes from the store and stops the bus.
func (e *Engine) Close() {
	if e.unsubStore != nil {
		e.unsubStore()
	}
	e.Bus.Stop()
}

// PointerDownEvent is the TagPointerDown payload.
type PointerDownEvent struct {
	Target interaction.Target
	Pos    types.Pos
	Mods   interaction.Modifiers
}

// AwarenessUpdateEvent is the TagAwarenessUpdate payload.
type AwarenessUpdateEvent struct {
	ActorID     string
	Cursor      *types.CursorPos
	DraggingIDs map[string]bool
}
