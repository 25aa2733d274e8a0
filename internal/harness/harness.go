// Package harness implements the Test Harness API (spec.md 4.10, C10):
// deterministic wait points and store accessors exposed so end-to-end
// tests don't have to poll an inherently asynchronous pipeline by hand.
// The bounded-poll-with-deadline shape is grounded on the teacher's
// internal/rpc client, which sets a deadline before every blocking
// socket round-trip (client.go) rather than waiting indefinitely.
package harness

import (
	"time"

	"github.com/tablecore/engine/internal/orchestrator"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

// FrameBudget is the ~100-frame poll cap spec.md 4.7 and 4.10 both specify
// for waitForRenderer (at a 60Hz frame rate).
const FrameBudget = 100 * time.Second / 60

// pollInterval is how often a wait loop rechecks its condition.
const pollInterval = time.Millisecond

// Harness exposes C10's test-only surface over an assembled orchestrator
// Engine.
type Harness struct {
	Engine *orchestrator.Engine
}

// New wraps engine as a Harness.
func New(engine *orchestrator.Engine) *Harness {
	return &Harness{Engine: engine}
}

// WaitForRenderer resolves once the bus's message queue is drained AND
// pendingOperations reaches zero, capped at FrameBudget (spec.md 4.10).
func (h *Harness) WaitForRenderer() bool {
	deadline := time.Now().Add(FrameBudget)
	for {
		if h.Engine.FSM.PendingOperations() == 0 {
			// Send a no-op round-trip through the bus; if it returns, every
			// message queued ahead of it (in arrival order) has drained.
			if _, err := h.Engine.Bus.Send(orchestrator.Message{Tag: orchestrator.TagPing}, FrameBudget); err == nil {
				return true
			}
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

// WaitForSelectionSettled resolves once cachedSelection matches the
// store's current selection set for actor, capped at FrameBudget.
func (h *Harness) WaitForSelectionSettled(actor string, cachedSelection map[string]bool) bool {
	deadline := time.Now().Add(FrameBudget)
	for {
		if selectionMatches(h.Engine.Store, actor, cachedSelection) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func selectionMatches(s store.ObjectStore, actor string, cached map[string]bool) bool {
	live := map[string]bool{}
	for _, io := range s.GetAllObjects() {
		if io.Object.SelectedBy == actor {
			live[io.ID] = true
		}
	}
	if len(live) != len(cached) {
		return false
	}
	for id := range cached {
		if !live[id] {
			return false
		}
	}
	return true
}

// WaitForAnimationsComplete resolves once the animation scheduler's active
// set is empty, capped at FrameBudget (spec.md 4.10).
func (h *Harness) WaitForAnimationsComplete() bool {
	deadline := time.Now().Add(FrameBudget)
	for h.Engine.Scheduler.ActiveCount() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
	return true
}

// AnimationState is checkAnimationState's result (spec.md 4.10).
type AnimationState struct {
	Active bool
}

// CheckAnimationState reports whether any animation is currently active.
func (h *Harness) CheckAnimationState() AnimationState {
	return AnimationState{Active: h.Engine.Scheduler.ActiveCount() > 0}
}

// GetAllObjects returns every object currently in the store.
func (h *Harness) GetAllObjects() []store.IDObject {
	return h.Engine.Store.GetAllObjects()
}

// GetObject returns one object's current state by id (spec.md 4.10's
// getObjectYMap — renamed here since this engine's store is not backed by
// a Yjs document, but the contract is identical: a read-only snapshot of
// one object for test assertions).
func (h *Harness) GetObject(id string) (*types.TableObject, bool) {
	return h.Engine.Store.GetObject(id)
}

// SetObject force-writes obj directly into the store, bypassing the action
// layer. For test fixtures only.
func (h *Harness) SetObject(id string, obj *types.TableObject) {
	h.Engine.Store.SetObject(id, obj)
}

// ClearAllObjects empties the store.
func (h *Harness) ClearAllObjects() {
	h.Engine.Store.ClearAllObjects(store.OriginLocal)
}

// TriggerTestAnimation registers spec directly on the scheduler, bypassing
// the bus — the C10 "test-animation" entry point for deterministic
// animation assertions (spec.md 4.8's testing tag group).
func (h *Harness) TriggerTestAnimation(spec types.AnimationSpec) {
	h.Engine.Scheduler.Register(spec)
}
