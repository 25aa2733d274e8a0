// Package interaction implements the Interaction State Machine (spec.md
// 4.7, C7): pointer/wheel input drives mutually exclusive modes, gated
// hover, and a selection round-trip fence. The transition table is a pure
// state machine (testable without a terminal); model.go wraps it as a
// charmbracelet/bubbletea tea.Model for the live TUI, the same Elm-style
// Update loop the teacher's cmd/bd interactive prompts build on.
package interaction

import (
	"math"
	"sync/atomic"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

// Mode is one of the mutually exclusive interaction modes (spec.md 4.7).
type Mode string

const (
	ModeIdle               Mode = "idle"
	ModePanning            Mode = "panning"
	ModePinching           Mode = "pinching"
	ModeRectangleSelecting Mode = "rectangle-selecting"
	ModeDraggingObject     Mode = "dragging-object"
	// modeSelectTap is the tentative sub-state before the drag activation
	// threshold is exceeded (spec.md 4.7: "a tentative select-tap
	// sub-state").
	modeSelectTap Mode = "select-tap"
)

// GlobalMode is the persistent interactionMode modifier (spec.md 4.7,
// 9: "source treats it as session-only" — so it lives only on the FSM,
// never round-tripped through the store).
type GlobalMode string

const (
	GlobalModePan    GlobalMode = "pan"
	GlobalModeSelect GlobalMode = "select"
)

// Modifiers captures the held-key state at the moment of a pointer event.
type Modifiers struct {
	Space   bool
	CmdCtrl bool
	Shift   bool
}

// DragActivationThreshold is the pointer-movement distance (world units)
// past which a tentative select-tap promotes to a real drag.
const DragActivationThreshold = 4.0

// FSM is the C7 contract bound to one Engine for selection claims.
type FSM struct {
	mode       Mode
	globalMode GlobalMode

	engine *actions.Engine
	reader store.ObjectStore
	actor  string

	downPos    types.Pos
	lastPos    types.Pos
	dragIDs    []string
	rectStart  types.Pos
	rectEnd    types.Pos
	panOrigin  types.Pos

	hoveredID string
	isPointer bool // true for mouse/pen input devices

	pendingOperations int64
}

// New constructs an FSM bound to engine (for mutation) and reader (for the
// live positions a drag needs to compute deltas against), claiming
// selections under actor.
func New(engine *actions.Engine, reader store.ObjectStore, actor string) *FSM {
	return &FSM{mode: ModeIdle, globalMode: GlobalModeSelect, engine: engine, reader: reader, actor: actor, isPointer: true}
}

// Mode returns the current mode.
func (f *FSM) Mode() Mode { return f.mode }

// SetGlobalMode sets the persistent pan/select preference.
func (f *FSM) SetGlobalMode(gm GlobalMode) { f.globalMode = gm }

// GlobalMode returns the persistent pan/select preference.
func (f *FSM) GlobalMode() GlobalMode { return f.globalMode }

// SetIsPointerDevice toggles whether the current input device is a
// mouse/pen (vs. touch), which gates hover processing (spec.md 4.7).
func (f *FSM) SetIsPointerDevice(v bool) { f.isPointer = v }

// effectiveMode resolves the active pan/select mode given held modifiers:
// held Space temporarily forces pan; held Cmd/Ctrl inverts the persistent
// mode (spec.md 4.7).
func (f *FSM) effectiveMode(mods Modifiers) GlobalMode {
	if mods.Space {
		return GlobalModePan
	}
	if mods.CmdCtrl {
		if f.globalMode == GlobalModePan {
			return GlobalModeSelect
		}
		return GlobalModePan
	}
	return f.globalMode
}

// PendingOperations returns the in-flight selection round-trip count, used
// by the test harness's flush (spec.md 4.7, C10).
func (f *FSM) PendingOperations() int64 {
	return atomic.LoadInt64(&f.pendingOperations)
}

// ObserveSelectionSettled decrements the pending-operations counter once the
// caused CRDT change has been observed back and the local selection cache
// updated (spec.md 4.7). Callers wire this to the relevant store observer.
func (f *FSM) ObserveSelectionSettled() {
	if atomic.LoadInt64(&f.pendingOperations) > 0 {
		atomic.AddInt64(&f.pendingOperations, -1)
	}
}

// Target describes what a pointer-down landed on: either empty space or a
// claimable object.
type Target struct {
	ObjectID string // "" means empty space
	Locked   bool
	Pos      types.Pos
}

// PointerDown implements the pointer-down transition table (spec.md 4.7).
func (f *FSM) PointerDown(target Target, worldPos types.Pos, mods Modifiers) {
	f.downPos = worldPos
	f.lastPos = worldPos

	eff := f.effectiveMode(mods)

	if target.ObjectID == "" {
		if eff == GlobalModePan {
			f.mode = ModePanning
			f.panOrigin = worldPos
		} else {
			f.mode = ModeRectangleSelecting
			f.rectStart = worldPos
			f.rectEnd = worldPos
		}
		return
	}

	if eff != GlobalModeSelect || target.Locked {
		return
	}

	atomic.AddInt64(&f.pendingOperations, 1)
	res := f.engine.SelectObjects([]string{target.ObjectID}, f.actor)
	if len(res.Selected) == 0 {
		// Claim failed; stay idle rather than entering a tentative drag
		// over an object we do not own.
		return
	}
	f.dragIDs = res.Selected
	f.mode = modeSelectTap
}

// PointerMove implements the pointer-move transition table, returning the
// batch of moves to apply when in dragging-object mode (nil otherwise).
func (f *FSM) PointerMove(worldPos types.Pos) []actions.ObjectMove {
	defer func() { f.lastPos = worldPos }()

	switch f.mode {
	case ModePanning:
		return nil
	case ModeRectangleSelecting:
		f.rectEnd = worldPos
		return nil
	case modeSelectTap:
		if distance(f.downPos, worldPos) > DragActivationThreshold {
			f.mode = ModeDraggingObject
		}
		return nil
	case ModeDraggingObject:
		dx := worldPos.X - f.lastPos.X
		dy := worldPos.Y - f.lastPos.Y
		moves := make([]actions.ObjectMove, 0, len(f.dragIDs))
		for _, id := range f.dragIDs {
			obj, ok := f.reader.GetObject(id)
			if !ok {
				continue
			}
			moves = append(moves, actions.ObjectMove{ID: id, Pos: types.Pos{X: obj.Pos.X + dx, Y: obj.Pos.Y + dy, R: obj.Pos.R}})
		}
		return moves
	default:
		return nil
	}
}

// RectResult is the rectangle-select outcome returned by PointerUp.
type RectResult struct {
	Start, End types.Pos
}

// PointerUp commits the final position, clears the mode, and releases no
// selections (spec.md 4.7: "selections persist past drag"). It returns the
// rectangle bounds if the gesture was a rectangle-select.
func (f *FSM) PointerUp() *RectResult {
	defer func() {
		f.mode = ModeIdle
		f.dragIDs = nil
	}()

	if f.mode == modeSelectTap {
		// A tap that never exceeded the drag threshold: selection already
		// claimed on pointer-down, nothing further to commit.
		return nil
	}
	if f.mode == ModeRectangleSelecting {
		return &RectResult{Start: f.rectStart, End: f.rectEnd}
	}
	return nil
}

// PointerCancel and PointerLeave end the gesture by clearing the mode and
// the drag set. Neither reverts anything: moves already applied during a
// drag stay in the store.
func (f *FSM) PointerCancel() {
	f.mode = ModeIdle
	f.dragIDs = nil
}

func (f *FSM) PointerLeave() {
	f.PointerCancel()
}

// SetHovered updates the hovered object id, honoring spec.md 4.7's gating:
// hover is only processed when the pointer is mouse/pen AND no drag/pinch/
// rectangle-select is active (testable property P8). It returns whether the
// hovered id actually changed.
func (f *FSM) SetHovered(id string) (changed bool) {
	if !f.isPointer || f.gestureActive() {
		if f.hoveredID != "" {
			f.hoveredID = ""
			return true
		}
		return false
	}
	if f.hoveredID == id {
		return false
	}
	f.hoveredID = id
	return true
}

// HoveredID returns the currently hovered object id, or "" for none.
func (f *FSM) HoveredID() string { return f.hoveredID }

func (f *FSM) gestureActive() bool {
	switch f.mode {
	case ModeDraggingObject, ModeRectangleSelecting, ModePinching:
		return true
	default:
		return false
	}
}

func distance(a, b types.Pos) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
