package interaction

import (
	"testing"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

func newTestFSM() (*FSM, *store.Store, *actions.Engine) {
	s := store.New("actor-1")
	eng := actions.New(s)
	return New(eng, s, "actor-A"), s, eng
}

func TestPointerDownEmptySpacePanMode(t *testing.T) {
	f, _, _ := newTestFSM()
	f.SetGlobalMode(GlobalModePan)

	f.PointerDown(Target{}, types.Pos{X: 0, Y: 0}, Modifiers{})
	if f.Mode() != ModePanning {
		t.Fatalf("Mode() = %v, want panning", f.Mode())
	}
}

func TestPointerDownEmptySpaceSelectModeRectangle(t *testing.T) {
	f, _, _ := newTestFSM()
	f.SetGlobalMode(GlobalModeSelect)

	f.PointerDown(Target{}, types.Pos{X: 0, Y: 0}, Modifiers{})
	if f.Mode() != ModeRectangleSelecting {
		t.Fatalf("Mode() = %v, want rectangle-selecting", f.Mode())
	}
}

func TestPointerDownOnObjectClaimsAndEntersSelectTap(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})

	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 1, Y: 1}, Modifiers{})
	if f.Mode() != modeSelectTap {
		t.Fatalf("Mode() = %v, want select-tap", f.Mode())
	}
	if f.PendingOperations() != 1 {
		t.Errorf("PendingOperations() = %d, want 1", f.PendingOperations())
	}
}

func TestPointerDownOnLockedObjectStaysIdle(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken, Locked: true})

	f.PointerDown(Target{ObjectID: id, Locked: true}, types.Pos{X: 1, Y: 1}, Modifiers{})
	if f.Mode() != ModeIdle {
		t.Fatalf("Mode() = %v, want idle", f.Mode())
	}
}

func TestDragActivationThreshold(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})

	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 0, Y: 0}, Modifiers{})
	f.PointerMove(types.Pos{X: 1, Y: 0})
	if f.Mode() != modeSelectTap {
		t.Fatalf("small move should stay in select-tap, got %v", f.Mode())
	}

	f.PointerMove(types.Pos{X: 10, Y: 0})
	if f.Mode() != ModeDraggingObject {
		t.Fatalf("move past threshold should enter dragging-object, got %v", f.Mode())
	}
}

func TestPointerUpPersistsSelectionAndReturnsToIdle(t *testing.T) {
	f, s, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})

	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 0, Y: 0}, Modifiers{})
	f.PointerMove(types.Pos{X: 10, Y: 0})
	f.PointerUp()

	if f.Mode() != ModeIdle {
		t.Errorf("Mode() = %v, want idle after pointer-up", f.Mode())
	}
	obj, _ := s.GetObject(id)
	if obj.SelectedBy != "actor-A" {
		t.Errorf("selection should persist past drag, got SelectedBy=%q", obj.SelectedBy)
	}
}

func TestPointerCancelRevertsToIdle(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})
	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 0, Y: 0}, Modifiers{})
	f.PointerMove(types.Pos{X: 10, Y: 0})

	f.PointerCancel()
	if f.Mode() != ModeIdle {
		t.Errorf("Mode() = %v, want idle after cancel", f.Mode())
	}
}

func TestHoverGatedDuringDrag(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})
	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 0, Y: 0}, Modifiers{})
	f.PointerMove(types.Pos{X: 10, Y: 0})

	if f.Mode() != ModeDraggingObject {
		t.Fatalf("expected dragging-object, got %v", f.Mode())
	}
	f.SetHovered("some-other-object")
	if f.HoveredID() != "" {
		t.Errorf("HoveredID() = %q, want empty during drag (P8)", f.HoveredID())
	}
}

func TestHoverAllowedWhenIdle(t *testing.T) {
	f, _, _ := newTestFSM()
	changed := f.SetHovered("obj-1")
	if !changed || f.HoveredID() != "obj-1" {
		t.Errorf("expected hover to be set when idle, got %q changed=%v", f.HoveredID(), changed)
	}
}

func TestPendingOperationsDecrementsOnObserve(t *testing.T) {
	f, _, eng := newTestFSM()
	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})

	f.PointerDown(Target{ObjectID: id}, types.Pos{X: 0, Y: 0}, Modifiers{})
	if f.PendingOperations() != 1 {
		t.Fatalf("PendingOperations() = %d, want 1", f.PendingOperations())
	}
	f.ObserveSelectionSettled()
	if f.PendingOperations() != 0 {
		t.Fatalf("PendingOperations() = %d, want 0 after observe", f.PendingOperations())
	}
}
