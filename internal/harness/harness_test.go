package harness

import (
	"testing"
	"time"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/animation"
	"github.com/tablecore/engine/internal/awareness"
	"github.com/tablecore/engine/internal/interaction"
	"github.com/tablecore/engine/internal/orchestrator"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
	"github.com/tablecore/engine/internal/visual"
)

func newTestHarness() (*Harness, *actions.Engine) {
	s := store.New("actor-1")
	eng := actions.New(s)
	aw := awareness.New()
	sched := animation.New(animation.SinkFunc(func(string, types.PropertyType, types.Value2D, float64, float64) {}))
	vis := visual.New()
	fsm := interaction.New(eng, s, "actor-A")

	bus := orchestrator.New(16, orchestrator.ErrorIsolation())
	oe := orchestrator.Wire(bus, s, aw, sched, vis, fsm, nil)
	bus.Run()
	return New(oe), eng
}

func TestWaitForRendererResolvesWhenIdle(t *testing.T) {
	h, _ := newTestHarness()
	defer h.Engine.Close()

	if !h.WaitForRenderer() {
		t.Fatal("expected WaitForRenderer to resolve true on an idle bus")
	}
}

func TestWaitForAnimationsCompleteResolvesWhenEmpty(t *testing.T) {
	h, _ := newTestHarness()
	defer h.Engine.Close()

	if !h.WaitForAnimationsComplete() {
		t.Fatal("expected WaitForAnimationsComplete to resolve true with no active animations")
	}
}

func TestCheckAnimationStateReflectsActiveSet(t *testing.T) {
	h, _ := newTestHarness()
	defer h.Engine.Close()

	if h.CheckAnimationState().Active {
		t.Fatal("expected inactive before registering anything")
	}

	h.TriggerTestAnimation(types.AnimationSpec{
		VisualID: "v1",
		Property: types.PropertyAlpha,
		Duration: 10,
		Easing:   types.EasingLinear,
	})

	deadline := time.Now().Add(time.Second)
	for !h.CheckAnimationState().Active && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !h.CheckAnimationState().Active {
		t.Fatal("expected active after registering a long-running animation")
	}
}

func TestGetSetAndClearAllObjects(t *testing.T) {
	h, _ := newTestHarness()
	defer h.Engine.Close()

	obj := &types.TableObject{ID: "x", Kind: types.KindToken, SortKey: "1|a"}
	h.SetObject("x", obj)

	got, ok := h.GetObject("x")
	if !ok || got.ID != "x" {
		t.Fatalf("GetObject = %+v, %v; want x object", got, ok)
	}

	all := h.GetAllObjects()
	if len(all) != 1 {
		t.Fatalf("GetAllObjects len = %d, want 1", len(all))
	}

	h.ClearAllObjects()
	if len(h.GetAllObjects()) != 0 {
		t.Error("expected empty store after ClearAllObjects")
	}
}

func TestWaitForSelectionSettled(t *testing.T) {
	h, eng := newTestHarness()
	defer h.Engine.Close()

	id, _ := eng.CreateObject(actions.CreateOptions{Kind: types.KindToken})
	eng.SelectObjects([]string{id}, "actor-A")

	if !h.WaitForSelectionSettled("actor-A", map[string]bool{id: true}) {
		t.Fatal("expected cached selection to match store selection")
	}
	if h.WaitForSelectionSettled("actor-A", map[string]bool{}) {
		t.Fatal("expected mismatch to not settle as equal")
	}
}
