package awareness

import (
	"testing"
	"time"

	"github.com/tablecore/engine/internal/types"
)

func TestUpdateEmitsChange(t *testing.T) {
	c := New()
	var gotActor string
	var gotRemoved bool
	c.OnChange(func(actorID string, state *types.Awareness, removed bool) {
		gotActor = actorID
		gotRemoved = removed
	})

	c.Update("actor-1", &types.CursorPos{X: 1, Y: 2}, nil)

	if gotActor != "actor-1" || gotRemoved {
		t.Errorf("got actor=%q removed=%v", gotActor, gotRemoved)
	}
	rec, ok := c.Get("actor-1")
	if !ok {
		t.Fatal("expected actor-1 present")
	}
	if rec.CursorPos == nil || rec.CursorPos.X != 1 {
		t.Errorf("CursorPos = %+v", rec.CursorPos)
	}
}

func TestDisconnectRemovesImmediately(t *testing.T) {
	c := New()
	c.Update("actor-1", nil, nil)

	var removed bool
	c.OnChange(func(actorID string, state *types.Awareness, r bool) { removed = r })
	c.Disconnect("actor-1")

	if !removed {
		t.Error("expected removed=true on disconnect")
	}
	if _, ok := c.Get("actor-1"); ok {
		t.Error("expected actor-1 gone after disconnect")
	}
}

func TestGCReapsStaleEntries(t *testing.T) {
	now := time.Now()
	c := NewWithClock(func() time.Time { return now })
	c.Update("actor-1", nil, nil)

	now = now.Add(20 * time.Second)
	stale := c.GC(DefaultStaleAfter)

	if len(stale) != 1 || stale[0] != "actor-1" {
		t.Fatalf("stale = %v, want [actor-1]", stale)
	}
	if _, ok := c.Get("actor-1"); ok {
		t.Error("expected actor-1 reaped by GC")
	}
}

func TestGCKeepsFreshEntries(t *testing.T) {
	now := time.Now()
	c := NewWithClock(func() time.Time { return now })
	c.Update("actor-1", nil, nil)

	now = now.Add(1 * time.Second)
	stale := c.GC(DefaultStaleAfter)

	if len(stale) != 0 {
		t.Errorf("stale = %v, want none", stale)
	}
}

func TestDraggingIDsClonedIndependently(t *testing.T) {
	c := New()
	c.Update("actor-1", nil, map[string]bool{"obj-1": true})

	rec, _ := c.Get("actor-1")
	rec.DraggingIDs["obj-2"] = true

	rec2, _ := c.Get("actor-1")
	if rec2.DraggingIDs["obj-2"] {
		t.Error("mutating a returned snapshot should not affect internal state")
	}
}
