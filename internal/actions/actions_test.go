package actions

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/tablecore/engine/internal/audit"
	"github.com/tablecore/engine/internal/migrate"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

func newEngine() (*Engine, *store.Store) {
	s := store.New("actor-1")
	return New(s), s
}

func TestCreateObjectAssignsMonotonicSortKey(t *testing.T) {
	e, s := newEngine()

	id1, err := e.CreateObject(CreateOptions{Kind: types.KindToken})
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	id2, err := e.CreateObject(CreateOptions{Kind: types.KindToken})
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}

	o1, _ := s.GetObject(id1)
	o2, _ := s.GetObject(id2)
	if !(o2.SortKey > o1.SortKey) {
		t.Errorf("sortKey(%q)=%q not greater than sortKey(%q)=%q", id2, o2.SortKey, id1, o1.SortKey)
	}
}

func TestCreateObjectRejectsUnknownKind(t *testing.T) {
	e, _ := newEngine()
	if _, err := e.CreateObject(CreateOptions{Kind: types.Kind("bogus")}); err == nil {
		t.Fatal("expected error for unrecognized kind")
	}
}

func TestCreateObjectStackDefaults(t *testing.T) {
	e, s := newEngine()
	id, err := e.CreateObject(CreateOptions{Kind: types.KindStack})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	obj, _ := s.GetObject(id)
	if !obj.FaceUp {
		t.Error("expected stack default FaceUp=true")
	}
	if obj.Cards == nil || len(obj.Cards) != 0 {
		t.Errorf("expected empty non-nil Cards, got %v", obj.Cards)
	}
}

func TestCreateObjectFaceDownSurvivesMigration(t *testing.T) {
	e, s := newEngine()
	faceUp := false
	id, err := e.CreateObject(CreateOptions{Kind: types.KindStack, FaceUp: &faceUp})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := migrate.RunMigrations(s); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	obj, _ := s.GetObject(id)
	if obj.FaceUp {
		t.Error("explicitly face-down create should survive RunMigrations, got FaceUp=true")
	}
}

func TestMoveObjectsSkipsUnknownID(t *testing.T) {
	e, s := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})

	e.MoveObjects([]ObjectMove{
		{ID: id, Pos: types.Pos{X: 10, Y: 20}},
		{ID: "does-not-exist", Pos: types.Pos{X: 1, Y: 1}},
	})

	obj, _ := s.GetObject(id)
	if obj.Pos.X != 10 || obj.Pos.Y != 20 {
		t.Errorf("Pos = %+v, want {10 20 0}", obj.Pos)
	}
}

func TestSelectObjectsExclusivity(t *testing.T) {
	e, _ := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})

	resA := e.SelectObjects([]string{id}, "actor-A")
	if len(resA.Selected) != 1 || len(resA.Failed) != 0 {
		t.Fatalf("actor-A select: %+v", resA)
	}

	resB := e.SelectObjects([]string{id}, "actor-B")
	if len(resB.Selected) != 0 || len(resB.Failed) != 1 {
		t.Fatalf("actor-B select should fail: %+v", resB)
	}

	// Self re-select is idempotent.
	resA2 := e.SelectObjects([]string{id}, "actor-A")
	if len(resA2.Selected) != 1 || len(resA2.Failed) != 0 {
		t.Fatalf("actor-A re-select: %+v", resA2)
	}
}

func TestSelectObjectsRejectsLocked(t *testing.T) {
	e, _ := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken, Locked: true})

	res := e.SelectObjects([]string{id}, "actor-A")
	if len(res.Selected) != 0 || len(res.Failed) != 1 {
		t.Fatalf("expected locked object to fail selection: %+v", res)
	}
}

func TestUnselectObjectsOnlyReleasesOwnClaims(t *testing.T) {
	e, _ := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})
	e.SelectObjects([]string{id}, "actor-A")

	released := e.UnselectObjects([]string{id}, "actor-B")
	if len(released) != 0 {
		t.Fatalf("actor-B should not release actor-A's claim, got %v", released)
	}

	released = e.UnselectObjects([]string{id}, "actor-A")
	if len(released) != 1 {
		t.Fatalf("actor-A should release own claim, got %v", released)
	}
}

func TestClearAllSelectionsFailsFastWithoutDragFeed(t *testing.T) {
	e, _ := newEngine()
	err := e.ClearAllSelections(ClearAllSelectionsOptions{ExcludeDragging: true})
	if err == nil {
		t.Fatal("expected error when excludeDragging requested with no drag feed")
	}
}

func TestClearAllSelectionsExcludesDragging(t *testing.T) {
	e, s := newEngine()
	id1, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})
	id2, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})
	e.SelectObjects([]string{id1, id2}, "actor-A")

	err := e.ClearAllSelections(ClearAllSelectionsOptions{
		ExcludeDragging: true,
		Dragging:        func() map[string]bool { return map[string]bool{id1: true} },
	})
	if err != nil {
		t.Fatalf("ClearAllSelections: %v", err)
	}

	o1, _ := s.GetObject(id1)
	o2, _ := s.GetObject(id2)
	if o1.SelectedBy != "actor-A" {
		t.Errorf("dragging object should keep its claim, got %q", o1.SelectedBy)
	}
	if o2.SelectedBy != "" {
		t.Errorf("non-dragging object should be cleared, got %q", o2.SelectedBy)
	}
}

func TestFlipCardsOnlyAffectsFaceUpKinds(t *testing.T) {
	e, s := newEngine()
	stackID, _ := e.CreateObject(CreateOptions{Kind: types.KindStack})
	zoneID, _ := e.CreateObject(CreateOptions{Kind: types.KindZone})

	flipped := e.FlipCards([]string{stackID, zoneID})
	if len(flipped) != 1 || flipped[0] != stackID {
		t.Fatalf("flipped = %v, want only %q", flipped, stackID)
	}

	obj, _ := s.GetObject(stackID)
	if obj.FaceUp {
		t.Error("expected stack FaceUp toggled to false")
	}
}

func TestExhaustCardsTogglesAndReturns(t *testing.T) {
	e, s := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindStack})

	e.ExhaustCards([]string{id})
	obj, _ := s.GetObject(id)
	if !types.RotationsEqual(obj.Pos.R, 90) {
		t.Fatalf("after first exhaust, R = %v, want ~90", obj.Pos.R)
	}

	e.ExhaustCards([]string{id})
	obj, _ = s.GetObject(id)
	if !types.RotationsEqual(obj.Pos.R, 0) {
		t.Fatalf("after second exhaust, R = %v, want ~0", obj.Pos.R)
	}
}

func TestExhaustCardsIgnoresNonStacks(t *testing.T) {
	e, s := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})

	toggled := e.ExhaustCards([]string{id})
	if len(toggled) != 0 {
		t.Fatalf("expected token to be ignored, got %v", toggled)
	}
	obj, _ := s.GetObject(id)
	if obj.Pos.R != 0 {
		t.Errorf("token rotation should be untouched, got %v", obj.Pos.R)
	}
}

func TestShuffleCardsPreservesMultiset(t *testing.T) {
	e, s := newEngine()
	original := []string{"AS", "KH", "QD", "JC", "10S", "9H", "8D"}
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindStack, Cards: original})

	e.ShuffleCards([]string{id})

	obj, _ := s.GetObject(id)
	got := append([]string(nil), obj.Cards...)
	want := append([]string(nil), original...)
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("len(Cards) = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("multiset mismatch: got %v, want %v", got, want)
		}
	}
}

func TestResetToTestSceneComposition(t *testing.T) {
	e, s := newEngine()
	id, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})
	e.SelectObjects([]string{id}, "actor-A")

	if err := e.ResetToTestScene(); err != nil {
		t.Fatalf("ResetToTestScene: %v", err)
	}

	all := s.GetAllObjects()
	counts := map[types.Kind]int{}
	for _, io := range all {
		counts[io.Object.Kind]++
		if io.Object.SelectedBy != "" {
			t.Errorf("object %s should not be selected after reset", io.ID)
		}
	}
	if counts[types.KindStack] != 5 {
		t.Errorf("stacks = %d, want 5", counts[types.KindStack])
	}
	if counts[types.KindToken] != 3 {
		t.Errorf("tokens = %d, want 3", counts[types.KindToken])
	}
	if counts[types.KindZone] != 2 {
		t.Errorf("zones = %d, want 2", counts[types.KindZone])
	}
	if counts[types.KindMat] != 3 {
		t.Errorf("mats = %d, want 3", counts[types.KindMat])
	}
	if counts[types.KindCounter] != 2 {
		t.Errorf("counters = %d, want 2", counts[types.KindCounter])
	}
}

func TestRemoveObjectsCascadesToChildren(t *testing.T) {
	e, s := newEngine()

	zoneID, _ := e.CreateObject(CreateOptions{Kind: types.KindZone})
	cardA, _ := e.CreateObject(CreateOptions{Kind: types.KindToken, ContainerID: zoneID})
	cardB, _ := e.CreateObject(CreateOptions{Kind: types.KindToken, ContainerID: cardA})
	other, _ := e.CreateObject(CreateOptions{Kind: types.KindToken})

	removed := e.RemoveObjects([]string{zoneID})
	sort.Strings(removed)
	want := []string{cardA, cardB, zoneID}
	sort.Strings(want)
	if len(removed) != len(want) {
		t.Fatalf("removed = %v, want %v", removed, want)
	}
	for i := range want {
		if removed[i] != want[i] {
			t.Fatalf("removed = %v, want %v", removed, want)
		}
	}

	if _, ok := s.GetObject(zoneID); ok {
		t.Error("zone should be gone")
	}
	if _, ok := s.GetObject(cardA); ok {
		t.Error("direct child should cascade-delete")
	}
	if _, ok := s.GetObject(cardB); ok {
		t.Error("grandchild should cascade-delete")
	}
	if _, ok := s.GetObject(other); !ok {
		t.Error("unrelated object should survive")
	}
}

func TestRemoveObjectsSkipsUnknownID(t *testing.T) {
	e, _ := newEngine()
	removed := e.RemoveObjects([]string{"does-not-exist"})
	if len(removed) != 0 {
		t.Errorf("removed = %v, want empty", removed)
	}
}

func readAuditKinds(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var kinds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode audit entry: %v", err)
		}
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestMutationsAppendAuditEntriesWhenLogAttached(t *testing.T) {
	e, _ := newEngine()
	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := audit.Open(logPath)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	e.SetAuditLog(log)

	id, err := e.CreateObject(CreateOptions{Kind: types.KindToken})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e.RemoveObjects([]string{id})

	kinds := readAuditKinds(t, logPath)
	want := []string{"createObject", "removeObjects"}
	if len(kinds) != len(want) {
		t.Fatalf("audit entries = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("entry %d kind = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestMutationsSkipAuditWhenNoLogAttached(t *testing.T) {
	e, _ := newEngine()
	if _, err := e.CreateObject(CreateOptions{Kind: types.KindToken}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// No SetAuditLog call: must not panic or attempt to write anywhere.
}
