package store

import (
	"testing"

	"github.com/tablecore/engine/internal/types"
)

func TestSetObjectEmitsAddedThenUpdated(t *testing.T) {
	s := New("actor-1")
	var batches []Change
	s.OnObjectsChange(func(c Change) { batches = append(batches, c) })

	s.SetObject("obj-1", &types.TableObject{ID: "obj-1", Kind: types.KindToken})
	s.SetObject("obj-1", &types.TableObject{ID: "obj-1", Kind: types.KindToken, Pos: types.Pos{X: 1}})

	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}
	if len(batches[0].Added) != 1 || len(batches[0].Updated) != 0 {
		t.Errorf("first batch = %+v, want one Added", batches[0])
	}
	if len(batches[1].Updated) != 1 || len(batches[1].Added) != 0 {
		t.Errorf("second batch = %+v, want one Updated", batches[1])
	}
}

func TestTransactCoalescesIntoOneBatch(t *testing.T) {
	s := New("actor-1")
	var batches []Change
	s.OnObjectsChange(func(c Change) { batches = append(batches, c) })

	s.Transact(OriginLocal, func(tx Tx) {
		tx.SetObject("a", &types.TableObject{ID: "a", Kind: types.KindToken})
		tx.SetObject("b", &types.TableObject{ID: "b", Kind: types.KindToken})
		tx.RemoveObject("a")
	})

	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	c := batches[0]
	if len(c.Added) != 1 || c.Added[0] != "b" {
		t.Errorf("Added = %v, want [b]", c.Added)
	}
	if len(c.Removed) != 1 || c.Removed[0] != "a" {
		t.Errorf("Removed = %v, want [a]", c.Removed)
	}
	if len(c.Updated) != 0 {
		t.Errorf("Updated = %v, want none", c.Updated)
	}
}

func TestEmptyTransactionEmitsNothing(t *testing.T) {
	s := New("actor-1")
	fired := false
	s.OnObjectsChange(func(c Change) { fired = true })

	s.Transact(OriginLocal, func(tx Tx) {})

	if fired {
		t.Error("expected no change batch for an empty transaction")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := New("actor-1")
	count := 0
	unsub := s.OnObjectsChange(func(c Change) { count++ })

	s.SetObject("a", &types.TableObject{ID: "a", Kind: types.KindToken})
	unsub()
	s.SetObject("b", &types.TableObject{ID: "b", Kind: types.KindToken})

	if count != 1 {
		t.Errorf("count = %d, want 1 (unsubscribe should stop further delivery)", count)
	}
}

func TestClearAllObjectsRemovesEverything(t *testing.T) {
	s := New("actor-1")
	s.SetObject("a", &types.TableObject{ID: "a", Kind: types.KindToken})
	s.SetObject("b", &types.TableObject{ID: "b", Kind: types.KindToken})

	s.ClearAllObjects(OriginLocal)

	if len(s.GetAllObjects()) != 0 {
		t.Errorf("expected empty store after ClearAllObjects")
	}
}

func TestMergeRemoteLastWriterWinsPerField(t *testing.T) {
	s := New("actor-local")
	s.SetObject("obj-1", &types.TableObject{ID: "obj-1", Kind: types.KindToken, Pos: types.Pos{X: 1}, Locked: false})

	u := Update{
		Actor: "actor-remote",
		Records: []UpdateRecord{
			{
				ID:    "obj-1",
				Value: types.TableObject{ID: "obj-1", Kind: types.KindToken, Pos: types.Pos{X: 99}, Locked: true},
				Stamps: fieldStampsWire{
					Pos:    stampWire{Counter: 100, Actor: "actor-remote"},
					Locked: stampWire{Counter: 100, Actor: "actor-remote"},
					// all other fields default to counter 0, so local wins them
				},
			},
		},
	}
	s.ApplyRemoteUpdate(u)

	obj, _ := s.GetObject("obj-1")
	if obj.Pos.X != 99 {
		t.Errorf("Pos.X = %v, want 99 (remote had the later stamp)", obj.Pos.X)
	}
	if !obj.Locked {
		t.Error("Locked should be true (remote had the later stamp)")
	}
}

func TestApplyRemoteUpdateEmitsOriginRemote(t *testing.T) {
	s := New("actor-local")
	var got Change
	s.OnObjectsChange(func(c Change) { got = c })

	s.ApplyRemoteUpdate(Update{
		Actor: "actor-remote",
		Records: []UpdateRecord{
			{ID: "new-obj", Value: types.TableObject{ID: "new-obj", Kind: types.KindToken}},
		},
	})

	if got.Origin != OriginRemote {
		t.Errorf("Origin = %q, want %q", got.Origin, OriginRemote)
	}
	if len(got.Added) != 1 {
		t.Errorf("Added = %v, want one new object", got.Added)
	}
}

func TestSnapshotRoundTripsThroughApplyRemoteUpdate(t *testing.T) {
	src := New("actor-A")
	src.SetObject("a", &types.TableObject{ID: "a", Kind: types.KindZone, Pos: types.Pos{X: 5, Y: 6}})

	snap := src.Snapshot()

	dst := New("actor-B")
	dst.ApplyRemoteUpdate(snap)

	obj, ok := dst.GetObject("a")
	if !ok {
		t.Fatal("expected object a to exist in destination store")
	}
	if obj.Pos.X != 5 || obj.Pos.Y != 6 {
		t.Errorf("Pos = %+v, want {5 6 0}", obj.Pos)
	}
}
