package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

func TestLoadOnUnseenTableReturnsNotOK(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	_, ok, err := a.Load("table-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a never-persisted table")
	}
}

func TestPersistThenLoadRoundTrips(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	u := store.Update{
		Actor:     "actor-1",
		Timestamp: time.Now(),
		Records: []store.UpdateRecord{
			{ID: "obj-1", Value: types.TableObject{ID: "obj-1", Kind: types.KindToken, SortKey: "1|a"}},
		},
	}
	if err := a.Persist("table-a", u); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, ok, err := a.Load("table-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true after persisting")
	}
	if len(got.Records) != 1 || got.Records[0].ID != "obj-1" {
		t.Errorf("Records = %+v, want one record with ID obj-1", got.Records)
	}
}

func TestDifferentTableIDsAreIsolated(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	u := store.Update{Records: []store.UpdateRecord{{ID: "obj-1"}}}
	if err := a.Persist("table-a", u); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	_, ok, err := a.Load("table-b")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatal("expected table-b to remain empty after only table-a was persisted")
	}
}

func TestPersistOverwritesExistingSnapshot(t *testing.T) {
	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	first := store.Update{Records: []store.UpdateRecord{{ID: "obj-1"}}}
	second := store.Update{Records: []store.UpdateRecord{{ID: "obj-1"}, {ID: "obj-2"}}}
	if err := a.Persist("table-a", first); err != nil {
		t.Fatalf("Persist first: %v", err)
	}
	if err := a.Persist("table-a", second); err != nil {
		t.Fatalf("Persist second: %v", err)
	}

	got, ok, err := a.Load("table-a")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if len(got.Records) != 2 {
		t.Fatalf("Records len = %d, want 2 (overwritten, not appended)", len(got.Records))
	}
}

func TestOpenCreatesOneDatabaseFilePerTable(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.Persist("table-a", store.Update{}); err != nil {
		t.Fatalf("Persist table-a: %v", err)
	}
	if err := a.Persist("table-b", store.Update{}); err != nil {
		t.Fatalf("Persist table-b: %v", err)
	}

	for _, id := range []string{"table-a", "table-b"} {
		want := filepath.Join(dir, id+".db")
		if _, err := os.Stat(want); err != nil {
			t.Errorf("expected %s to exist: %v", want, err)
		}
	}
}

func TestPersistLocksOnlyItsOwnTable(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	tfA, err := a.open("table-a")
	if err != nil {
		t.Fatalf("open table-a: %v", err)
	}
	locked, err := tfA.lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock table-a: locked=%v err=%v", locked, err)
	}
	defer tfA.lock.Unlock()

	if err := a.Persist("table-b", store.Update{}); err != nil {
		t.Errorf("Persist table-b should not contend with table-a's lock: %v", err)
	}
}
