package migrate

import (
	"testing"

	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

func newStack(id string) *types.TableObject {
	return &types.TableObject{ID: id, Kind: types.KindStack, SortKey: "a0"}
}

func TestRunMigrationsBackfillsDefaults(t *testing.T) {
	s := store.New("actor-1")
	s.SetObject("stack-1", newStack("stack-1"))

	changed, err := RunMigrations(s)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}

	obj, ok := s.GetObject("stack-1")
	if !ok {
		t.Fatal("stack-1 missing after migration")
	}
	if !obj.FaceUp {
		t.Error("expected FaceUp backfilled to true")
	}
	if obj.Cards == nil {
		t.Error("expected Cards backfilled to empty slice, got nil")
	}
	if obj.Meta.Get(schemaVersionKey).String() != CurrentSchemaVersion {
		t.Errorf("schema version = %q, want %q", obj.Meta.Get(schemaVersionKey).String(), CurrentSchemaVersion)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	s := store.New("actor-1")
	s.SetObject("stack-1", newStack("stack-1"))

	if _, err := RunMigrations(s); err != nil {
		t.Fatalf("first RunMigrations: %v", err)
	}

	var sawChange bool
	s.OnObjectsChange(func(c store.Change) { sawChange = true })

	changed, err := RunMigrations(s)
	if err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if changed != 0 {
		t.Errorf("second run changed = %d, want 0", changed)
	}
	if sawChange {
		t.Error("second run should not emit any change batch")
	}
}

func TestRunMigrationsPreservesExistingValues(t *testing.T) {
	s := store.New("actor-1")
	obj := newStack("stack-1")
	obj.FaceUp = false
	obj.Cards = []string{"card-1", "card-2"}
	obj = StampCreated(obj)
	s.SetObject("stack-1", obj)

	if _, err := RunMigrations(s); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	got, _ := s.GetObject("stack-1")
	if len(got.Cards) != 2 {
		t.Errorf("Cards = %v, want preserved 2-element slice", got.Cards)
	}
	if got.FaceUp {
		t.Error("expected explicitly-set FaceUp=false to survive migration, got clobbered to true")
	}
}

// TestRunMigrationsDefaultsOnlyTrulyUnsetFaceUp covers the distinction
// applyDefaults/defaultFaceUp exist to draw: an object nobody ever stamped
// (faceUpPresentKey absent) gets the spec.md 4.2 default, even though its
// zero-value FaceUp is indistinguishable, byte for byte, from the preserved
// case above.
func TestRunMigrationsDefaultsOnlyTrulyUnsetFaceUp(t *testing.T) {
	s := store.New("actor-1")
	obj := newStack("stack-1") // FaceUp left at its Go zero value, unstamped
	s.SetObject("stack-1", obj)

	if _, err := RunMigrations(s); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	got, _ := s.GetObject("stack-1")
	if !got.FaceUp {
		t.Error("expected an object with no presence stamp to receive the FaceUp=true default")
	}
}

func TestRunMigrationsSkipsUnknownKind(t *testing.T) {
	s := store.New("actor-1")
	s.SetObject("bogus", &types.TableObject{ID: "bogus", Kind: types.Kind("not-a-kind")})

	changed, err := RunMigrations(s)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if changed != 0 {
		t.Errorf("changed = %d, want 0 for a batch with only an unknown kind", changed)
	}
}
