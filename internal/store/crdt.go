package store

import "github.com/tablecore/engine/internal/types"

// stamp is a Lamport-style per-field timestamp: a monotonically increasing
// counter plus the writing actor's id as a deterministic tiebreaker. This is
// the same shape the retrieval pack's hd1 sync/protocol.go uses for its
// vector-clock deltas, scaled down to one counter per store (single
// sequencer per replica) since the table engine has no server authority to
// reconcile a true vector clock against (spec.md 5, Non-goals).
type stamp struct {
	Counter uint64
	Actor   string
}

// after reports whether a happened strictly after b: higher counter wins;
// on a tie, the lexicographically greater actor id wins. This tiebreak is
// what spec.md 4.3 means by "CRDT-merging two concurrent setObject calls may
// leave _selectedBy as the later-id actor" — the merge is deterministic, but
// not necessarily the first claimant.
func (a stamp) after(b stamp) bool {
	if a.Counter != b.Counter {
		return a.Counter > b.Counter
	}
	return a.Actor > b.Actor
}

// fieldStamps tracks the stamp that last wrote each mutable field of a
// TableObject. Kind and ID are immutable after creation and carry no stamp.
type fieldStamps struct {
	Pos         stamp
	SortKey     stamp
	Locked      stamp
	SelectedBy  stamp
	Meta        stamp
	Cards       stamp
	FaceUp      stamp
	ContainerID stamp
}

type record struct {
	value  *types.TableObject
	stamps fieldStamps
}

// applyLocal merges a caller-supplied full object into the existing record
// (if any) as a local write: every field present in obj that differs from
// the current value is stamped with st and applied. Fields the caller left
// at their zero value but which already exist in the record are left alone
// only when existing is nil (object creation); for updates the action layer
// always supplies the full object read-then-mutated from GetObject, so a
// field equal to its current value is a no-op stamp bump, not a reversion.
func applyLocal(existing *record, obj *types.TableObject, st stamp) *record {
	if existing == nil {
		r := &record{value: obj.Clone()}
		r.stamps = fieldStamps{Pos: st, SortKey: st, Locked: st, SelectedBy: st, Meta: st, Cards: st, FaceUp: st, ContainerID: st}
		return r
	}
	merged := existing.value.Clone()
	stamps := existing.stamps

	if obj.Pos != merged.Pos {
		merged.Pos = obj.Pos
		stamps.Pos = st
	}
	if obj.SortKey != merged.SortKey {
		merged.SortKey = obj.SortKey
		stamps.SortKey = st
	}
	if obj.Locked != merged.Locked {
		merged.Locked = obj.Locked
		stamps.Locked = st
	}
	if obj.SelectedBy != merged.SelectedBy {
		merged.SelectedBy = obj.SelectedBy
		stamps.SelectedBy = st
	}
	if !obj.Meta.Equal(merged.Meta) {
		merged.Meta = obj.Meta
		stamps.Meta = st
	}
	if !stringSliceEqual(obj.Cards, merged.Cards) {
		merged.Cards = append([]string(nil), obj.Cards...)
		stamps.Cards = st
	}
	if obj.FaceUp != merged.FaceUp {
		merged.FaceUp = obj.FaceUp
		stamps.FaceUp = st
	}
	if obj.ContainerID != merged.ContainerID {
		merged.ContainerID = obj.ContainerID
		stamps.ContainerID = st
	}
	return &record{value: merged, stamps: stamps}
}

// mergeRemote merges a remote replica's record into the local one using
// per-field last-writer-wins: each field is taken from whichever side has
// the later stamp. This is what a sync transport delivers to MergeRemote
// once an update is received (spec.md 6.2).
func mergeRemote(local, remote *record) *record {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}
	out := &record{value: local.value.Clone(), stamps: local.stamps}
	if remote.stamps.Pos.after(local.stamps.Pos) {
		out.value.Pos = remote.value.Pos
		out.stamps.Pos = remote.stamps.Pos
	}
	if remote.stamps.SortKey.after(local.stamps.SortKey) {
		out.value.SortKey = remote.value.SortKey
		out.stamps.SortKey = remote.stamps.SortKey
	}
	if remote.stamps.Locked.after(local.stamps.Locked) {
		out.value.Locked = remote.value.Locked
		out.stamps.Locked = remote.stamps.Locked
	}
	if remote.stamps.SelectedBy.after(local.stamps.SelectedBy) {
		out.value.SelectedBy = remote.value.SelectedBy
		out.stamps.SelectedBy = remote.stamps.SelectedBy
	}
	if remote.stamps.Meta.after(local.stamps.Meta) {
		out.value.Meta = remote.value.Meta
		out.stamps.Meta = remote.stamps.Meta
	}
	if remote.stamps.Cards.after(local.stamps.Cards) {
		out.value.Cards = append([]string(nil), remote.value.Cards...)
		out.stamps.Cards = remote.stamps.Cards
	}
	if remote.stamps.FaceUp.after(local.stamps.FaceUp) {
		out.value.FaceUp = remote.value.FaceUp
		out.stamps.FaceUp = remote.stamps.FaceUp
	}
	if remote.stamps.ContainerID.after(local.stamps.ContainerID) {
		out.value.ContainerID = remote.value.ContainerID
		out.stamps.ContainerID = remote.stamps.ContainerID
	}
	return out
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
