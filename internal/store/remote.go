package store

import (
	"time"

	"github.com/tablecore/engine/internal/types"
)

// Update is a batch of remote records merged together as one unit, mirroring
// the local Change batch shape so a peer's edits surface through the same
// OnObjectsChange handlers local edits do (spec.md "remote edits are
// indistinguishable from local ones once merged").
type Update struct {
	Actor     string
	Timestamp time.Time
	Records   []UpdateRecord
}

// UpdateRecord is one object's full CRDT state as transmitted between
// replicas: the value plus the stamp that last wrote each field.
type UpdateRecord struct {
	ID     string
	Value  types.TableObject
	Stamps fieldStampsWire
}

// fieldStampsWire is fieldStamps with exported fields for (de)serialization.
type fieldStampsWire struct {
	Pos, SortKey, Locked, SelectedBy, Meta, Cards, FaceUp, ContainerID stampWire
}

type stampWire struct {
	Counter uint64
	Actor   string
}

func (w stampWire) toStamp() stamp { return stamp{Counter: w.Counter, Actor: w.Actor} }
func fromStamp(s stamp) stampWire  { return stampWire{Counter: s.Counter, Actor: s.Actor} }

// Snapshot captures the store's full CRDT state as an Update, suitable for
// broadcasting to peers or persisting to durable storage.
func (s *Store) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := Update{Actor: s.actorID, Timestamp: time.Now()}
	for id, r := range s.records {
		u.Records = append(u.Records, UpdateRecord{
			ID:    id,
			Value: *r.value,
			Stamps: fieldStampsWire{
				Pos:         fromStamp(r.stamps.Pos),
				SortKey:     fromStamp(r.stamps.SortKey),
				Locked:      fromStamp(r.stamps.Locked),
				SelectedBy:  fromStamp(r.stamps.SelectedBy),
				Meta:        fromStamp(r.stamps.Meta),
				Cards:       fromStamp(r.stamps.Cards),
				FaceUp:      fromStamp(r.stamps.FaceUp),
				ContainerID: fromStamp(r.stamps.ContainerID),
			},
		})
	}
	return u
}

// ApplyRemoteUpdate merges an Update received from a peer (or reloaded from
// persistence) into the local store, resolving field conflicts with
// mergeRemote, and emits one Change batch tagged OriginRemote.
func (s *Store) ApplyRemoteUpdate(u Update) {
	s.mu.Lock()
	added := map[string]bool{}
	updated := map[string]bool{}
	for _, ur := range u.Records {
		incoming := &record{
			value: ur.Value.Clone(),
			stamps: fieldStamps{
				Pos:         ur.Stamps.Pos.toStamp(),
				SortKey:     ur.Stamps.SortKey.toStamp(),
				Locked:      ur.Stamps.Locked.toStamp(),
				SelectedBy:  ur.Stamps.SelectedBy.toStamp(),
				Meta:        ur.Stamps.Meta.toStamp(),
				Cards:       ur.Stamps.Cards.toStamp(),
				FaceUp:      ur.Stamps.FaceUp.toStamp(),
				ContainerID: ur.Stamps.ContainerID.toStamp(),
			},
		}
		existing, had := s.records[ur.ID]
		merged := mergeRemote(existing, incoming)
		s.records[ur.ID] = merged
		if !had {
			added[ur.ID] = true
		} else {
			updated[ur.ID] = true
		}
		if incoming.stamps.Pos.Counter > s.clock {
			s.clock = incoming.stamps.Pos.Counter
		}
	}
	c := Change{Origin: OriginRemote}
	for id := range added {
		c.Added = append(c.Added, id)
	}
	for id := range updated {
		if !added[id] {
			c.Updated = append(c.Updated, id)
		}
	}
	s.mu.Unlock()
	s.emit(c)
}
