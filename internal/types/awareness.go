package types

import "time"

// CursorPos is a world-space pointer position broadcast by an actor.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Awareness is the ephemeral, non-persisted per-actor presence record
// described by spec.md 3.4. It never goes through the object store's CRDT
// transactions; the Awareness Channel (C4) owns its own broadcast path.
type Awareness struct {
	ActorID     string          `json:"actorId"`
	CursorPos   *CursorPos      `json:"cursorPos,omitempty"`
	DraggingIDs map[string]bool `json:"draggingIds,omitempty"`
	LastSeen    time.Time       `json:"-"`
}

// Clone returns a deep copy of the record.
func (a Awareness) Clone() Awareness {
	cp := a
	if a.CursorPos != nil {
		c := *a.CursorPos
		cp.CursorPos = &c
	}
	if a.DraggingIDs != nil {
		cp.DraggingIDs = make(map[string]bool, len(a.DraggingIDs))
		for k, v := range a.DraggingIDs {
			cp.DraggingIDs[k] = v
		}
	}
	return cp
}
