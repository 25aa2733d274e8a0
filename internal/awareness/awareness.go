// Package awareness implements the Awareness Channel (spec.md 3.4, 4.4,
// C4): ephemeral per-actor presence broadcast at a bounded rate, kept
// entirely separate from the CRDT object store. Grounded on the teacher's
// daemon registry (internal/daemon), which tracks live peer entries with a
// last-seen timestamp and reaps stale ones on a ticker — the same shape an
// ephemeral presence table needs, just keyed by actor instead of by daemon
// instance.
package awareness

import (
	"sync"
	"time"

	"github.com/tablecore/engine/internal/types"
)

// DefaultBroadcastHz is the default rate at which a local actor's presence
// is rebroadcast (spec.md 4.4: "default 20 Hz, adjustable").
const DefaultBroadcastHz = 20

// DefaultGCInterval is how often stale entries (no update within
// DefaultStaleAfter) are swept, grounded on the teacher's daemon registry
// cleanup interval.
const DefaultGCInterval = 5 * time.Second

// DefaultStaleAfter is how long an actor's awareness record survives with no
// update before GC reaps it as disconnected.
const DefaultStaleAfter = 10 * time.Second

// Handler observes a change to the awareness set: the current actor and
// whether it was removed (disconnected / GC'd) rather than updated.
type Handler func(actorID string, state *types.Awareness, removed bool)

// Unsubscribe detaches a previously registered Handler.
type Unsubscribe func()

// Channel is the C4 contract. now is injectable for deterministic GC tests.
type Channel struct {
	mu       sync.Mutex
	records  map[string]*types.Awareness
	handlers []Handler
	now      func() time.Time
}

// New constructs an empty Channel using time.Now as its clock.
func New() *Channel {
	return &Channel{records: make(map[string]*types.Awareness), now: time.Now}
}

// NewWithClock is the same as New but with an injectable clock, used by
// tests that exercise GC without sleeping.
func NewWithClock(now func() time.Time) *Channel {
	return &Channel{records: make(map[string]*types.Awareness), now: now}
}

// OnChange subscribes to awareness updates and removals.
func (c *Channel) OnChange(h Handler) Unsubscribe {
	c.mu.Lock()
	idx := len(c.handlers)
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if idx < len(c.handlers) {
			c.handlers[idx] = nil
		}
	}
}

func (c *Channel) emit(actorID string, state *types.Awareness, removed bool) {
	for _, h := range c.handlers {
		if h != nil {
			h(actorID, state, removed)
		}
	}
}

// Update upserts actorID's presence. Called at most at DefaultBroadcastHz by
// the local actor, and on every received remote broadcast.
func (c *Channel) Update(actorID string, cursor *types.CursorPos, draggingIDs map[string]bool) {
	c.mu.Lock()
	rec, ok := c.records[actorID]
	if !ok {
		rec = &types.Awareness{ActorID: actorID}
		c.records[actorID] = rec
	}
	rec.CursorPos = cursor
	if draggingIDs != nil {
		rec.DraggingIDs = make(map[string]bool, len(draggingIDs))
		for id := range draggingIDs {
			rec.DraggingIDs[id] = true
		}
	} else {
		rec.DraggingIDs = nil
	}
	rec.LastSeen = c.now()
	snapshot := rec.Clone()
	c.mu.Unlock()
	c.emit(actorID, &snapshot, false)
}

// Disconnect removes actorID's presence immediately, without waiting for GC
// (spec.md 4.4: "stops updating for an actor when their transport
// disconnects").
func (c *Channel) Disconnect(actorID string) {
	c.mu.Lock()
	_, had := c.records[actorID]
	delete(c.records, actorID)
	c.mu.Unlock()
	if had {
		c.emit(actorID, nil, true)
	}
}

// Get returns a copy of actorID's current awareness state, if present.
func (c *Channel) Get(actorID string) (types.Awareness, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[actorID]
	if !ok {
		return types.Awareness{}, false
	}
	return rec.Clone(), true
}

// All returns a snapshot of every currently-known actor's awareness state.
func (c *Channel) All() []types.Awareness {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Awareness, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec.Clone())
	}
	return out
}

// GC sweeps actors whose LastSeen is older than staleAfter, so peers
// garbage-collect ghost visuals after a quiet interval (spec.md 4.4). It
// returns the ids reaped.
func (c *Channel) GC(staleAfter time.Duration) []string {
	c.mu.Lock()
	now := c.now()
	var stale []string
	for id, rec := range c.records {
		if now.Sub(rec.LastSeen) > staleAfter {
			stale = append(stale, id)
			delete(c.records, id)
		}
	}
	c.mu.Unlock()
	for _, id := range stale {
		c.emit(id, nil, true)
	}
	return stale
}

// RunGC runs GC on DefaultGCInterval until stop is closed, mirroring the
// teacher's daemon registry's own background reaper goroutine.
func (c *Channel) RunGC(stop <-chan struct{}) {
	ticker := time.NewTicker(DefaultGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.GC(DefaultStaleAfter)
		}
	}
}
