// Package persistence implements the §6.1 persistence contract: load an
// initial snapshot per table, persist CRDT snapshots durably, and notify
// callers when a table's on-disk state changes. Grounded on the teacher's
// internal/storage/sqlite package for the schema/open/close shape, and on
// cmd/bd/sync.go's flock.New/TryLock pattern and cmd/bd/daemon_watcher.go's
// fsnotify.Watcher pattern for single-writer safety and external-change
// detection.
package persistence

import (
	"fmt"

	"github.com/tablecore/engine/internal/store"
)

// Adapter is the Go rendering of spec.md 6.1's load/persist/onReady trio.
type Adapter interface {
	// Load returns the durably stored snapshot for tableID, or ok=false if
	// no table with that id has ever been persisted (a brand-new table).
	Load(tableID string) (update store.Update, ok bool, err error)

	// Persist durably stores update as tableID's latest snapshot.
	Persist(tableID string, update store.Update) error

	// OnReady registers cb to be invoked with a table id whenever that
	// table's on-disk state changes from outside this process (e.g. a sync
	// pull rewriting the database file directly).
	OnReady(cb func(tableID string))

	// Close releases the adapter's lock, watcher, and database handle.
	Close() error
}

// ErrLocked is returned by Persist when another process currently holds the
// single-writer lock.
var ErrLocked = fmt.Errorf("persistence: database locked by another process")
