package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tablecore/engine/internal/actions"
	"github.com/tablecore/engine/internal/audit"
	"github.com/tablecore/engine/internal/config"
	"github.com/tablecore/engine/internal/migrate"
	"github.com/tablecore/engine/internal/persistence"
	"github.com/tablecore/engine/internal/store"
)

// session bundles one CLI invocation's store, action engine, and
// persistence adapter, closed and flushed via Close.
type session struct {
	store   *store.Store
	actions *actions.Engine
	persist *persistence.SQLiteAdapter
	tableID string
}

// openSession loads tableID's durable snapshot (if any) into a fresh store
// bound to actor, the way every tablectl subcommand that touches objects
// does.
func openSession(actor, tableID string) (*session, error) {
	dir := config.GetString("persistence.dir")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".tablecore", "tables")
	}

	adapter, err := persistence.Open(dir)
	if err != nil {
		return nil, err
	}

	s := store.New(actor)
	if update, ok, err := adapter.Load(tableID); err != nil {
		adapter.Close()
		return nil, err
	} else if ok {
		s.ApplyRemoteUpdate(update)
	}

	// C2 runs once per doc synchronization, before anything else reads the
	// store, so every downstream consumer sees property-complete objects
	// (spec.md 3.3, 4.2).
	if _, err := migrate.RunMigrations(s); err != nil {
		adapter.Close()
		return nil, err
	}

	eng := actions.New(s)
	if log, err := audit.Open(filepath.Join(dir, "audit-"+tableID+".jsonl")); err == nil {
		eng.SetAuditLog(log)
	} else {
		// Audit is diagnostic, not load-bearing: a table whose data directory
		// can't host the log should still open.
		fmt.Fprintf(os.Stderr, "tablectl: audit log unavailable: %v\n", err)
	}

	return &session{
		store:   s,
		actions: eng,
		persist: adapter,
		tableID: tableID,
	}, nil
}

// Close persists the store's current snapshot and releases the adapter.
func (sess *session) Close() error {
	defer sess.persist.Close()
	return sess.persist.Persist(sess.tableID, sess.store.Snapshot())
}
