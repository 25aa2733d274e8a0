package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/tablecore/engine/internal/logging"
	"github.com/tablecore/engine/internal/store"
)

var debugLog = logging.New("[PERSISTENCE]")

const dbSuffix = ".db"

// tableFile is one table id's durable state: its own SQLite file and its
// own single-writer lock, so two tables never contend on the same lock
// (spec.md 6.1: "different tables MUST use isolated storage").
type tableFile struct {
	db   *sql.DB
	lock *flock.Flock
}

// SQLiteAdapter implements Adapter by namespacing one SQLite file per table
// id under dir (pure-Go, wazero-backed via ncruces/go-sqlite3), each
// guarded by its own gofrs/flock single-writer lock, with a shared fsnotify
// watcher on dir for external rewrites of any table's file.
type SQLiteAdapter struct {
	dir     string
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	tables map[string]*tableFile
	cbs    []func(string)

	done chan struct{}
}

// Open prepares dir (created if absent) to host one `<tableID>.db` file per
// table, and starts a background watcher for external changes to any of
// them. No database file is created until Load or Persist names a table id.
func Open(dir string) (*SQLiteAdapter, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("persistence: create directory: %w", err)
	}

	a := &SQLiteAdapter{
		dir:    dir,
		tables: make(map[string]*tableFile),
		done:   make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		debugLog.Debugf("fsnotify unavailable (%v), external-change notification disabled", err)
		return a, nil
	}
	if err := watcher.Add(dir); err != nil {
		debugLog.Debugf("failed to watch %s: %v", dir, err)
		watcher.Close()
		return a, nil
	}
	a.watcher = watcher
	go a.watchLoop()
	return a, nil
}

// dbPath returns the per-table database path for tableID.
func (a *SQLiteAdapter) dbPath(tableID string) string {
	return filepath.Join(a.dir, tableID+dbSuffix)
}

// open returns tableID's tableFile, opening and schema-applying it (and its
// sibling lock file) on first use.
func (a *SQLiteAdapter) open(tableID string) (*tableFile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if tf, ok := a.tables[tableID]; ok {
		return tf, nil
	}

	db, err := sql.Open("sqlite3", a.dbPath(tableID))
	if err != nil {
		return nil, fmt.Errorf("persistence: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: apply schema: %w", err)
	}

	lockPath := filepath.Join(a.dir, tableID+".lock")
	tf := &tableFile{db: db, lock: flock.New(lockPath)}
	a.tables[tableID] = tf
	return tf, nil
}

func (a *SQLiteAdapter) watchLoop() {
	for {
		select {
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			tableID, ok := tableIDFromPath(ev.Name)
			if !ok {
				continue
			}
			a.notify(tableID)
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			debugLog.Debugf("watch error: %v", err)
		case <-a.done:
			return
		}
	}
}

// tableIDFromPath recovers a table id from one of this adapter's per-table
// file paths (e.g. "/dir/my-table.db" -> "my-table", true).
func tableIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, dbSuffix) {
		return "", false
	}
	return strings.TrimSuffix(base, dbSuffix), true
}

func (a *SQLiteAdapter) notify(tableID string) {
	a.mu.Lock()
	cbs := append([]func(string){}, a.cbs...)
	a.mu.Unlock()
	for _, cb := range cbs {
		cb(tableID)
	}
}

// Load implements Adapter.
func (a *SQLiteAdapter) Load(tableID string) (store.Update, bool, error) {
	tf, err := a.open(tableID)
	if err != nil {
		return store.Update{}, false, err
	}

	var blob []byte
	err = tf.db.QueryRowContext(context.Background(),
		`SELECT data FROM snapshots WHERE table_id = ?`, tableID).Scan(&blob)
	if err == sql.ErrNoRows {
		return store.Update{}, false, nil
	}
	if err != nil {
		return store.Update{}, false, fmt.Errorf("persistence: load %s: %w", tableID, err)
	}
	var u store.Update
	if err := yaml.Unmarshal(blob, &u); err != nil {
		return store.Update{}, false, fmt.Errorf("persistence: decode %s: %w", tableID, err)
	}
	return u, true, nil
}

// Persist implements Adapter.
func (a *SQLiteAdapter) Persist(tableID string, update store.Update) error {
	tf, err := a.open(tableID)
	if err != nil {
		return err
	}

	locked, err := tf.lock.TryLock()
	if err != nil {
		return fmt.Errorf("persistence: acquire lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer tf.lock.Unlock()

	blob, err := yaml.Marshal(update)
	if err != nil {
		return fmt.Errorf("persistence: encode %s: %w", tableID, err)
	}
	_, err = tf.db.ExecContext(context.Background(),
		`INSERT INTO snapshots (table_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(table_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		tableID, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persistence: persist %s: %w", tableID, err)
	}
	return nil
}

// OnReady implements Adapter. The watcher reacts to any write of a table's
// .db file and does not tell this adapter's own Persist apart from an
// outside writer, so cb also fires after a local Persist.
func (a *SQLiteAdapter) OnReady(cb func(tableID string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cbs = append(a.cbs, cb)
}

// Close implements Adapter.
func (a *SQLiteAdapter) Close() error {
	close(a.done)
	if a.watcher != nil {
		a.watcher.Close()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for _, tf := range a.tables {
		_ = tf.lock.Unlock()
		if err := tf.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
