// Package daemon manages the background orchestrator process registry: one
// entry per table a `tablectl` daemon is currently serving, persisted to
// disk so separate CLI invocations can discover and reuse a running
// process instead of spawning a duplicate. Grounded on the teacher's
// internal/daemon/registry.go — same atomic-write-via-tempfile-then-rename
// registry file, same stale-entry cleanup on List, but using gofrs/flock
// (already a table-engine dependency) in place of the teacher's own
// internal/lockfile wrapper.
package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Entry describes one running orchestrator daemon.
type Entry struct {
	TableID    string    `json:"tableId"`
	SocketPath string    `json:"socketPath"`
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"startedAt"`
}

// Registry manages the daemon registry file at $HOME/.tablecore/registry.json.
type Registry struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// NewRegistry opens the registry under the user's home directory, creating
// the parent directory if needed.
func NewRegistry() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("daemon: home directory: %w", err)
	}
	dir := filepath.Join(home, ".tablecore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("daemon: create registry directory: %w", err)
	}
	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}, nil
}

// NewRegistryAt opens a registry rooted at dir. Test-only.
func NewRegistryAt(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("daemon: create registry directory: %w", err)
	}
	return &Registry{
		path:     filepath.Join(dir, "registry.json"),
		lockPath: filepath.Join(dir, "registry.lock"),
	}, nil
}

func (r *Registry) withLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fl := flock.New(r.lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("daemon: acquire registry lock: %w", err)
	}
	defer fl.Unlock()
	return fn()
}

func (r *Registry) readLocked() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("daemon: read registry: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupted registry just means daemons must be rediscovered.
		return nil, nil
	}
	return entries, nil
}

func (r *Registry) writeLocked(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("daemon: marshal registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "registry-*.json.tmp")
	if err != nil {
		return fmt.Errorf("daemon: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: rename temp file: %w", err)
	}
	return nil
}

// Register records entry, replacing any existing entry for the same table
// id or PID.
func (r *Registry) Register(entry Entry) error {
	return r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.TableID != entry.TableID && e.PID != entry.PID {
				filtered = append(filtered, e)
			}
		}
		filtered = append(filtered, entry)
		return r.writeLocked(filtered)
	})
}

// Unregister removes any entry for tableID or pid.
func (r *Registry) Unregister(tableID string, pid int) error {
	return r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		filtered := entries[:0:0]
		for _, e := range entries {
			if e.TableID != tableID && e.PID != pid {
				filtered = append(filtered, e)
			}
		}
		return r.writeLocked(filtered)
	})
}

// List returns every registered entry whose process is still alive,
// pruning stale entries from the registry file as a side effect.
func (r *Registry) List() ([]Entry, error) {
	var alive []Entry
	err := r.withLock(func() error {
		entries, err := r.readLocked()
		if err != nil {
			return err
		}
		for _, e := range entries {
			if isProcessAlive(e.PID) {
				alive = append(alive, e)
			}
		}
		if len(alive) != len(entries) {
			if err := r.writeLocked(alive); err != nil {
				return err
			}
		}
		return nil
	})
	return alive, err
}

// Find returns the registered entry for tableID, if its process is alive.
func (r *Registry) Find(tableID string) (Entry, bool, error) {
	entries, err := r.List()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.TableID == tableID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Clear empties the registry. Test-only.
func (r *Registry) Clear() error {
	return r.withLock(func() error { return r.writeLocked(nil) })
}
