// Package actions implements the Action Layer (spec.md 4.3, C3): the only
// sanctioned entry points for mutating the replicated object store. Every
// mutation opens exactly one store.Transact, except ResetToTestScene, which
// clears the store and then creates each fixture object in a transaction of
// its own, so the reset as a whole is not atomic. Mutations return a
// structured result instead of throwing, per spec.md 7's taxonomy #1
// (user-caused conditions are never exceptions) — the same shape the
// teacher's cmd/bd command handlers use when they return
// (result, error) instead of os.Exit on a validation failure.
package actions

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/google/uuid"

	"github.com/tablecore/engine/internal/audit"
	"github.com/tablecore/engine/internal/migrate"
	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
	"github.com/tablecore/engine/internal/validation"
)

// Engine is the C3 action layer bound to one store.
type Engine struct {
	store store.ObjectStore
	audit *audit.Log
}

// New binds an action Engine to s.
func New(s store.ObjectStore) *Engine {
	return &Engine{store: s}
}

// SetAuditLog attaches an append-only audit trail: every mutation below
// appends one Entry once its store.Transact has committed. An Engine with
// no audit log attached (the default until SetAuditLog is called) logs
// nothing.
func (e *Engine) SetAuditLog(l *audit.Log) {
	e.audit = l
}

// logEvent appends one audit.Entry if an audit log is attached, swallowing
// its own write failures (spec.md 7's user-caused-condition taxonomy
// covers mutation failures; a disk-full audit log must not also fail the
// mutation it is merely recording).
func (e *Engine) logEvent(kind, actor string, objectIDs []string, extra map[string]any) {
	if e.audit == nil {
		return
	}
	entry := &audit.Entry{Kind: kind, Actor: actor, Extra: extra}
	switch len(objectIDs) {
	case 0:
	case 1:
		entry.ObjectID = objectIDs[0]
	default:
		entry.ObjectIDs = objectIDs
	}
	if _, err := e.audit.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "actions: audit append failed: %v\n", err)
	}
}

// CreateOptions overlays caller-supplied fields onto a kind's defaults.
// Pointer fields distinguish "not specified" from the zero value.
type CreateOptions struct {
	Kind        types.Kind
	ContainerID string
	Pos         types.Pos
	Locked      bool
	Meta        map[string]any
	Cards       []string
	FaceUp      *bool
}

// CreateObject allocates a fresh id, computes a top sort key, applies kind
// defaults, and overlays opts (spec.md 4.3). It returns the new id.
func (e *Engine) CreateObject(opts CreateOptions) (string, error) {
	if !opts.Kind.Valid() {
		return "", fmt.Errorf("actions: create: unrecognized kind %q", opts.Kind)
	}
	id := uuid.NewString()
	obj := &types.TableObject{
		ID:          id,
		Kind:        opts.Kind,
		ContainerID: opts.ContainerID,
		Pos:         opts.Pos,
		Locked:      opts.Locked,
		Meta:        types.NewMeta(opts.Meta),
	}
	switch opts.Kind {
	case types.KindStack:
		obj.Cards = []string{}
		if opts.Cards != nil {
			obj.Cards = append([]string(nil), opts.Cards...)
		}
		obj.FaceUp = true
	case types.KindToken:
		obj.FaceUp = true
	}
	if opts.FaceUp != nil {
		obj.FaceUp = *opts.FaceUp
	}
	obj = migrate.StampCreated(obj)

	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		existing := tx.GetAllObjects()
		keys := make([]string, 0, len(existing))
		for _, io := range existing {
			keys = append(keys, io.Object.SortKey)
		}
		obj.SortKey = nextSortKey(keys)
		tx.SetObject(id, obj)
	})
	e.logEvent("createObject", "", []string{id}, map[string]any{"kind": string(opts.Kind)})
	return id, nil
}

// ObjectMove is one entry of a moveObjects batch.
type ObjectMove struct {
	ID  string
	Pos types.Pos
}

// MoveObjects batch-updates _pos for each existing id; unknown ids are
// skipped with a warning (spec.md 4.3).
func (e *Engine) MoveObjects(moves []ObjectMove) {
	ids := make([]string, 0, len(moves))
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, m := range moves {
			obj, ok := tx.GetObject(m.ID)
			if !ok {
				warnSkip("moveObjects", m.ID, "object not found")
				continue
			}
			obj.Pos = m.Pos
			tx.SetObject(m.ID, obj)
			ids = append(ids, m.ID)
		}
	})
	if len(ids) > 0 {
		e.logEvent("moveObjects", "", ids, nil)
	}
}

// SelectionResult is the (selected[], failed[]) pair spec.md 4.3 and 4.3's
// reconciliation note both describe.
type SelectionResult struct {
	Selected []string
	Failed   []string
}

// SelectObjects attempts to claim ids for actor. A claim is a field write,
// not a guarantee — CRDT merge can later strip it (spec.md 4.3's
// reconciliation note); callers must read back via an observer to confirm,
// which is why this also satisfies testable property P10 only after that
// read-back, not at the moment this call returns.
func (e *Engine) SelectObjects(ids []string, actor string) SelectionResult {
	var res SelectionResult
	check := validation.ForSelect(actor)
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, id := range ids {
			obj, ok := tx.GetObject(id)
			if !ok {
				res.Failed = append(res.Failed, id)
				continue
			}
			if err := check(id, obj); err != nil {
				res.Failed = append(res.Failed, id)
				continue
			}
			if obj.SelectedBy == actor {
				res.Selected = append(res.Selected, id)
				continue
			}
			obj.SelectedBy = actor
			tx.SetObject(id, obj)
			res.Selected = append(res.Selected, id)
		}
	})
	if len(res.Selected) > 0 {
		e.logEvent("selectObjects", actor, res.Selected, nil)
	}
	return res
}

// UnselectObjects clears claims owned by actor, returning the ids actually
// released. Claims owned by someone else are left untouched.
func (e *Engine) UnselectObjects(ids []string, actor string) []string {
	var released []string
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, id := range ids {
			obj, ok := tx.GetObject(id)
			if !ok || obj.SelectedBy != actor {
				continue
			}
			obj.SelectedBy = ""
			tx.SetObject(id, obj)
			released = append(released, id)
		}
	})
	if len(released) > 0 {
		e.logEvent("unselectObjects", actor, released, nil)
	}
	return released
}

// DraggingIDs reports the set of object ids currently mid-drag, consulted by
// ClearAllSelections when excludeDragging is requested. C7/C4 supply the
// live implementation; nil means no drag-state feed is wired.
type DraggingIDs func() map[string]bool

// ClearAllSelectionsOptions mirrors spec.md 4.3's clearAllSelections input.
type ClearAllSelectionsOptions struct {
	ExcludeDragging bool
	Dragging        DraggingIDs
}

// ClearAllSelections clears every _selectedBy. When ExcludeDragging is
// requested but no Dragging feed is wired, it fails fast rather than
// silently ignoring the request (spec.md 4.3, 9 design notes: "prefer an
// explicit failure over a silent false guarantee").
func (e *Engine) ClearAllSelections(opts ClearAllSelectionsOptions) error {
	if opts.ExcludeDragging && opts.Dragging == nil {
		return fmt.Errorf("actions: clearAllSelections: excludeDragging requested but no drag-state feed is wired")
	}
	var dragging map[string]bool
	if opts.ExcludeDragging {
		dragging = opts.Dragging()
	}
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, io := range tx.GetAllObjects() {
			if io.Object.SelectedBy == "" {
				continue
			}
			if dragging != nil && dragging[io.ID] {
				continue
			}
			io.Object.SelectedBy = ""
			tx.SetObject(io.ID, io.Object)
		}
	})
	e.logEvent("clearAllSelections", "", nil, map[string]any{"excludeDragging": opts.ExcludeDragging})
	return nil
}

// RemoveObjects deletes each id and cascades onto every descendant whose
// _containerId chain resolves back to a removed object, rather than
// detaching orphans to root (spec.md 9 open question: decided in favor of
// cascade-delete). Unknown ids are skipped with a warning; the returned
// slice is every id actually removed, including cascaded descendants.
func (e *Engine) RemoveObjects(ids []string) []string {
	var removed []string
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		all := tx.GetAllObjects()
		children := make(map[string][]string, len(all))
		for _, io := range all {
			if io.Object.ContainerID != "" {
				children[io.Object.ContainerID] = append(children[io.Object.ContainerID], io.ID)
			}
		}

		queue := make([]string, 0, len(ids))
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if _, ok := tx.GetObject(id); !ok {
				warnSkip("removeObjects", id, "object not found")
				continue
			}
			if !seen[id] {
				seen[id] = true
				queue = append(queue, id)
			}
		}

		for i := 0; i < len(queue); i++ {
			id := queue[i]
			for _, childID := range children[id] {
				if !seen[childID] {
					seen[childID] = true
					queue = append(queue, childID)
				}
			}
		}

		for _, id := range queue {
			tx.RemoveObject(id)
			removed = append(removed, id)
		}
	})
	if len(removed) > 0 {
		e.logEvent("removeObjects", "", removed, nil)
	}
	return removed
}

// FlipCards toggles _faceUp on Stacks and Tokens, silently skipping other
// kinds, and returns the ids actually flipped.
func (e *Engine) FlipCards(ids []string) []string {
	var flipped []string
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, id := range ids {
			obj, ok := tx.GetObject(id)
			if !ok {
				warnSkip("flipCards", id, "object not found")
				continue
			}
			if !obj.HasFaceUp() {
				continue
			}
			obj.FaceUp = !obj.FaceUp
			tx.SetObject(id, obj)
			flipped = append(flipped, id)
		}
	})
	if len(flipped) > 0 {
		e.logEvent("flipCards", "", flipped, nil)
	}
	return flipped
}

// exhaustedRotation and readyRotation are the two rotation states
// exhaustCards toggles between (spec.md 4.3).
const (
	readyRotation     = 0.0
	exhaustedRotation = 90.0
)

// ExhaustCards toggles _pos.r between 0 and 90 degrees on Stacks only,
// comparing with RotationEpsilon to tolerate floating-point drift, and
// normalizes the stored rotation to one decimal place.
func (e *Engine) ExhaustCards(ids []string) []string {
	var toggled []string
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, id := range ids {
			obj, ok := tx.GetObject(id)
			if !ok {
				warnSkip("exhaustCards", id, "object not found")
				continue
			}
			if obj.Kind != types.KindStack {
				continue
			}
			if types.RotationsEqual(obj.Pos.R, readyRotation) {
				obj.Pos.R = types.NormalizeRotation(exhaustedRotation)
			} else {
				obj.Pos.R = types.NormalizeRotation(readyRotation)
			}
			tx.SetObject(id, obj)
			toggled = append(toggled, id)
		}
	})
	if len(toggled) > 0 {
		e.logEvent("exhaustCards", "", toggled, nil)
	}
	return toggled
}

// ShuffleCards permutes _cards uniformly at random for each Stack in ids,
// preserving the multiset exactly (spec.md 3.2 invariant 5, testable
// property P4). The shuffle source is seeded from crypto/rand so the
// permutation is at least as strong as "cryptographically acceptable",
// resolving the open question in spec.md 9 in favor of true uniformity
// rather than a perceived-random shortcut.
func (e *Engine) ShuffleCards(ids []string) {
	var shuffledIDs []string
	e.store.Transact(store.OriginLocal, func(tx store.Tx) {
		for _, id := range ids {
			obj, ok := tx.GetObject(id)
			if !ok {
				warnSkip("shuffleCards", id, "object not found")
				continue
			}
			if obj.Kind != types.KindStack || len(obj.Cards) < 2 {
				continue
			}
			shuffled := append([]string(nil), obj.Cards...)
			fisherYatesShuffle(shuffled)
			obj.Cards = shuffled
			tx.SetObject(id, obj)
			shuffledIDs = append(shuffledIDs, id)
		}
	})
	if len(shuffledIDs) > 0 {
		e.logEvent("shuffleCards", "", shuffledIDs, nil)
	}
}

// fisherYatesShuffle performs an in-place uniform Fisher-Yates shuffle using
// a math/rand/v2 ChaCha8 source seeded from crypto/rand, the same
// "crypto-seeded PRNG" pattern the teacher's id generation reaches for
// whenever it needs unpredictability without paying crypto/rand's per-call
// cost in a loop.
func fisherYatesShuffle(cards []string) {
	src := rand.New(rand.NewChaCha8(cryptoSeed()))
	for i := len(cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func cryptoSeed() [32]byte {
	var b [32]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand failing means the OS entropy source is broken; fall
		// back to a fixed seed rather than panicking mid-shuffle.
		binary.LittleEndian.PutUint64(b[:], 0x9e3779b97f4a7c15)
	}
	return b
}

func warnSkip(action, id, reason string) {
	fmt.Fprintf(os.Stderr, "actions: %s: skipping %s: %s\n", action, id, reason)
}
