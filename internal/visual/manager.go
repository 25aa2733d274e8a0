// Package visual implements the Visual Manager (spec.md 4.6, C6): a scene-
// graph mirror of the replicated object store, one container per object,
// indexed by object id. In this terminal-rendered engine a "container" is a
// styled lipgloss cell rather than a GPU sprite, grounded on the teacher's
// internal/ui package (lipgloss/table, lipgloss/tree rendering of
// domain objects) — the mirroring discipline (objects-added/updated/removed,
// hide/show independent of store state, zoom-aware text resolution) is
// identical regardless of what the container actually draws.
package visual

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

// Container is one scene-graph node mirroring a TableObject.
type Container struct {
	ID         string
	Kind       types.Kind
	Pos        types.Pos
	Locked     bool
	SelectedBy string
	FaceUp     bool
	CardCount  int
	Meta       types.Meta
	SortKey    string

	// hidden is tracked independently from the store (spec.md 4.6:
	// "updates arriving during a hide do not reveal the object").
	hidden bool
}

// actorPalette assigns a deterministic lipgloss color per actor id for
// selection borders, grounded on the teacher's ColorAccent/ColorWarn/
// ColorPass palette convention in internal/ui.
var actorPalette = []lipgloss.Color{
	lipgloss.Color("39"),  // blue
	lipgloss.Color("212"), // pink
	lipgloss.Color("214"), // orange
	lipgloss.Color("118"), // green
	lipgloss.Color("99"),  // purple
}

func colorForActor(actor string) lipgloss.Color {
	if actor == "" {
		return lipgloss.Color("")
	}
	sum := 0
	for _, r := range actor {
		sum += int(r)
	}
	return actorPalette[sum%len(actorPalette)]
}

// Manager is the C6 contract, bound to one store.
type Manager struct {
	mu         sync.Mutex
	containers map[string]*Container

	textResMultiplier float64
	cameraScale       float64
	lastRegenAt       float64

	unsubscribe store.Unsubscribe
}

// New constructs an empty Manager. Call Attach to begin mirroring a store.
func New() *Manager {
	return &Manager{
		containers:        make(map[string]*Container),
		textResMultiplier: 1.0,
		cameraScale:       1.0,
	}
}

// Attach subscribes to s's change notifications and seeds the scene graph
// from its current contents. Call Detach to stop mirroring.
func (m *Manager) Attach(s store.ObjectStore) {
	for _, io := range s.GetAllObjects() {
		m.add(io.ID, io.Object)
	}
	m.unsubscribe = s.OnObjectsChange(func(c store.Change) {
		for _, id := range c.Added {
			if obj, ok := s.GetObject(id); ok {
				m.add(id, obj)
			}
		}
		for _, id := range c.Updated {
			if obj, ok := s.GetObject(id); ok {
				m.update(id, obj)
			}
		}
		for _, id := range c.Removed {
			m.remove(id)
		}
	})
}

// Detach stops mirroring.
func (m *Manager) Detach() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manager) add(id string, obj *types.TableObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[id] = containerFrom(obj)
}

// update applies a diff-aware redraw: every mirrored field is refreshed
// except hidden, which is preserved across the update (spec.md 4.6: "the
// redraw must leave alpha at 0" while hidden).
func (m *Manager) update(id string, obj *types.TableObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.containers[id]
	wasHidden := ok && existing.hidden
	c := containerFrom(obj)
	c.hidden = wasHidden
	m.containers[id] = c
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.containers, id)
}

func containerFrom(obj *types.TableObject) *Container {
	return &Container{
		ID:         obj.ID,
		Kind:       obj.Kind,
		Pos:        obj.Pos,
		Locked:     obj.Locked,
		SelectedBy: obj.SelectedBy,
		FaceUp:     obj.FaceUp,
		CardCount:  len(obj.Cards),
		Meta:       obj.Meta,
		SortKey:    obj.SortKey,
	}
}

// HideObject marks id hidden; subsequent updates leave it hidden until
// ShowObject is called (spec.md 4.6).
func (m *Manager) HideObject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.containers[id]; ok {
		c.hidden = true
	}
}

// ShowObject clears id's hidden flag.
func (m *Manager) ShowObject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.containers[id]; ok {
		c.hidden = false
	}
}

// IsHidden reports whether id is currently hidden.
func (m *Manager) IsHidden(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.containers[id]
	return ok && c.hidden
}

// regenThreshold is the minimum change in effective resolution multiplier
// (textResMultiplier * cameraScale) that triggers text regeneration,
// avoiding a re-bake on every sub-pixel zoom tick.
const regenThreshold = 0.15

// SetTextResolutionMultiplier sets k, the base text resolution multiplier
// (spec.md 4.6).
func (m *Manager) SetTextResolutionMultiplier(k float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textResMultiplier = k
}

// SetCameraScale sets s and reports whether the effective resolution
// multiplier changed enough to require re-requesting text generation
// (spec.md 4.6: "re-requests text re-generation when the effective
// resolution multiplier changes past a threshold").
func (m *Manager) SetCameraScale(s float64) (needsRegen bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cameraScale = s
	effective := m.textResMultiplier * m.cameraScale
	if m.lastRegenAt == 0 || abs(effective-m.lastRegenAt) > regenThreshold {
		m.lastRegenAt = effective
		return true
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Get returns a copy of id's container, if present.
func (m *Manager) Get(id string) (Container, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.containers[id]
	if !ok {
		return Container{}, false
	}
	return *c, true
}

// Count returns the number of mirrored containers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.containers)
}

// Ordered returns every container sorted by z-order (_sortKey ascending),
// the order the renderer paints in.
func (m *Manager) Ordered() []Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Container, 0, len(m.containers))
	for _, c := range m.containers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortKey < out[j].SortKey })
	return out
}
