package transport

import (
	"sync"

	"github.com/tablecore/engine/internal/store"
)

// Hub is an in-process room registry shared by every LocalTransport that
// wants to reach the same room — the in-process stand-in for a relay
// server, used by the daemon's multi-window awareness sharing and by
// harness-driven two-peer tests (spec.md 8's convergence properties).
type Hub struct {
	mu      sync.Mutex
	members map[string][]*LocalTransport
}

// NewHub returns an empty room registry.
func NewHub() *Hub {
	return &Hub{members: map[string][]*LocalTransport{}}
}

func (h *Hub) join(room string, t *LocalTransport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[room] = append(h.members[room], t)
}

func (h *Hub) leave(room string, t *LocalTransport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers := h.members[room]
	for i, p := range peers {
		if p == t {
			h.members[room] = append(peers[:i], peers[i+1:]...)
			break
		}
	}
}

func (h *Hub) peers(room string, exclude *LocalTransport) []*LocalTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*LocalTransport
	for _, p := range h.members[room] {
		if p != exclude {
			out = append(out, p)
		}
	}
	return out
}

// LocalTransport implements Transport against a shared in-process Hub.
// Updates are JSON round-tripped (encode/decode) on every broadcast so a
// LocalTransport exercises exactly the same wire envelope a socket-based
// transport would, even though delivery never leaves the process.
type LocalTransport struct {
	hub  *Hub
	room string

	mu        sync.Mutex
	status    Status
	updateCBs []UpdateHandler
	statusCBs []StatusHandler
}

// NewLocalTransport returns a disconnected LocalTransport bound to hub.
func NewLocalTransport(hub *Hub) *LocalTransport {
	return &LocalTransport{hub: hub, status: StatusDisconnected}
}

// Connect implements Transport.
func (t *LocalTransport) Connect(room string) error {
	t.setStatus(StatusConnecting)
	t.mu.Lock()
	t.room = room
	t.mu.Unlock()
	t.hub.join(room, t)
	t.setStatus(StatusConnected)
	return nil
}

// Broadcast implements Transport. It JSON round-trips update (matching the
// wire envelope a socket transport would use) and delivers the decoded copy
// to every other member of the room synchronously, mirroring the store's
// own synchronous-commit semantics (internal/orchestrator's wiring makes
// the same call for store-to-bus bridging).
func (t *LocalTransport) Broadcast(update store.Update) error {
	raw, err := encode(update)
	if err != nil {
		return err
	}
	t.mu.Lock()
	room := t.room
	t.mu.Unlock()
	for _, peer := range t.hub.peers(room, t) {
		decoded, err := decode(raw)
		if err != nil {
			return err
		}
		peer.deliver(decoded)
	}
	return nil
}

// Disconnect implements Transport.
func (t *LocalTransport) Disconnect() error {
	t.mu.Lock()
	room := t.room
	t.mu.Unlock()
	t.hub.leave(room, t)
	t.setStatus(StatusDisconnected)
	return nil
}

// OnUpdate implements Transport.
func (t *LocalTransport) OnUpdate(cb UpdateHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateCBs = append(t.updateCBs, cb)
}

// OnStatus implements Transport.
func (t *LocalTransport) OnStatus(cb StatusHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusCBs = append(t.statusCBs, cb)
}

func (t *LocalTransport) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	cbs := append([]StatusHandler{}, t.statusCBs...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (t *LocalTransport) deliver(update store.Update) {
	t.mu.Lock()
	cbs := append([]UpdateHandler{}, t.updateCBs...)
	t.mu.Unlock()
	for _, cb := range cbs {
		cb(update)
	}
}
