// Package transport implements the §6.2 sync transport contract:
// connect(room), broadcast(update), onUpdate(cb), onStatus(cb). The wire
// envelope is store.Update, JSON-encoded the way the teacher's internal/rpc
// package frames every Request/Response (encoding/json over a concrete Go
// struct, never a bespoke binary format).
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/tablecore/engine/internal/store"
)

// Status mirrors spec.md 6.2's "disconnected"|"connecting"|"connected"
// status enum.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// UpdateHandler receives a merged-in update broadcast by a peer.
type UpdateHandler func(update store.Update)

// StatusHandler receives connection status transitions.
type StatusHandler func(status Status)

// Transport is the Go rendering of spec.md 6.2: the core merges whatever
// update arrives through OnUpdate into its local CRDT store, agnostic to
// how the transport actually moved the bytes.
type Transport interface {
	// Connect joins room, marking the transport connecting then connected.
	Connect(room string) error

	// Broadcast sends update to every other member of the connected room.
	Broadcast(update store.Update) error

	// OnUpdate registers cb to fire for every update received from a peer.
	OnUpdate(cb UpdateHandler)

	// OnStatus registers cb to fire on every status transition.
	OnStatus(cb StatusHandler)

	// Disconnect leaves the room and marks the transport disconnected.
	Disconnect() error
}

// encode/decode round-trip store.Update through JSON, the same envelope a
// socket-based transport would put on the wire — exercised here so an
// in-process Transport and a future network one share one wire format.
func encode(u store.Update) ([]byte, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("transport: encode update: %w", err)
	}
	return b, nil
}

func decode(b []byte) (store.Update, error) {
	var u store.Update
	if err := json.Unmarshal(b, &u); err != nil {
		return store.Update{}, fmt.Errorf("transport: decode update: %w", err)
	}
	return u, nil
}
