package transport

import (
	"testing"

	"github.com/tablecore/engine/internal/store"
)

func TestConnectTransitionsToConnected(t *testing.T) {
	hub := NewHub()
	tr := NewLocalTransport(hub)

	var statuses []Status
	tr.OnStatus(func(s Status) { statuses = append(statuses, s) })

	if err := tr.Connect("room-1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(statuses) != 2 || statuses[0] != StatusConnecting || statuses[1] != StatusConnected {
		t.Errorf("statuses = %v, want [connecting connected]", statuses)
	}
}

func TestBroadcastDeliversToOtherRoomMembers(t *testing.T) {
	hub := NewHub()
	a := NewLocalTransport(hub)
	b := NewLocalTransport(hub)
	a.Connect("room-1")
	b.Connect("room-1")

	var received store.Update
	got := false
	b.OnUpdate(func(u store.Update) { received = u; got = true })

	u := store.Update{Actor: "actor-a", Records: []store.UpdateRecord{{ID: "obj-1"}}}
	if err := a.Broadcast(u); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if !got {
		t.Fatal("expected b to receive a's broadcast")
	}
	if received.Actor != "actor-a" || len(received.Records) != 1 {
		t.Errorf("received = %+v, want actor-a with 1 record", received)
	}
}

func TestBroadcastDoesNotDeliverToSender(t *testing.T) {
	hub := NewHub()
	a := NewLocalTransport(hub)
	a.Connect("room-1")

	got := false
	a.OnUpdate(func(store.Update) { got = true })
	a.Broadcast(store.Update{Actor: "actor-a"})
	if got {
		t.Fatal("sender should not receive its own broadcast")
	}
}

func TestBroadcastDoesNotCrossRooms(t *testing.T) {
	hub := NewHub()
	a := NewLocalTransport(hub)
	b := NewLocalTransport(hub)
	a.Connect("room-1")
	b.Connect("room-2")

	got := false
	b.OnUpdate(func(store.Update) { got = true })
	a.Broadcast(store.Update{Actor: "actor-a"})
	if got {
		t.Fatal("room-2 member should not receive room-1 broadcasts")
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	hub := NewHub()
	a := NewLocalTransport(hub)
	b := NewLocalTransport(hub)
	a.Connect("room-1")
	b.Connect("room-1")
	b.Disconnect()

	got := false
	b.OnUpdate(func(store.Update) { got = true })
	a.Broadcast(store.Update{Actor: "actor-a"})
	if got {
		t.Fatal("disconnected peer should not receive broadcasts")
	}
}
