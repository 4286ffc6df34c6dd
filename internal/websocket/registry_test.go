package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"rtchat/internal/models"
)

func newTestClient() *Client {
	return &Client{
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// receivedEvents drains and decodes everything queued for a client.
func receivedEvents(t *testing.T, c *Client) []models.ServerEvent {
	t.Helper()

	var events []models.ServerEvent
	for {
		select {
		case data := <-c.send:
			var event models.ServerEvent
			if err := json.Unmarshal(data, &event); err != nil {
				t.Fatalf("undecodable frame %q: %v", data, err)
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestRegistry_BroadcastExcludes(t *testing.T) {
	registry := NewRegistry()
	a, b, c := newTestClient(), newTestClient(), newTestClient()
	registry.Register("room1", a)
	registry.Register("room1", b)
	registry.Register("room1", c)

	registry.Broadcast("room1", models.NewErrorEvent("ping"), a)

	if got := len(receivedEvents(t, a)); got != 0 {
		t.Errorf("excluded client received %d events, want 0", got)
	}
	for name, client := range map[string]*Client{"b": b, "c": c} {
		if got := len(receivedEvents(t, client)); got != 1 {
			t.Errorf("client %s received %d events, want 1", name, got)
		}
	}

	// Without exclusion everyone gets it
	registry.Broadcast("room1", models.NewErrorEvent("ping"), nil)
	for name, client := range map[string]*Client{"a": a, "b": b, "c": c} {
		if got := len(receivedEvents(t, client)); got != 1 {
			t.Errorf("client %s received %d events, want 1", name, got)
		}
	}
}

func TestRegistry_BroadcastScopedToRoom(t *testing.T) {
	registry := NewRegistry()
	inRoom, elsewhere := newTestClient(), newTestClient()
	registry.Register("room1", inRoom)
	registry.Register("room2", elsewhere)

	registry.Broadcast("room1", models.NewErrorEvent("ping"), nil)

	if got := len(receivedEvents(t, inRoom)); got != 1 {
		t.Errorf("room1 client received %d events, want 1", got)
	}
	if got := len(receivedEvents(t, elsewhere)); got != 0 {
		t.Errorf("room2 client received %d events, want 0", got)
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient()

	registry.Register("room1", client)
	registry.Register("room1", client)

	if size := registry.RoomSize("room1"); size != 1 {
		t.Errorf("RoomSize = %d, want 1", size)
	}

	registry.Broadcast("room1", models.NewErrorEvent("ping"), nil)
	if got := len(receivedEvents(t, client)); got != 1 {
		t.Errorf("client received %d events after double register, want 1", got)
	}
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	registry := NewRegistry()
	registry.Unregister("room1", newTestClient())

	if size := registry.RoomSize("room1"); size != 0 {
		t.Errorf("RoomSize = %d, want 0", size)
	}
}

func TestRegistry_UnregisterPrunesEmptyRoom(t *testing.T) {
	registry := NewRegistry()
	client := newTestClient()
	registry.Register("room1", client)
	registry.Unregister("room1", client)

	registry.mu.RLock()
	_, exists := registry.rooms["room1"]
	registry.mu.RUnlock()
	if exists {
		t.Error("empty room entry still present after last unregister")
	}
}

func TestRegistry_SlowRecipientDoesNotBlockBroadcast(t *testing.T) {
	registry := NewRegistry()
	stalled := &Client{send: make(chan []byte), done: make(chan struct{})} // unbuffered, never drained
	healthy := newTestClient()
	registry.Register("room1", stalled)
	registry.Register("room1", healthy)

	// Must return immediately even though stalled can't accept the frame
	registry.Broadcast("room1", models.NewErrorEvent("ping"), nil)

	if got := len(receivedEvents(t, healthy)); got != 1 {
		t.Errorf("healthy client received %d events, want 1", got)
	}
}

func TestRegistry_ConcurrentMembershipChanges(t *testing.T) {
	registry := NewRegistry()

	const workers = 16
	var wg sync.WaitGroup
	clients := make([]*Client, workers)
	for i := range clients {
		clients[i] = newTestClient()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			registry.Register("room1", clients[n])
			registry.Broadcast("room1", models.NewErrorEvent("ping"), nil)
			if n%2 == 0 {
				registry.Unregister("room1", clients[n])
			}
		}(i)
	}
	wg.Wait()

	if size := registry.RoomSize("room1"); size != workers/2 {
		t.Errorf("RoomSize = %d, want %d", size, workers/2)
	}
}
