package websocket

import (
	"encoding/json"
	"sync"

	"rtchat/internal/models"
	"rtchat/pkg/logger"
)

// Registry tracks which connections are live in each room and fans
// events out to them. All methods are safe for concurrent use; no lock
// is held while delivering, so a slow recipient cannot serialize
// unrelated connections.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a connection to a room's live set. Idempotent.
func (r *Registry) Register(roomID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		r.rooms[roomID] = set
	}
	set[client] = struct{}{}
}

// Unregister removes a connection from a room's live set. No-op if the
// connection is not registered. Empty rooms are pruned.
func (r *Registry) Unregister(roomID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(r.rooms, roomID)
	}
}

// Broadcast serializes event once and delivers it to every connection
// currently in the room except exclude. Delivery is best-effort and
// fire-and-forget per recipient: a full or closed connection is skipped
// without affecting the others or the caller.
func (r *Registry) Broadcast(roomID string, event models.ServerEvent, exclude *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal %s event for room %s: %v", event.Type, roomID, err)
		return
	}

	r.mu.RLock()
	recipients := make([]*Client, 0, len(r.rooms[roomID]))
	for client := range r.rooms[roomID] {
		if client != exclude {
			recipients = append(recipients, client)
		}
	}
	r.mu.RUnlock()

	for _, client := range recipients {
		client.trySend(data)
	}
}

// RoomSize reports how many connections are live in a room.
func (r *Registry) RoomSize(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
