package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rtchat/internal/models"
	"rtchat/internal/services"
	"rtchat/internal/session"
	"rtchat/pkg/logger"
)

type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateInRoom
)

// SessionResolver authenticates a raw token against the session store.
type SessionResolver interface {
	Resolve(ctx context.Context, rawToken string) (*models.Identity, error)
}

// RoomLookup validates that a room exists before a join.
type RoomLookup interface {
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
}

// MessageStore persists a chat message and updates the recent cache.
type MessageStore interface {
	Append(ctx context.Context, roomID string, identity *models.Identity, content string) (*models.Message, error)
}

// Session is the per-connection state machine:
// Unauthenticated -> Authenticated -> InRoom. Events are dispatched by
// the read pump, so handlers never run concurrently for one connection.
// A connection is in at most one room: joining while in a room performs
// the full leave of the old room first, so no registry entry goes stale.
type Session struct {
	client   *Client
	registry *Registry
	resolver SessionResolver
	rooms    RoomLookup
	messages MessageStore

	// cookieToken is the session cookie captured at upgrade time, used
	// when an auth event carries no token of its own.
	cookieToken string

	state    connState
	identity *models.Identity
	roomID   string
	roomName string
}

func NewSession(client *Client, registry *Registry, resolver SessionResolver, rooms RoomLookup, messages MessageStore, cookieToken string) *Session {
	return &Session{
		client:      client,
		registry:    registry,
		resolver:    resolver,
		rooms:       rooms,
		messages:    messages,
		cookieToken: cookieToken,
		state:       stateUnauthenticated,
	}
}

// HandleMessage processes one inbound frame to completion.
func (s *Session) HandleMessage(ctx context.Context, data []byte) {
	var event models.ClientEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.sendError("Invalid message")
		return
	}

	switch event.Type {
	case models.EventAuth:
		s.handleAuth(ctx, event.Token)
	case models.EventJoinRoom:
		s.handleJoin(ctx, event.RoomID)
	case models.EventChatMessage:
		s.handleChat(ctx, event.Content)
	case models.EventLeaveRoom:
		s.handleLeave()
	default:
		s.sendError("Unknown message type")
	}
}

func (s *Session) handleAuth(ctx context.Context, token string) {
	if s.state != stateUnauthenticated {
		// Identity is immutable for the connection's lifetime
		s.sendError("Already authenticated")
		return
	}

	if token == "" {
		token = s.cookieToken
	}
	identity, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, session.ErrInvalidSession) {
			logger.Error("Session resolution failed: %v", err)
		}
		s.sendError("Invalid session")
		return
	}

	s.identity = identity
	s.state = stateAuthenticated
	s.sendEvent(models.NewAuthSuccess(identity))
	logger.Info("Connection authenticated as %s", identity.Username)
}

func (s *Session) handleJoin(ctx context.Context, roomID string) {
	if s.state == stateUnauthenticated {
		s.sendError("Not authenticated")
		return
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			s.sendError("Room not found")
		} else {
			logger.Error("Room lookup for %s failed: %v", roomID, err)
			s.sendError("Server error")
		}
		return
	}

	if s.state == stateInRoom {
		if s.roomID == room.ID {
			s.sendEvent(models.NewJoinedRoom(room.ID, room.Name))
			return
		}
		s.leaveCurrentRoom()
	}

	s.registry.Register(room.ID, s.client)
	s.state = stateInRoom
	s.roomID = room.ID
	s.roomName = room.Name

	s.sendEvent(models.NewJoinedRoom(room.ID, room.Name))
	s.registry.Broadcast(room.ID, models.NewUserJoined(s.identity.Username, time.Now().UTC()), s.client)
	logger.Info("User %s joined room %s", s.identity.Username, room.Name)
}

func (s *Session) handleChat(ctx context.Context, content string) {
	if s.state != stateInRoom {
		s.sendError("Not in a room or not authenticated")
		return
	}

	msg, err := s.messages.Append(ctx, s.roomID, s.identity, content)
	if err != nil {
		logger.Error("Failed to persist message in room %s: %v", s.roomID, err)
		s.sendError("Server error")
		return
	}

	// The sender receives the canonical persisted record too
	s.registry.Broadcast(s.roomID, models.NewNewMessage(msg), nil)
}

func (s *Session) handleLeave() {
	if s.state != stateInRoom {
		s.sendError("Not in a room")
		return
	}

	s.leaveCurrentRoom()
	s.state = stateAuthenticated
}

// shutdown runs the close cleanup. It executes on the read pump
// goroutine after the last event, so it cannot race an in-flight
// leave or join.
func (s *Session) shutdown(_ context.Context) {
	if s.state == stateInRoom {
		s.leaveCurrentRoom()
		s.state = stateAuthenticated
	}
}

func (s *Session) leaveCurrentRoom() {
	s.registry.Unregister(s.roomID, s.client)
	s.registry.Broadcast(s.roomID, models.NewUserLeft(s.identity.Username, time.Now().UTC()), s.client)
	logger.Info("User %s left room %s", s.identity.Username, s.roomName)
	s.roomID = ""
	s.roomName = ""
}

func (s *Session) sendEvent(event models.ServerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal %s event: %v", event.Type, err)
		return
	}
	s.client.trySend(data)
}

func (s *Session) sendError(message string) {
	s.sendEvent(models.NewErrorEvent(message))
}
