package models

import "time"

type EventType string

// Client-to-server event tags.
const (
	EventAuth        EventType = "auth"
	EventJoinRoom    EventType = "join_room"
	EventChatMessage EventType = "chat_message"
	EventLeaveRoom   EventType = "leave_room"
)

// Server-to-client event tags.
const (
	EventAuthSuccess EventType = "auth_success"
	EventJoinedRoom  EventType = "joined_room"
	EventUserJoined  EventType = "user_joined"
	EventNewMessage  EventType = "new_message"
	EventUserLeft    EventType = "user_left"
	EventError       EventType = "error"
)

// ClientEvent is one inbound frame. Which fields are meaningful depends on
// Type; unknown tags are rejected at dispatch.
type ClientEvent struct {
	Type    EventType `json:"type"`
	Token   string    `json:"token,omitempty"`
	RoomID  string    `json:"roomId,omitempty"`
	Content string    `json:"content,omitempty"`
}

// ServerEvent is one outbound frame, marshaled once per broadcast.
type ServerEvent struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	RoomID    string      `json:"roomId,omitempty"`
	RoomName  string      `json:"roomName,omitempty"`
	Username  string      `json:"username,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func NewAuthSuccess(identity *Identity) ServerEvent {
	return ServerEvent{Type: EventAuthSuccess, Data: identity}
}

func NewJoinedRoom(roomID, roomName string) ServerEvent {
	return ServerEvent{Type: EventJoinedRoom, RoomID: roomID, RoomName: roomName}
}

func NewUserJoined(username string, ts time.Time) ServerEvent {
	return ServerEvent{Type: EventUserJoined, Username: username, Timestamp: ts.Format(time.RFC3339)}
}

func NewUserLeft(username string, ts time.Time) ServerEvent {
	return ServerEvent{Type: EventUserLeft, Username: username, Timestamp: ts.Format(time.RFC3339)}
}

func NewNewMessage(msg *Message) ServerEvent {
	return ServerEvent{Type: EventNewMessage, Data: msg}
}

func NewErrorEvent(message string) ServerEvent {
	return ServerEvent{Type: EventError, Message: message}
}
