package database

import (
	"context"
	"errors"
	"time"

	"rtchat/internal/models"
)

// ErrNotFound is returned when a queried record does not exist.
var ErrNotFound = errors.New("not found")

type UserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, name, description, createdBy string) (*models.Room, error)
	GetRoomByID(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	AddMember(ctx context.Context, roomID, userID string) error
}

// MessageLog is the authoritative append-only store of room messages.
type MessageLog interface {
	AppendMessage(ctx context.Context, roomID, userID, username, content string, ts time.Time) (*models.Message, error)
	QueryMessages(ctx context.Context, roomID string, limit int, before *time.Time) ([]*models.Message, error)
}

type Database interface {
	UserRepository
	RoomRepository
	MessageLog
	Ping(ctx context.Context) error
	Close() error
}
