package services

import (
	"context"
	"errors"
	"fmt"

	"rtchat/internal/database"
	"rtchat/internal/models"
)

// ErrRoomNotFound is returned when a room id does not exist.
var ErrRoomNotFound = errors.New("room not found")

type RoomService struct {
	db database.Database
}

func NewRoomService(db database.Database) *RoomService {
	return &RoomService{db: db}
}

func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, creatorID string) (*models.Room, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	return s.db.CreateRoom(ctx, req.Name, req.Description, creatorID)
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*models.Room, error) {
	return s.db.ListRooms(ctx)
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.db.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// JoinRoom adds a user to the room's member list. Idempotent.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	for _, member := range room.Members {
		if member == userID {
			return room, nil
		}
	}

	if err := s.db.AddMember(ctx, roomID, userID); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	room.Members = append(room.Members, userID)
	return room, nil
}
