package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"rtchat/internal/models"
	"rtchat/internal/services"
	"rtchat/internal/session"
	"rtchat/pkg/logger"
)

type RoomHandlers struct {
	rooms    *services.RoomService
	messages *services.MessageService
	resolver *session.Resolver
}

func NewRoomHandlers(rooms *services.RoomService, messages *services.MessageService, resolver *session.Resolver) *RoomHandlers {
	return &RoomHandlers{
		rooms:    rooms,
		messages: messages,
		resolver: resolver,
	}
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := authenticate(w, r, h.resolver)
	if !ok {
		return
	}

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Room name is required")
		return
	}

	room, err := h.rooms.CreateRoom(r.Context(), &req, identity.UserID)
	if err != nil {
		logger.Error("Create room error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusCreated, response{Success: true, Message: "Room created successfully", Data: room})
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r, h.resolver); !ok {
		return
	}

	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		logger.Error("List rooms error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Data: rooms})
}

func (h *RoomHandlers) JoinRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := authenticate(w, r, h.resolver)
	if !ok {
		return
	}

	roomID := r.PathValue("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "Invalid room id")
		return
	}

	room, err := h.rooms.JoinRoom(r.Context(), roomID, identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		logger.Error("Join room error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Message: "Joined room successfully", Data: room})
}

// GetMessages serves recent history through the cache-aside read path
// and reports which store satisfied the request.
func (h *RoomHandlers) GetMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticate(w, r, h.resolver); !ok {
		return
	}

	roomID := r.PathValue("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "Invalid room id")
		return
	}

	limit := services.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid before timestamp")
			return
		}
		before = &parsed
	}

	msgs, source, err := h.messages.History(r.Context(), roomID, limit, before)
	if err != nil {
		logger.Error("Get messages error: %v", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}

	writeJSON(w, http.StatusOK, response{Success: true, Data: msgs, Source: source})
}
