package handlers

import (
	"context"
	"net/http"

	"rtchat/internal/services"
	"rtchat/internal/session"
	ws "rtchat/internal/websocket"
	"rtchat/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	resolver *session.Resolver
	rooms    *services.RoomService
	messages *services.MessageService
	registry *ws.Registry
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(resolver *session.Resolver, rooms *services.RoomService, messages *services.MessageService, registry *ws.Registry) *WebSocketHandlers {
	return &WebSocketHandlers{
		resolver: resolver,
		rooms:    rooms,
		messages: messages,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and starts its pumps. The
// connection begins unauthenticated; the client authenticates with an
// auth event, by token or by the session cookie captured here.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	cookieToken := ""
	if cookie, err := r.Cookie(CookieName); err == nil {
		cookieToken = cookie.Value
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn)
	sess := ws.NewSession(client, h.registry, h.resolver, h.rooms, h.messages, cookieToken)

	go client.WritePump()
	go client.ReadPump(context.Background(), sess)
}
