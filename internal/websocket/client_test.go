package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rtchat/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"
)

// startChatServer runs a real upgrade endpoint backed by fixture fakes.
func startChatServer(t *testing.T, f *sessionFixture) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade error: %v", err)
			return
		}
		client := NewClient(conn)
		sess := NewSession(client, f.registry, f.resolver, f.rooms, f.messages, "")
		go client.WritePump()
		client.ReadPump(context.Background(), sess)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ServerEvent {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.ServerEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func TestClient_PumpsEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSessionFixture()
	srv := startChatServer(t, f)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "token": "tok1"}); err != nil {
		t.Fatalf("write auth: %v", err)
	}
	if event := readEvent(t, conn); event.Type != models.EventAuthSuccess {
		t.Fatalf("event = %+v, want auth_success", event)
	}

	if err := conn.WriteJSON(map[string]string{"type": "join_room", "roomId": "room1"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	if event := readEvent(t, conn); event.Type != models.EventJoinedRoom || event.RoomName != "General" {
		t.Fatalf("event = %+v, want joined_room General", event)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	// Close cleanup removes the connection from the room
	deadline := time.Now().Add(2 * time.Second)
	for f.registry.RoomSize("room1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection still registered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_DisconnectBroadcastsUserLeft(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSessionFixture()
	srv := startChatServer(t, f)
	defer srv.Close()

	alice, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer alice.Close()

	alice.WriteJSON(map[string]string{"type": "auth", "token": "tok1"})
	readEvent(t, alice)
	alice.WriteJSON(map[string]string{"type": "join_room", "roomId": "room1"})
	readEvent(t, alice)

	bob, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	bob.WriteJSON(map[string]string{"type": "auth", "token": "tok2"})
	readEvent(t, bob)
	bob.WriteJSON(map[string]string{"type": "join_room", "roomId": "room1"})
	readEvent(t, bob)

	// Alice sees bob arrive
	if event := readEvent(t, alice); event.Type != models.EventUserJoined || event.Username != "bob" {
		t.Fatalf("event = %+v, want user_joined{bob}", event)
	}

	// Abrupt disconnect, no leave_room event
	bob.Close()

	if event := readEvent(t, alice); event.Type != models.EventUserLeft || event.Username != "bob" {
		t.Fatalf("event = %+v, want user_left{bob}", event)
	}

	alice.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
