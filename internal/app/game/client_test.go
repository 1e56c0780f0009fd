package game

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// startWSServer runs a minimal WebSocket endpoint wiring every connection to
// a Client against the given manager, mirroring the production handler.
func startWSServer(t *testing.T, manager *Manager) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(manager, conn, "conn-ws-test")
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	res.Body.Close()
	return conn
}

// readWSEvent reads frames until one of the wanted type arrives.
func readWSEvent(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&ev), "reading %q event", eventType)
		if ev.Type == eventType {
			return ev.Payload
		}
	}
}

func joinRoom(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "join"}))

	var start struct {
		Room string `json:"room"`
	}
	require.NoError(t, json.Unmarshal(readWSEvent(t, conn, "start"), &start))
	require.NotEmpty(t, start.Room)
	return start.Room
}

// An abrupt disconnect while a reply is still being generated or delivered
// must tear down only that room; the server keeps serving other games.
func TestAbruptDisconnectDuringReply(t *testing.T) {
	settings := testSettings()
	settings.ReplyDelayMin = time.Millisecond
	settings.ReplyDelayJitter = time.Millisecond

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("still here", nil)

	manager := NewManager(gen, settings)
	t.Cleanup(manager.Shutdown)

	srv := startWSServer(t, manager)

	for i := 0; i < 25; i++ {
		conn := dialWS(t, srv)
		room := joinRoom(t, conn)

		require.NoError(t, conn.WriteJSON(map[string]any{
			"type":    "msg",
			"payload": map[string]any{"room": room, "text": "hello"},
		}))

		// Kill the connection while the reply is in flight.
		conn.Close()
	}

	// A fresh game must still run end to end.
	conn := dialWS(t, srv)
	defer conn.Close()

	room := joinRoom(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "msg",
		"payload": map[string]any{"room": room, "text": "anyone there?"},
	}))

	var reply struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(readWSEvent(t, conn, "msg"), &reply))
	require.Equal(t, "still here", reply.Text)
}

// Malformed room ids are rejected before any room lookup.
func TestInboundRoomIDValidation(t *testing.T) {
	t.Parallel()

	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("reply", nil).Maybe()

	manager := NewManager(gen, testSettings())
	t.Cleanup(manager.Shutdown)

	c := NewClient(manager, nil, "conn-validate")

	c.processInboundEvent([]byte(`{"type":"join"}`))
	require.NotNil(t, c.room)
	roomID := c.room.ID

	c.processInboundEvent([]byte(`{"type":"msg","payload":{"room":"../../x","text":"hi"}}`))
	c.processInboundEvent([]byte(`{"type":"guess","payload":{"room":"##bad!","choice":"IT"}}`))

	time.Sleep(50 * time.Millisecond)
	gen.AssertNumberOfCalls(t, "Generate", 0)

	select {
	case <-c.room.Done():
		t.Fatal("malformed room id resolved the room")
	default:
	}

	// The real room id still routes.
	c.processInboundEvent([]byte(`{"type":"guess","payload":{"room":"` + roomID + `","choice":"IT"}}`))

	select {
	case <-c.room.Done():
	case <-time.After(time.Second):
		t.Fatal("guess with valid room id did not resolve the room")
	}
}
