package test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task-hub/auth"
	"task-hub/domain"
	"task-hub/domain/event"
	"task-hub/infrastructure/httpapi"
	"task-hub/infrastructure/ws"
	"task-hub/realtime"
	"task-hub/repositories"
	"task-hub/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config tunes the integration run from the environment, like the
// server's own config but scoped to tests.
type Config struct {
	// INTEGRATION_DEBUG dumps every received frame via t.Log
	Debug    bool          `envconfig:"INTEGRATION_DEBUG" default:"false"`
	ReadWait time.Duration `envconfig:"INTEGRATION_READ_WAIT" default:"2s"`
}

func loadConfig(t *testing.T) Config {
	t.Helper()
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))
	return cfg
}

const testSecret = "integration_test_secret_key"

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromString("ERROR")

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	registry := realtime.NewRegistry(log)
	broadcaster := realtime.NewBroadcaster(log, registry)
	typing := realtime.NewTypingTracker(log, broadcaster)
	chatService := services.NewChatService(log, repositories.NewMessageRepository(db, log), broadcaster, 1000, 50)
	notificationService := services.NewNotificationService(log, repositories.NewNotificationRepository(db, log), broadcaster, 50)
	gate := auth.NewGate(testSecret)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(log, gate, registry, broadcaster, typing, chatService, notificationService, 64))
	httpapi.NewNotificationHandler(log, gate, notificationService).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func mintToken(t *testing.T, identity domain.Identity) string {
	t.Helper()
	token, err := auth.NewGate(testSecret).GenerateToken(identity, time.Hour)
	require.NoError(t, err)
	return token
}

func dial(t *testing.T, server *httptest.Server, identity domain.Identity) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + mintToken(t, identity)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, e event.Envelope) {
	t.Helper()
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

type receivedFrame struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data"`
}

func readFrame(t *testing.T, cfg Config, conn *websocket.Conn, want string) receivedFrame {
	t.Helper()
	deadline := time.Now().Add(cfg.ReadWait)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(cfg.ReadWait)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		if cfg.Debug {
			t.Logf("frame: %s", raw)
		}
		var frame receivedFrame
		require.NoError(t, json.Unmarshal(raw, &frame))
		if frame.Event == want {
			return frame
		}
	}
	t.Fatalf("no %q frame received within %s", want, cfg.ReadWait)
	return receivedFrame{}
}

func TestHandshake_Without_Token_Is_Refused(t *testing.T) {
	req := require.New(t)
	server := startServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestChat_RoundTrip_Over_Live_Connections(t *testing.T) {
	req := require.New(t)
	cfg := loadConfig(t)
	server := startServer(t)

	alice := dial(t, server, domain.Identity{UserID: "u1", Username: "alice", Role: "user"})
	bob := dial(t, server, domain.Identity{UserID: "u2", Username: "bob", Role: "user"})

	// Alice observes bob joining
	joined := readFrame(t, cfg, alice, event.UserJoined)
	var presence event.Presence
	req.NoError(json.Unmarshal(joined.Data, &presence))
	req.Equal("bob", presence.Username)

	// Bob posts into the default room
	sendFrame(t, bob, event.Envelope{
		Event: event.ChatMessage,
		Data:  map[string]string{"content": "hello from bob"},
	})

	// Both members receive the server's authoritative copy, bob included
	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, cfg, conn, event.ChatMessage)
		var message event.Message
		req.NoError(json.Unmarshal(frame.Data, &message))
		req.Equal("hello from bob", message.Content)
		req.Equal("bob", message.Username)
		req.Equal(domain.DefaultRoom, message.Room)
	}

	// History comes back ascending, the posted message last
	sendFrame(t, bob, event.Envelope{Event: event.ChatHistory, Data: map[string]any{"limit": 10}})
	history := readFrame(t, cfg, bob, event.ChatHistory)
	var messages []event.Message
	req.NoError(json.Unmarshal(history.Data, &messages))
	req.Len(messages, 1)
	req.Equal("hello from bob", messages[len(messages)-1].Content)
}

func TestChat_Validation_Error_Reaches_Only_The_Sender(t *testing.T) {
	req := require.New(t)
	cfg := loadConfig(t)
	server := startServer(t)

	bob := dial(t, server, domain.Identity{UserID: "u2", Username: "bob", Role: "user"})

	sendFrame(t, bob, event.Envelope{
		Event: event.ChatMessage,
		Data:  map[string]string{"content": "   "},
	})

	failure := readFrame(t, cfg, bob, event.Error)
	var data event.Failure
	req.NoError(json.Unmarshal(failure.Data, &data))
	req.Contains(data.Message, "empty")
}

func TestRoom_Join_Ack_And_Scoped_Broadcast(t *testing.T) {
	req := require.New(t)
	cfg := loadConfig(t)
	server := startServer(t)

	alice := dial(t, server, domain.Identity{UserID: "u1", Username: "alice", Role: "user"})
	bob := dial(t, server, domain.Identity{UserID: "u2", Username: "bob", Role: "user"})

	sendFrame(t, alice, event.Envelope{Event: event.RoomJoin, Data: map[string]string{"room": "standup"}})
	ack := readFrame(t, cfg, alice, event.RoomJoined)
	var roomAck event.RoomAck
	req.NoError(json.Unmarshal(ack.Data, &roomAck))
	req.Equal("standup", roomAck.Room)

	// Alice posts in standup; bob, who never joined, must not see it.
	sendFrame(t, alice, event.Envelope{
		Event: event.ChatMessage,
		Data:  map[string]string{"content": "standup time", "room": "standup"},
	})
	readFrame(t, cfg, alice, event.ChatMessage)

	// Bob then triggers his own error event: it must be the next thing
	// he receives, proving the standup message never reached him.
	sendFrame(t, bob, event.Envelope{Event: event.ChatMessage, Data: map[string]string{"content": " "}})
	req.NoError(bob.SetReadDeadline(time.Now().Add(cfg.ReadWait)))
	_, raw, err := bob.ReadMessage()
	req.NoError(err)
	var frame receivedFrame
	req.NoError(json.Unmarshal(raw, &frame))
	req.Equal(event.Error, frame.Event)
}

func TestNotification_Push_And_Pull_Paths(t *testing.T) {
	req := require.New(t)
	cfg := loadConfig(t)
	server := startServer(t)

	bobIdentity := domain.Identity{UserID: "u2", Username: "bob", Role: "user"}
	bob := dial(t, server, bobIdentity)
	bobToken := mintToken(t, bobIdentity)
	aliceToken := mintToken(t, domain.Identity{UserID: "u1", Username: "alice", Role: "user"})

	// The CRUD layer notifies bob about a task
	body := []byte(`{"userId":"u2","type":"task_created","message":"Task \"X\" created"}`)
	request, err := http.NewRequest("POST", server.URL+"/notifications", bytes.NewReader(body))
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+aliceToken)
	response, err := http.DefaultClient.Do(request)
	req.NoError(err)
	req.Equal(http.StatusCreated, response.StatusCode)
	_ = response.Body.Close()

	// Live push reaches bob's connection
	pushed := readFrame(t, cfg, bob, event.NotificationNew)
	var notification event.Notification
	req.NoError(json.Unmarshal(pushed.Data, &notification))
	req.Equal(domain.NotifTaskCreated, notification.Type)
	req.False(notification.Read)

	// Pull path still lists it unread, then read-all flips it
	request, err = http.NewRequest("PATCH", server.URL+"/notifications/read-all", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+bobToken)
	response, err = http.DefaultClient.Do(request)
	req.NoError(err)
	req.Equal(http.StatusOK, response.StatusCode)
	_ = response.Body.Close()

	request, err = http.NewRequest("GET", server.URL+"/notifications", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+bobToken)
	response, err = http.DefaultClient.Do(request)
	req.NoError(err)
	defer response.Body.Close()
	var listed []event.Notification
	req.NoError(json.NewDecoder(response.Body).Decode(&listed))
	req.Len(listed, 1)
	req.True(listed[0].Read)
}

func TestTyping_Signals_Reach_Other_Members_Only(t *testing.T) {
	req := require.New(t)
	cfg := loadConfig(t)
	server := startServer(t)

	alice := dial(t, server, domain.Identity{UserID: "u1", Username: "alice", Role: "user"})
	bob := dial(t, server, domain.Identity{UserID: "u2", Username: "bob", Role: "user"})

	sendFrame(t, alice, event.Envelope{Event: event.TypingStart, Data: map[string]string{}})

	frame := readFrame(t, cfg, bob, event.TypingStart)
	var typing event.Typing
	req.NoError(json.Unmarshal(frame.Data, &typing))
	req.Equal("alice", typing.Username)
	req.Equal(domain.DefaultRoom, typing.Room)

	sendFrame(t, alice, event.Envelope{Event: event.TypingStop, Data: map[string]string{}})
	readFrame(t, cfg, bob, event.TypingStop)
}
