package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hub := NewHub(zaptest.NewLogger(t))
	up := NewUpgrader(DefaultConfig(), hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.Serve(w, r, r.URL.Query().Get("user"))
	}))
	return &harness{hub: hub, server: srv, cancel: cancel, done: done}
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	h.server.Close()
}

func (h *harness) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := read(t, conn)
	require.Equal(t, EventConnected, msg.Type)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubDeliversToUserRoom(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)

	alice1 := h.dial(t, "alice")
	alice2 := h.dial(t, "alice")
	bob := h.dial(t, "bob")
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	h.hub.Publish("alice", EventLevelUp, map[string]int{"level": 2})

	for _, conn := range []*websocket.Conn{alice1, alice2} {
		msg := read(t, conn)
		assert.Equal(t, EventLevelUp, msg.Type)
		assert.JSONEq(t, `{"level":2}`, string(msg.Data))
	}

	// bob only sees his own events
	h.hub.Publish("bob", EventAchievementUnlocked, map[string]string{"name": "First Step"})
	msg := read(t, bob)
	assert.Equal(t, EventAchievementUnlocked, msg.Type)

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, EventPong, read(t, bob).Type)

	require.NoError(t, bob.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	assert.Equal(t, EventError, read(t, bob).Type)

	h.stop(t)
	for _, conn := range []*websocket.Conn{alice1, alice2, bob} {
		conn.Close()
	}
}

func TestHubRemovesDisconnectedClients(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)

	conn := h.dial(t, "carol")
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// Publishing to a user without connections is a no-op
	h.hub.Publish("carol", EventHabitCompleted, nil)
	h.stop(t)
}

func TestShutdownClosesConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	h := newHarness(t)
	conn := h.dial(t, "dave")

	h.stop(t)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	conn.Close()

	// A stopped hub drops events
	h.hub.Publish("dave", EventLevelUp, nil)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.habitnation.dev", "*.example.com"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://app.habitnation.dev")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://eu.example.com")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.dev")
	assert.False(t, check(r))
}
