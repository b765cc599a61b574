package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config holds WebSocket configuration
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	// AllowedOrigins limits browser origins; empty or "*" allows any
	AllowedOrigins []string
}

// DefaultConfig returns default WebSocket configuration
func DefaultConfig() Config {
	return Config{ReadBufferSize: 1024, WriteBufferSize: 1024}
}

// Upgrader upgrades authenticated HTTP requests and attaches them to the hub
type Upgrader struct {
	upgrader websocket.Upgrader
	hub      *Hub
}

// NewUpgrader creates a new Upgrader
func NewUpgrader(config Config, hub *Hub) *Upgrader {
	return &Upgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		hub: hub,
	}
}

// Serve upgrades r for userID. The caller has already authenticated the
// request; upgrade failures have been answered by gorilla.
func (u *Upgrader) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.hub.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		hub:    u.hub,
		send:   make(chan []byte, 32),
	}

	// Counted before registering so Run cannot finish waiting first
	u.hub.pumps.Add(2)
	select {
	case u.hub.register <- c:
	case <-u.hub.done:
		u.hub.pumps.Add(-2)
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
	u.hub.reply(c, EventConnected, map[string]string{"userId": userID})
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, a := range allowed {
			switch {
			case a == "*", a == origin:
				return true
			case strings.HasPrefix(a, "*.") && strings.HasSuffix(u.Host, a[1:]):
				return true
			}
		}
		return false
	}
}
