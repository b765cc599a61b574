// Package websocket pushes per-user events (completions, level-ups,
// unlocked achievements) to connected clients
package websocket

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// delivery is a frame for every client of a user, or for one client
type delivery struct {
	userID string
	client *Client
	data   []byte
}

// Hub keeps one room per user. All room state is owned by the Run loop.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	rooms   map[string]map[*Client]struct{}
	clients atomic.Int64

	done    chan struct{}
	started atomic.Bool
	pumps   sync.WaitGroup
	logger  *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		deliver:    make(chan delivery, 256),
		rooms:      make(map[string]map[*Client]struct{}),
		done:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
}

// Run processes hub events until ctx ends, then disconnects every client
// and waits for their pumps to exit
func (h *Hub) Run(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return nil
	}
	defer h.pumps.Wait()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.register:
			room := h.rooms[c.UserID]
			if room == nil {
				room = make(map[*Client]struct{})
				h.rooms[c.UserID] = room
			}
			room[c] = struct{}{}
			h.clients.Add(1)
			h.logger.Debug("client connected", zap.String("client", c.ID), zap.String("user_id", c.UserID))

		case c := <-h.unregister:
			h.remove(c)

		case d := <-h.deliver:
			if d.client != nil {
				if _, ok := h.rooms[d.client.UserID][d.client]; ok {
					h.offer(d.client, d.data)
				}
				continue
			}
			for c := range h.rooms[d.userID] {
				h.offer(c, d.data)
			}
		}
	}
}

// offer queues data for c, dropping slow clients
func (h *Hub) offer(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("client too slow, disconnecting", zap.String("client", c.ID))
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	room, ok := h.rooms[c.UserID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.UserID)
	}
	close(c.send)
	h.clients.Add(-1)
	h.logger.Debug("client disconnected", zap.String("client", c.ID))
}

func (h *Hub) closeAll() {
	close(h.done)
	for _, room := range h.rooms {
		for c := range room {
			h.remove(c)
		}
	}
	h.logger.Info("hub stopped")
}

// Publish sends an event to every connection of userID. It never blocks;
// events are dropped when the hub is saturated or stopped.
func (h *Hub) Publish(userID, eventType string, data interface{}) {
	frame, err := encode(eventType, data)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.enqueue(delivery{userID: userID, data: frame})
}

func (h *Hub) reply(c *Client, eventType string, data interface{}) {
	frame, err := encode(eventType, data)
	if err != nil {
		return
	}
	h.enqueue(delivery{client: c, data: frame})
}

func (h *Hub) enqueue(d delivery) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.deliver <- d:
	case <-h.done:
	default:
		h.logger.Warn("event dropped, hub saturated")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.clients.Load())
}
