package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gitforged/server/internal/logger"
	"github.com/gitforged/server/internal/quest"
)

const (
	// eventQueueSize bounds the per-client send queue; slow clients are
	// dropped rather than backing up the engine.
	eventQueueSize = 64

	writeWait = 10 * time.Second
)

// wireEvent is a quest event as sent to feed subscribers, stamped with a
// delivery ID.
type wireEvent struct {
	ID string `json:"id"`
	quest.Event
}

// Hub fans quest events out to connected websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*feedClient]bool

	events    chan wireEvent
	closeOnce sync.Once
	done      chan struct{}
}

type feedClient struct {
	conn *websocket.Conn
	send chan wireEvent
}

// NewHub creates an event hub. Run must be called to start delivery.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*feedClient]bool),
		events:  make(chan wireEvent, eventQueueSize),
		done:    make(chan struct{}),
	}
}

// Broadcast queues a quest event for delivery. Events are dropped when the
// hub's queue is full; the feed is best-effort observability, not a ledger.
func (h *Hub) Broadcast(ev quest.Event) {
	select {
	case h.events <- wireEvent{ID: uuid.NewString(), Event: ev}:
	default:
		logger.Warning("Event feed queue full, dropping event", "quest", ev.Quest)
	}
}

// Run delivers queued events to every connected client until Close.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.events:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- ev:
				default:
					// Slow client; disconnect it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Close disconnects every client and stops delivery.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) register(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) unregister(c *feedClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// handleEvents upgrades the connection and streams quest events to it.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.CORS.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("Event feed rejected, origin not allowed",
					"origin", origin, "host", r.Host)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Event feed upgrade failed", "error", err)
		return
	}

	client := &feedClient{conn: conn, send: make(chan wireEvent, eventQueueSize)}
	s.hub.register(client)
	go client.writePump(s.hub)
	go client.readPump(s.hub)
}

// writePump streams events to the client until its queue is closed.
func (c *feedClient) writePump(h *Hub) {
	defer c.conn.Close()

	for ev := range c.send {
		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Error("Failed to encode event", "error", err)
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.unregister(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// readPump discards client messages and notices disconnects.
func (c *feedClient) readPump(h *Hub) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
