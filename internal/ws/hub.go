// Package ws streams bus events (state changes, entity and config entry
// lifecycle) to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/yeelightd/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be less than pongWait
	maxMessageSize = 512
	sendBufferSize = 64
	broadcastSize  = 256
)

// Filter selects the events a client receives. Empty fields match everything.
type Filter struct {
	Types     map[events.EventType]bool
	EntityIDs map[string]bool
}

// ParseFilter builds a filter from comma separated event types and entity IDs,
// as passed in the ?types= and ?entity_id= query parameters.
func ParseFilter(types, entityIDs string) Filter {
	var f Filter
	for _, t := range splitList(types) {
		if f.Types == nil {
			f.Types = make(map[events.EventType]bool)
		}
		f.Types[events.EventType(t)] = true
	}
	for _, id := range splitList(entityIDs) {
		if f.EntityIDs == nil {
			f.EntityIDs = make(map[string]bool)
		}
		f.EntityIDs[id] = true
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Match reports whether m passes the filter. Events without an entity ID
// (config entry events) pass an entity filter only if no types are excluded.
func (f Filter) Match(m *envelope) bool {
	if len(f.Types) > 0 && !f.Types[m.eventType] {
		return false
	}
	if len(f.EntityIDs) > 0 && m.entityID != "" && !f.EntityIDs[m.entityID] {
		return false
	}
	return true
}

// envelope is an encoded event plus the fields clients filter on
type envelope struct {
	eventType events.EventType
	entityID  string
	data      []byte
}

func newEnvelope(e events.Event) (*envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var ref struct {
		EntityID string `json:"entity_id"`
	}
	_ = e.Decode(&ref)
	return &envelope{eventType: e.Type, entityID: ref.EntityID, data: data}, nil
}

// Client is one WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	filter Filter
	send   chan []byte
}

// Hub fans bus events out to the connected clients
type Hub struct {
	logger     *slog.Logger
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan *envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	unsub      func()
}

// NewHub creates a hub subscribed to bus
func NewHub(logger *slog.Logger, bus *events.Bus) *Hub {
	h := &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *envelope, broadcastSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.unsub = bus.Subscribe(h.enqueue)
	return h
}

func (h *Hub) enqueue(e events.Event) {
	m, err := newEnvelope(e)
	if err != nil {
		h.logger.Error("ws: failed to encode event", "type", e.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- m:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping event", "type", e.Type)
	}
}

// Run dispatches events until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.unsub()
	h.logger.Debug("ws: hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Debug("ws: hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", "clients", n)

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.broadcast:
			var slow []*Client
			h.mu.RLock()
			for c := range h.clients {
				if !c.filter.Match(m) {
					continue
				}
				select {
				case c.send <- m.data:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn("ws: client too slow, disconnecting")
				h.drop(c)
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws: client disconnected", "clients", n)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// NewClient attaches conn to the hub with the given filter
func (h *Hub) NewClient(conn *websocket.Conn, filter Filter) *Client {
	return &Client{hub: h, conn: conn, filter: filter, send: make(chan []byte, sendBufferSize)}
}

// Register adds a client. A client registered after the hub stopped has its
// send queue closed, which ends its WritePump.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

// Unregister removes a client. It returns immediately once the hub stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// WritePump writes queued events and keepalive pings to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump handles control frames. Client payloads are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("ws: read error", "error", err)
			}
			return
		}
	}
}
