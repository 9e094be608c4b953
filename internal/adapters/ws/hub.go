// Package ws implements the live update channel over WebSocket.
//
// Delivery is best-effort: no acknowledgement, no retry, no ordering
// guarantee across concurrent publishes. A subscriber that cannot keep up is
// disconnected rather than backpressuring the publisher.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/solecism/podium/internal/domain/types"
	"github.com/solecism/podium/pkg/logger"
	"github.com/solecism/podium/pkg/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often ping frames go out. Must be less than
	// pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; origin policy belongs to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients on every publish.
type Message struct {
	Event string      `json:"event"`
	Data  types.Entry `json:"data"`
}

// Hub manages WebSocket subscribers and fans published events out to all of
// them. A subscriber's join or leave affects only future publishes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	logger logger.Logger
}

// client represents one connected subscriber.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Get().Named("ws"),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish fans one event out to every currently connected subscriber. The
// fan-out itself is synchronous; per-client delivery happens on buffered
// channels and never blocks the caller.
func (h *Hub) Publish(ctx context.Context, event string, entry types.Entry) {
	data, err := json.Marshal(Message{Event: event, Data: entry})
	if err != nil {
		h.logger.Error(ctx, "marshal broadcast failed", logger.Error(err))
		return
	}

	// Sends happen under the read lock so no channel can be closed
	// mid-send; unregister takes the write lock to close.
	h.mu.RLock()
	var dropped []*client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	// Subscribers with a full buffer are dropped rather than waited on.
	for _, c := range dropped {
		metrics.RecordBroadcastDrop()
		h.unregister(c)
	}
	metrics.RecordBroadcast()
}

// ServeHTTP upgrades the connection and serves the subscriber until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	h.logger.Info(r.Context(), "subscriber connected", logger.String("client", c.id))
	defer h.logger.Info(r.Context(), "subscriber disconnected", logger.String("client", c.id))

	go c.writePump()
	c.readPump() // blocks until the connection closes
}

// Count returns the number of currently connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	metrics.UpdateWSClients(len(h.clients))
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.UpdateWSClients(len(h.clients))
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.UpdateWSClients(0)
}

// writePump drains the client's send channel onto the connection and sends
// periodic pings. Runs in its own goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel closed: hub shutdown or client removed.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes control frames (pong, close) and detects disconnects.
// Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
