package hub

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler answers a text message from a client. A nil reply sends nothing.
type Handler func(msg []byte) (reply []byte)

// Greeter builds the first text message a new client receives.
type Greeter func() []byte

// Hub fans waves and JSON events out to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}

	log    *slog.Logger
	handle Handler
	greet  Greeter

	binary  atomic.Int64
	text    atomic.Int64
	dropped atomic.Int64
}

// New creates a hub. handle and greet may be nil.
func New(log *slog.Logger, handle Handler, greet Greeter) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
		handle:  handle,
		greet:   greet,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws client connected", "remote", c.conn.RemoteAddr().String(), "clients", n)
}

// unregister is idempotent; the send channel is closed exactly once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.log.Info("ws client disconnected", "remote", c.conn.RemoteAddr().String())
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	return clients
}

func (h *Hub) BroadcastBinary(b []byte) {
	h.binary.Add(1)
	h.broadcast(frame{kind: websocket.BinaryMessage, data: b})
}

func (h *Hub) BroadcastText(b []byte) {
	h.text.Add(1)
	h.broadcast(frame{kind: websocket.TextMessage, data: b})
}

// broadcast never blocks; a client whose buffer is full is dropped.
func (h *Hub) broadcast(f frame) {
	for _, c := range h.snapshot() {
		if !c.enqueue(f) {
			h.dropped.Add(1)
			h.log.Warn("ws client too slow, dropping", "remote", c.conn.RemoteAddr().String())
			h.unregister(c)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats are counters for the metrics endpoint.
type Stats struct {
	Clients        int
	BinaryMessages int64
	TextMessages   int64
	Dropped        int64
}

func (h *Hub) Stats() Stats {
	return Stats{
		Clients:        h.Len(),
		BinaryMessages: h.binary.Load(),
		TextMessages:   h.text.Load(),
		Dropped:        h.dropped.Load(),
	}
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	c := newClient(h, conn)
	h.register(c)
	if h.greet != nil {
		c.enqueue(frame{kind: websocket.TextMessage, data: h.greet()})
	}

	go c.writePump()
	c.readPump()
}
