package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/royale/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by middleware.WebSocketCORSCheck
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Hub maintains the set of live connections and fans events out to them.
type Hub struct {
	clients map[string]*Client // connection ID -> Client
	closed  bool
	mu      sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client. It reports false once the hub is closed.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	log.Printf("[WS] Client %s connected (clients=%d)", c.id, len(h.clients))
	return true
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
		log.Printf("[WS] Client %s disconnected (clients=%d)", c.id, len(h.clients))
	}
}

// Publish delivers ev to every connected client. Clients whose buffer is
// full are skipped. Each client's buffer is FIFO, so successive Publish calls
// from one goroutine arrive in order.
func (h *Hub) Publish(ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] Error marshaling %s: %v", ev.Kind(), err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Client %s send buffer full, dropping %s", client.id, ev.Kind())
		}
	}
}

// sendTo delivers ev to a single client if it is still registered.
func (h *Hub) sendTo(c *Client, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] Error marshaling %s: %v", ev.Kind(), err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if cur, ok := h.clients[c.id]; !ok || cur != c {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Client %s send buffer full, dropping %s", c.id, ev.Kind())
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
