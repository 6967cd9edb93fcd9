package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 16
)

// Event is a dashboard notification pushed over the WebSocket stream.
type Event struct {
	Type string      `json:"type"` // "sl_applied" | "hedge"
	Data interface{} `json:"data"`
	TS   string      `json:"ts"`
}

// Hub fans dashboard events out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool

	onClientCount func(n int)
}

// NewHub creates an empty Hub. onClientCount (may be nil) is called with the
// client count after every connect/disconnect, for gauge updates.
func NewHub(onClientCount func(n int)) *Hub {
	return &Hub{
		clients:       make(map[*wsClient]bool),
		onClientCount: onClientCount,
	}
}

// Broadcast sends an event to every connected client. Slow clients drop the
// message rather than blocking the interaction that produced it.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{
		Type: eventType,
		Data: data,
		TS:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[ws] event marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// HandleWS upgrades the request and runs the client pumps.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.register(c)

	go c.writePump()
	go func() {
		c.readPump()
		h.unregister(c)
	}()
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.onClientCount != nil {
		h.onClientCount(n)
	}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if h.onClientCount != nil {
		h.onClientCount(n)
	}
}

// wsClient is a single WebSocket peer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// readPump drains client messages; the stream is one-way, so inbound frames
// only serve pong/close handling.
func (c *wsClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
