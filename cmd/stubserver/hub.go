// cmd/stubserver/hub.go
package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Danhnam1/Audit-System-sub002/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// hub fans entity-update frames out to every connected client. Each frame
// is an events.Invalidation, the same shape the client-side listener
// republishes on its bus.
type hub struct {
	mu      sync.Mutex
	clients map[*wsClient]bool
	log     zerolog.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub(log zerolog.Logger) *hub {
	return &hub{
		clients: make(map[*wsClient]bool),
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// broadcast queues a frame for every client; a client that cannot keep up
// is dropped.
func (h *hub) broadcast(topic, entityID, reason string) {
	frame := events.Invalidation{
		Topic:     topic,
		EntityID:  entityID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal update frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// serveWS upgrades the connection and registers the client.
func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 32)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("push client connected")

	go h.writePump(c)
	go h.readPump(c)
}

func (h *hub) writePump(c *wsClient) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
	c.conn.Close()
}

// readPump exists to notice disconnects; inbound frames are ignored.
func (h *hub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		if h.clients[c] {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
