// Package realtime pushes publish events to connected organizations over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"coalition-api/services"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

type envelope struct {
	tags    []string
	payload []byte
}

type Client struct {
	viewer services.Viewer
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// Hub tracks connected clients per organization and fans live messages out
// to the ones allowed to see them.
type Hub struct {
	clients    map[uint]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
}

func NewHub(allowedOrigins []string, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &Hub{
		clients:    make(map[uint]map[*Client]bool),
		broadcast:  make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run owns the client registry until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("websocket hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			h.mutex.Unlock()
			h.log.Info("websocket hub stopped")
			return

		case client := <-h.register:
			h.mutex.Lock()
			orgID := client.viewer.OrganizationID
			if _, ok := h.clients[orgID]; !ok {
				h.clients[orgID] = make(map[*Client]bool)
			}
			h.clients[orgID][client] = true
			h.mutex.Unlock()

		case client := <-h.unregister:
			h.mutex.Lock()
			h.remove(client)
			h.mutex.Unlock()

		case env := <-h.broadcast:
			h.mutex.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					if !client.viewer.IsAdmin() && !services.Matches(env.tags, client.viewer.Tags) {
						continue
					}
					select {
					case client.send <- env.payload:
					default:
						h.remove(client)
					}
				}
			}
			h.mutex.Unlock()
		}
	}
}

// remove must be called with the mutex held.
func (h *Hub) remove(client *Client) {
	orgID := client.viewer.OrganizationID
	clients, ok := h.clients[orgID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, orgID)
	}
}

// Broadcast queues msg for every client whose organization may see an item
// carrying tags. A full queue drops the message.
func (h *Hub) Broadcast(msg services.LiveMessage, tags []string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("marshal live message")
		return
	}
	select {
	case h.broadcast <- envelope{tags: tags, payload: data}:
	default:
		h.log.WithField("item", msg.ItemID).Warn("live feed queue full, message dropped")
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// Serve upgrades the request and attaches the connection for viewer.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, viewer services.Viewer) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		viewer: viewer,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump only drains control frames; clients never send data.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
