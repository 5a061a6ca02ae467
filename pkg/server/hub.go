package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/gitway/pkg/pipeline"
)

// Message types pushed to websocket clients.
const (
	MessageHello   = "hello"
	MessageDiagram = "diagram"
)

const (
	broadcastBuffer = 256
	writeTimeout    = 10 * time.Second
)

// Message is one websocket frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type hello struct {
	Client string `json:"client"`
}

func diagramMessage(res *pipeline.Result) Message {
	return Message{Type: MessageDiagram, Data: json.RawMessage(res.DiagramJSON)}
}

// newUpgrader accepts same-origin requests and requests from the listed
// origins. "*" allows any origin.
func newUpgrader(allowed []string) *websocket.Upgrader {
	if len(allowed) == 0 {
		return &websocket.Upgrader{}
	}
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *client) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

// Hub fans messages out to websocket clients.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*client
	broadcast chan Message
	logger    *log.Logger
}

// NewHub returns a hub with no clients. Broadcasts are delivered once Run
// is running.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:   make(map[string]*client),
		broadcast: make(chan Message, broadcastBuffer),
		logger:    logger,
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client. It never blocks; when the queue
// is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Run delivers queued broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.logger.Debug("dropping websocket client", "client", c.id, "error", err)
			h.remove(c)
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "client", c.id, "clients", n)
	return c
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
		h.logger.Info("websocket client disconnected", "client", c.id, "clients", n)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()
	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		c.conn.Close()
	}
}

// serve registers conn, sends the greeting and the current diagram, and
// blocks reading until the client goes away.
func (h *Hub) serve(conn *websocket.Conn, current *pipeline.Result) {
	c := h.add(conn)
	defer h.remove(c)

	if err := c.write(Message{Type: MessageHello, Data: hello{Client: c.id}}); err != nil {
		return
	}
	if current != nil {
		if err := c.write(diagramMessage(current)); err != nil {
			return
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
