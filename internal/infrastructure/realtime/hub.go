package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

const (
	TopicPrefix = "/topic/chat/"

	defaultSendBuffer = 16
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxReadSize       = 512
)

const (
	EventSubscribed = "subscribed"
	EventMessage    = "message"
)

// Topic is the subscription name for one chat.
func Topic(chatID uuid.UUID) string {
	return TopicPrefix + chatID.String()
}

// Envelope is the frame written to subscribers.
type Envelope struct {
	Topic string `json:"topic"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type Client struct {
	ID    uuid.UUID
	Topic string
	send  chan []byte
}

type Options struct {
	SendBuffer     int
	AllowedOrigins []string
}

// Hub keeps the websocket subscribers of every chat topic and pushes sent
// messages to them. A subscriber whose send buffer is full is disconnected.
type Hub struct {
	logger   *logrus.Logger
	bufSize  int
	upgrader websocket.Upgrader

	mu            sync.RWMutex
	subscriptions map[string]map[*Client]bool
}

func NewHub(logger *logrus.Logger, opts Options) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	h := &Hub{
		logger:        logger,
		bufSize:       opts.SendBuffer,
		subscriptions: make(map[string]map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		return set[origin]
	}
}

// Subscribe registers a new client on topic.
func (h *Hub) Subscribe(topic string) *Client {
	return h.subscribe(topic, nil)
}

// subscribe queues first before the client becomes visible to Broadcast.
func (h *Hub) subscribe(topic string, first []byte) *Client {
	c := &Client{ID: uuid.New(), Topic: topic, send: make(chan []byte, h.bufSize)}
	if first != nil {
		c.send <- first
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.subscriptions[topic]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[topic] = clients
	}
	clients[c] = true
	h.logger.WithFields(logrus.Fields{"client_id": c.ID.String(), "topic": topic}).Debug("websocket client subscribed")
	return c
}

// Unsubscribe removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.subscriptions[c.Topic]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subscriptions, c.Topic)
	}
	close(c.send)
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[topic])
}

// Broadcast queues payload for every client on topic and returns how many
// clients accepted it.
func (h *Hub) Broadcast(topic string, payload []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range h.subscriptions[topic] {
		select {
		case c.send <- payload:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			h.logger.WithFields(logrus.Fields{"client_id": c.ID.String(), "topic": topic}).Warn("websocket send buffer full, disconnecting client")
			h.removeLocked(c)
		}
		h.mu.Unlock()
	}
	return delivered
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.subscriptions {
		for c := range clients {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) Name() string { return "websocket_push" }

// Handle pushes MessageSent events to the chat's topic.
func (h *Hub) Handle(_ context.Context, event entity.DomainEvent) error {
	sent, ok := event.(entity.MessageSent)
	if !ok {
		return nil
	}
	view := application.MessageViewOf(sent.Message)
	view.ChatID = sent.ChatID.String()

	topic := Topic(sent.ChatID)
	payload, err := json.Marshal(Envelope{Topic: topic, Event: EventMessage, Data: view})
	if err != nil {
		return fmt.Errorf("encode websocket frame: %w", err)
	}
	n := h.Broadcast(topic, payload)
	h.logger.WithFields(logrus.Fields{"topic": topic, "message_id": view.ID, "receivers": n}).Debug("message pushed")
	return nil
}

// ServeWS upgrades the request and streams the chat's topic to the client
// until either side closes the connection. Frames sent by the client are
// read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, chatID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	topic := Topic(chatID)
	hello, _ := json.Marshal(Envelope{Topic: topic, Event: EventSubscribed})
	c := h.subscribe(topic, hello)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(conn, c)
	}()
	h.readPump(conn, c)
	<-done
	return nil
}

func (h *Hub) readPump(conn *websocket.Conn, c *Client) {
	defer h.Unsubscribe(c)

	conn.SetReadLimit(maxReadSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).WithField("client_id", c.ID.String()).Warn("websocket read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.WithError(err).WithField("client_id", c.ID.String()).Debug("websocket write failed")
				h.Unsubscribe(c)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unsubscribe(c)
				return
			}
		}
	}
}
