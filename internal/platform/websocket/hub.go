// Package websocket pushes live board updates to browsers. Clients subscribe
// to topics ("queue", "beds") and receive every event published on them.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Event is the envelope written to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Key       string          `json:"key,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is sent by clients to change their subscriptions.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func NewClient(topics ...string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		Topics: topics,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> subscribers
	all     map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
	h.addTopics(client, client.Topics)
}

// Unregister removes the client and closes its Send channel. Calling it
// twice is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[client]; !ok {
		return
	}
	h.removeTopics(client, client.Topics)
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var added []string
	for _, t := range topics {
		if t != "" && !slices.Contains(client.Topics, t) && !slices.Contains(added, t) {
			added = append(added, t)
		}
	}
	h.addTopics(client, added)
	client.Topics = append(client.Topics, added...)
}

func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeTopics(client, topics)
	client.Topics = slices.DeleteFunc(client.Topics, func(t string) bool {
		return slices.Contains(topics, t)
	})
}

// caller holds h.mu
func (h *Hub) addTopics(client *Client, topics []string) {
	for _, t := range topics {
		if h.clients[t] == nil {
			h.clients[t] = make(map[*Client]struct{})
		}
		h.clients[t][client] = struct{}{}
	}
}

// caller holds h.mu
func (h *Hub) removeTopics(client *Client, topics []string) {
	for _, t := range topics {
		if subs, ok := h.clients[t]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.clients, t)
			}
		}
	}
}

func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	}
}

// Broadcast queues the event for every subscriber of topic. Slow clients
// whose buffer is full miss the event rather than blocking the publisher.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("type", event.Type).Msg("marshal websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("topic", topic).Msg("websocket client too slow, event dropped")
		}
	}
}

// Publish broadcasts on event.Topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	h.Broadcast(event.Topic, event)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Handler upgrades HTTP requests on /ws and pumps messages for each client.
type Handler struct {
	hub           *Hub
	upgrader      gorillawebsocket.Upgrader
	defaultTopics []string
}

// NewHandler builds a handler that accepts upgrades from allowedOrigins
// ("*" allows any). New clients are subscribed to defaultTopics unless the
// request names its own with ?topics=a,b.
func NewHandler(hub *Hub, allowedOrigins []string, defaultTopics ...string) *Handler {
	return &Handler{
		hub:           hub,
		defaultTopics: defaultTopics,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

func (wh *Handler) RegisterRoutes(g *echo.Group, m ...echo.MiddlewareFunc) {
	g.GET("/ws", wh.HandleConnect, m...)
}

func (wh *Handler) HandleConnect(c echo.Context) error {
	topics := wh.defaultTopics
	if raw := c.QueryParam("topics"); raw != "" {
		topics = nil
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	ws, err := wh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		return nil
	}

	client := NewClient(slices.Clone(topics)...)
	wh.hub.Register(client)
	wh.hub.logger.Debug().Str("client_id", client.ID).Strs("topics", client.Topics).Msg("websocket client connected")

	go wh.writePump(client, ws)
	go wh.readPump(client, ws)
	return nil
}

func (wh *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		wh.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		wh.hub.ProcessMessage(client, msg)
	}
}

func (wh *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
