package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Client is one dashboard connection subscribed to a set of topics.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
}

func NewClient(topics ...string) *Client {
	normalized := make([]string, 0, len(topics))
	for _, t := range topics {
		normalized = append(normalized, TierTopic(t))
	}
	return &Client{
		ID:     uuid.New().String(),
		Topics: normalized,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Hub tracks connected dashboards by topic. It is also the Publisher used
// when the server runs as a single replica.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
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
	for _, topic := range client.Topics {
		if h.clients[topic] == nil {
			h.clients[topic] = make(map[*Client]struct{})
		}
		h.clients[topic][client] = struct{}{}
	}
}

// Unregister removes the client and closes its Send channel. Calling it
// twice is harmless.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		if subscribers, ok := h.clients[topic]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.clients, topic)
			}
		}
	}
	delete(h.all, client)
	close(client.Send)
}

// Publish delivers e to every client subscribed to its tier. Slow clients
// whose buffer is full miss the event.
func (h *Hub) Publish(_ context.Context, e Event) error {
	data, err := encode(e)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for client := range h.clients[e.Topic()] {
		select {
		case client.Send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug().Int("dropped", dropped).Str("tier", e.Tier).Msg("queue event skipped for slow clients")
	}
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
	return len(h.clients[TierTopic(topic)])
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades dashboard connections on /ws/queue?tier=JUNIOR. Several
// tier parameters subscribe to several queues.
type Handler struct {
	hub          *Hub
	validTopic   func(string) bool
	allowOrigins map[string]bool
}

// NewHandler accepts a topic validator so the hub stays ignorant of tier
// names. Origins are checked against allowOrigins unless it contains "*".
func NewHandler(hub *Hub, validTopic func(string) bool, allowOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		origins[o] = true
	}
	return &Handler{hub: hub, validTopic: validTopic, allowOrigins: origins}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/queue", h.HandleConnect)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.allowOrigins["*"] || h.allowOrigins[origin]
}

func (h *Handler) HandleConnect(c echo.Context) error {
	tiers := c.QueryParams()["tier"]
	if len(tiers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "tier query parameter is required")
	}
	for _, t := range tiers {
		if h.validTopic != nil && !h.validTopic(t) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tier "+t)
		}
	}

	up := upgrader
	up.CheckOrigin = h.checkOrigin
	ws, err := up.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(tiers...)
	h.hub.Register(client)
	h.hub.logger.Debug().Str("client_id", client.ID).Strs("tiers", client.Topics).Msg("dashboard connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

// readPump only watches for the connection closing; inbound messages are
// ignored.
func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(512)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
