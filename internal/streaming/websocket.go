package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for mobile apps
		return true
	},
}

// WebSocketHub manages WebSocket connections
type WebSocketHub struct {
	logger *logger.Logger

	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	broadcast chan *AnalysisEvent
}

// WebSocketClient represents a connected WebSocket client
type WebSocketClient struct {
	hub    *WebSocketHub
	conn   *websocket.Conn
	send   chan []byte
	logger *logger.Logger

	subMu        sync.RWMutex
	subscription *Subscription
}

// WebSocketMessage is a message sent to/from WebSocket clients
type WebSocketMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	messageTypeSubscribe  = "subscribe"
	messageTypeSubscribed = "subscribed"
	messageTypeEvent      = "event"
)

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		logger:    log.WithComponent("websocket-hub"),
		clients:   make(map[*WebSocketClient]bool),
		broadcast: make(chan *AnalysisEvent, 256),
	}
}

// Run starts the hub's main loop
func (h *WebSocketHub) Run(ctx context.Context) {
	h.logger.Info().Msg("WebSocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("WebSocket hub stopping")
			h.closeAllClients()
			return
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Consume forwards events published on bus to connected clients until ctx
// is done or the bus is closed
func (h *WebSocketHub) Consume(ctx context.Context, bus *EventBus) {
	events, unsubscribe := bus.Subscribe(ctx, nil)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.BroadcastEvent(event)
		}
	}
}

// BroadcastEvent queues an event for delivery to matching clients
func (h *WebSocketHub) BroadcastEvent(event *AnalysisEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Msg("broadcast channel full, dropping event")
	}
}

func (h *WebSocketHub) broadcastEvent(event *AnalysisEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}
	data, err := json.Marshal(WebSocketMessage{Type: messageTypeEvent, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal message for broadcast")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(event) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client buffer full, skip
		}
	}
}

func (h *WebSocketHub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *WebSocketHub) registerClient(client *WebSocketClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	h.logger.Info().Int("clients", len(h.clients)).Msg("client connected")
}

func (h *WebSocketHub) unregisterClient(client *WebSocketClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info().Int("clients", len(h.clients)).Msg("client disconnected")
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWebSocket handles WebSocket connections on /ws/analyses.
// The initial subscription may be given as query parameters.
func (h *WebSocketHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := &WebSocketClient{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, 256),
		logger:       h.logger,
		subscription: SubscriptionFromQuery(r.URL.Query()),
	}

	h.registerClient(client)

	go client.writePump()
	go client.readPump()
}

// SubscriptionFromQuery builds a subscription from URL parameters.
// It returns nil when no filter is present.
func SubscriptionFromQuery(q url.Values) *Subscription {
	var sub Subscription
	filtered := false

	for _, raw := range q["tier"] {
		for _, part := range strings.Split(raw, ",") {
			if t, ok := models.ParseRiskTier(part); ok {
				sub.Tiers = append(sub.Tiers, t)
				filtered = true
			}
		}
	}
	if v := q.Get("max_score"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			sub.MaxScore = &n
			filtered = true
		}
	}
	if v := q.Get("device_id"); v != "" {
		sub.DeviceID = v
		filtered = true
	}
	if v := q.Get("sdk_category"); v != "" {
		sub.SDKCategories = strings.Split(v, ",")
		filtered = true
	}
	if v, err := strconv.ParseBool(q.Get("high_risk_only")); err == nil && v {
		sub.HighRiskOnly = true
		filtered = true
	}

	if !filtered {
		return nil
	}
	return &sub
}

func (c *WebSocketClient) wants(event *AnalysisEvent) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.subscription == nil || c.subscription.Matches(event)
}

func (c *WebSocketClient) setSubscription(sub *Subscription) {
	c.subMu.Lock()
	c.subscription = sub
	c.subMu.Unlock()
}

// readPump reads subscription updates from the client
func (c *WebSocketClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != messageTypeSubscribe {
			continue
		}

		var sub Subscription
		if err := json.Unmarshal(msg.Payload, &sub); err != nil {
			c.logger.Debug().Err(err).Msg("invalid subscription payload")
			continue
		}
		c.setSubscription(&sub)
		c.logger.Debug().Msg("subscription updated")

		ack, _ := json.Marshal(WebSocketMessage{Type: messageTypeSubscribed, Payload: msg.Payload})
		c.hub.mu.RLock()
		if _, ok := c.hub.clients[c]; ok {
			select {
			case c.send <- ack:
			default:
			}
		}
		c.hub.mu.RUnlock()
	}
}

// writePump writes messages to the client
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
