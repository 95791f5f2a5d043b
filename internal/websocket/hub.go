package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rzzdr/option-pricing-engine/internal/store"
	"github.com/rzzdr/option-pricing-engine/pkg/models"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer
	defaultMaxMessageSize = 4096

	// Per-client send buffer
	sendBufferSize = 256
)

// MetricsRecorder defines the interface for recording hub telemetry
type MetricsRecorder interface {
	SetWebsocketClients(count int)
}

// Config contains configuration for the websocket hub
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
}

// Hub maintains the set of active clients and pushes pricing results to
// the clients subscribed to them
type Hub struct {
	clients       map[*Client]bool
	deliveries    chan delivery
	register      chan *Client
	unregister    chan *Client
	subscriptions map[string]map[*Client]bool // request id -> clients
	results       *store.InMemoryResultStore
	recorder      MetricsRecorder
	upgrader      websocket.Upgrader
	config        Config
	log           *logger.Logger
	mu            sync.RWMutex
}

type delivery struct {
	requestID string
	data      []byte
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool // request ids this client is subscribed to
	mu            sync.RWMutex
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ID        string      `json:"id,omitempty"`
}

// SubscriptionMessage is a subscription request from the client
type SubscriptionMessage struct {
	Type       string   `json:"type"`
	RequestIDs []string `json:"request_ids"`
	ID         string   `json:"id,omitempty"`
}

// NewHub creates a new WebSocket hub. The result store may be nil, in
// which case subscribing never replays already computed results.
func NewHub(config Config, results *store.InMemoryResultStore, recorder MetricsRecorder) *Hub {
	if config.WriteWait <= 0 {
		config.WriteWait = defaultWriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = defaultPongWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 1024
	}
	if config.WriteBufferSize <= 0 {
		config.WriteBufferSize = 1024
	}

	return &Hub{
		clients:       make(map[*Client]bool),
		deliveries:    make(chan delivery, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscriptions: make(map[string]map[*Client]bool),
		results:       results,
		recorder:      recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		config: config,
		log:    logger.GetLogger("websocket.hub"),
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	h.log.Info("Starting WebSocket hub")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.removeClientSubscriptions(client)
				h.log.Infof("Client %s unregistered", client.id)
			}

		case d := <-h.deliveries:
			h.deliver(d)

		case <-ticker.C:
			if h.recorder != nil {
				h.recorder.SetWebsocketClients(len(h.clients))
			}
		}
	}
}

// BroadcastResult pushes a pricing result to every client subscribed to
// its request ID. The call never blocks; under backpressure the result
// is dropped and clients rely on fetching it from the result store.
func (h *Hub) BroadcastResult(result *models.PricingResult) {
	data, err := json.Marshal(Message{
		Type:      "result",
		RequestID: result.RequestID,
		Data:      result,
	})
	if err != nil {
		h.log.Errorf("Failed to marshal result %s: %v", result.RequestID, err)
		return
	}

	select {
	case h.deliveries <- delivery{requestID: result.RequestID, data: data}:
	default:
		h.log.Warnf("Delivery queue full, dropping push for result %s", result.RequestID)
	}
}

// HandleWebSocket handles WebSocket upgrade and client management
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, sendBufferSize),
		id:            uuid.New().String(),
		subscriptions: make(map[string]bool),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// deliver fans a result out to the subscribers of its request ID
func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.subscriptions[d.requestID]))
	for client := range h.subscriptions[d.requestID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.enqueue(d.data)
	}
}

// removeClientSubscriptions removes all subscriptions for a client
func (h *Hub) removeClientSubscriptions(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.RLock()
	for requestID := range client.subscriptions {
		if clients, exists := h.subscriptions[requestID]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, requestID)
			}
		}
	}
	client.mu.RUnlock()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PongWait))
		return nil
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	pingPeriod := (c.hub.config.PongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.handleSubscription(msg)
	case "unsubscribe":
		c.handleUnsubscription(msg)
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type")
	}
}

// handleSubscription subscribes the client to request IDs and replays
// results that are already in the store
func (c *Client) handleSubscription(msg SubscriptionMessage) {
	if len(msg.RequestIDs) == 0 {
		c.sendError("request_ids is required")
		return
	}

	c.mu.Lock()
	for _, requestID := range msg.RequestIDs {
		c.subscriptions[requestID] = true

		c.hub.mu.Lock()
		if c.hub.subscriptions[requestID] == nil {
			c.hub.subscriptions[requestID] = make(map[*Client]bool)
		}
		c.hub.subscriptions[requestID][c] = true
		c.hub.mu.Unlock()
	}
	c.mu.Unlock()

	c.sendMessage(Message{
		Type: "subscription_confirmed",
		Data: map[string]interface{}{
			"request_ids": msg.RequestIDs,
		},
		ID: msg.ID,
	})

	if c.hub.results == nil {
		return
	}
	for _, requestID := range msg.RequestIDs {
		if result, err := c.hub.results.Get(requestID); err == nil {
			c.sendMessage(Message{
				Type:      "result",
				RequestID: requestID,
				Data:      result,
				ID:        msg.ID,
			})
		}
	}
}

// handleUnsubscription handles unsubscription requests
func (c *Client) handleUnsubscription(msg SubscriptionMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, requestID := range msg.RequestIDs {
		delete(c.subscriptions, requestID)

		c.hub.mu.Lock()
		if clients, exists := c.hub.subscriptions[requestID]; exists {
			delete(clients, c)
			if len(clients) == 0 {
				delete(c.hub.subscriptions, requestID)
			}
		}
		c.hub.mu.Unlock()
	}

	c.sendMessage(Message{
		Type: "unsubscription_confirmed",
		Data: map[string]interface{}{
			"request_ids": msg.RequestIDs,
		},
		ID: msg.ID,
	})
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}
	c.enqueue(data)
}

// sendError sends an error message to the client
func (c *Client) sendError(errorMsg string) {
	c.sendMessage(Message{
		Type:  "error",
		Error: errorMsg,
	})
}

// enqueue hands a payload to the write pump without ever blocking the
// caller; slow clients lose messages rather than stalling the hub
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.log.Warnf("Client %s send buffer full, dropping message", c.id)
	}
}
