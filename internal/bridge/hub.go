package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/appetiteclub/boardsync/internal/bus"
	"github.com/appetiteclub/boardsync/internal/cart"
	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/order"
)

// NATS topics the backend publishes push envelopes on.
const (
	TopicOrders = "boardsync.orders"
	TopicCart   = "boardsync.cart"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// orderProbe reads just enough of an order event to route it.
type orderProbe struct {
	RestaurantID string     `json:"restaurant_id"`
	Status       string     `json:"status"`
	NewStatus    string     `json:"new_status"`
	TableNumber  *int       `json:"table_number"`
	TotalAmount  *int       `json:"total_amount"`
	CreatedAt    *time.Time `json:"created_at"`
}

type cartProbe struct {
	SessionID string `json:"sessionId"`
}

// Hub is the serving peer of the push channel for local development
// and integration tests: it accepts subscription announcements over
// websocket and relays backend events from NATS to matching clients.
type Hub struct {
	logger     aqm.Logger
	subscriber bus.Subscriber
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id        string
	namespace string
	ws        *websocket.Conn

	writeMu sync.Mutex

	mu           sync.RWMutex
	restaurantID string
	filters      *filter.Set
	sessions     map[string]struct{}
}

func NewHub(subscriber bus.Subscriber, logger aqm.Logger) *Hub {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Hub{
		logger:     logger,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Start wires the hub to the backend topics.
func (h *Hub) Start(ctx context.Context) error {
	if h.subscriber == nil {
		h.logger.Info("bridge has no subscriber configured, serving without backend events")
		return nil
	}
	if err := h.subscriber.Subscribe(ctx, TopicOrders, h.relayOrderEvent); err != nil {
		return err
	}
	if err := h.subscriber.Subscribe(ctx, TopicCart, h.relayCartEvent); err != nil {
		return err
	}
	h.logger.Info("bridge subscribed to backend topics", "topics", []string{TopicOrders, TopicCart})
	return nil
}

// Stop closes every connected client.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	for id, c := range h.clients {
		c.ws.Close()
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if h.subscriber != nil {
		return h.subscriber.Close()
	}
	return nil
}

// RegisterRoutes mounts one websocket endpoint per namespace.
func (h *Hub) RegisterRoutes(r chi.Router) {
	r.Get("/socket/orders", h.serveNamespace("orders"))
	r.Get("/socket/cart", h.serveNamespace("cart"))
}

func (h *Hub) serveNamespace(namespace string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("websocket upgrade failed", "namespace", namespace, "error", err)
			return
		}

		c := &client{
			id:        uuid.New().String(),
			namespace: namespace,
			ws:        ws,
			sessions:  make(map[string]struct{}),
		}

		h.mu.Lock()
		h.clients[c.id] = c
		total := len(h.clients)
		h.mu.Unlock()

		h.logger.Info("bridge client connected", "namespace", namespace, "client_id", c.id, "total_clients", total)

		h.readLoop(c)

		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		ws.Close()

		h.logger.Info("bridge client disconnected", "namespace", namespace, "client_id", c.id)
	}
}

func (h *Hub) readLoop(c *client) {
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.logger.Error("bad frame from bridge client", "client_id", c.id, "error", err)
			continue
		}

		switch env.Event {
		case order.EventSubscribe:
			h.handleSubscribeRestaurant(c, env.Data)
		case cart.EventSubscribe:
			h.handleSubscribeCart(c, env.Data)
		case cart.EventUnsubscribe:
			h.handleUnsubscribeCart(c, env.Data)
		default:
			h.logger.Info("unknown client event, dropping", "client_id", c.id, "event", env.Event)
		}
	}
}

func (h *Hub) handleSubscribeRestaurant(c *client, data []byte) {
	var payload order.SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RestaurantID == "" {
		h.send(c, envelope{Event: order.EventError, Data: mustRaw(order.ErrorEvent{Message: "invalid subscribe_restaurant payload"})})
		return
	}

	c.mu.Lock()
	c.restaurantID = payload.RestaurantID
	c.filters = payload.Filters
	c.mu.Unlock()

	h.logger.Info("restaurant subscription recorded", "client_id", c.id, "restaurant_id", payload.RestaurantID, "filtered", payload.Filters != nil)
	h.send(c, envelope{Event: order.EventSubscribed})
}

func (h *Hub) handleSubscribeCart(c *client, data []byte) {
	var payload cart.SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.send(c, envelope{Event: order.EventError, Data: mustRaw(order.ErrorEvent{Message: "invalid subscribe_cart payload"})})
		return
	}

	c.mu.Lock()
	c.sessions[payload.SessionID] = struct{}{}
	c.mu.Unlock()

	h.send(c, envelope{Event: cart.EventSubscribed})
}

func (h *Hub) handleUnsubscribeCart(c *client, data []byte) {
	var payload cart.SubscribePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	c.mu.Lock()
	delete(c.sessions, payload.SessionID)
	c.mu.Unlock()
}

// relayOrderEvent forwards a backend order event to every client
// subscribed to its restaurant whose filters allow it.
func (h *Hub) relayOrderEvent(ctx context.Context, msg []byte) error {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Error("bad order event from backend", "error", err)
		return nil
	}

	var probe orderProbe
	if err := json.Unmarshal(env.Data, &probe); err != nil {
		h.logger.Error("undecodable order event payload", "event", env.Event, "error", err)
		return nil
	}

	status := probe.Status
	if status == "" {
		status = probe.NewStatus
	}
	candidate := filter.Candidate{
		Status:      status,
		TableNumber: probe.TableNumber,
		TotalAmount: probe.TotalAmount,
		CreatedAt:   probe.CreatedAt,
	}

	for _, c := range h.snapshotClients("orders") {
		c.mu.RLock()
		match := c.restaurantID != "" && c.restaurantID == probe.RestaurantID && c.filters.Allows(candidate)
		c.mu.RUnlock()

		if match {
			h.send(c, env)
		}
	}
	return nil
}

// relayCartEvent forwards a backend cart event to the clients watching
// its session.
func (h *Hub) relayCartEvent(ctx context.Context, msg []byte) error {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Error("bad cart event from backend", "error", err)
		return nil
	}

	var probe cartProbe
	if err := json.Unmarshal(env.Data, &probe); err != nil || probe.SessionID == "" {
		h.logger.Error("undecodable cart event payload", "event", env.Event)
		return nil
	}

	for _, c := range h.snapshotClients("cart") {
		c.mu.RLock()
		_, match := c.sessions[probe.SessionID]
		c.mu.RUnlock()

		if match {
			h.send(c, env)
		}
	}
	return nil
}

func (h *Hub) snapshotClients(namespace string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.namespace == namespace {
			result = append(result, c)
		}
	}
	return result
}

func (h *Hub) send(c *client, env envelope) {
	c.writeMu.Lock()
	err := c.ws.WriteJSON(env)
	c.writeMu.Unlock()

	if err != nil {
		h.logger.Info("dropping unreachable bridge client", "client_id", c.id, "error", err)
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		c.ws.Close()
	}
}

func mustRaw(v interface{}) json.RawMessage {
	raw, _ := json.Marshal(v)
	return raw
}
