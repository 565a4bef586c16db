package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/gorilla/websocket"
)

const (
	// Reconnection is linear-capped and unlimited: the channel keeps
	// retrying until Stop is called, never surfacing transport errors
	// as user-facing failures.
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 5 * time.Second

	defaultHandshakeTimeout = 10 * time.Second
)

// envelope is the wire frame for both directions of the channel.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Options tunes a channel connection. Zero values fall back to the
// defaults above; production code leaves backoff alone.
type Options struct {
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	HandshakeTimeout time.Duration
	Credentials      Credentials
}

// Conn owns one persistent duplex channel for a logical namespace
// (orders, cart). It dials, reads, reconnects with backoff, and routes
// named server events to registered handlers.
type Conn struct {
	url       string
	namespace string
	logger    aqm.Logger
	opts      Options

	router *router

	mu            sync.RWMutex
	ws            *websocket.Conn
	state         ConnState
	everConnected bool

	writeMu sync.Mutex

	hookMu       sync.RWMutex
	onConnect    []func()
	onReconnect  []func()
	onDisconnect []func()
	onError      []func(error)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConn creates a channel for one namespace. The connection is not
// dialed until Start is called.
func NewConn(url, namespace string, logger aqm.Logger, opts Options) *Conn {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		url:       url,
		namespace: namespace,
		logger:    logger,
		opts:      opts,
		router:    newRouter(logger),
		state:     StateDisconnected,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// On registers the handler for a named server event. One handler per
// event name; registering again replaces the previous handler.
func (c *Conn) On(event string, handler HandlerFunc) {
	c.router.on(event, handler)
}

// Off removes the handler for a named server event.
func (c *Conn) Off(event string) {
	c.router.off(event)
}

// OnConnect registers a callback fired after the first successful dial.
func (c *Conn) OnConnect(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// OnReconnect registers a callback fired after every successful dial
// that follows a lost connection. The server has forgotten all
// subscriptions by then; callers use this to re-announce interest.
func (c *Conn) OnReconnect(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onReconnect = append(c.onReconnect, fn)
}

// OnDisconnect registers a callback fired when an established
// connection is lost.
func (c *Conn) OnDisconnect(fn func()) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onDisconnect = append(c.onDisconnect, fn)
}

// OnError registers a callback for transport-level errors. These are
// informational; the retry loop keeps going regardless.
func (c *Conn) OnError(fn func(error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onError = append(c.onError, fn)
}

// Start begins dialing in the background. It never blocks startup on a
// slow or absent server.
func (c *Conn) Start(ctx context.Context) error {
	c.logger.Info("starting channel", "namespace", c.namespace, "url", c.url)
	c.setState(StateConnecting)

	go c.connectWithRetry()

	return nil
}

// Stop tears the channel down and stops all reconnection attempts.
func (c *Conn) Stop(ctx context.Context) error {
	c.logger.Info("stopping channel", "namespace", c.namespace)
	c.cancel()

	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if ws != nil {
		return ws.Close()
	}
	return nil
}

// State reports the current lifecycle phase.
func (c *Conn) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the channel is currently established.
func (c *Conn) IsConnected() bool {
	return c.State() == StateConnected
}

// Emit sends a named event with a JSON payload to the server.
func (c *Conn) Emit(event string, payload interface{}) error {
	c.mu.RLock()
	ws := c.ws
	connected := c.state == StateConnected
	c.mu.RUnlock()

	if !connected || ws == nil {
		return fmt.Errorf("channel %s is not connected", c.namespace)
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
		data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.WriteJSON(envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// connectWithRetry dials until it succeeds, reads until the connection
// drops, then dials again. Attempts are unlimited; the delay grows
// linearly from the initial backoff up to the cap.
func (c *Conn) connectWithRetry() {
	attempt := 0

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("channel shut down, stopping connection attempts", "namespace", c.namespace)
			c.setState(StateDisconnected)
			return
		default:
		}

		ws, err := c.dial()
		if err != nil {
			delay := c.backoff(attempt)
			attempt++
			c.logger.Error("channel dial failed", "namespace", c.namespace, "error", err, "retry_in", delay)
			c.fireError(err)
			c.sleep(delay)
			continue
		}

		c.mu.Lock()
		c.ws = ws
		c.state = StateConnected
		reconnected := c.everConnected
		c.everConnected = true
		c.mu.Unlock()

		attempt = 0

		if reconnected {
			c.logger.Info("channel reconnected", "namespace", c.namespace)
			c.fire(c.snapshotHooks(&c.onReconnect))
		} else {
			c.logger.Info("channel connected", "namespace", c.namespace)
			c.fire(c.snapshotHooks(&c.onConnect))
		}

		// Blocks until the connection drops.
		c.readLoop(ws)

		c.mu.Lock()
		c.ws = nil
		stopping := c.ctx.Err() != nil
		if !stopping {
			c.state = StateReconnecting
		}
		c.mu.Unlock()

		if stopping {
			return
		}

		c.fire(c.snapshotHooks(&c.onDisconnect))
	}
}

func (c *Conn) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}

	header := http.Header{}
	if c.opts.Credentials != nil {
		if token := c.opts.Credentials.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}

	ws, resp, err := dialer.DialContext(c.ctx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized && c.opts.Credentials != nil {
			c.logger.Info("channel handshake rejected as unauthorized, clearing credentials", "namespace", c.namespace)
			c.opts.Credentials.Clear()
		}
		return nil, err
	}
	return ws, nil
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Error("channel read failed", "namespace", c.namespace, "error", err)
				c.fireError(err)
			}
			ws.Close()
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.logger.Error("failed to decode channel frame", "namespace", c.namespace, "error", err)
			continue
		}
		if env.Event == "" {
			c.logger.Info("channel frame without event name, dropping", "namespace", c.namespace)
			continue
		}

		c.router.dispatch(c.ctx, env.Event, env.Data)
	}
}

func (c *Conn) backoff(attempt int) time.Duration {
	delay := c.opts.InitialBackoff * time.Duration(attempt+1)
	if delay > c.opts.MaxBackoff {
		delay = c.opts.MaxBackoff
	}
	return delay
}

func (c *Conn) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
	case <-timer.C:
	}
}

func (c *Conn) setState(s ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

func (c *Conn) snapshotHooks(hooks *[]func()) []func() {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	out := make([]func(), len(*hooks))
	copy(out, *hooks)
	return out
}

func (c *Conn) fire(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

func (c *Conn) fireError(err error) {
	c.hookMu.RLock()
	hooks := make([]func(error), len(c.onError))
	copy(hooks, c.onError)
	c.hookMu.RUnlock()

	for _, fn := range hooks {
		fn(err)
	}
}
