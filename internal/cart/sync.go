package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/boardsync/internal/stream"
)

// Channel is the slice of the push channel the cart sync binds to.
type Channel interface {
	On(event string, handler stream.HandlerFunc)
	Emit(event string, payload interface{}) error
}

// Sync keeps the local cart snapshot consistent with server pushes for
// one session. Every push replaces the snapshot wholesale; the only
// derived state is the highlight diff, which flags items that are new
// or grew in quantity relative to the previous snapshot.
type Sync struct {
	sessionID string
	logger    aqm.Logger

	mu          sync.RWMutex
	conn        Channel
	current     *Cart
	highlighted []string
	onChange    []func(cart *Cart, highlighted []string)
}

func NewSync(sessionID string, logger aqm.Logger) *Sync {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Sync{sessionID: sessionID, logger: logger}
}

// SessionID returns the session this sync follows.
func (s *Sync) SessionID() string {
	return s.sessionID
}

// OnChange registers a callback invoked after every accepted push with
// the fresh snapshot and the highlighted item ids.
func (s *Sync) OnChange(fn func(cart *Cart, highlighted []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Bind registers the sync's handlers on the cart channel.
func (s *Sync) Bind(conn Channel) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.On(EventUpdated, s.handleUpdated)
	conn.On(EventCleared, s.handleCleared)
	conn.On(EventSubscribed, s.handleSubscribed)
}

// Unsubscribe tells the server to stop pushing for this session.
// Called on page teardown; a failed send only means the channel is
// already gone.
func (s *Sync) Unsubscribe() {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return
	}
	if err := conn.Emit(EventUnsubscribe, SubscribePayload{SessionID: s.sessionID}); err != nil {
		s.logger.Debug("cart unsubscribe not delivered", "session_id", s.sessionID, "error", err)
	}
}

// Current returns the latest snapshot, nil before the first push.
func (s *Sync) Current() *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Highlighted returns the item ids flagged by the latest push.
func (s *Sync) Highlighted() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.highlighted...)
}

func (s *Sync) handleUpdated(ctx context.Context, data []byte) error {
	var evt UpdatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to decode cart push: %w", err)
	}
	if evt.SessionID != s.sessionID {
		s.logger.Debug("cart push for another session, ignoring", "session_id", evt.SessionID)
		return nil
	}

	s.mu.Lock()
	// The diff runs against the previous authoritative snapshot,
	// before it is overwritten.
	highlighted := diffNewItems(s.current, &evt.Cart)
	s.current = &evt.Cart
	s.highlighted = highlighted
	hooks := append(([]func(cart *Cart, highlighted []string))(nil), s.onChange...)
	current := s.current
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(current, highlighted)
	}
	return nil
}

func (s *Sync) handleCleared(ctx context.Context, data []byte) error {
	var evt ClearedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to decode cart cleared push: %w", err)
	}
	if evt.SessionID != s.sessionID {
		return nil
	}

	s.mu.Lock()
	s.current = &Cart{SessionID: s.sessionID}
	s.highlighted = nil
	hooks := append(([]func(cart *Cart, highlighted []string))(nil), s.onChange...)
	current := s.current
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(current, nil)
	}
	return nil
}

func (s *Sync) handleSubscribed(ctx context.Context, data []byte) error {
	s.logger.Info("cart subscription confirmed", "session_id", s.sessionID)
	return nil
}

// diffNewItems flags every item of next that did not exist in prev, or
// whose quantity increased relative to prev.
func diffNewItems(prev, next *Cart) []string {
	if next == nil {
		return nil
	}

	prevQty := make(map[string]int)
	if prev != nil {
		for _, item := range prev.Items {
			prevQty[item.ID] = item.Quantity
		}
	}

	var ids []string
	for _, item := range next.Items {
		qty, existed := prevQty[item.ID]
		if !existed || item.Quantity > qty {
			ids = append(ids, item.ID)
		}
	}
	sort.Strings(ids)
	return ids
}
