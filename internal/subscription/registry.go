package subscription

import (
	"fmt"
	"sync"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/boardsync/internal/filter"
)

// Sender is the slice of the channel the registry needs.
type Sender interface {
	Emit(event string, payload interface{}) error
}

// PayloadFunc builds the wire payload for one subscription
// announcement. Each namespace has its own message shape.
type PayloadFunc func(target string, filters *filter.Set) interface{}

// Registry tracks what this client has told the server it is
// interested in. Callers call Subscribe on every filter-affecting UI
// action; the registry, not the caller, decides whether the server
// needs to hear about it again. After a reconnect the server has
// forgotten everything, so the registry re-announces all recorded
// subscriptions.
type Registry struct {
	conn    Sender
	event   string
	payload PayloadFunc
	logger  aqm.Logger

	mu      sync.Mutex
	sent    map[string]*filter.Set
	targets []string
}

// NewRegistry creates a registry announcing via the given event name.
func NewRegistry(conn Sender, event string, payload PayloadFunc, logger aqm.Logger) *Registry {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Registry{
		conn:    conn,
		event:   event,
		payload: payload,
		logger:  logger,
		sent:    make(map[string]*filter.Set),
	}
}

// Subscribe announces interest in a target under the given filters.
// A call carrying the same target and a structurally equal filter set
// as the last successful announcement is a no-op: no two consecutive
// announcements for a target may carry identical filters.
func (r *Registry) Subscribe(target string, filters *filter.Set) error {
	if target == "" {
		return fmt.Errorf("subscription target is required")
	}

	r.mu.Lock()
	last, known := r.sent[target]
	if known && last.Equal(filters) {
		r.mu.Unlock()
		r.logger.Debug("subscription unchanged, skipping announcement", "target", target)
		return nil
	}
	r.mu.Unlock()

	if err := r.announce(target, filters); err != nil {
		return err
	}

	r.mu.Lock()
	if _, known := r.sent[target]; !known {
		r.targets = append(r.targets, target)
	}
	r.sent[target] = filters
	r.mu.Unlock()

	return nil
}

// Unsubscribe forgets a target so a later Subscribe announces again.
// Any wire-level unsubscribe message is the caller's business.
func (r *Registry) Unsubscribe(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.sent[target]; !known {
		return
	}
	delete(r.sent, target)
	for i, t := range r.targets {
		if t == target {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			break
		}
	}
}

// Resend re-announces every recorded subscription verbatim. Wire this
// to the channel's reconnect hook; server-side subscription state does
// not survive a reconnect.
func (r *Registry) Resend() {
	r.mu.Lock()
	targets := append([]string(nil), r.targets...)
	sent := make(map[string]*filter.Set, len(r.sent))
	for t, f := range r.sent {
		sent[t] = f
	}
	r.mu.Unlock()

	for _, target := range targets {
		if err := r.announce(target, sent[target]); err != nil {
			// Logged only: the next filter change or reconnect
			// re-attempts, there is no retry loop here.
			r.logger.Error("failed to re-announce subscription", "target", target, "error", err)
		}
	}
}

// Targets lists the currently recorded subscription targets.
func (r *Registry) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}

func (r *Registry) announce(target string, filters *filter.Set) error {
	if err := r.conn.Emit(r.event, r.payload(target, filters)); err != nil {
		return fmt.Errorf("failed to announce subscription for %s: %w", target, err)
	}
	r.logger.Info("subscription announced", "event", r.event, "target", target, "filtered", filters != nil)
	return nil
}
