package filter

import (
	"sync"
	"time"
)

// Candidate is the slice of an order a push payload happens to carry.
// Nil fields are dimensions the payload does not know about; a payload
// cannot disqualify an order on data it does not carry, so unknown
// dimensions pass.
type Candidate struct {
	Status      string
	TableNumber *int
	TotalAmount *int
	CreatedAt   *time.Time
}

// Engine evaluates whether an entity known only from a partial push
// payload is in view under the current filter state. The decision must
// stay behaviorally identical to the REST query the same state builds,
// since both are driven by the same State.
type Engine struct {
	mu    sync.RWMutex
	state State
}

func NewEngine(state State) *Engine {
	return &Engine{state: state}
}

// SetState swaps the active filter state.
func (e *Engine) SetState(state State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// State returns a copy of the active filter state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Matches runs the four filter dimensions in order; all active ones
// must pass. With no active dimensions every candidate matches.
func (e *Engine) Matches(c Candidate) bool {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()

	if len(state.Statuses) > 0 && c.Status != "" {
		if !containsString(state.Statuses, c.Status) {
			return false
		}
	}

	if len(state.TableNumbers) > 0 && c.TableNumber != nil {
		if !containsInt(state.TableNumbers, *c.TableNumber) {
			return false
		}
	}

	if c.TotalAmount != nil {
		min, max := state.AmountBounds()
		if min != nil && *c.TotalAmount < *min {
			return false
		}
		if max != nil && *c.TotalAmount > *max {
			return false
		}
	}

	if c.CreatedAt != nil {
		if !state.DateFrom.IsZero() && c.CreatedAt.Before(state.DateFrom) {
			return false
		}
		if !state.DateTo.IsZero() && c.CreatedAt.After(endOfDay(state.DateTo)) {
			return false
		}
	}

	return true
}

// endOfDay extends the inclusive upper date bound through 23:59:59.999.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, t.Location())
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, n := range values {
		if n == v {
			return true
		}
	}
	return false
}
