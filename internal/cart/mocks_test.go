package cart

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/appetiteclub/boardsync/internal/stream"
)

// MockChannel is a mock implementation of Channel that lets tests push
// events straight into registered handlers and inspect emitted frames.
type MockChannel struct {
	mu       sync.Mutex
	handlers map[string]stream.HandlerFunc

	EmitFunc func(event string, payload interface{}) error
	emitted  []emittedEvent
}

type emittedEvent struct {
	event   string
	payload interface{}
}

func NewMockChannel() *MockChannel {
	return &MockChannel{handlers: make(map[string]stream.HandlerFunc)}
}

func (m *MockChannel) On(event string, handler stream.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = handler
}

func (m *MockChannel) Emit(event string, payload interface{}) error {
	m.mu.Lock()
	m.emitted = append(m.emitted, emittedEvent{event: event, payload: payload})
	m.mu.Unlock()

	if m.EmitFunc != nil {
		return m.EmitFunc(event, payload)
	}
	return nil
}

func (m *MockChannel) Emitted() []emittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]emittedEvent(nil), m.emitted...)
}

// Push delivers a payload to the handler registered for event.
func (m *MockChannel) Push(t *testing.T, event string, payload interface{}) {
	t.Helper()

	m.mu.Lock()
	handler := m.handlers[event]
	m.mu.Unlock()

	if handler == nil {
		t.Fatalf("no handler registered for %s", event)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("cannot marshal %s payload: %v", event, err)
	}
	if err := handler(context.Background(), raw); err != nil {
		t.Fatalf("handler for %s returned error: %v", event, err)
	}
}
