package bridge

import (
	"context"
	"sync"

	"github.com/appetiteclub/boardsync/internal/bus"
)

// MockSubscriber is a mock implementation of bus.Subscriber that
// captures handlers so tests can inject backend events directly.
type MockSubscriber struct {
	mu       sync.Mutex
	handlers map[string]bus.HandlerFunc
	closed   bool
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{handlers: make(map[string]bus.HandlerFunc)}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler bus.HandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSubscriber) Handler(topic string) bus.HandlerFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handlers[topic]
}

func (m *MockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
