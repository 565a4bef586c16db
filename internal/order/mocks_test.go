package order

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/stream"
)

// MockAPI is a mock implementation of API for testing.
type MockAPI struct {
	mu sync.Mutex

	FetchOrderFunc          func(ctx context.Context, id string) (*Order, error)
	ListOrdersFunc          func(ctx context.Context, restaurantID string, state filter.State) ([]Order, error)
	UpdateStatusFunc        func(ctx context.Context, id, status string) error
	UpdateItemReadinessFunc func(ctx context.Context, orderID, itemID, readiness string) error

	fetchCalls  int
	statusCalls int
}

func NewMockAPI() *MockAPI {
	return &MockAPI{}
}

func (m *MockAPI) FetchOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.Lock()
	m.fetchCalls++
	m.mu.Unlock()

	if m.FetchOrderFunc != nil {
		return m.FetchOrderFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAPI) ListOrders(ctx context.Context, restaurantID string, state filter.State) ([]Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, restaurantID, state)
	}
	return nil, nil
}

func (m *MockAPI) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	m.statusCalls++
	m.mu.Unlock()

	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockAPI) UpdateItemReadiness(ctx context.Context, orderID, itemID, readiness string) error {
	if m.UpdateItemReadinessFunc != nil {
		return m.UpdateItemReadinessFunc(ctx, orderID, itemID, readiness)
	}
	return nil
}

func (m *MockAPI) FetchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetchCalls
}

// MockChannel is a mock implementation of Channel that lets tests push
// events straight into registered handlers.
type MockChannel struct {
	mu        sync.Mutex
	handlers  map[string]stream.HandlerFunc
	connected bool
}

func NewMockChannel() *MockChannel {
	return &MockChannel{
		handlers:  make(map[string]stream.HandlerFunc),
		connected: true,
	}
}

func (m *MockChannel) On(event string, handler stream.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = handler
}

func (m *MockChannel) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockChannel) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
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
