package web

import (
	"context"
	"sync"

	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/order"
)

// MockAPI is a mock implementation of order.API backing the handler
// under test.
type MockAPI struct {
	FetchOrderFunc          func(ctx context.Context, id string) (*order.Order, error)
	ListOrdersFunc          func(ctx context.Context, restaurantID string, state filter.State) ([]order.Order, error)
	UpdateStatusFunc        func(ctx context.Context, id, status string) error
	UpdateItemReadinessFunc func(ctx context.Context, orderID, itemID, readiness string) error
}

func (m *MockAPI) FetchOrder(ctx context.Context, id string) (*order.Order, error) {
	if m.FetchOrderFunc != nil {
		return m.FetchOrderFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockAPI) ListOrders(ctx context.Context, restaurantID string, state filter.State) ([]order.Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, restaurantID, state)
	}
	return nil, nil
}

func (m *MockAPI) UpdateStatus(ctx context.Context, id, status string) error {
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

// MockSender records subscription announcements from the registry.
type MockSender struct {
	mu      sync.Mutex
	emitted []emittedEvent
}

type emittedEvent struct {
	event   string
	payload interface{}
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Emit(event string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, emittedEvent{event: event, payload: payload})
	return nil
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emitted)
}
