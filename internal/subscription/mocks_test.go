package subscription

import "sync"

// MockSender records every announcement the registry emits.
type MockSender struct {
	mu       sync.Mutex
	EmitFunc func(event string, payload interface{}) error
	emitted  []emittedEvent
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
	m.emitted = append(m.emitted, emittedEvent{event: event, payload: payload})
	m.mu.Unlock()

	if m.EmitFunc != nil {
		return m.EmitFunc(event, payload)
	}
	return nil
}

func (m *MockSender) Emitted() []emittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]emittedEvent(nil), m.emitted...)
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.emitted)
}
