package order

import (
	"sync"
	"time"
)

// Store is the keyed authoritative collection of orders in view.
// Pushes and optimistic edits mutate it; the board projects from it.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*Order
}

func NewStore() *Store {
	return &Store{orders: make(map[string]*Order)}
}

// Get retrieves an order by id, nil when not loaded.
func (s *Store) Get(id string) *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id]
}

// Set adds or replaces an order wholesale.
func (s *Store) Set(o *Order) {
	if o == nil || o.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// PatchStatus mutates only status and updated_at in place, leaving all
// other fields, items included, untouched. Returns false when the
// order is not loaded.
func (s *Store) PatchStatus(id, status string, updatedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.orders[id]
	if o == nil {
		return false
	}
	o.Status = status
	o.UpdatedAt = updatedAt
	return true
}

// PatchItemReadiness mutates one item's readiness status. A miss on
// either the order or the item is a no-op.
func (s *Store) PatchItemReadiness(orderID, itemID, readiness string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := s.orders[orderID]
	if o == nil {
		return false
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items[i].ReadinessStatus = readiness
			return true
		}
	}
	return false
}

// Remove deletes an order from the collection.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
}

// Reset discards the collection and loads a fresh authoritative list.
func (s *Store) Reset(orders []Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[string]*Order, len(orders))
	for i := range orders {
		o := orders[i]
		if o.ID == "" {
			continue
		}
		s.orders[o.ID] = &o
	}
}

// All returns the loaded orders in no particular order.
func (s *Store) All() []*Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, o)
	}
	return result
}

// Count returns the number of loaded orders.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
