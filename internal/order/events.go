package order

import (
	"time"

	"github.com/appetiteclub/boardsync/internal/filter"
)

// Wire events for the orders namespace.
const (
	EventSubscribe = "subscribe_restaurant"

	EventSubscribed    = "subscribed"
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
	EventUpdated       = "order.updated"
	EventItemReadiness = "order.item_readiness_status_changed"
	EventError         = "error"
)

// SubscribePayload is the client→server announcement for a restaurant.
type SubscribePayload struct {
	RestaurantID string      `json:"restaurant_id"`
	Filters      *filter.Set `json:"filters,omitempty"`
}

// StatusChangedEvent is the field-level patch push: only status and
// updated_at change on the target order.
type StatusChangedEvent struct {
	OrderID      string    `json:"order_id"`
	NewStatus    string    `json:"new_status"`
	UpdatedAt    time.Time `json:"updated_at"`
	RestaurantID string    `json:"restaurant_id"`
}

// ItemReadinessChangedEvent is the nested single-field patch push.
type ItemReadinessChangedEvent struct {
	OrderID         string `json:"order_id"`
	OrderItemID     string `json:"order_item_id"`
	ReadinessStatus string `json:"readiness_status"`
}

// ErrorEvent is the server's subscription rejection notice.
type ErrorEvent struct {
	Message string `json:"message"`
}
