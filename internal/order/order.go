package order

import (
	"time"

	"github.com/appetiteclub/boardsync/internal/filter"
)

// Order statuses as the backend reports them.
const (
	StatusDraft          = "DRAFT"
	StatusPaymentPending = "PAYMENT_PENDING"
	StatusPaid           = "PAID"
	StatusAccepted       = "ACCEPTED"
	StatusCooking        = "COOKING"
	StatusReady          = "READY"
	StatusServed         = "SERVED"
	StatusClosed         = "CLOSED"
	StatusCanceled       = "CANCELED"
	StatusRefunded       = "REFUNDED"
)

// Item readiness states pushed per kitchen position.
const (
	ReadinessCooking = "COOKING"
	ReadinessReady   = "READY"
)

// Item is one position of an order, addressed independently by
// readiness pushes.
type Item struct {
	ID              string `json:"id"`
	MenuItemID      string `json:"menu_item_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	UnitPrice       int    `json:"unit_price"`
	ReadinessStatus string `json:"readiness_status"`
	Notes           string `json:"notes,omitempty"`
}

// Order is the locally cached authoritative copy of a server-side
// order. Amounts are minor currency units.
type Order struct {
	ID            string    `json:"id"`
	RestaurantID  string    `json:"restaurant_id"`
	Status        string    `json:"status"`
	TableNumber   int       `json:"table_number"`
	TotalAmount   int       `json:"total_amount"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Items         []Item    `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Candidate exposes the order to the filter engine.
func (o *Order) Candidate() filter.Candidate {
	table := o.TableNumber
	total := o.TotalAmount
	created := o.CreatedAt
	return filter.Candidate{
		Status:      o.Status,
		TableNumber: &table,
		TotalAmount: &total,
		CreatedAt:   &created,
	}
}
