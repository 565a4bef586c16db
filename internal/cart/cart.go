package cart

// Wire events for the cart namespace. Unlike orders, cart state is
// replaced wholesale on every push; there are no deltas.
const (
	EventSubscribe   = "subscribe_cart"
	EventUnsubscribe = "unsubscribe_cart"

	EventSubscribed = "subscribed"
	EventUpdated    = "cart.updated"
	EventCleared    = "cart.cleared"
)

// Item is one line of the cart.
type Item struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unitPrice"`
}

// Cart is the authoritative snapshot for one active session. Amounts
// are minor currency units.
type Cart struct {
	SessionID string `json:"sessionId"`
	Items     []Item `json:"items"`
	Guests    int    `json:"guests"`
	Subtotal  int    `json:"subtotal"`
	Total     int    `json:"total"`
}

// SubscribePayload announces interest in a cart session. The same
// shape serves subscribe and unsubscribe.
type SubscribePayload struct {
	SessionID string `json:"sessionId"`
}

// UpdatedEvent carries the full replacement snapshot.
type UpdatedEvent struct {
	SessionID string `json:"sessionId"`
	Cart      Cart   `json:"cart"`
}

// ClearedEvent signals the session's cart was emptied server-side.
type ClearedEvent struct {
	SessionID string `json:"sessionId"`
}
