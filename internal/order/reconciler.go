package order

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/stream"
)

// Channel is the slice of the push channel the reconciler binds to.
type Channel interface {
	On(event string, handler stream.HandlerFunc)
	IsConnected() bool
}

// Reconciler merges server pushes into the authoritative collection
// and applies optimistic local edits against the REST collaborator.
// Three push granularities exist: full replace (order.created,
// order.updated), field patch (order.status_changed) and nested item
// patch (order.item_readiness_status_changed).
//
// There are no version numbers on orders: a stale push arriving after
// a newer local edit wins (last write wins), same as the server-side
// contract. Pushes are idempotent with confirmed edits, which is what
// makes the common interleaving harmless.
type Reconciler struct {
	store  *Store
	api    API
	engine *filter.Engine
	logger aqm.Logger

	connected func() bool

	mu       sync.RWMutex
	onChange []func()
}

func NewReconciler(store *Store, api API, engine *filter.Engine, logger aqm.Logger) *Reconciler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Reconciler{
		store:     store,
		api:       api,
		engine:    engine,
		logger:    logger,
		connected: func() bool { return false },
	}
}

// Store exposes the authoritative collection for projection.
func (r *Reconciler) Store() *Store {
	return r.store
}

// Engine exposes the filter engine driving accept/reject decisions.
func (r *Reconciler) Engine() *filter.Engine {
	return r.engine
}

// OnChange registers a callback invoked after every mutation of the
// authoritative collection, so the board can re-project.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Bind registers the reconciler's handlers on the orders channel.
func (r *Reconciler) Bind(conn Channel) {
	conn.On(EventCreated, r.handleReplace)
	conn.On(EventUpdated, r.handleReplace)
	conn.On(EventStatusChanged, r.handleStatusChanged)
	conn.On(EventItemReadiness, r.handleItemReadiness)
	conn.On(EventSubscribed, r.handleSubscribed)
	conn.On(EventError, r.handleServerError)

	r.connected = conn.IsConnected
}

// Warm loads the authoritative collection via REST under the current
// filters, discarding whatever was loaded before.
func (r *Reconciler) Warm(ctx context.Context, restaurantID string) error {
	orders, err := r.api.ListOrders(ctx, restaurantID, r.engine.State())
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}

	r.store.Reset(orders)
	r.logger.Info("order collection loaded", "restaurant_id", restaurantID, "count", len(orders))
	r.notify()
	return nil
}

// ApplyFilters swaps the filter state and reloads the collection so
// the local view and the server view agree again.
func (r *Reconciler) ApplyFilters(ctx context.Context, restaurantID string, state filter.State) error {
	r.engine.SetState(state)
	return r.Warm(ctx, restaurantID)
}

// ChangeStatus applies a status edit optimistically, then fires the
// backing REST call. On failure the previous value is restored and the
// error surfaces to the caller; on success the optimistic value stands
// and the eventual push is idempotent with it.
func (r *Reconciler) ChangeStatus(ctx context.Context, orderID, newStatus string) error {
	o := r.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("order %s is not loaded", orderID)
	}

	prevStatus := o.Status
	prevUpdated := o.UpdatedAt
	if prevStatus == newStatus {
		return nil
	}

	wasConnected := r.connected()

	r.store.PatchStatus(orderID, newStatus, time.Now().UTC())
	r.notify()

	if err := r.api.UpdateStatus(ctx, orderID, newStatus); err != nil {
		r.store.PatchStatus(orderID, prevStatus, prevUpdated)
		r.notify()
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if !wasConnected {
		// No push is coming while the channel is down; refresh the
		// entity over REST instead.
		r.refreshOrder(ctx, orderID)
	}
	return nil
}

// ChangeItemReadiness toggles one item's readiness optimistically with
// the same rollback contract as ChangeStatus.
func (r *Reconciler) ChangeItemReadiness(ctx context.Context, orderID, itemID, readiness string) error {
	o := r.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("order %s is not loaded", orderID)
	}

	var prev string
	found := false
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			prev = o.Items[i].ReadinessStatus
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("item %s is not part of order %s", itemID, orderID)
	}
	if prev == readiness {
		return nil
	}

	wasConnected := r.connected()

	r.store.PatchItemReadiness(orderID, itemID, readiness)
	r.notify()

	if err := r.api.UpdateItemReadiness(ctx, orderID, itemID, readiness); err != nil {
		r.store.PatchItemReadiness(orderID, itemID, prev)
		r.notify()
		return fmt.Errorf("failed to update item readiness: %w", err)
	}

	if !wasConnected {
		r.refreshOrder(ctx, orderID)
	}
	return nil
}

// handleReplace applies the full-entity granularity. New ids are
// admitted only when they pass the active filters.
func (r *Reconciler) handleReplace(ctx context.Context, data []byte) error {
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("failed to decode order push: %w", err)
	}
	if o.ID == "" {
		return fmt.Errorf("order push without id")
	}

	if r.store.Get(o.ID) == nil && !r.engine.Matches(o.Candidate()) {
		r.logger.Debug("order push outside active filters, ignoring", "order_id", o.ID)
		return nil
	}

	r.store.Set(&o)
	r.notify()
	return nil
}

// handleStatusChanged applies the field-patch granularity: only status
// and updated_at change, items stay untouched. An unknown id triggers
// a full fetch when the partial payload passes the filters.
func (r *Reconciler) handleStatusChanged(ctx context.Context, data []byte) error {
	var evt StatusChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to decode status change push: %w", err)
	}

	if r.store.PatchStatus(evt.OrderID, evt.NewStatus, evt.UpdatedAt) {
		r.notify()
		return nil
	}

	if !r.engine.Matches(filter.Candidate{Status: evt.NewStatus}) {
		return nil
	}

	o, err := r.api.FetchOrder(ctx, evt.OrderID)
	if err != nil {
		r.logger.Error("failed to fetch order referenced by push", "order_id", evt.OrderID, "error", err)
		return nil
	}
	if o == nil {
		return nil
	}

	r.store.Set(o)
	r.notify()
	return nil
}

// handleItemReadiness applies the nested-patch granularity. A miss on
// the order or the item is silently ignored, not an error.
func (r *Reconciler) handleItemReadiness(ctx context.Context, data []byte) error {
	var evt ItemReadinessChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("failed to decode item readiness push: %w", err)
	}

	if !r.store.PatchItemReadiness(evt.OrderID, evt.OrderItemID, evt.ReadinessStatus) {
		r.logger.Debug("item readiness push for unloaded order or item", "order_id", evt.OrderID, "order_item_id", evt.OrderItemID)
		return nil
	}

	r.notify()
	return nil
}

func (r *Reconciler) handleSubscribed(ctx context.Context, data []byte) error {
	r.logger.Info("orders subscription confirmed")
	return nil
}

func (r *Reconciler) handleServerError(ctx context.Context, data []byte) error {
	var evt ErrorEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		r.logger.Error("orders channel reported an error", "raw", string(data))
		return nil
	}
	// Logged only: the next filter change or reconnect re-attempts.
	r.logger.Error("orders channel reported an error", "message", evt.Message)
	return nil
}

func (r *Reconciler) refreshOrder(ctx context.Context, orderID string) {
	o, err := r.api.FetchOrder(ctx, orderID)
	if err != nil {
		r.logger.Error("failed to refresh order after offline mutation", "order_id", orderID, "error", err)
		return
	}
	if o == nil {
		return
	}
	r.store.Set(o)
	r.notify()
}

func (r *Reconciler) notify() {
	r.mu.RLock()
	hooks := make([]func(), len(r.onChange))
	copy(hooks, r.onChange)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}
