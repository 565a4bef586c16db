package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"

	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/order"
	"github.com/appetiteclub/boardsync/internal/stream"
	"github.com/appetiteclub/boardsync/internal/subscription"
)

// Handler is the admin board's web surface: a JSON projection of the
// kanban columns, an SSE feed of board changes, and the mutating
// endpoints behind drag-and-drop. Rendering happens in the browser.
type Handler struct {
	logger       aqm.Logger
	reconciler   *order.Reconciler
	registry     *subscription.Registry
	restaurantID string
	connState    func() stream.ConnState

	sse *sseBroker
}

func NewHandler(
	reconciler *order.Reconciler,
	registry *subscription.Registry,
	restaurantID string,
	connState func() stream.ConnState,
	logger aqm.Logger,
) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	h := &Handler{
		logger:       logger,
		reconciler:   reconciler,
		registry:     registry,
		restaurantID: restaurantID,
		connState:    connState,
		sse:          newSSEBroker(logger),
	}

	reconciler.OnChange(h.publishBoard)

	return h
}

// RegisterRoutes mounts the board surface.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/board", h.Board)
	r.Get("/board/events", h.BoardEvents)
	r.Post("/board/refresh", h.Refresh)
	r.Put("/board/filters", h.UpdateFilters)
	r.Patch("/orders/{id}/status", h.ChangeOrderStatus)
	r.Patch("/orders/{id}/items/{itemID}/readiness", h.ChangeItemReadiness)
}

// boardView is the JSON shape the browser renders.
type boardView struct {
	Connection string       `json:"connection"`
	Columns    []columnView `json:"columns"`
}

type columnView struct {
	Bucket string          `json:"bucket"`
	Orders []orderCardView `json:"orders"`
}

type orderCardView struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	TableNumber int       `json:"table_number"`
	TotalAmount int       `json:"total_amount"`
	ItemsCount  int       `json:"items_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Board returns the current projection of the authoritative
// collection into kanban columns.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.boardView())
}

// BoardEvents streams a fresh board projection to the browser on every
// change of the authoritative collection.
func (h *Handler) BoardEvents(w http.ResponseWriter, r *http.Request) {
	h.sse.serve(w, r, func() []byte {
		payload, _ := json.Marshal(h.boardView())
		return payload
	})
}

// Refresh discards the local collection and reloads it over REST under
// the current filters. The manual escape hatch when the board looks
// suspect.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.reconciler.Warm(r.Context(), h.restaurantID); err != nil {
		h.logger.Error("manual refresh failed", "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to reload orders")
		return
	}
	h.writeJSON(w, http.StatusOK, h.boardView())
}

// UpdateFilters replaces the filter state, reloads the collection over
// REST, and lets the registry decide whether the subscription needs
// re-announcing.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid filter payload")
		return
	}

	state, err := req.toState()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.reconciler.ApplyFilters(r.Context(), h.restaurantID, state); err != nil {
		h.logger.Error("failed to apply filters", "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to reload orders")
		return
	}

	if err := h.registry.Subscribe(h.restaurantID, filter.BuildSet(state)); err != nil {
		// Subscription errors stay internal: the board keeps working
		// against the freshly loaded REST state.
		h.logger.Error("failed to announce filtered subscription", "error", err)
	}

	h.writeJSON(w, http.StatusOK, h.boardView())
}

// ChangeOrderStatus backs the drag-and-drop move between columns.
// Failures surface to the user; the optimistic edit is already rolled
// back by the time this responds.
func (h *Handler) ChangeOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		h.writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	if err := h.reconciler.ChangeStatus(r.Context(), orderID, req.Status); err != nil {
		h.logger.Error("order status change failed", "order_id", orderID, "error", err)
		h.writeError(w, http.StatusBadGateway, "could not update order status")
		return
	}

	h.writeJSON(w, http.StatusOK, h.boardView())
}

// ChangeItemReadiness backs the kitchen readiness toggle.
func (h *Handler) ChangeItemReadiness(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	itemID := chi.URLParam(r, "itemID")

	var req struct {
		ReadinessStatus string `json:"readiness_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReadinessStatus == "" {
		h.writeError(w, http.StatusBadRequest, "readiness_status is required")
		return
	}

	if err := h.reconciler.ChangeItemReadiness(r.Context(), orderID, itemID, req.ReadinessStatus); err != nil {
		h.logger.Error("item readiness change failed", "order_id", orderID, "order_item_id", itemID, "error", err)
		h.writeError(w, http.StatusBadGateway, "could not update item readiness")
		return
	}

	h.writeJSON(w, http.StatusOK, h.boardView())
}

func (h *Handler) boardView() boardView {
	board := order.Project(h.reconciler.Store().All())

	view := boardView{Connection: h.connState().String()}
	for _, bucket := range order.Buckets {
		column := columnView{Bucket: string(bucket), Orders: []orderCardView{}}
		for _, o := range board[bucket] {
			column.Orders = append(column.Orders, orderCardView{
				ID:          o.ID,
				Status:      o.Status,
				TableNumber: o.TableNumber,
				TotalAmount: o.TotalAmount,
				ItemsCount:  len(o.Items),
				CreatedAt:   o.CreatedAt,
				UpdatedAt:   o.UpdatedAt,
			})
		}
		view.Columns = append(view.Columns, column)
	}
	return view
}

func (h *Handler) publishBoard() {
	payload, err := json.Marshal(h.boardView())
	if err != nil {
		h.logger.Error("failed to encode board view", "error", err)
		return
	}
	h.sse.broadcast(payload)
}

type filterRequest struct {
	Statuses       []string `json:"statuses"`
	TableNumbers   []int    `json:"tableNumbers"`
	AmountBuckets  []string `json:"amountBuckets"`
	PaymentMethods []string `json:"paymentMethods"`
	DateFrom       string   `json:"dateFrom"`
	DateTo         string   `json:"dateTo"`
}

func (req filterRequest) toState() (filter.State, error) {
	state := filter.State{
		Statuses:       req.Statuses,
		TableNumbers:   req.TableNumbers,
		AmountBuckets:  req.AmountBuckets,
		PaymentMethods: req.PaymentMethods,
	}

	if req.DateFrom != "" {
		t, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return filter.State{}, errInvalidDate("dateFrom")
		}
		state.DateFrom = t
	}
	if req.DateTo != "" {
		t, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return filter.State{}, errInvalidDate("dateTo")
		}
		state.DateTo = t
	}

	return state, nil
}

type errInvalidDate string

func (e errInvalidDate) Error() string {
	return string(e) + " must be formatted as YYYY-MM-DD"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
