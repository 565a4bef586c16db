package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/boardsync/internal/filter"
)

// API is the REST collaborator the reconciler falls back to when a
// push references an entity not locally cached, or when the channel is
// down at mutation time.
type API interface {
	FetchOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, restaurantID string, state filter.State) ([]Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateItemReadiness(ctx context.Context, orderID, itemID, readiness string) error
}

// DataAccess wraps the low-level order API.
type DataAccess struct {
	client *aqm.ServiceClient
}

func NewDataAccess(client *aqm.ServiceClient) *DataAccess {
	return &DataAccess{client: client}
}

func (da *DataAccess) FetchOrder(ctx context.Context, id string) (*Order, error) {
	if da == nil || da.client == nil {
		return nil, fmt.Errorf("order client not configured")
	}

	resp, err := da.client.Get(ctx, "orders", id)
	if err != nil {
		return nil, err
	}

	var o Order
	if err := decodeSuccessResponse(resp, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (da *DataAccess) ListOrders(ctx context.Context, restaurantID string, state filter.State) ([]Order, error) {
	if da == nil || da.client == nil {
		return nil, fmt.Errorf("order client not configured")
	}

	q := state.Query()
	q.Set("restaurant_id", restaurantID)

	resp, err := da.client.Request(ctx, "GET", "/orders?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := decodeSuccessResponse(resp, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

func (da *DataAccess) UpdateStatus(ctx context.Context, id, status string) error {
	if da == nil || da.client == nil {
		return fmt.Errorf("order client not configured")
	}
	if id == "" || status == "" {
		return fmt.Errorf("missing order status information")
	}

	path := fmt.Sprintf("/orders/%s/status", id)
	body := map[string]string{"status": status}
	if _, err := da.client.Request(ctx, "PATCH", path, body); err != nil {
		return err
	}
	return nil
}

func (da *DataAccess) UpdateItemReadiness(ctx context.Context, orderID, itemID, readiness string) error {
	if da == nil || da.client == nil {
		return fmt.Errorf("order client not configured")
	}
	if orderID == "" || itemID == "" || readiness == "" {
		return fmt.Errorf("missing item readiness information")
	}

	path := fmt.Sprintf("/orders/%s/items/%s/readiness", orderID, itemID)
	body := map[string]string{"readiness_status": readiness}
	if _, err := da.client.Request(ctx, "PATCH", path, body); err != nil {
		return err
	}
	return nil
}

// decodeSuccessResponse copies the dynamic response payload into dest.
func decodeSuccessResponse(resp *aqm.SuccessResponse, dest interface{}) error {
	if resp == nil {
		return errors.New("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
