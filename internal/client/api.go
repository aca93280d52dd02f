package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rl1809/stock-sync/pkg/api"
)

// SubmitAdjustment sends one adjustment online. A duplicate reply is
// returned as a normal response with Status "duplicate".
func (c *Client) SubmitAdjustment(ctx context.Context, req api.AdjustmentRequest) (*api.AdjustmentResponse, error) {
	var out api.AdjustmentResponse
	if err := c.do(ctx, http.MethodPost, "/api/adjustments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Replay submits a buffered batch for server-side replay.
func (c *Client) Replay(ctx context.Context, req api.ReplayRequest) (*api.ReplayResponse, error) {
	var out api.ReplayResponse
	if err := c.do(ctx, http.MethodPost, "/api/replay", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stock fetches the current record for one key.
func (c *Client) Stock(ctx context.Context, locationID, itemID string) (*api.Stock, error) {
	var out api.Stock
	path := fmt.Sprintf("/api/stock/%s/%s", locationID, itemID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StockByLocation lists every record at a location.
func (c *Client) StockByLocation(ctx context.Context, locationID string) ([]*api.Stock, error) {
	var out []*api.Stock
	path := fmt.Sprintf("/api/stock/%s", locationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// History reads committed transactions for a key past a sequence
// watermark. This is the catch-up path after a reconnect.
func (c *Client) History(ctx context.Context, locationID, itemID string, since int64, limit int) ([]*api.Transaction, error) {
	var out []*api.Transaction
	path := fmt.Sprintf("/api/ledger/%s/%s?since=%d&limit=%d", locationID, itemID, since, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Alerts lists items at or under their reorder point at a location.
func (c *Client) Alerts(ctx context.Context, locationID string) ([]*api.Alert, error) {
	var out []*api.Alert
	path := fmt.Sprintf("/api/locations/%s/alerts", locationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
