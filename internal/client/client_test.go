package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/pkg/api"
)

func TestSubmitAdjustment_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/adjustments" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("Authorization = %q", got)
		}
		var req api.AdjustmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.AdjustmentResponse{
			Status:            "committed",
			Sequence:          1,
			ResultingQuantity: req.Amount,
			ResultingVersion:  1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "token-1")
	resp, err := c.SubmitAdjustment(context.Background(), api.AdjustmentRequest{
		ItemID:         "vodka",
		LocationID:     "main-bar",
		Kind:           "ADD",
		Amount:         decimal.NewFromInt(5),
		IdempotencyKey: "a1",
	})
	if err != nil {
		t.Fatalf("SubmitAdjustment: %v", err)
	}
	if resp.Status != "committed" || resp.Sequence != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDo_DecodesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{
			Error:   "insufficient_stock",
			Message: "subtract 5 from 2",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.SubmitAdjustment(context.Background(), api.AdjustmentRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "insufficient_stock" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestWebsocketURL(t *testing.T) {
	c := New("https://stock.example.com/base/", "tok")
	u, err := c.websocketURL()
	if err != nil {
		t.Fatalf("websocketURL: %v", err)
	}
	if u != "wss://stock.example.com/base/ws?token=tok" {
		t.Errorf("url = %q", u)
	}

	c = New("ftp://nope", "")
	if _, err := c.websocketURL(); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}
