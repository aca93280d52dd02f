package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/internal/core/domain"
)

// AdjustmentRequest proposes one stock change.
type AdjustmentRequest struct {
	ItemID         string          `json:"item_id"`
	LocationID     string          `json:"location_id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	ClientID       string          `json:"client_id,omitempty"`
	ClientTime     time.Time       `json:"client_time"`
	Notes          string          `json:"notes,omitempty"`
}

// ToDomain converts the request, stamping the authenticated user.
func (r *AdjustmentRequest) ToDomain(userID string) (*domain.Adjustment, error) {
	kind, err := domain.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	return &domain.Adjustment{
		ItemID:         r.ItemID,
		LocationID:     r.LocationID,
		Kind:           kind,
		Amount:         r.Amount,
		Reason:         domain.Reason(r.Reason),
		IdempotencyKey: r.IdempotencyKey,
		UserID:         userID,
		ClientID:       r.ClientID,
		ClientTime:     r.ClientTime,
		Notes:          r.Notes,
	}, nil
}

// AdjustmentResponse reports an accepted submission. Status is
// "committed" for a fresh transaction and "duplicate" when the
// idempotency key had already been committed; both carry the same
// authoritative outcome.
type AdjustmentResponse struct {
	Status            string          `json:"status"`
	TransactionID     string          `json:"transaction_id"`
	Sequence          int64           `json:"sequence"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	ResultingVersion  int64           `json:"resulting_version"`
	ServerTime        time.Time       `json:"server_time"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
