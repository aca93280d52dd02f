package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/internal/core/domain"
)

// Stock is the wire form of one stock record.
type Stock struct {
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Version    int64           `json:"version"`
	LastTxID   string          `json:"last_tx_id,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func StockFromDomain(rec *domain.StockRecord) *Stock {
	return &Stock{
		ItemID:     rec.ItemID,
		LocationID: rec.LocationID,
		Quantity:   rec.Quantity,
		Version:    rec.Version,
		LastTxID:   rec.LastTxID,
		UpdatedAt:  rec.UpdatedAt,
	}
}

// Transaction is the wire form of one committed ledger entry.
type Transaction struct {
	ID                string          `json:"id"`
	Seq               int64           `json:"seq"`
	IdempotencyKey    string          `json:"idempotency_key"`
	ItemID            string          `json:"item_id"`
	LocationID        string          `json:"location_id"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
	OriginUserID      string          `json:"origin_user_id"`
	OriginClientID    string          `json:"origin_client_id,omitempty"`
	ClientTime        time.Time       `json:"client_time"`
	ServerTime        time.Time       `json:"server_time"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	ResultingVersion  int64           `json:"resulting_version"`
	Notes             string          `json:"notes,omitempty"`
}

func TransactionFromDomain(t *domain.Transaction) *Transaction {
	return &Transaction{
		ID:                t.ID,
		Seq:               t.Seq,
		IdempotencyKey:    t.IdempotencyKey,
		ItemID:            t.ItemID,
		LocationID:        t.LocationID,
		Kind:              string(t.Kind),
		Amount:            t.Amount,
		Reason:            string(t.Reason),
		OriginUserID:      t.OriginUserID,
		OriginClientID:    t.OriginClientID,
		ClientTime:        t.ClientTime,
		ServerTime:        t.ServerTime,
		ResultingQuantity: t.ResultingQty,
		ResultingVersion:  t.ResultingVer,
		Notes:             t.Notes,
	}
}

// Alert is the wire form of a low stock alert.
type Alert struct {
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	LocationID   string          `json:"location_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	RaisedAt     time.Time       `json:"raised_at"`
}

func AlertFromDomain(a *domain.LowStockAlert) *Alert {
	return &Alert{
		ItemID:       a.ItemID,
		ItemName:     a.ItemName,
		LocationID:   a.LocationID,
		Quantity:     a.Quantity,
		ReorderPoint: a.ReorderPoint,
		RaisedAt:     a.RaisedAt,
	}
}
