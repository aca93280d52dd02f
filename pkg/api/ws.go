package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// WebSocket message types. Clients send subscribe/unsubscribe; the server
// sends everything else.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypeSubscribed  = "subscribed"
	WSTypeStockUpdate = "stock_update"
	WSTypeTransaction = "transaction"
	WSTypeStockAlert  = "stock_alert"
)

// WSEnvelope carries just the type tag, for sniffing an incoming frame
// before decoding it into its concrete shape.
type WSEnvelope struct {
	Type string `json:"type"`
}

// WSClientMessage is what a terminal sends over the socket. A subscribe
// replaces the session's previous filter wholesale; an unsubscribe clears
// it. An empty item filter means every item at the subscribed locations.
type WSClientMessage struct {
	Type        string   `json:"type"`
	LocationIDs []string `json:"location_ids,omitempty"`
	ItemIDs     []string `json:"item_ids,omitempty"`
}

// WSSubscribed acknowledges the filter the server is now applying.
type WSSubscribed struct {
	Type        string   `json:"type"`
	LocationIDs []string `json:"location_ids"`
	ItemIDs     []string `json:"item_ids,omitempty"`
}

// WSStockUpdate announces the new authoritative state of one key.
// Delivery is at-least-once and best-effort; a client that observes a
// sequence gap must catch up through the ledger read endpoint.
type WSStockUpdate struct {
	Type       string          `json:"type"`
	ItemID     string          `json:"item_id"`
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Version    int64           `json:"version"`
	Sequence   int64           `json:"sequence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// WSTransaction carries the full committed transaction.
type WSTransaction struct {
	Type string `json:"type"`
	Transaction
}

// WSStockAlert announces an item at or under its reorder point.
type WSStockAlert struct {
	Type string `json:"type"`
	Alert
}
