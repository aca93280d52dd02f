package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry. ParLevel and ReorderPoint drive low stock
// alerting; they do not constrain adjustments.
type Item struct {
	ID           string
	Name         string
	Barcode      string
	Unit         string
	ParLevel     decimal.Decimal
	ReorderPoint decimal.Decimal
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowReorder reports whether qty has crossed the item's reorder point.
// Items without a configured reorder point never alert.
func (i *Item) BelowReorder(qty decimal.Decimal) bool {
	if i.ReorderPoint.IsZero() {
		return false
	}
	return qty.LessThanOrEqual(i.ReorderPoint)
}

// Location is a physical stock holding area, e.g. a bar or storeroom.
type Location struct {
	ID        string
	Name      string
	Kind      string
	Active    bool
	CreatedAt time.Time
}

// LowStockAlert is raised when a committed transaction leaves an item at
// or under its reorder point at a location.
type LowStockAlert struct {
	ItemID       string
	ItemName     string
	LocationID   string
	Quantity     decimal.Decimal
	ReorderPoint decimal.Decimal
	RaisedAt     time.Time
}
