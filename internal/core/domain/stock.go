package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifies the unit of serialization: one item at one location.
// Proposals for the same key are applied strictly one at a time; different
// keys never serialize against each other.
type StockKey struct {
	ItemID     string
	LocationID string
}

func (k StockKey) String() string {
	return k.ItemID + "|" + k.LocationID
}

// StockRecord is the authoritative current quantity for one item at one
// location. Version is bumped by exactly one for every committed transaction,
// so it is strictly increasing and gap-free per key.
type StockRecord struct {
	ItemID     string
	LocationID string
	Quantity   decimal.Decimal
	Version    int64 // optimistic locking
	LastTxID   string
	UpdatedAt  time.Time
}

func (r *StockRecord) Key() StockKey {
	return StockKey{ItemID: r.ItemID, LocationID: r.LocationID}
}

// ZeroRecord is the implied state of a key before its first committed
// transaction: quantity 0 at version 0. Records are created lazily and
// never deleted afterwards.
func ZeroRecord(itemID, locationID string) *StockRecord {
	return &StockRecord{
		ItemID:     itemID,
		LocationID: locationID,
		Quantity:   decimal.Zero,
		Version:    0,
	}
}

// Apply computes the quantity after applying kind/amount to the current
// quantity. ADD and SUBTRACT are commutative deltas; SET overwrites at
// commit time, regardless of any client-side timestamp. A SUBTRACT that
// would drive the quantity negative is reported, never clamped, so the
// ledger stays an honest record of what was accepted.
func (r *StockRecord) Apply(kind TxKind, amount decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case KindAdd:
		return r.Quantity.Add(amount), nil
	case KindSubtract:
		next := r.Quantity.Sub(amount)
		if next.IsNegative() {
			return decimal.Decimal{}, fmt.Errorf("subtract %s from %s: %w", amount, r.Quantity, ErrInsufficientStock)
		}
		return next, nil
	case KindSet:
		return amount, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
}
