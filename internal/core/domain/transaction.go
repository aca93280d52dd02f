package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TxKind selects the merge rule for a stock change. ADD and SUBTRACT are
// commutative: the net effect of a set of deltas is independent of the
// order they land in. SET is not commutative; the last committed SET wins
// over anything committed before it.
type TxKind string

const (
	KindAdd      TxKind = "ADD"
	KindSubtract TxKind = "SUBTRACT"
	KindSet      TxKind = "SET"
)

// ParseKind maps a wire string to a TxKind.
func ParseKind(s string) (TxKind, error) {
	switch TxKind(s) {
	case KindAdd, KindSubtract, KindSet:
		return TxKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, s)
	}
}

// Reason is an audit label carried on transactions. It never affects how a
// change is applied; only Kind does.
type Reason string

const (
	ReasonSale       Reason = "sale"
	ReasonReceive    Reason = "receive"
	ReasonWaste      Reason = "waste"
	ReasonTransfer   Reason = "transfer"
	ReasonCount      Reason = "count"
	ReasonAdjustment Reason = "adjustment"
)

func ValidReason(r Reason) bool {
	switch r {
	case ReasonSale, ReasonReceive, ReasonWaste, ReasonTransfer, ReasonCount, ReasonAdjustment:
		return true
	}
	return false
}

// Transaction is an immutable, committed record of one accepted stock
// change. Seq is assigned per key at commit time and equals
// ResultingVersion by construction, which keeps both gap-free.
type Transaction struct {
	ID             string
	Seq            int64
	IdempotencyKey string
	ItemID         string
	LocationID     string
	Kind           TxKind
	Amount         decimal.Decimal
	Reason         Reason
	OriginUserID   string
	OriginClientID string
	ClientTime     time.Time
	ServerTime     time.Time
	ResultingQty   decimal.Decimal
	ResultingVer   int64
	Notes          string
}

func (t *Transaction) Key() StockKey {
	return StockKey{ItemID: t.ItemID, LocationID: t.LocationID}
}

const (
	maxIdempotencyKeyLen = 128
	maxNotesLen          = 500
)

// Adjustment is a proposed stock change, online or replayed from an
// offline buffer. The idempotency key must be generated once, when the
// adjustment is first built, so resubmission never double-applies.
type Adjustment struct {
	ItemID         string
	LocationID     string
	Kind           TxKind
	Amount         decimal.Decimal
	Reason         Reason
	IdempotencyKey string
	UserID         string
	ClientID       string
	ClientTime     time.Time
	Notes          string
}

func (a *Adjustment) Key() StockKey {
	return StockKey{ItemID: a.ItemID, LocationID: a.LocationID}
}

// Validate rejects malformed proposals before they reach the ledger.
// Amounts are always carried positive; the sign comes from Kind. SET 0 is
// legal: it is how a count zeroes out a record.
func (a *Adjustment) Validate() error {
	if a.ItemID == "" {
		return fmt.Errorf("%w: item id is required", ErrValidation)
	}
	if a.LocationID == "" {
		return fmt.Errorf("%w: location id is required", ErrValidation)
	}
	if a.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrValidation)
	}
	if len(a.IdempotencyKey) > maxIdempotencyKeyLen {
		return fmt.Errorf("%w: idempotency key exceeds %d bytes", ErrValidation, maxIdempotencyKeyLen)
	}
	if a.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(a.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes exceed %d bytes", ErrValidation, maxNotesLen)
	}
	if a.Reason != "" && !ValidReason(a.Reason) {
		return fmt.Errorf("%w: unknown reason %q", ErrValidation, a.Reason)
	}
	switch a.Kind {
	case KindAdd, KindSubtract:
		if !a.Amount.IsPositive() {
			return fmt.Errorf("%w: %s amount must be positive", ErrValidation, a.Kind)
		}
	case KindSet:
		if a.Amount.IsNegative() {
			return fmt.Errorf("%w: SET amount must not be negative", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrValidation, a.Kind)
	}
	return nil
}
