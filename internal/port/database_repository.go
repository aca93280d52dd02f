package port

import (
	"context"

	"github.com/rl1809/stock-sync/internal/core/domain"
)

type Ledger interface {
	// Append commits tx together with the stock row it produces in one SQL
	// transaction, guarded by expectedVersion for optimistic locking.
	// Returns ErrVersionConflict when the guard misses and
	// ErrDuplicateIdempotencyKey when tx.IdempotencyKey was already committed.
	Append(ctx context.Context, tx *domain.Transaction, expectedVersion int64) error

	// FindByIdempotencyKey returns the committed transaction for the key,
	// ErrNotFound when the key was never committed
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)

	// ReadSince returns committed transactions for the key with seq > afterSeq,
	// ordered by seq ascending, at most limit entries
	ReadSince(ctx context.Context, key domain.StockKey, afterSeq int64, limit int) ([]*domain.Transaction, error)
}

type StockStore interface {
	// GetRecord retrieves the authoritative record, ErrNotFound before the
	// key's first committed transaction
	GetRecord(ctx context.Context, key domain.StockKey) (*domain.StockRecord, error)

	// ListByLocation retrieves every record held at a location
	ListByLocation(ctx context.Context, locationID string) ([]*domain.StockRecord, error)
}

type Catalog interface {
	// GetItem retrieves a catalog item by ID, ErrNotFound for unknown items
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	// GetLocation retrieves a location by ID, ErrNotFound for unknown locations
	GetLocation(ctx context.Context, locationID string) (*domain.Location, error)

	// LowStock lists items at or under their reorder point at a location
	LowStock(ctx context.Context, locationID string) ([]*domain.LowStockAlert, error)
}
