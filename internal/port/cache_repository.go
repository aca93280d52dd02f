package port

import (
	"context"

	"github.com/rl1809/stock-sync/internal/core/domain"
)

// Cache is the Redis-backed soft layer in front of the ledger. MySQL stays
// authoritative: callers log cache errors and move on, they never fail a
// commit over one.
type Cache interface {
	// GetOutcome returns the cached committed transaction for an idempotency
	// key, ErrNotFound on miss
	GetOutcome(ctx context.Context, idempotencyKey string) (*domain.Transaction, error)

	// PutOutcome caches a committed transaction under its idempotency key
	PutOutcome(ctx context.Context, tx *domain.Transaction) error

	// GetSnapshot returns the cached stock record for a key, ErrNotFound on miss
	GetSnapshot(ctx context.Context, key domain.StockKey) (*domain.StockRecord, error)

	// PutSnapshot writes through the stock record after a commit
	PutSnapshot(ctx context.Context, rec *domain.StockRecord) error

	// PutAlert marks a low stock alert for external pollers
	PutAlert(ctx context.Context, alert *domain.LowStockAlert) error
}
