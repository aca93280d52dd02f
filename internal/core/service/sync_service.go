package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/internal/port"
)

// maxCommitAttempts bounds re-reads after a lost optimistic lock race.
// Conflicts within one process are already prevented by the key mutex,
// so more than one retry only happens with multiple server instances on
// the same database.
const maxCommitAttempts = 3

// SyncService is the single write path for stock. Every accepted change
// becomes a ledger transaction and a new record version; everything
// downstream (cache, hub, feed) observes commits and can never change
// their outcome.
type SyncService struct {
	ledger  port.Ledger
	store   port.StockStore
	catalog port.Catalog
	cache   port.Cache // optional, soft
	pubs    []port.Publisher
	locks   *keyMutex
	logger  *slog.Logger
}

func NewSyncService(ledger port.Ledger, store port.StockStore, catalog port.Catalog, cache port.Cache, logger *slog.Logger, pubs ...port.Publisher) *SyncService {
	return &SyncService{
		ledger:  ledger,
		store:   store,
		catalog: catalog,
		cache:   cache,
		pubs:    pubs,
		locks:   newKeyMutex(),
		logger:  logger,
	}
}

// Submit runs one adjustment through validate, dedupe, serialize, apply,
// commit. A resubmitted idempotency key returns the originally committed
// transaction together with domain.ErrDuplicateSubmission; callers treat
// that as success, not failure.
func (s *SyncService) Submit(ctx context.Context, adj *domain.Adjustment) (*domain.Transaction, error) {
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	item, err := s.catalog.GetItem(ctx, adj.ItemID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown item %q", domain.ErrValidation, adj.ItemID)
	}
	if err != nil {
		return nil, fmt.Errorf("item lookup: %w", err)
	}
	if !item.Active {
		return nil, fmt.Errorf("%w: item %q is inactive", domain.ErrValidation, adj.ItemID)
	}

	if _, err := s.catalog.GetLocation(ctx, adj.LocationID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown location %q", domain.ErrValidation, adj.LocationID)
		}
		return nil, fmt.Errorf("location lookup: %w", err)
	}

	if tx := s.cachedOutcome(ctx, adj.IdempotencyKey); tx != nil {
		return tx, domain.ErrDuplicateSubmission
	}
	tx, err := s.ledger.FindByIdempotencyKey(ctx, adj.IdempotencyKey)
	if err == nil {
		return tx, domain.ErrDuplicateSubmission
	}
	if !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("dedupe lookup: %w", err)
	}

	key := adj.Key()
	unlock := s.locks.Lock(key.String())
	defer unlock()

	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := s.store.GetRecord(ctx, key)
		if errors.Is(err, port.ErrNotFound) {
			rec = domain.ZeroRecord(adj.ItemID, adj.LocationID)
		} else if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}

		qty, err := rec.Apply(adj.Kind, adj.Amount)
		if err != nil {
			return nil, err
		}

		txn := buildTransaction(adj, rec.Version, qty)
		err = s.ledger.Append(ctx, txn, rec.Version)
		if errors.Is(err, port.ErrVersionConflict) {
			// another instance won the version race, re-read and recompute
			continue
		}
		if errors.Is(err, port.ErrDuplicateIdempotencyKey) {
			orig, ferr := s.ledger.FindByIdempotencyKey(ctx, adj.IdempotencyKey)
			if ferr != nil {
				return nil, fmt.Errorf("fetch original outcome: %w", ferr)
			}
			return orig, domain.ErrDuplicateSubmission
		}
		if err != nil {
			return nil, fmt.Errorf("append transaction: %w", err)
		}

		s.afterCommit(ctx, txn, item)
		return txn, nil
	}

	return nil, domain.ErrConcurrentModification
}

func buildTransaction(adj *domain.Adjustment, currentVersion int64, qty decimal.Decimal) *domain.Transaction {
	now := time.Now().UTC()
	clientTime := adj.ClientTime
	if clientTime.IsZero() {
		clientTime = now
	}
	reason := adj.Reason
	if reason == "" {
		reason = domain.ReasonAdjustment
	}
	return &domain.Transaction{
		ID:             uuid.NewString(),
		Seq:            currentVersion + 1,
		IdempotencyKey: adj.IdempotencyKey,
		ItemID:         adj.ItemID,
		LocationID:     adj.LocationID,
		Kind:           adj.Kind,
		Amount:         adj.Amount,
		Reason:         reason,
		OriginUserID:   adj.UserID,
		OriginClientID: adj.ClientID,
		ClientTime:     clientTime,
		ServerTime:     now,
		ResultingQty:   qty,
		ResultingVer:   currentVersion + 1,
		Notes:          adj.Notes,
	}
}

// afterCommit runs the soft side effects of a commit while the key is
// still held, which keeps cache writes and hub publishes in commit
// order. Failures here are logged and swallowed.
func (s *SyncService) afterCommit(ctx context.Context, txn *domain.Transaction, item *domain.Item) {
	rec := &domain.StockRecord{
		ItemID:     txn.ItemID,
		LocationID: txn.LocationID,
		Quantity:   txn.ResultingQty,
		Version:    txn.ResultingVer,
		LastTxID:   txn.ID,
		UpdatedAt:  txn.ServerTime,
	}

	if s.cache != nil {
		if err := s.cache.PutOutcome(ctx, txn); err != nil {
			s.logger.Warn("outcome cache write failed", "key", txn.IdempotencyKey, "error", err)
		}
		if err := s.cache.PutSnapshot(ctx, rec); err != nil {
			s.logger.Warn("snapshot cache write failed", "key", rec.Key().String(), "error", err)
		}
	}

	for _, p := range s.pubs {
		p.PublishCommit(txn, rec)
	}

	if item.BelowReorder(txn.ResultingQty) {
		alert := &domain.LowStockAlert{
			ItemID:       item.ID,
			ItemName:     item.Name,
			LocationID:   txn.LocationID,
			Quantity:     txn.ResultingQty,
			ReorderPoint: item.ReorderPoint,
			RaisedAt:     txn.ServerTime,
		}
		if s.cache != nil {
			if err := s.cache.PutAlert(ctx, alert); err != nil {
				s.logger.Warn("alert cache write failed", "key", rec.Key().String(), "error", err)
			}
		}
		for _, p := range s.pubs {
			p.PublishAlert(alert)
		}
	}
}

func (s *SyncService) cachedOutcome(ctx context.Context, idempotencyKey string) *domain.Transaction {
	if s.cache == nil {
		return nil
	}
	tx, err := s.cache.GetOutcome(ctx, idempotencyKey)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Warn("outcome cache read failed", "key", idempotencyKey, "error", err)
		}
		return nil
	}
	return tx
}

// GetStock returns the authoritative record for a key, preferring the
// snapshot cache. Known keys with no committed transactions yet read as
// the zero record; unknown items or locations are port.ErrNotFound.
func (s *SyncService) GetStock(ctx context.Context, key domain.StockKey) (*domain.StockRecord, error) {
	if _, err := s.catalog.GetItem(ctx, key.ItemID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetLocation(ctx, key.LocationID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		rec, err := s.cache.GetSnapshot(ctx, key)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Warn("snapshot cache read failed", "key", key.String(), "error", err)
		}
	}

	rec, err := s.store.GetRecord(ctx, key)
	if errors.Is(err, port.ErrNotFound) {
		return domain.ZeroRecord(key.ItemID, key.LocationID), nil
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.PutSnapshot(ctx, rec); err != nil {
			s.logger.Warn("snapshot cache write failed", "key", key.String(), "error", err)
		}
	}
	return rec, nil
}

// ListStock returns every record held at a location.
func (s *SyncService) ListStock(ctx context.Context, locationID string) ([]*domain.StockRecord, error) {
	if _, err := s.catalog.GetLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.store.ListByLocation(ctx, locationID)
}

// History returns committed transactions for a key with seq > afterSeq,
// in seq order. This is the catch-up read used after reconnects.
func (s *SyncService) History(ctx context.Context, key domain.StockKey, afterSeq int64, limit int) ([]*domain.Transaction, error) {
	return s.ledger.ReadSince(ctx, key, afterSeq, limit)
}

// LowStock lists items at or under their reorder point at a location.
func (s *SyncService) LowStock(ctx context.Context, locationID string) ([]*domain.LowStockAlert, error) {
	if _, err := s.catalog.GetLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.catalog.LowStock(ctx, locationID)
}
