package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rl1809/stock-sync/internal/core/domain"
)

const (
	maxReplayBatch   = 1000
	replayHistoryCap = 200
)

// Replay applies a client's offline buffer. Entries for the same key are
// applied in the client's submitted order; distinct keys replay
// concurrently. Every entry runs the full Submit path, so a half-synced
// batch resubmitted later converges instead of double-applying.
func (s *SyncService) Replay(ctx context.Context, batch *domain.ReplayBatch) (*domain.ReplayResult, error) {
	if len(batch.Adjustments) > maxReplayBatch {
		return nil, fmt.Errorf("%w: batch exceeds %d entries", domain.ErrValidation, maxReplayBatch)
	}

	result := &domain.ReplayResult{
		Entries: make([]*domain.ReplayEntryResult, len(batch.Adjustments)),
		Records: make(map[domain.StockKey]*domain.StockRecord),
		History: make(map[domain.StockKey][]*domain.Transaction),
	}
	if len(batch.Adjustments) == 0 {
		return result, nil
	}

	// group entry indexes by key, client order preserved within each key
	groups := make(map[domain.StockKey][]int)
	var keys []domain.StockKey
	for i, adj := range batch.Adjustments {
		if adj.ClientID == "" {
			adj.ClientID = batch.ClientID
		}
		k := adj.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], i)
	}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(indexes []int) {
			defer wg.Done()
			for _, i := range indexes {
				result.Entries[i] = s.replayOne(ctx, i, batch.Adjustments[i])
			}
		}(groups[key])
	}
	wg.Wait()

	// committed entries stay committed even when catch-up reads fail,
	// so state and history errors are logged, never returned
	for _, key := range keys {
		rec, err := s.GetStock(ctx, key)
		if err != nil {
			s.logger.Warn("replay state read failed", "key", key.String(), "error", err)
			continue
		}
		result.Records[key] = rec

		txs, err := s.ledger.ReadSince(ctx, key, batch.Watermark, replayHistoryCap)
		if err != nil {
			s.logger.Warn("replay history read failed", "key", key.String(), "error", err)
			continue
		}
		result.History[key] = txs
	}

	return result, nil
}

func (s *SyncService) replayOne(ctx context.Context, index int, adj *domain.Adjustment) *domain.ReplayEntryResult {
	res := &domain.ReplayEntryResult{Index: index}

	if err := ctx.Err(); err != nil {
		res.Outcome = domain.OutcomeRejected
		res.Reason = "canceled"
		return res
	}

	tx, err := s.Submit(ctx, adj)
	switch {
	case err == nil:
		res.Outcome = domain.OutcomeCommitted
		res.Tx = tx
	case errors.Is(err, domain.ErrDuplicateSubmission):
		res.Outcome = domain.OutcomeDuplicate
		res.Tx = tx
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.Outcome = domain.OutcomeRejected
		res.Reason = "canceled"
	default:
		res.Outcome = domain.OutcomeRejected
		res.Reason = err.Error()
	}
	return res
}
