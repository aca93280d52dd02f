package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/internal/port"
)

const (
	outcomeKeyPrefix = "outcome:"
	stockKeyPrefix   = "stock:"
	alertKeyPrefix   = "alert:"

	outcomeTTL  = 24 * time.Hour
	snapshotTTL = time.Hour
	alertTTL    = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetOutcome(ctx context.Context, idempotencyKey string) (*domain.Transaction, error) {
	data, err := r.client.Get(ctx, outcomeKeyPrefix+idempotencyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var t domain.Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *RedisAdapter) PutOutcome(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, outcomeKeyPrefix+tx.IdempotencyKey, data, outcomeTTL).Err()
}

func (r *RedisAdapter) GetSnapshot(ctx context.Context, key domain.StockKey) (*domain.StockRecord, error) {
	data, err := r.client.Get(ctx, stockKeyPrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec domain.StockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *RedisAdapter) PutSnapshot(ctx context.Context, rec *domain.StockRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, stockKeyPrefix+rec.Key().String(), data, snapshotTTL).Err()
}

func (r *RedisAdapter) PutAlert(ctx context.Context, alert *domain.LowStockAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	key := alertKeyPrefix + alert.LocationID + ":" + alert.ItemID
	return r.client.Set(ctx, key, data, alertTTL).Err()
}
