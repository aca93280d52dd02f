// Package stream publishes committed transactions to Kafka for the
// analytics and notification consumers that live outside this system.
// The feed is decoupled from the commit path: events go through a
// bounded channel drained by workers, and a full channel drops the
// event with a warning. The ledger stays the source of truth, so a feed
// consumer that misses events re-syncs through the ledger read path.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/pkg/api"
)

const (
	writeTimeout = 10 * time.Second

	// event wrapper types on the topic
	eventCommit = "transaction_committed"
	eventAlert  = "low_stock_alert"
)

// messageWriter is the slice of *kafka.Writer the feed uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// event is the JSON shape written to the topic.
type event struct {
	Type        string           `json:"type"`
	Transaction *api.Transaction `json:"transaction,omitempty"`
	Stock       *api.Stock       `json:"stock,omitempty"`
	Alert       *api.Alert       `json:"alert,omitempty"`
}

type Feed struct {
	writer messageWriter
	logger *slog.Logger

	events chan kafka.Message

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a feed against the given brokers. Messages are keyed by
// item|location with a hash balancer, which keeps per-key order on one
// partition while spreading keys across the topic.
func New(brokers []string, topic string, workers, queueSize int, logger *slog.Logger) *Feed {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newFeed(w, workers, queueSize, logger)
}

func newFeed(w messageWriter, workers, queueSize int, logger *slog.Logger) *Feed {
	if workers <= 0 {
		workers = 1
	}
	f := &Feed{
		writer: w,
		logger: logger,
		events: make(chan kafka.Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
	return f
}

// PublishCommit enqueues a committed transaction for the feed. Never
// blocks; a full queue drops the event with a warning.
func (f *Feed) PublishCommit(tx *domain.Transaction, rec *domain.StockRecord) {
	f.publish(tx.Key(), event{
		Type:        eventCommit,
		Transaction: api.TransactionFromDomain(tx),
		Stock:       api.StockFromDomain(rec),
	})
}

// PublishAlert enqueues a low stock alert for the feed.
func (f *Feed) PublishAlert(alert *domain.LowStockAlert) {
	key := domain.StockKey{ItemID: alert.ItemID, LocationID: alert.LocationID}
	f.publish(key, event{
		Type:  eventAlert,
		Alert: api.AlertFromDomain(alert),
	})
}

func (f *Feed) publish(key domain.StockKey, ev event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		f.logger.Error("marshal feed event", "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(key.String()),
		Value: payload,
	}
	select {
	case f.events <- msg:
	default:
		f.logger.Warn("feed queue full, dropping event", "key", key.String(), "type", ev.Type)
	}
}

func (f *Feed) worker() {
	defer f.wg.Done()
	for msg := range f.events {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := f.writer.WriteMessages(ctx, msg); err != nil {
			f.logger.Warn("feed write failed", "key", string(msg.Key), "error", err)
		}
		cancel()
	}
}

// Close drains queued events, stops the workers and closes the writer.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.events)
		f.wg.Wait()
		err = f.writer.Close()
	})
	return err
}
