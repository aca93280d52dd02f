package client

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/rl1809/stock-sync/pkg/api"
)

var (
	bucketMeta    = []byte("meta")
	bucketPending = []byte("pending")

	keyClientID  = []byte("client_id")
	keyWatermark = []byte("watermark")
)

// Outbox buffers adjustments recorded while the terminal is offline.
// Entries are keyed by a big-endian bucket sequence, so iteration order
// is the order the user recorded them, which is the order the server
// must replay them in.
type Outbox struct {
	db *bbolt.DB
}

// PendingEntry is one buffered adjustment plus its outbox key.
type PendingEntry struct {
	Key        uint64
	Adjustment api.AdjustmentRequest
}

func OpenOutbox(path string) (*Outbox, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketPending); err != nil {
			return fmt.Errorf("create pending bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// ClientID returns this terminal's stable identity, creating it on
// first use.
func (o *Outbox) ClientID() (string, error) {
	var id string
	err := o.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyClientID); v != nil {
			id = string(v)
			return nil
		}
		id = uuid.NewString()
		return meta.Put(keyClientID, []byte(id))
	})
	if err != nil {
		return "", fmt.Errorf("client id: %w", err)
	}
	return id, nil
}

// Watermark returns the highest server sequence this terminal has seen.
func (o *Outbox) Watermark() (int64, error) {
	var mark int64
	err := o.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyWatermark); v != nil {
			mark = int64(binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}
	return mark, nil
}

// SetWatermark records the highest server sequence seen, never moving
// backwards.
func (o *Outbox) SetWatermark(seq int64) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyWatermark); v != nil {
			if current := int64(binary.BigEndian.Uint64(v)); current >= seq {
				return nil
			}
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(seq))
		return meta.Put(keyWatermark, buf[:])
	})
}

// Enqueue appends an adjustment to the pending buffer. The idempotency
// key must already be set: it is what makes a later replay safe to
// retry.
func (o *Outbox) Enqueue(adj api.AdjustmentRequest) (uint64, error) {
	if adj.IdempotencyKey == "" {
		return 0, fmt.Errorf("adjustment has no idempotency key")
	}

	var key uint64
	err := o.db.Update(func(tx *bbolt.Tx) error {
		pending := tx.Bucket(bucketPending)
		seq, err := pending.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		key = seq

		data, err := json.Marshal(adj)
		if err != nil {
			return fmt.Errorf("marshal adjustment: %w", err)
		}
		var k [8]byte
		binary.BigEndian.PutUint64(k[:], seq)
		return pending.Put(k[:], data)
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return key, nil
}

// Pending returns the buffered adjustments in recorded order.
func (o *Outbox) Pending() ([]PendingEntry, error) {
	var entries []PendingEntry
	err := o.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPending).ForEach(func(k, v []byte) error {
			var adj api.AdjustmentRequest
			if err := json.Unmarshal(v, &adj); err != nil {
				return fmt.Errorf("unmarshal pending entry: %w", err)
			}
			entries = append(entries, PendingEntry{
				Key:        binary.BigEndian.Uint64(k),
				Adjustment: adj,
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read pending: %w", err)
	}
	return entries, nil
}

// Ack deletes acknowledged entries. Called for outcomes the server has
// settled (committed, duplicate, terminally rejected); transient
// failures stay buffered for the next replay.
func (o *Outbox) Ack(keys []uint64) error {
	return o.db.Update(func(tx *bbolt.Tx) error {
		pending := tx.Bucket(bucketPending)
		for _, key := range keys {
			var k [8]byte
			binary.BigEndian.PutUint64(k[:], key)
			if err := pending.Delete(k[:]); err != nil {
				return fmt.Errorf("delete entry %d: %w", key, err)
			}
		}
		return nil
	})
}

// Len reports how many adjustments are buffered.
func (o *Outbox) Len() (int, error) {
	n := 0
	err := o.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketPending).Stats().KeyN
		return nil
	})
	return n, err
}
