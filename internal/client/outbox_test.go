package client

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/pkg/api"
)

func openTestOutbox(t *testing.T) *Outbox {
	t.Helper()
	o, err := OpenOutbox(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	t.Cleanup(func() { o.Close() })
	return o
}

func pendingAdjustment(idem string, amount int64) api.AdjustmentRequest {
	return api.AdjustmentRequest{
		ItemID:         "vodka",
		LocationID:     "main-bar",
		Kind:           "ADD",
		Amount:         decimal.NewFromInt(amount),
		IdempotencyKey: idem,
		ClientTime:     time.Now().UTC(),
	}
}

func TestOutbox_FIFOOrder(t *testing.T) {
	o := openTestOutbox(t)

	for i, idem := range []string{"a", "b", "c"} {
		if _, err := o.Enqueue(pendingAdjustment(idem, int64(i+1))); err != nil {
			t.Fatalf("Enqueue %s: %v", idem, err)
		}
	}

	entries, err := o.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].Adjustment.IdempotencyKey != want {
			t.Errorf("entry %d key = %q, want %q", i, entries[i].Adjustment.IdempotencyKey, want)
		}
	}
}

func TestOutbox_AckRemovesOnlyAcked(t *testing.T) {
	o := openTestOutbox(t)

	k1, _ := o.Enqueue(pendingAdjustment("a", 1))
	o.Enqueue(pendingAdjustment("b", 2))
	k3, _ := o.Enqueue(pendingAdjustment("c", 3))

	if err := o.Ack([]uint64{k1, k3}); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	entries, err := o.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(entries) != 1 || entries[0].Adjustment.IdempotencyKey != "b" {
		t.Fatalf("entries = %+v, want only b", entries)
	}
}

func TestOutbox_RejectsMissingIdempotencyKey(t *testing.T) {
	o := openTestOutbox(t)

	adj := pendingAdjustment("", 1)
	if _, err := o.Enqueue(adj); err == nil {
		t.Fatal("expected error for missing idempotency key")
	}
}

func TestOutbox_ClientIDStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbox.db")
	o, err := OpenOutbox(path)
	if err != nil {
		t.Fatalf("OpenOutbox: %v", err)
	}
	first, err := o.ClientID()
	if err != nil {
		t.Fatalf("ClientID: %v", err)
	}
	o.Close()

	o, err = OpenOutbox(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer o.Close()
	second, err := o.ClientID()
	if err != nil {
		t.Fatalf("ClientID after reopen: %v", err)
	}
	if first == "" || first != second {
		t.Errorf("client id changed across reopen: %q vs %q", first, second)
	}
}

func TestOutbox_WatermarkNeverRegresses(t *testing.T) {
	o := openTestOutbox(t)

	if err := o.SetWatermark(10); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	if err := o.SetWatermark(4); err != nil {
		t.Fatalf("SetWatermark lower: %v", err)
	}
	mark, err := o.Watermark()
	if err != nil {
		t.Fatalf("Watermark: %v", err)
	}
	if mark != 10 {
		t.Errorf("watermark = %d, want 10", mark)
	}
}
