package domain

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

func TestApply_Add(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")

	qty, err := r.Apply(KindAdd, decimal.RequireFromString("2.5"))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !qty.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected 2.5, got %s", qty)
	}
}

func TestApply_Subtract(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")
	r.Quantity = decimal.NewFromInt(10)

	qty, err := r.Apply(KindSubtract, decimal.NewFromInt(4))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !qty.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected 6, got %s", qty)
	}
}

func TestApply_SubtractBelowZero(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")
	r.Quantity = decimal.NewFromInt(3)

	_, err := r.Apply(KindSubtract, decimal.NewFromInt(5))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got: %v", err)
	}

	// Failed apply must not touch the record.
	if !r.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("quantity changed on failed apply: %s", r.Quantity)
	}
}

func TestApply_SubtractToZero(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")
	r.Quantity = decimal.NewFromInt(5)

	qty, err := r.Apply(KindSubtract, decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !qty.IsZero() {
		t.Errorf("expected 0, got %s", qty)
	}
}

func TestApply_Set(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")
	r.Quantity = decimal.NewFromInt(17)

	qty, err := r.Apply(KindSet, decimal.RequireFromString("12.75"))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !qty.Equal(decimal.RequireFromString("12.75")) {
		t.Errorf("expected 12.75, got %s", qty)
	}
}

func TestApply_SetToZero(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")
	r.Quantity = decimal.NewFromInt(3)

	qty, err := r.Apply(KindSet, decimal.Zero)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !qty.IsZero() {
		t.Errorf("expected 0, got %s", qty)
	}
}

func TestApply_UnknownKind(t *testing.T) {
	r := ZeroRecord("item-1", "loc-1")

	_, err := r.Apply(TxKind("MERGE"), decimal.NewFromInt(1))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}

// Folding the same ADD/SUBTRACT deltas in any order must land on the
// same final quantity, as long as no intermediate step underflows.
func TestApply_DeltasCommute(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "n")

		kinds := make([]TxKind, n)
		amounts := make([]decimal.Decimal, n)
		subTotal := decimal.Zero
		for i := 0; i < n; i++ {
			// quarter-unit steps keep the arithmetic exact
			quarters := rapid.Int64Range(1, 400).Draw(rt, "quarters")
			amounts[i] = decimal.New(quarters*25, -2)
			if rapid.Bool().Draw(rt, "subtract") {
				kinds[i] = KindSubtract
				subTotal = subTotal.Add(amounts[i])
			} else {
				kinds[i] = KindAdd
			}
		}

		// base covers every subtract so no prefix can underflow
		base := subTotal

		fold := func(order []int) decimal.Decimal {
			r := ZeroRecord("item-1", "loc-1")
			r.Quantity = base
			for _, idx := range order {
				qty, err := r.Apply(kinds[idx], amounts[idx])
				if err != nil {
					rt.Fatalf("apply failed: %v", err)
				}
				r.Quantity = qty
			}
			return r.Quantity
		}

		forward := make([]int, n)
		shuffled := make([]int, n)
		for i := range forward {
			forward[i] = i
			shuffled[i] = i
		}
		seed := rapid.Int64().Draw(rt, "seed")
		rand.New(rand.NewSource(seed)).Shuffle(n, func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		a, b := fold(forward), fold(shuffled)
		if !a.Equal(b) {
			rt.Fatalf("order changed outcome: %s vs %s", a, b)
		}
	})
}

func TestZeroRecord(t *testing.T) {
	r := ZeroRecord("item-9", "loc-2")

	if r.Version != 0 {
		t.Errorf("expected version 0, got %d", r.Version)
	}
	if !r.Quantity.IsZero() {
		t.Errorf("expected zero quantity, got %s", r.Quantity)
	}
	if r.Key() != (StockKey{ItemID: "item-9", LocationID: "loc-2"}) {
		t.Errorf("unexpected key: %v", r.Key())
	}
}

func TestStockKey_String(t *testing.T) {
	k := StockKey{ItemID: "vodka-tito", LocationID: "main-bar"}
	if k.String() != "vodka-tito|main-bar" {
		t.Errorf("unexpected key string: %s", k.String())
	}
}
