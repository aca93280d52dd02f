// Command stress_test fires concurrent adjustments at a running server
// and checks that the final quantity matches the sum of the committed
// deltas. The target item and location must already exist in the
// catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/internal/auth"
	"github.com/rl1809/stock-sync/internal/client"
	"github.com/rl1809/stock-sync/pkg/api"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	secret := flag.String("secret", "dev-secret-change-me", "JWT secret for minting the test token")
	item := flag.String("item", "stress-item", "item ID")
	location := flag.String("location", "stress-bar", "location ID")
	total := flag.Int("requests", 500, "number of adjustments to fire")
	workers := flag.Int("workers", 50, "concurrent submitters")
	flag.Parse()

	token, err := auth.Mint([]byte(*secret), "stress", auth.RoleStaff, time.Hour)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	c := client.New(*server, token)
	ctx := context.Background()

	before, err := c.Stock(ctx, *location, *item)
	if err != nil {
		log.Fatalf("read initial stock (does %s@%s exist in the catalog?): %v", *item, *location, err)
	}
	log.Printf("initial: %s@%s = %s (version %d)", *item, *location, before.Quantity, before.Version)

	var committed, duplicates, rejected, failed atomic.Int64
	var committedSum atomic.Int64

	jobs := make(chan int, *total)
	for i := 0; i < *total; i++ {
		jobs <- i
	}
	close(jobs)

	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// alternate adds and subtracts, biased so the
				// quantity trends upward instead of bottoming out
				kind, amount := "ADD", int64(3)
				if i%2 == 1 {
					kind, amount = "SUBTRACT", 1
				}

				resp, err := c.SubmitAdjustment(ctx, api.AdjustmentRequest{
					ItemID:         *item,
					LocationID:     *location,
					Kind:           kind,
					Amount:         decimal.NewFromInt(amount),
					IdempotencyKey: uuid.NewString(),
					ClientTime:     time.Now().UTC(),
				})
				if err != nil {
					var apiErr *client.APIError
					if errors.As(err, &apiErr) && apiErr.Code == "insufficient_stock" {
						rejected.Add(1)
						continue
					}
					failed.Add(1)
					continue
				}

				switch resp.Status {
				case "committed":
					committed.Add(1)
					if kind == "ADD" {
						committedSum.Add(amount)
					} else {
						committedSum.Add(-amount)
					}
				case "duplicate":
					duplicates.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	after, err := c.Stock(ctx, *location, *item)
	if err != nil {
		log.Fatalf("read final stock: %v", err)
	}

	expected := before.Quantity.Add(decimal.NewFromInt(committedSum.Load()))
	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Requests:   %d in %v (%.0f req/s)\n", *total, elapsed, float64(*total)/elapsed.Seconds())
	fmt.Printf("Committed:  %d\n", committed.Load())
	fmt.Printf("Duplicates: %d\n", duplicates.Load())
	fmt.Printf("Rejected:   %d (insufficient stock)\n", rejected.Load())
	fmt.Printf("Failed:     %d\n", failed.Load())
	fmt.Printf("Quantity:   %s -> %s (version %d -> %d)\n",
		before.Quantity, after.Quantity, before.Version, after.Version)
	fmt.Println("==========================================")

	if !after.Quantity.Equal(expected) {
		log.Fatalf("FAIL: final quantity %s, expected %s", after.Quantity, expected)
	}
	if after.Version-before.Version != committed.Load() {
		log.Fatalf("FAIL: version advanced by %d, expected %d",
			after.Version-before.Version, committed.Load())
	}
	fmt.Println("PASS: final quantity equals initial plus committed deltas")
}
