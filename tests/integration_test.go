// Full-flow tests against real MySQL and Redis. They skip when either
// backend is unavailable, so the suite stays runnable on a bare machine.
package tests

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-sync/internal/adapter/hub"
	"github.com/rl1809/stock-sync/internal/adapter/storage"
	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/internal/core/service"
)

var testLogger = slog.New(slog.DiscardHandler)

type testEnv struct {
	db  *sql.DB
	rdb *redis.Client
	svc *service.SyncService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/stocksync?parseTime=true"
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	mysqlAdapter := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb)
	broadcast := hub.New(testLogger, 0)
	svc := service.NewSyncService(mysqlAdapter, mysqlAdapter, mysqlAdapter, cache, testLogger, broadcast)

	t.Cleanup(func() {
		broadcast.Close()
		rdb.Close()
		db.Close()
	})
	return &testEnv{db: db, rdb: rdb, svc: svc}
}

// freshKey seeds the catalog with a unique item and location, so tests
// never interfere with each other or with leftover rows.
func (e *testEnv) freshKey(t *testing.T, reorderPoint string) domain.StockKey {
	t.Helper()
	ctx := context.Background()
	itemID := "it-" + uuid.NewString()[:18]
	locationID := "loc-" + uuid.NewString()[:17]

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO items (id, name, reorder_point, created_at, updated_at)
		VALUES (?, ?, ?, NOW(6), NOW(6))`, itemID, itemID, reorderPoint)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, created_at) VALUES (?, ?, NOW(6))`, locationID, locationID)
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return domain.StockKey{ItemID: itemID, LocationID: locationID}
}

func adj(key domain.StockKey, kind domain.TxKind, amount int64, idem string) *domain.Adjustment {
	return &domain.Adjustment{
		ItemID:         key.ItemID,
		LocationID:     key.LocationID,
		Kind:           kind,
		Amount:         decimal.NewFromInt(amount),
		IdempotencyKey: idem,
		UserID:         "integration",
		ClientID:       "it-client",
		ClientTime:     time.Now().UTC(),
	}
}

func TestIntegration_ConcurrentDeltasConverge(t *testing.T) {
	env := setupTestEnv(t)
	key := env.freshKey(t, "0")
	ctx := context.Background()

	if _, err := env.svc.Submit(ctx, adj(key, domain.KindSet, 100, uuid.NewString())); err != nil {
		t.Fatalf("seed SET: %v", err)
	}

	const n = 30
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := domain.KindAdd
			if i%2 == 1 {
				kind = domain.KindSubtract
			}
			_, err := env.svc.Submit(ctx, adj(key, kind, 2, uuid.NewString()))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent submit: %v", err)
		}
	}

	rec, err := env.svc.GetStock(ctx, key)
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	// 15 adds and 15 subtracts of 2 cancel out
	if !rec.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("quantity = %s, want 100", rec.Quantity)
	}
	if rec.Version != n+1 {
		t.Errorf("version = %d, want %d", rec.Version, n+1)
	}

	// the ledger folds back into the record: gap-free sequences,
	// consistent running quantities
	txs, err := env.svc.History(ctx, key, 0, 500)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(txs) != n+1 {
		t.Fatalf("ledger holds %d transactions, want %d", len(txs), n+1)
	}
	running := decimal.Zero
	for i, tx := range txs {
		if tx.Seq != int64(i+1) {
			t.Fatalf("seq gap at index %d: got %d", i, tx.Seq)
		}
		state := &domain.StockRecord{Quantity: running}
		next, err := state.Apply(tx.Kind, tx.Amount)
		if err != nil {
			t.Fatalf("fold transaction %d: %v", i, err)
		}
		if !next.Equal(tx.ResultingQty) {
			t.Fatalf("fold mismatch at seq %d: %s vs recorded %s", tx.Seq, next, tx.ResultingQty)
		}
		running = next
	}
	if !running.Equal(rec.Quantity) {
		t.Errorf("folded quantity %s != record quantity %s", running, rec.Quantity)
	}
}

func TestIntegration_IdempotentResubmission(t *testing.T) {
	env := setupTestEnv(t)
	key := env.freshKey(t, "0")
	ctx := context.Background()

	idem := uuid.NewString()
	first, err := env.svc.Submit(ctx, adj(key, domain.KindAdd, 7, idem))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	for i := 0; i < 3; i++ {
		again, err := env.svc.Submit(ctx, adj(key, domain.KindAdd, 7, idem))
		if !errors.Is(err, domain.ErrDuplicateSubmission) {
			t.Fatalf("resubmit %d: err = %v, want ErrDuplicateSubmission", i, err)
		}
		if again.ID != first.ID || again.Seq != first.Seq {
			t.Fatalf("resubmit %d returned a different outcome: %+v", i, again)
		}
	}

	txs, err := env.svc.History(ctx, key, 0, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("ledger holds %d transactions, want exactly 1", len(txs))
	}
}

func TestIntegration_ReplayMatchesOnline(t *testing.T) {
	env := setupTestEnv(t)
	onlineKey := env.freshKey(t, "0")
	replayKey := env.freshKey(t, "0")
	ctx := context.Background()

	kinds := []domain.TxKind{domain.KindSet, domain.KindAdd, domain.KindSubtract, domain.KindAdd}
	amounts := []int64{50, 5, 12, 3}

	// online path, one at a time
	for i := range kinds {
		if _, err := env.svc.Submit(ctx, adj(onlineKey, kinds[i], amounts[i], uuid.NewString())); err != nil {
			t.Fatalf("online submit %d: %v", i, err)
		}
	}

	// same operations buffered and replayed as a batch
	batch := &domain.ReplayBatch{ClientID: "offline-terminal"}
	for i := range kinds {
		batch.Adjustments = append(batch.Adjustments, adj(replayKey, kinds[i], amounts[i], uuid.NewString()))
	}
	result, err := env.svc.Replay(ctx, batch)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if got := result.Committed(); got != len(kinds) {
		t.Fatalf("replay committed %d, want %d", got, len(kinds))
	}
	if rec, ok := result.Records[replayKey]; !ok {
		t.Error("replay result is missing the touched key's record")
	} else if !rec.Quantity.Equal(decimal.NewFromInt(46)) {
		t.Errorf("replay record quantity = %s, want 46", rec.Quantity)
	}

	online, err := env.svc.GetStock(ctx, onlineKey)
	if err != nil {
		t.Fatalf("GetStock online: %v", err)
	}
	replayed, err := env.svc.GetStock(ctx, replayKey)
	if err != nil {
		t.Fatalf("GetStock replayed: %v", err)
	}
	if !online.Quantity.Equal(replayed.Quantity) {
		t.Errorf("replayed quantity %s != online quantity %s", replayed.Quantity, online.Quantity)
	}
	if online.Version != replayed.Version {
		t.Errorf("replayed version %d != online version %d", replayed.Version, online.Version)
	}
}

func TestIntegration_InsufficientStockRejected(t *testing.T) {
	env := setupTestEnv(t)
	key := env.freshKey(t, "0")
	ctx := context.Background()

	if _, err := env.svc.Submit(ctx, adj(key, domain.KindSet, 2, uuid.NewString())); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := env.svc.Submit(ctx, adj(key, domain.KindSubtract, 5, uuid.NewString()))
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	rec, err := env.svc.GetStock(ctx, key)
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if !rec.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("quantity = %s, want untouched 2", rec.Quantity)
	}
	txs, err := env.svc.History(ctx, key, 0, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("ledger holds %d transactions, want 1", len(txs))
	}
}

func TestIntegration_LowStockAlertRaised(t *testing.T) {
	env := setupTestEnv(t)
	key := env.freshKey(t, "10")
	ctx := context.Background()

	if _, err := env.svc.Submit(ctx, adj(key, domain.KindSet, 50, uuid.NewString())); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.svc.Submit(ctx, adj(key, domain.KindSubtract, 45, uuid.NewString())); err != nil {
		t.Fatalf("subtract: %v", err)
	}

	alerts, err := env.svc.LowStock(ctx, key.LocationID)
	if err != nil {
		t.Fatalf("LowStock: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.ItemID == key.ItemID {
			found = true
			if !a.Quantity.Equal(decimal.NewFromInt(5)) {
				t.Errorf("alert quantity = %s, want 5", a.Quantity)
			}
		}
	}
	if !found {
		t.Error("expected a low stock alert for the drained item")
	}

	// the alert marker also lands in Redis for external pollers
	marker := "alert:" + key.LocationID + ":" + key.ItemID
	if err := env.rdb.Get(ctx, marker).Err(); err != nil {
		t.Errorf("redis alert marker %s: %v", marker, err)
	}
}

func TestIntegration_UntouchedKeyReadsZero(t *testing.T) {
	env := setupTestEnv(t)
	key := env.freshKey(t, "0")

	rec, err := env.svc.GetStock(context.Background(), key)
	if err != nil {
		t.Fatalf("GetStock: %v", err)
	}
	if !rec.Quantity.IsZero() || rec.Version != 0 {
		t.Errorf("untouched key reads quantity=%s version=%d, want 0/0", rec.Quantity, rec.Version)
	}
}
