package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/stock-sync/internal/core/domain"
	"github.com/rl1809/stock-sync/internal/port"
)

const (
	defaultReadLimit = 100
	maxReadLimit     = 500
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// dupEntry reports ER_DUP_ENTRY and hands back the driver message, which
// names the violated index.
func dupEntry(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return me.Message, true
	}
	return "", false
}

// Append writes the transaction row and the stock row it produces in one
// SQL transaction. The stock row write is guarded by expectedVersion, so
// a lost race rolls the whole thing back and the ledger never holds an
// entry the record does not reflect.
func (m *MySQLAdapter) Append(ctx context.Context, txn *domain.Transaction, expectedVersion int64) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if expectedVersion == 0 {
		// first transaction for the key creates the record
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_records (item_id, location_id, quantity, version, last_tx_id, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)`,
			txn.ItemID, txn.LocationID, txn.ResultingQty, txn.ID, txn.ServerTime,
		)
		if _, ok := dupEntry(err); ok {
			// someone else committed version 1 first
			return port.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("insert stock record: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `
			UPDATE stock_records
			SET quantity = ?, version = version + 1, last_tx_id = ?, updated_at = ?
			WHERE item_id = ? AND location_id = ? AND version = ?`,
			txn.ResultingQty, txn.ID, txn.ServerTime,
			txn.ItemID, txn.LocationID, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update stock record: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return port.ErrVersionConflict
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, seq, idempotency_key, item_id, location_id, kind, amount,
			reason, origin_user_id, origin_client_id, client_time, server_time,
			resulting_quantity, resulting_version, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Seq, txn.IdempotencyKey, txn.ItemID, txn.LocationID, txn.Kind, txn.Amount,
		txn.Reason, txn.OriginUserID, txn.OriginClientID, txn.ClientTime, txn.ServerTime,
		txn.ResultingQty, txn.ResultingVer, txn.Notes,
	)
	if msg, ok := dupEntry(err); ok {
		if strings.Contains(msg, "idempotency") {
			return port.ErrDuplicateIdempotencyKey
		}
		return port.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit()
}

const txColumns = `id, seq, idempotency_key, item_id, location_id, kind, amount,
	reason, origin_user_id, origin_client_id, client_time, server_time,
	resulting_quantity, resulting_version, notes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Seq, &t.IdempotencyKey, &t.ItemID, &t.LocationID, &t.Kind,
		&t.Amount, &t.Reason, &t.OriginUserID, &t.OriginClientID, &t.ClientTime, &t.ServerTime,
		&t.ResultingQty, &t.ResultingVer, &t.Notes)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *MySQLAdapter) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE idempotency_key = ?`, key)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transaction by idempotency key: %w", err)
	}
	return t, nil
}

func (m *MySQLAdapter) ReadSince(ctx context.Context, key domain.StockKey, afterSeq int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions
		WHERE item_id = ? AND location_id = ? AND seq > ?
		ORDER BY seq ASC LIMIT ?`,
		key.ItemID, key.LocationID, afterSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return txs, nil
}

func (m *MySQLAdapter) GetRecord(ctx context.Context, key domain.StockKey) (*domain.StockRecord, error) {
	var rec domain.StockRecord
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, location_id, quantity, version, last_tx_id, updated_at
		FROM stock_records WHERE item_id = ? AND location_id = ?`,
		key.ItemID, key.LocationID,
	).Scan(&rec.ItemID, &rec.LocationID, &rec.Quantity, &rec.Version, &rec.LastTxID, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock record: %w", err)
	}
	return &rec, nil
}

func (m *MySQLAdapter) ListByLocation(ctx context.Context, locationID string) ([]*domain.StockRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, location_id, quantity, version, last_tx_id, updated_at
		FROM stock_records WHERE location_id = ? ORDER BY item_id`,
		locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stock records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.StockRecord
	for rows.Next() {
		var rec domain.StockRecord
		err := rows.Scan(&rec.ItemID, &rec.LocationID, &rec.Quantity, &rec.Version, &rec.LastTxID, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stock records: %w", err)
	}
	return recs, nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, barcode, unit, par_level, reorder_point, active, created_at, updated_at
		FROM items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Name, &item.Barcode, &item.Unit, &item.ParLevel,
		&item.ReorderPoint, &item.Active, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) GetLocation(ctx context.Context, locationID string) (*domain.Location, error) {
	var loc domain.Location
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, kind, active, created_at
		FROM locations WHERE id = ?`, locationID,
	).Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.Active, &loc.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query location: %w", err)
	}
	return &loc, nil
}

func (m *MySQLAdapter) LowStock(ctx context.Context, locationID string) ([]*domain.LowStockAlert, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT s.item_id, i.name, s.location_id, s.quantity, i.reorder_point, s.updated_at
		FROM stock_records s
		JOIN items i ON i.id = s.item_id
		WHERE s.location_id = ? AND i.active = 1
		  AND i.reorder_point > 0 AND s.quantity <= i.reorder_point
		ORDER BY s.item_id`,
		locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.LowStockAlert
	for rows.Next() {
		var a domain.LowStockAlert
		err := rows.Scan(&a.ItemID, &a.ItemName, &a.LocationID, &a.Quantity, &a.ReorderPoint, &a.RaisedAt)
		if err != nil {
			return nil, fmt.Errorf("scan low stock alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read low stock alerts: %w", err)
	}
	return alerts, nil
}
