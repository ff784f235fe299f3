package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"smartstock/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	// ErrStorageUnavailable means the durable store could not be written and
	// the mutation was NOT captured. Callers must surface it, never swallow it.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound means an update or lookup referenced an id that is no
	// longer in the store. Benign for delete/update races.
	ErrNotFound = errors.New("record not found")
)

type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	d := &DB{db: db, logger: logger}

	// An operation stuck in 'syncing' means the process died mid-pass.
	// It never reached the remote system confirmably, so it goes back to
	// pending and will be retried.
	if err := d.recoverSyncingOperations(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to recover in-flight operations: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return d, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pending_operations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL,
            data TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME NOT NULL,
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            next_retry_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS cached_products (
            id TEXT PRIMARY KEY,
            sku TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            category TEXT NOT NULL,
            quantity INTEGER NOT NULL DEFAULT 0,
            location TEXT,
            price REAL NOT NULL DEFAULT 0,
            last_updated DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS cached_orders (
            id TEXT PRIMARY KEY,
            order_number TEXT UNIQUE NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL,
            supplier TEXT,
            lines TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            last_updated DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_pending_operations_status ON pending_operations(status)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_operations_type ON pending_operations(type)`,
		`CREATE INDEX IF NOT EXISTS idx_cached_products_sku ON cached_products(sku)`,
		`CREATE INDEX IF NOT EXISTS idx_cached_products_category ON cached_products(category)`,
		`CREATE INDEX IF NOT EXISTS idx_cached_orders_number ON cached_orders(order_number)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (d *DB) recoverSyncingOperations(ctx context.Context) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE pending_operations SET status = ? WHERE status = ?`,
		models.OpStatusPending, models.OpStatusSyncing,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		d.logger.Warn().Int64("count", n).Msg("reset in-flight operations to pending")
	}
	return nil
}

// ClearAll wipes the queue and both caches in one transaction. Used at
// logout so the next login never sees stale records.
func (d *DB) ClearAll(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pending_operations", "cached_products", "cached_orders"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.db.Close()
}
