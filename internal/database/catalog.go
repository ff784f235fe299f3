package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"smartstock/internal/models"
)

// UpsertProducts refreshes the local product snapshot, stamping each row
// with the time of the refresh.
func (d *DB) UpsertProducts(ctx context.Context, products []models.CachedProduct) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin products transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO cached_products (id, sku, name, description, category, quantity, location, price, last_updated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            sku = excluded.sku,
            name = excluded.name,
            description = excluded.description,
            category = excluded.category,
            quantity = excluded.quantity,
            location = excluded.location,
            price = excluded.price,
            last_updated = excluded.last_updated
    `

	now := time.Now()
	for _, p := range products {
		_, err := tx.ExecContext(ctx, query,
			p.ID, p.SKU, p.Name, p.Description, p.Category, p.Quantity, p.Location, p.Price, now,
		)
		if err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}

	return tx.Commit()
}

// GetProductBySKU returns the cached product, or ErrNotFound.
func (d *DB) GetProductBySKU(ctx context.Context, sku string) (*models.CachedProduct, error) {
	query := `
        SELECT id, sku, name, description, category, quantity, location, price, last_updated
        FROM cached_products WHERE sku = ?
    `

	var p models.CachedProduct
	err := d.db.QueryRowContext(ctx, query, sku).Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Quantity, &p.Location, &p.Price, &p.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", sku, err)
	}

	return &p, nil
}

// SearchProducts matches the query against name, sku and category,
// case-insensitively.
func (d *DB) SearchProducts(ctx context.Context, query string) ([]models.CachedProduct, error) {
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := d.db.QueryContext(ctx, `
        SELECT id, sku, name, description, category, quantity, location, price, last_updated
        FROM cached_products
        WHERE lower(name) LIKE ? OR lower(sku) LIKE ? OR lower(category) LIKE ?
        ORDER BY sku
    `, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	var products []models.CachedProduct
	for rows.Next() {
		var p models.CachedProduct
		err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Quantity, &p.Location, &p.Price, &p.LastUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// UpsertOrder caches an order snapshot. Lines are stored as JSON.
func (d *DB) UpsertOrder(ctx context.Context, order *models.CachedOrder) error {
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}

	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.LastUpdated = now

	_, err = d.db.ExecContext(ctx, `
        INSERT INTO cached_orders (id, order_number, type, status, supplier, lines, created_at, last_updated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            order_number = excluded.order_number,
            type = excluded.type,
            status = excluded.status,
            supplier = excluded.supplier,
            lines = excluded.lines,
            last_updated = excluded.last_updated
    `,
		order.ID, order.OrderNumber, order.Type, order.Status, order.Supplier, string(lines), order.CreatedAt, order.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderNumber, err)
	}

	return nil
}

// GetOrderByNumber returns the cached order, or ErrNotFound.
func (d *DB) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.CachedOrder, error) {
	query := `
        SELECT id, order_number, type, status, supplier, lines, created_at, last_updated
        FROM cached_orders WHERE order_number = ?
    `

	var order models.CachedOrder
	var lines string
	err := d.db.QueryRowContext(ctx, query, orderNumber).Scan(
		&order.ID, &order.OrderNumber, &order.Type, &order.Status, &order.Supplier, &lines, &order.CreatedAt, &order.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderNumber, err)
	}

	if err := json.Unmarshal([]byte(lines), &order.Lines); err != nil {
		return nil, fmt.Errorf("decode order lines: %w", err)
	}

	return &order, nil
}

// CleanOldCache removes catalog rows that have not been refreshed within
// the retention window. The pending operations queue is never touched here.
func (d *DB) CleanOldCache(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	for _, table := range []string{"cached_products", "cached_orders"} {
		result, err := d.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE last_updated < ?", table), cutoff,
		)
		if err != nil {
			return fmt.Errorf("clean %s: %w", table, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			d.logger.Info().Str("table", table).Int64("removed", n).Msg("cleaned stale cache rows")
		}
	}

	return nil
}
