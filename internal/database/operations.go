package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"smartstock/internal/models"
)

const operationColumns = `id, type, data, status, created_at, retry_count, last_error, next_retry_at`

// InsertPendingOperation assigns a new id and persists the operation with
// status=pending, retry_count=0, created_at=now. A write failure is wrapped
// in ErrStorageUnavailable because it means the mutation was not captured.
func (d *DB) InsertPendingOperation(ctx context.Context, op *models.PendingOperation) error {
	now := time.Now()
	if op.Status == "" {
		op.Status = models.OpStatusPending
	}

	result, err := d.db.ExecContext(ctx,
		`INSERT INTO pending_operations (type, data, status, created_at, retry_count, last_error, next_retry_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.Type,
		string(op.Data),
		op.Status,
		now,
		op.RetryCount,
		op.LastError,
		op.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert pending operation: %v", ErrStorageUnavailable, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: get last insert id: %v", ErrStorageUnavailable, err)
	}
	op.ID = id
	op.CreatedAt = now

	return nil
}

// GetOperationsByStatus returns operations matching any of the given
// statuses, in insertion order (oldest first).
func (d *DB) GetOperationsByStatus(ctx context.Context, statuses ...string) ([]models.PendingOperation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	query := fmt.Sprintf(
		`SELECT %s FROM pending_operations WHERE status IN (%s) ORDER BY id ASC`,
		operationColumns, placeholders,
	)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get operations: %w", err)
	}
	defer rows.Close()

	return scanOperations(rows)
}

// GetOperation returns a single operation by id, or ErrNotFound.
func (d *DB) GetOperation(ctx context.Context, id int64) (*models.PendingOperation, error) {
	query := fmt.Sprintf(`SELECT %s FROM pending_operations WHERE id = ?`, operationColumns)

	var op models.PendingOperation
	var data string
	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&op.ID, &op.Type, &data, &op.Status, &op.CreatedAt, &op.RetryCount, &op.LastError, &op.NextRetryAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation %d: %w", id, err)
	}
	op.Data = []byte(data)

	return &op, nil
}

// UpdateOperationStatus moves an operation between lifecycle statuses
// without touching retry bookkeeping. Returns ErrNotFound if the id is
// already gone (resolved by another path).
func (d *DB) UpdateOperationStatus(ctx context.Context, id int64, status string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE pending_operations SET status = ? WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update operation status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOperationFailed records one failed submission attempt: status=failed,
// retry_count incremented, last_error replaced. next_retry_at is only set
// when backoff is active.
func (d *DB) MarkOperationFailed(ctx context.Context, id int64, errMsg string, nextRetryAt *time.Time) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE pending_operations
         SET status = ?, retry_count = retry_count + 1, last_error = ?, next_retry_at = ?
         WHERE id = ?`,
		models.OpStatusFailed, errMsg, nextRetryAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark operation failed: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOperation removes a record. Idempotent: deleting an absent id is
// not an error, since deletion is the only representation of sync success
// and two paths may race to it.
func (d *DB) DeleteOperation(ctx context.Context, id int64) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM pending_operations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete operation %d: %w", id, err)
	}
	return nil
}

// CountOperationsByStatus returns how many operations match any of the
// given statuses. Consistent with GetOperationsByStatus absent writes.
func (d *DB) CountOperationsByStatus(ctx context.Context, statuses ...string) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(statuses))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM pending_operations WHERE status IN (%s)`, placeholders)

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count operations: %w", err)
	}
	return count, nil
}

func scanOperations(rows *sql.Rows) ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	for rows.Next() {
		var op models.PendingOperation
		var data string
		err := rows.Scan(
			&op.ID, &op.Type, &data, &op.Status, &op.CreatedAt, &op.RetryCount, &op.LastError, &op.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.Data = []byte(data)
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}
