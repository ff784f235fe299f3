package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartstock/internal/database"
	"smartstock/internal/models"

	"github.com/rs/zerolog"
)

// Manager is the only component that touches the pending_operations table.
// It owns the status vocabulary: an operation at rest is pending or failed,
// syncing is a transient phase during an active pass, and a synced
// operation is deleted.
type Manager struct {
	db     *database.DB
	logger *zerolog.Logger
}

func NewManager(db *database.DB, logger *zerolog.Logger) *Manager {
	return &Manager{db: db, logger: logger}
}

// AddPendingOperation validates the payload against the schema for opType
// and persists a new record. The returned id is assigned by the store and
// never reused.
func (m *Manager) AddPendingOperation(ctx context.Context, opType string, data json.RawMessage) (int64, error) {
	if err := models.ValidateOperationPayload(opType, data); err != nil {
		return 0, fmt.Errorf("invalid operation: %w", err)
	}

	op := &models.PendingOperation{
		Type: opType,
		Data: data,
	}
	if err := m.db.InsertPendingOperation(ctx, op); err != nil {
		return 0, err
	}

	m.logger.Info().
		Int64("operation_id", op.ID).
		Str("type", opType).
		Msg("operation queued")

	return op.ID, nil
}

// GetPendingOperations returns everything still awaiting remote
// confirmation, oldest first.
func (m *Manager) GetPendingOperations(ctx context.Context) ([]models.PendingOperation, error) {
	return m.db.GetOperationsByStatus(ctx, models.OpStatusPending, models.OpStatusFailed)
}

// MarkAsSyncing flags an operation as in-flight for the duration of one
// submission attempt. A concurrent delete is tolerated.
func (m *Manager) MarkAsSyncing(ctx context.Context, id int64) error {
	err := m.db.UpdateOperationStatus(ctx, id, models.OpStatusSyncing)
	if errors.Is(err, database.ErrNotFound) {
		m.logger.Warn().Int64("operation_id", id).Msg("mark syncing: operation already gone")
		return nil
	}
	return err
}

// MarkAsSynced deletes the record. Deletion is the only representation of
// success; calling it twice is harmless.
func (m *Manager) MarkAsSynced(ctx context.Context, id int64) error {
	if err := m.db.DeleteOperation(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Int64("operation_id", id).Msg("operation synced")
	return nil
}

// MarkAsFailed records one failed submission attempt. The operation stays
// queued and will be retried on the next trigger.
func (m *Manager) MarkAsFailed(ctx context.Context, id int64, reason string, nextRetryAt *time.Time) error {
	err := m.db.MarkOperationFailed(ctx, id, reason, nextRetryAt)
	if errors.Is(err, database.ErrNotFound) {
		m.logger.Warn().Int64("operation_id", id).Msg("mark failed: operation already gone")
		return nil
	}
	if err != nil {
		return err
	}

	m.logger.Warn().
		Int64("operation_id", id).
		Str("reason", reason).
		Msg("operation sync failed")
	return nil
}

// CountPending counts operations still awaiting confirmation, for the UI
// badge.
func (m *Manager) CountPending(ctx context.Context) (int, error) {
	return m.db.CountOperationsByStatus(ctx, models.OpStatusPending, models.OpStatusFailed)
}

// GetFailedOperations returns only operations whose last attempt failed,
// for the manual review export.
func (m *Manager) GetFailedOperations(ctx context.Context) ([]models.PendingOperation, error) {
	return m.db.GetOperationsByStatus(ctx, models.OpStatusFailed)
}
