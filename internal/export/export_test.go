package export

import (
	"context"
	"path/filepath"
	"testing"

	"smartstock/internal/database"
	"smartstock/internal/models"
	"smartstock/internal/queue"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func setupExporter(t *testing.T) (*Exporter, *queue.Manager) {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "export.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	q := queue.NewManager(db, &logger)
	return NewExporter(q, t.TempDir(), &logger), q
}

func TestFailedOperationsExport(t *testing.T) {
	exporter, q := setupExporter(t)
	ctx := context.Background()

	id, err := q.AddPendingOperation(ctx, models.OpTypeReception,
		[]byte(`{"order_number":"OC-2025-001","sku":"REP-12345","quantity":10}`))
	require.NoError(t, err)
	require.NoError(t, q.MarkAsFailed(ctx, id, "remote unavailable", nil))

	// Still-pending operations must not appear in the export
	_, err = q.AddPendingOperation(ctx, models.OpTypeDispatch,
		[]byte(`{"order_number":"EXP-2025-101","sku":"REP-12345","quantity":2}`))
	require.NoError(t, err)

	path, err := exporter.FailedOperations(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Failed operations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "reception", rows[1][1])
	assert.Equal(t, "remote unavailable", rows[1][4])
}

func TestFailedOperationsExport_EmptyQueue(t *testing.T) {
	exporter, _ := setupExporter(t)

	path, err := exporter.FailedOperations(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}
