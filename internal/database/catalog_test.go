package database

import (
	"context"
	"testing"
	"time"

	"smartstock/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCache(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	products := []models.CachedProduct{
		{ID: "P001", SKU: "FLT-OIL-001", Name: "Filtro de Aceite Premium", Category: "Filtros", Quantity: 45, Location: "A-03-E2-N1", Price: 12.50},
		{ID: "P002", SKU: "BRK-PAD-002", Name: "Pastillas de Freno Delanteras", Category: "Frenos", Quantity: 28, Location: "A-05-E1-N2", Price: 45.00},
		{ID: "P003", SKU: "SPK-PLG-003", Name: "Bujías NGK Platino", Category: "Motor", Quantity: 15, Location: "B-02-E3-N1", Price: 28.00},
	}
	require.NoError(t, db.UpsertProducts(ctx, products))

	t.Run("GetBySKU", func(t *testing.T) {
		p, err := db.GetProductBySKU(ctx, "BRK-PAD-002")
		require.NoError(t, err)
		assert.Equal(t, "P002", p.ID)
		assert.Equal(t, int64(28), p.Quantity)
		assert.False(t, p.LastUpdated.IsZero())
	})

	t.Run("GetBySKUMissing", func(t *testing.T) {
		_, err := db.GetProductBySKU(ctx, "NOPE-000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SearchByCategory", func(t *testing.T) {
		found, err := db.SearchProducts(ctx, "freno")
		require.NoError(t, err)
		require.Len(t, found, 2) // matches category "Frenos" and name "Freno"
	})

	t.Run("SearchBySKUFragment", func(t *testing.T) {
		found, err := db.SearchProducts(ctx, "flt-oil")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "P001", found[0].ID)
	})

	t.Run("UpsertRefreshes", func(t *testing.T) {
		update := []models.CachedProduct{
			{ID: "P001", SKU: "FLT-OIL-001", Name: "Filtro de Aceite Premium", Category: "Filtros", Quantity: 40, Location: "A-03-E2-N1", Price: 13.00},
		}
		require.NoError(t, db.UpsertProducts(ctx, update))

		p, err := db.GetProductBySKU(ctx, "FLT-OIL-001")
		require.NoError(t, err)
		assert.Equal(t, int64(40), p.Quantity)
		assert.Equal(t, 13.00, p.Price)
	})
}

func TestOrderCache(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	supplier := "AutoParts"
	order := &models.CachedOrder{
		ID:          "O001",
		OrderNumber: "OC-2025-001",
		Type:        models.OrderTypePurchase,
		Status:      "pending",
		Supplier:    &supplier,
		Lines: []models.OrderLine{
			{ProductID: "P001", Quantity: 12},
			{ProductID: "P002", Quantity: 4, Received: 4},
		},
	}
	require.NoError(t, db.UpsertOrder(ctx, order))

	got, err := db.GetOrderByNumber(ctx, "OC-2025-001")
	require.NoError(t, err)
	assert.Equal(t, "O001", got.ID)
	require.NotNil(t, got.Supplier)
	assert.Equal(t, "AutoParts", *got.Supplier)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 4, got.Lines[1].Received)

	// Status change on re-upsert
	order.Status = "in_progress"
	require.NoError(t, db.UpsertOrder(ctx, order))
	got, err = db.GetOrderByNumber(ctx, "OC-2025-001")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)

	_, err = db.GetOrderByNumber(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanOldCache(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	require.NoError(t, db.UpsertProducts(ctx, []models.CachedProduct{
		{ID: "P001", SKU: "OLD-001", Name: "Old", Category: "X"},
	}))

	// Age the row past the retention window
	old := time.Now().AddDate(0, 0, -10)
	_, err := db.db.ExecContext(ctx, `UPDATE cached_products SET last_updated = ? WHERE id = ?`, old, "P001")
	require.NoError(t, err)

	require.NoError(t, db.UpsertProducts(ctx, []models.CachedProduct{
		{ID: "P002", SKU: "NEW-002", Name: "New", Category: "X"},
	}))

	require.NoError(t, db.CleanOldCache(ctx, 7))

	_, err = db.GetProductBySKU(ctx, "OLD-001")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetProductBySKU(ctx, "NEW-002")
	assert.NoError(t, err)
}
