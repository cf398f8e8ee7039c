package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupInventoryTestDB creates an in-memory SQLite database with the
// inventory tables migrated
func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&inventory.StockLevel{}, &inventory.StockMovement{})
	require.NoError(t, err)

	return db
}

func TestGormStockLevelRepository_GetOrCreate(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewGormStockLevelRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()

	t.Run("creates a zero row on first access", func(t *testing.T) {
		level, err := repo.GetOrCreate(ctx, warehouseID, productID)
		require.NoError(t, err)

		assert.Equal(t, warehouseID, level.WarehouseID)
		assert.Equal(t, productID, level.ProductID)
		assert.True(t, level.QtyOnHand.IsZero())
		assert.Equal(t, 1, level.Version)
	})

	t.Run("returns the existing row on subsequent access", func(t *testing.T) {
		first, err := repo.GetOrCreate(ctx, warehouseID, productID)
		require.NoError(t, err)

		second, err := repo.GetOrCreate(ctx, warehouseID, productID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)

		count, err := repo.Count(ctx, shared.Filter{Filters: map[string]interface{}{
			"warehouse_id": warehouseID,
			"product_id":   productID,
		}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormStockLevelRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the applied movement", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		repo := NewGormStockLevelRepository(db)

		level, err := repo.GetOrCreate(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)

		_, _, err = level.ApplyMovement(inventory.MovementTypeIn, decimal.NewFromInt(10))
		require.NoError(t, err)

		require.NoError(t, repo.SaveWithLock(ctx, level))

		reloaded, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.QtyOnHand.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, 2, reloaded.Version)
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		repo := NewGormStockLevelRepository(db)

		level, err := repo.GetOrCreate(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)

		copyA, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		copyB, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)

		_, _, err = copyA.ApplyMovement(inventory.MovementTypeIn, decimal.NewFromInt(5))
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, copyA))

		// copyB still carries the old version; its write must lose
		_, _, err = copyB.ApplyMovement(inventory.MovementTypeIn, decimal.NewFromInt(3))
		require.NoError(t, err)
		err = repo.SaveWithLock(ctx, copyB)
		require.ErrorIs(t, err, shared.ErrConflictingUpdate)

		reloaded, err := repo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.QtyOnHand.Equal(decimal.NewFromInt(5)))
	})

	t.Run("reports a missing row as not found", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		repo := NewGormStockLevelRepository(db)

		level, err := inventory.NewStockLevel(uuid.New(), uuid.New())
		require.NoError(t, err)
		_, _, err = level.ApplyMovement(inventory.MovementTypeIn, decimal.NewFromInt(1))
		require.NoError(t, err)

		err = repo.SaveWithLock(ctx, level)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormStockLevelRepository_SumQuantityByProduct(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewGormStockLevelRepository(db)
	ctx := context.Background()

	productID := uuid.New()

	for _, qty := range []int64{10, 5} {
		level, err := repo.GetOrCreate(ctx, uuid.New(), productID)
		require.NoError(t, err)
		_, _, err = level.ApplyMovement(inventory.MovementTypeIn, decimal.NewFromInt(qty))
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, level))
	}

	t.Run("sums across warehouses", func(t *testing.T) {
		total, err := repo.SumQuantityByProduct(ctx, productID)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(15)), "got %s", total)
	})

	t.Run("returns zero for an unknown product", func(t *testing.T) {
		total, err := repo.SumQuantityByProduct(ctx, uuid.New())
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestGormStockLevelRepository_FindByWarehouse(t *testing.T) {
	db := setupInventoryTestDB(t)
	repo := NewGormStockLevelRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := repo.GetOrCreate(ctx, warehouseID, uuid.New())
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	levels, err := repo.FindByWarehouse(ctx, warehouseID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Len(t, levels, 3)
	for _, level := range levels {
		assert.Equal(t, warehouseID, level.WarehouseID)
	}
}
