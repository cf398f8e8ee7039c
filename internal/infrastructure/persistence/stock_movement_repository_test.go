package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// applyAndRecord pushes one movement through the level and persists both
// sides, the way the ledger service does inside a transaction
func applyAndRecord(
	t *testing.T,
	levelRepo *GormStockLevelRepository,
	movementRepo *GormStockMovementRepository,
	level *inventory.StockLevel,
	movType inventory.MovementType,
	qty decimal.Decimal,
	sourceType inventory.SourceType,
	sourceID string,
	createdAt time.Time,
) *inventory.StockMovement {
	t.Helper()
	ctx := context.Background()

	before, after, err := level.ApplyMovement(movType, qty)
	require.NoError(t, err)

	movement, err := inventory.NewStockMovement(
		level.ID, level.WarehouseID, level.ProductID,
		movType, qty, before, after, sourceType, sourceID,
	)
	require.NoError(t, err)
	movement.CreatedAt = createdAt
	movement.MovementDate = createdAt

	require.NoError(t, movementRepo.Save(ctx, movement))
	require.NoError(t, levelRepo.SaveWithLock(ctx, level))
	return movement
}

func TestGormStockMovementRepository_Save(t *testing.T) {
	db := setupInventoryTestDB(t)
	levelRepo := NewGormStockLevelRepository(db)
	movementRepo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	level, err := levelRepo.GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	movement := applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeIn, decimal.NewFromInt(10),
		inventory.SourceTypePurchaseOrder, "PO-2026-00001", time.Now())

	found, err := movementRepo.FindByID(ctx, movement.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementTypeIn, found.Type)
	assert.True(t, found.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, found.BalanceBefore.IsZero())
	assert.True(t, found.BalanceAfter.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "PO-2026-00001", found.SourceID)

	t.Run("unknown id returns not found", func(t *testing.T) {
		_, err := movementRepo.FindByID(ctx, uuid.New())
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormStockMovementRepository_FindBySource(t *testing.T) {
	db := setupInventoryTestDB(t)
	levelRepo := NewGormStockLevelRepository(db)
	movementRepo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	level, err := levelRepo.GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	first := applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeIn, decimal.NewFromInt(10),
		inventory.SourceTypePurchaseOrder, "PO-2026-00007", base)
	second := applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeIn, decimal.NewFromInt(2),
		inventory.SourceTypePurchaseOrder, "PO-2026-00007", base.Add(time.Minute))
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeOut, decimal.NewFromInt(1),
		inventory.SourceTypeManualAdjustment, "ADJ-1", base.Add(2*time.Minute))

	movements, err := movementRepo.FindBySource(ctx, inventory.SourceTypePurchaseOrder, "PO-2026-00007")
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, first.ID, movements[0].ID)
	assert.Equal(t, second.ID, movements[1].ID)
}

func TestGormStockMovementRepository_SumSignedQuantity(t *testing.T) {
	db := setupInventoryTestDB(t)
	levelRepo := NewGormStockLevelRepository(db)
	movementRepo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	warehouseID := uuid.New()
	productID := uuid.New()
	level, err := levelRepo.GetOrCreate(ctx, warehouseID, productID)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeIn, decimal.NewFromInt(10),
		inventory.SourceTypePurchaseOrder, "PO-2026-00003", base)
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeOut, decimal.NewFromInt(4),
		inventory.SourceTypeReturnRequest, "RR-2026-00001", base.Add(time.Minute))
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeAdjust, decimal.NewFromInt(11),
		inventory.SourceTypeManualAdjustment, "ADJ-7", base.Add(2*time.Minute))

	t.Run("ledger sum matches the materialized level", func(t *testing.T) {
		sum, err := movementRepo.SumSignedQuantity(ctx, warehouseID, productID)
		require.NoError(t, err)

		reloaded, err := levelRepo.FindByID(ctx, level.ID)
		require.NoError(t, err)
		assert.True(t, sum.Equal(reloaded.QtyOnHand), "ledger %s vs on hand %s", sum, reloaded.QtyOnHand)
		assert.True(t, sum.Equal(decimal.NewFromInt(11)))
	})

	t.Run("empty ledger sums to zero", func(t *testing.T) {
		sum, err := movementRepo.SumSignedQuantity(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.True(t, sum.IsZero())
	})
}

func TestGormStockMovementRepository_Count(t *testing.T) {
	db := setupInventoryTestDB(t)
	levelRepo := NewGormStockLevelRepository(db)
	movementRepo := NewGormStockMovementRepository(db)
	ctx := context.Background()

	level, err := levelRepo.GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeIn, decimal.NewFromInt(5),
		inventory.SourceTypePurchaseOrder, "PO-2026-00010", base)
	applyAndRecord(t, levelRepo, movementRepo, level,
		inventory.MovementTypeOut, decimal.NewFromInt(2),
		inventory.SourceTypeReturnRequest, "RR-2026-00002", base.Add(time.Minute))

	count, err := movementRepo.Count(ctx, shared.Filter{Filters: map[string]interface{}{
		"type": inventory.MovementTypeOut,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = movementRepo.Count(ctx, shared.Filter{Filters: map[string]interface{}{
		"warehouse_id": level.WarehouseID,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
