package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/procurement"
	"github.com/wms/backend/internal/domain/shared"
)

// newTestReturn builds a REQUESTED return with one line against the given
// purchase order item
func newTestReturn(t *testing.T, returnNumber string, purchaseOrderID, orderItemID uuid.UUID, qty decimal.Decimal) *procurement.ReturnRequest {
	t.Helper()

	ret, err := procurement.NewReturnRequest(returnNumber, purchaseOrderID, "damaged on arrival", uuid.New(),
		[]procurement.NewReturnLine{{
			OrderItemID:     orderItemID,
			ProductID:       uuid.New(),
			ProductSKU:      "SKU-001",
			OrderedQty:      decimal.NewFromInt(10),
			ReceivedQtyOnPO: decimal.NewFromInt(10),
			Quantity:        qty,
			UnitCost:        decimal.NewFromInt(2),
		}})
	require.NoError(t, err)
	return ret
}

func TestGormReturnRequestRepository_SaveAndFind(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	purchaseOrderID := uuid.New()
	ret := newTestReturn(t, "RR-2026-00001", purchaseOrderID, uuid.New(), decimal.NewFromInt(3))
	require.NoError(t, repo.Save(ctx, ret))

	t.Run("FindByID preloads lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, ret.ID)
		require.NoError(t, err)
		assert.Equal(t, "RR-2026-00001", found.ReturnNumber)
		assert.Equal(t, procurement.ReturnStatusRequested, found.Status)
		require.Len(t, found.Lines, 1)
		assert.True(t, found.Lines[0].QtyRequested.Equal(decimal.NewFromInt(3)))
	})

	t.Run("FindByReturnNumber", func(t *testing.T) {
		found, err := repo.FindByReturnNumber(ctx, "RR-2026-00001")
		require.NoError(t, err)
		assert.Equal(t, ret.ID, found.ID)
	})

	t.Run("FindByPurchaseOrder", func(t *testing.T) {
		returns, err := repo.FindByPurchaseOrder(ctx, purchaseOrderID)
		require.NoError(t, err)
		require.Len(t, returns, 1)
		assert.Equal(t, ret.ID, returns[0].ID)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormReturnRequestRepository_ReceiptsRoundTrip(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	ret := newTestReturn(t, "RR-2026-00002", uuid.New(), uuid.New(), decimal.NewFromInt(4))
	require.NoError(t, repo.Save(ctx, ret))

	require.NoError(t, ret.Approve(uuid.New(), []procurement.ReturnApproval{{
		LineID:      ret.Lines[0].ID,
		QtyApproved: decimal.NewFromInt(4),
	}}))
	require.NoError(t, repo.SaveWithLock(ctx, ret))

	receipt, err := ret.Receive(uuid.New(), []procurement.ReturnReceiptLine{{
		LineID:   ret.Lines[0].ID,
		Quantity: decimal.NewFromInt(2),
	}})
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.NoError(t, repo.SaveWithLock(ctx, ret))

	found, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.ReturnStatusPartiallyReceived, found.Status)
	require.Len(t, found.Receipts, 1)
	require.Len(t, found.Receipts[0].Items, 1)
	assert.True(t, found.Receipts[0].Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, found.Lines[0].QtyReceived.Equal(decimal.NewFromInt(2)))
}

func TestGormReturnRequestRepository_SaveWithLockConflict(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	ret := newTestReturn(t, "RR-2026-00003", uuid.New(), uuid.New(), decimal.NewFromInt(2))
	require.NoError(t, repo.Save(ctx, ret))

	copyA, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)
	copyB, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)

	require.NoError(t, copyA.Cancel())
	require.NoError(t, repo.SaveWithLock(ctx, copyA))

	require.NoError(t, copyB.Reject(uuid.New()))
	err = repo.SaveWithLock(ctx, copyB)
	require.ErrorIs(t, err, shared.ErrConflictingUpdate)

	found, err := repo.FindByID(ctx, ret.ID)
	require.NoError(t, err)
	assert.Equal(t, procurement.ReturnStatusCancelled, found.Status)
}

func TestGormReturnRequestRepository_ConsumedQuantities(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	purchaseOrderID := uuid.New()
	orderItemID := uuid.New()

	// A pending request claims what it asked for
	requested := newTestReturn(t, "RR-2026-00010", purchaseOrderID, orderItemID, decimal.NewFromInt(3))
	require.NoError(t, repo.Save(ctx, requested))

	// A decided request claims only what was granted
	approved := newTestReturn(t, "RR-2026-00011", purchaseOrderID, orderItemID, decimal.NewFromInt(4))
	require.NoError(t, repo.Save(ctx, approved))
	require.NoError(t, approved.Approve(uuid.New(), []procurement.ReturnApproval{{
		LineID:      approved.Lines[0].ID,
		QtyApproved: decimal.NewFromInt(2),
	}}))
	require.NoError(t, repo.SaveWithLock(ctx, approved))

	// A cancelled request claims nothing
	cancelled := newTestReturn(t, "RR-2026-00012", purchaseOrderID, orderItemID, decimal.NewFromInt(5))
	require.NoError(t, repo.Save(ctx, cancelled))
	require.NoError(t, cancelled.Cancel())
	require.NoError(t, repo.SaveWithLock(ctx, cancelled))

	t.Run("sums requested and approved quantities", func(t *testing.T) {
		consumed, err := repo.ConsumedQuantities(ctx, []uuid.UUID{orderItemID}, uuid.Nil)
		require.NoError(t, err)
		require.Contains(t, consumed, orderItemID)
		assert.True(t, consumed[orderItemID].Equal(decimal.NewFromInt(5)), "got %s", consumed[orderItemID])
	})

	t.Run("excludes the given return", func(t *testing.T) {
		consumed, err := repo.ConsumedQuantities(ctx, []uuid.UUID{orderItemID}, requested.ID)
		require.NoError(t, err)
		assert.True(t, consumed[orderItemID].Equal(decimal.NewFromInt(2)), "got %s", consumed[orderItemID])
	})

	t.Run("no rows means no entry", func(t *testing.T) {
		unknownItem := uuid.New()
		consumed, err := repo.ConsumedQuantities(ctx, []uuid.UUID{unknownItem}, uuid.Nil)
		require.NoError(t, err)
		assert.NotContains(t, consumed, unknownItem)
	})

	t.Run("empty input returns an empty map", func(t *testing.T) {
		consumed, err := repo.ConsumedQuantities(ctx, nil, uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, consumed)
	})
}

func TestGormReturnRequestRepository_GenerateReturnNumber(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	year := time.Now().Year()

	first, err := repo.GenerateReturnNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RR-%d-00001", year), first)

	ret := newTestReturn(t, first, uuid.New(), uuid.New(), decimal.NewFromInt(1))
	require.NoError(t, repo.Save(ctx, ret))

	second, err := repo.GenerateReturnNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RR-%d-00002", year), second)
}

func TestGormReturnRequestRepository_Count(t *testing.T) {
	db := setupProcurementTestDB(t)
	repo := NewGormReturnRequestRepository(db)
	ctx := context.Background()

	purchaseOrderID := uuid.New()
	for i := 1; i <= 2; i++ {
		ret := newTestReturn(t, fmt.Sprintf("RR-2026-2000%d", i), purchaseOrderID, uuid.New(), decimal.NewFromInt(1))
		require.NoError(t, repo.Save(ctx, ret))
	}
	other := newTestReturn(t, "RR-2026-20003", uuid.New(), uuid.New(), decimal.NewFromInt(1))
	require.NoError(t, repo.Save(ctx, other))

	count, err := repo.Count(ctx, shared.Filter{Filters: map[string]interface{}{
		"purchase_order_id": purchaseOrderID,
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
