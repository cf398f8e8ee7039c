package procurement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appinventory "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/partner"
	"github.com/wms/backend/internal/domain/procurement"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

type orderServiceFixture struct {
	service       *PurchaseOrderService
	orderRepo     *MockPurchaseOrderRepository
	returnRepo    *MockReturnRequestRepository
	supplierRepo  *MockSupplierRepository
	warehouseRepo *MockWarehouseRepository
	productRepo   *MockProductRepository
	levelRepo     *MockStockLevelRepository
	movementRepo  *MockStockMovementRepository
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()
	f := &orderServiceFixture{
		orderRepo:     new(MockPurchaseOrderRepository),
		returnRepo:    new(MockReturnRequestRepository),
		supplierRepo:  new(MockSupplierRepository),
		warehouseRepo: new(MockWarehouseRepository),
		productRepo:   new(MockProductRepository),
		levelRepo:     new(MockStockLevelRepository),
		movementRepo:  new(MockStockMovementRepository),
	}
	scope := NewNoOpTransactionScope(f.orderRepo, f.returnRepo, f.levelRepo, f.movementRepo)
	ledger := appinventory.NewLedgerService(
		appinventory.NewNoOpTransactionScope(f.levelRepo, f.movementRepo),
		f.levelRepo, f.movementRepo)
	f.service = NewPurchaseOrderService(f.orderRepo, f.supplierRepo, f.warehouseRepo, f.productRepo, scope, ledger)
	return f
}

func activeSupplier(t *testing.T) *partner.Supplier {
	t.Helper()
	supplier, err := partner.NewSupplier("ACME", "Acme Supplies")
	require.NoError(t, err)
	require.NoError(t, supplier.SetContact("Jo", "555-0100", "orders@acme.example"))
	return supplier
}

func activeWarehouse(t *testing.T) *partner.Warehouse {
	t.Helper()
	warehouse, err := partner.NewWarehouse("WH-MAIN", "Main Warehouse")
	require.NoError(t, err)
	return warehouse
}

func activeProduct(t *testing.T, sku string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(sku, "Product "+sku, "pcs")
	require.NoError(t, err)
	require.NoError(t, product.SetUnitCost(valueobject.NewMoneyUSD(decimal.NewFromInt(3))))
	return product
}

func deliveredTestOrder(t *testing.T, quantities ...int64) *procurement.PurchaseOrder {
	t.Helper()
	order, err := procurement.NewPurchaseOrder("PO-2026-00001", uuid.New(), "Acme Supplies", uuid.New(), uuid.New())
	require.NoError(t, err)
	for i, qty := range quantities {
		_, err := order.AddItem(uuid.New(), "SKU-"+string(rune('A'+i)), "Product", "pcs",
			decimal.NewFromInt(qty), valueobject.NewMoneyUSD(decimal.NewFromInt(3)))
		require.NoError(t, err)
	}
	require.NoError(t, order.Submit())
	require.NoError(t, order.Approve(uuid.New()))
	for _, status := range []procurement.PurchaseOrderStatus{
		procurement.PurchaseOrderStatusEmailSent, procurement.PurchaseOrderStatusSupplierReplied,
		procurement.PurchaseOrderStatusConfirmed, procurement.PurchaseOrderStatusShipped,
		procurement.PurchaseOrderStatusDelivered,
	} {
		require.NoError(t, order.UpdateStatus(status))
	}
	order.ClearDomainEvents()
	return order
}

func TestPurchaseOrderServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates draft with catalog snapshot", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier := activeSupplier(t)
		warehouse := activeWarehouse(t)
		product := activeProduct(t, "SKU-A")

		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)
		f.warehouseRepo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)
		f.orderRepo.On("GenerateOrderNumber", ctx).Return("PO-2026-00042", nil)
		f.productRepo.On("FindByID", ctx, product.ID).Return(product, nil)
		f.orderRepo.On("Save", ctx, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(nil)

		resp, err := f.service.Create(ctx, CreatePurchaseOrderRequest{
			SupplierID:  supplier.ID,
			WarehouseID: warehouse.ID,
			BuyerID:     uuid.New(),
			Items: []CreatePurchaseOrderItemInput{
				{ProductID: product.ID, Quantity: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(2)},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "PO-2026-00042", resp.OrderNumber)
		assert.Equal(t, "DRAFT", resp.Status)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "SKU-A", resp.Items[0].ProductSKU)
		assert.Equal(t, int64(10), resp.TotalAmount.IntPart())
		// one item was added after construction
		assert.Equal(t, int64(2), resp.Version)
	})

	t.Run("falls back to catalog cost when none given", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier := activeSupplier(t)
		warehouse := activeWarehouse(t)
		product := activeProduct(t, "SKU-B")

		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)
		f.warehouseRepo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)
		f.orderRepo.On("GenerateOrderNumber", ctx).Return("PO-2026-00043", nil)
		f.productRepo.On("FindByID", ctx, product.ID).Return(product, nil)
		f.orderRepo.On("Save", ctx, mock.AnythingOfType("*procurement.PurchaseOrder")).Return(nil)

		resp, err := f.service.Create(ctx, CreatePurchaseOrderRequest{
			SupplierID:  supplier.ID,
			WarehouseID: warehouse.ID,
			BuyerID:     uuid.New(),
			Items: []CreatePurchaseOrderItemInput{
				{ProductID: product.ID, Quantity: decimal.NewFromInt(2)},
			},
		})
		require.NoError(t, err)
		// 2 * 3 from the product master
		assert.Equal(t, int64(6), resp.TotalAmount.IntPart())
	})

	t.Run("rejects inactive supplier", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier := activeSupplier(t)
		require.NoError(t, supplier.Block())

		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)

		_, err := f.service.Create(ctx, CreatePurchaseOrderRequest{
			SupplierID:  supplier.ID,
			WarehouseID: uuid.New(),
			BuyerID:     uuid.New(),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("rejects unknown warehouse", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier := activeSupplier(t)
		warehouseID := uuid.New()

		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)
		f.warehouseRepo.On("FindByID", ctx, warehouseID).Return(nil, shared.ErrNotFound)

		_, err := f.service.Create(ctx, CreatePurchaseOrderRequest{
			SupplierID:  supplier.ID,
			WarehouseID: warehouseID,
			BuyerID:     uuid.New(),
		})
		require.ErrorIs(t, err, shared.ErrNotFound)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects inactive warehouse", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier := activeSupplier(t)
		warehouse := activeWarehouse(t)
		require.NoError(t, warehouse.Disable())

		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)
		f.warehouseRepo.On("FindByID", ctx, warehouse.ID).Return(warehouse, nil)

		_, err := f.service.Create(ctx, CreatePurchaseOrderRequest{
			SupplierID:  supplier.ID,
			WarehouseID: warehouse.ID,
			BuyerID:     uuid.New(),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
		f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestPurchaseOrderServiceReceive(t *testing.T) {
	ctx := context.Background()

	t.Run("posts one IN movement per received line", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		order := deliveredTestOrder(t, 10, 4)
		level, err := inventory.NewStockLevel(order.WarehouseID, order.Items[0].ProductID)
		require.NoError(t, err)
		level2, err := inventory.NewStockLevel(order.WarehouseID, order.Items[1].ProductID)
		require.NoError(t, err)

		f.orderRepo.On("FindByID", ctx, order.ID).Return(order, nil)
		f.levelRepo.On("GetOrCreate", ctx, order.WarehouseID, order.Items[0].ProductID).Return(level, nil)
		f.levelRepo.On("GetOrCreate", ctx, order.WarehouseID, order.Items[1].ProductID).Return(level2, nil)
		f.movementRepo.On("Save", ctx, mock.AnythingOfType("*inventory.StockMovement")).Return(nil)
		f.levelRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*inventory.StockLevel")).Return(nil)
		f.orderRepo.On("SaveWithLock", ctx, order).Return(nil)

		result, err := f.service.Receive(ctx, order.ID, ReceivePurchaseOrderRequest{
			OperatorID: uuid.New(),
			Lines: []ReceiveLineInput{
				{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(10)},
				{ItemID: order.Items[1].ID, Quantity: decimal.NewFromInt(4)},
			},
		})
		require.NoError(t, err)
		assert.True(t, result.Completed)
		assert.Len(t, result.ReceivedLines, 2)
		assert.Equal(t, int64(10), level.QtyOnHand.IntPart())
		assert.Equal(t, int64(4), level2.QtyOnHand.IntPart())
		f.movementRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("over-receive fails without ledger postings", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		order := deliveredTestOrder(t, 5)

		f.orderRepo.On("FindByID", ctx, order.ID).Return(order, nil)

		_, err := f.service.Receive(ctx, order.ID, ReceivePurchaseOrderRequest{
			OperatorID: uuid.New(),
			Lines:      []ReceiveLineInput{{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(6)}},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "QUANTITY_EXCEEDED", domainErr.Code)

		f.movementRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestPurchaseOrderServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("submit and approve", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		order, err := procurement.NewPurchaseOrder("PO-2026-00001", uuid.New(), "Acme", uuid.New(), uuid.New())
		require.NoError(t, err)
		_, err = order.AddItem(uuid.New(), "SKU-A", "Widget", "pcs", decimal.NewFromInt(1), valueobject.NewMoneyUSD(decimal.NewFromInt(1)))
		require.NoError(t, err)

		f.orderRepo.On("FindByID", ctx, order.ID).Return(order, nil)
		f.orderRepo.On("SaveWithLock", ctx, order).Return(nil)

		resp, err := f.service.Submit(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING_APPROVAL", resp.Status)

		approver := uuid.New()
		resp, err = f.service.Approve(ctx, order.ID, ApprovePurchaseOrderRequest{ApproverID: approver})
		require.NoError(t, err)
		assert.Equal(t, "APPROVED", resp.Status)
		require.NotNil(t, resp.ApproverID)
		assert.Equal(t, approver, *resp.ApproverID)
	})

	t.Run("send to supplier requires email", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		supplier, err := partner.NewSupplier("NOMAIL", "No Mail Ltd")
		require.NoError(t, err)
		order, err := procurement.NewPurchaseOrder("PO-2026-00002", supplier.ID, supplier.Name, uuid.New(), uuid.New())
		require.NoError(t, err)

		f.orderRepo.On("FindByID", ctx, order.ID).Return(order, nil)
		f.supplierRepo.On("FindByID", ctx, supplier.ID).Return(supplier, nil)

		_, _, err = f.service.SendToSupplier(ctx, order.ID)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})

	t.Run("delete only drafts", func(t *testing.T) {
		f := newOrderServiceFixture(t)
		order := deliveredTestOrder(t, 5)

		f.orderRepo.On("FindByID", ctx, order.ID).Return(order, nil)

		err := f.service.Delete(ctx, order.ID)
		require.Error(t, err)
		f.orderRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestPurchaseOrderServiceStatusSummary(t *testing.T) {
	ctx := context.Background()
	f := newOrderServiceFixture(t)

	f.orderRepo.On("CountByStatus", ctx).Return(map[procurement.PurchaseOrderStatus]int64{
		procurement.PurchaseOrderStatusDraft:     3,
		procurement.PurchaseOrderStatusConfirmed: 2,
		procurement.PurchaseOrderStatusCompleted: 7,
	}, nil)

	summary, err := f.service.GetStatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), summary.Total)
	assert.Equal(t, int64(3), summary.Counts["DRAFT"])
	assert.Equal(t, int64(7), summary.Counts["COMPLETED"])
}
