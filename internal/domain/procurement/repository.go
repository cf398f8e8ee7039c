package procurement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds an order by its ID, with items preloaded
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds an order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// FindAll finds orders matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseOrder, error)

	// FindBySupplier finds orders for a supplier
	FindBySupplier(ctx context.Context, supplierID uuid.UUID, filter shared.Filter) ([]PurchaseOrder, error)

	// FindByStatus finds orders in a given status
	FindByStatus(ctx context.Context, status PurchaseOrderStatus, filter shared.Filter) ([]PurchaseOrder, error)

	// Save creates or updates an order together with its items
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error

	// Delete removes an order; only draft orders may be deleted
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus returns the number of orders per status
	CountByStatus(ctx context.Context) (map[PurchaseOrderStatus]int64, error)

	// GenerateOrderNumber generates the next sequential order number
	GenerateOrderNumber(ctx context.Context) (string, error)

	// ExistsByOrderNumber checks if an order number is taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
}

// ReturnRequestRepository defines the interface for return request persistence
type ReturnRequestRepository interface {
	// FindByID finds a return request by its ID, with lines and receipts preloaded
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnRequest, error)

	// FindByReturnNumber finds a return request by its return number
	FindByReturnNumber(ctx context.Context, returnNumber string) (*ReturnRequest, error)

	// FindByPurchaseOrder finds all return requests against an order
	FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]ReturnRequest, error)

	// FindByStatus finds return requests in a given status
	FindByStatus(ctx context.Context, status ReturnStatus, filter shared.Filter) ([]ReturnRequest, error)

	// FindAll finds return requests matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]ReturnRequest, error)

	// Save creates or updates a return request together with its lines and receipts
	Save(ctx context.Context, ret *ReturnRequest) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, ret *ReturnRequest) error

	// ConsumedQuantities sums, per purchase order item, the quantity claimed by
	// returns that are still consuming, excluding the given return request.
	// Used to compute the returnable capacity of order lines.
	ConsumedQuantities(ctx context.Context, orderItemIDs []uuid.UUID, excludeReturnID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// GenerateReturnNumber generates the next sequential return number
	GenerateReturnNumber(ctx context.Context) (string, error)

	// Count counts return requests matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
