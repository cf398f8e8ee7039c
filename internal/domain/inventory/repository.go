package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// StockLevelRepository defines the interface for stock level persistence
type StockLevelRepository interface {
	// FindByID finds a stock level by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockLevel, error)

	// FindByWarehouseAndProduct finds the stock level for a warehouse-product combination
	FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*StockLevel, error)

	// FindByWarehouse finds all stock levels in a warehouse
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) ([]StockLevel, error)

	// FindByProduct finds all stock levels for a product across warehouses
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockLevel, error)

	// FindAll finds all stock levels matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]StockLevel, error)

	// GetOrCreate gets the existing stock level or lazily creates a zero row
	GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*StockLevel, error)

	// Save creates or updates a stock level
	Save(ctx context.Context, level *StockLevel) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, level *StockLevel) error

	// SumQuantityByProduct sums on-hand quantity for a product across all warehouses
	SumQuantityByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// Count counts stock levels matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// StockMovementRepository defines the interface for the append-only movement ledger.
// Movements are only ever inserted; there are no update or delete operations.
type StockMovementRepository interface {
	// Save appends a movement to the ledger
	Save(ctx context.Context, movement *StockMovement) error

	// FindByID finds a movement by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// FindByWarehouseAndProduct lists movements for a warehouse-product combination
	// in creation order
	FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID, filter shared.Filter) ([]StockMovement, error)

	// FindBySource lists movements originating from a source document
	FindBySource(ctx context.Context, sourceType SourceType, sourceID string) ([]StockMovement, error)

	// SumSignedQuantity folds the signed quantities of all movements for a
	// warehouse-product combination; used to verify the materialized level
	SumSignedQuantity(ctx context.Context, warehouseID, productID uuid.UUID) (decimal.Decimal, error)

	// Count counts movements matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
