package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// LedgerService is the single writer of the stock ledger. Every change to a
// stock level goes through PostMovement (or PostMovementIn when the caller
// already holds a transaction), which applies the movement to the level and
// appends the movement record atomically.
type LedgerService struct {
	scope           TransactionScope
	stockLevelRepo  inventory.StockLevelRepository
	movementRepo    inventory.StockMovementRepository
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	stockLevelRepo inventory.StockLevelRepository,
	movementRepo inventory.StockMovementRepository,
) *LedgerService {
	return &LedgerService{
		scope:          scope,
		stockLevelRepo: stockLevelRepo,
		movementRepo:   movementRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *LedgerService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// PostMovement posts a single movement in its own transaction
func (s *LedgerService) PostMovement(ctx context.Context, req PostMovementRequest) (*MovementResponse, error) {
	var movement *inventory.StockMovement
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movement, events, err = s.PostMovementIn(ctx, repos, req)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		for _, event := range events {
			_ = s.eventPublisher.Publish(ctx, event)
		}
	}

	response := ToMovementResponse(movement)
	return &response, nil
}

// PostMovementIn posts a movement using repositories already scoped to the
// caller's transaction. Receiving flows use this to keep the order update and
// the ledger postings in one transaction. The returned domain events should
// be published by the caller after the transaction commits.
func (s *LedgerService) PostMovementIn(ctx context.Context, repos TransactionalRepositories, req PostMovementRequest) (*inventory.StockMovement, []shared.DomainEvent, error) {
	if !req.Type.IsValid() {
		return nil, nil, shared.NewDomainError("INVALID_INPUT", "Invalid movement type")
	}

	level, err := repos.StockLevelRepo().GetOrCreate(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		return nil, nil, err
	}

	before, after, err := level.ApplyMovement(req.Type, req.Quantity)
	if err != nil {
		return nil, nil, err
	}

	movement, err := inventory.NewStockMovement(level.ID, req.WarehouseID, req.ProductID,
		req.Type, req.Quantity, before, after, req.SourceType, req.SourceID)
	if err != nil {
		return nil, nil, err
	}
	if req.SourceLineID != "" {
		movement.WithSourceLineID(req.SourceLineID)
	}
	if req.Reason != "" {
		movement.WithReason(req.Reason)
	}
	if req.OperatorID != nil {
		movement.WithOperatorID(*req.OperatorID)
	}

	if err := repos.MovementRepo().Save(ctx, movement); err != nil {
		return nil, nil, err
	}

	events := level.GetDomainEvents()
	level.ClearDomainEvents()

	if err := repos.StockLevelRepo().SaveWithLock(ctx, level); err != nil {
		return nil, nil, err
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordStockMovement(ctx, req.Type.String(), req.Quantity)
	}

	return movement, events, nil
}

// AdjustStock posts an absolute adjustment of a stock level
func (s *LedgerService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*MovementResponse, error) {
	if req.TargetQty.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Adjustment target cannot be negative")
	}

	return s.PostMovement(ctx, PostMovementRequest{
		WarehouseID: req.WarehouseID,
		ProductID:   req.ProductID,
		Type:        inventory.MovementTypeAdjust,
		Quantity:    req.TargetQty,
		SourceType:  inventory.SourceTypeManualAdjustment,
		SourceID:    "ADJ-" + uuid.NewString()[:8],
		Reason:      req.Reason,
		OperatorID:  req.OperatorID,
	})
}

// GetStockLevel retrieves the stock level for a warehouse-product combination
func (s *LedgerService) GetStockLevel(ctx context.Context, warehouseID, productID uuid.UUID) (*StockLevelResponse, error) {
	level, err := s.stockLevelRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	response := ToStockLevelResponse(level)
	return &response, nil
}

// ListStockLevels retrieves stock levels with filtering and pagination
func (s *LedgerService) ListStockLevels(ctx context.Context, filter StockLevelListFilter) ([]StockLevelResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.WarehouseID != nil {
		domainFilter.Filters["warehouse_id"] = *filter.WarehouseID
	}
	if filter.ProductID != nil {
		domainFilter.Filters["product_id"] = *filter.ProductID
	}

	levels, err := s.stockLevelRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.stockLevelRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToStockLevelResponses(levels), total, nil
}

// ListMovements retrieves the movement history for a warehouse-product
// combination in creation order
func (s *LedgerService) ListMovements(ctx context.Context, filter MovementListFilter) ([]MovementResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "created_at"
	domainFilter.OrderDir = "asc"
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.Filters["warehouse_id"] = filter.WarehouseID
	domainFilter.Filters["product_id"] = filter.ProductID

	movements, err := s.movementRepo.FindByWarehouseAndProduct(ctx, filter.WarehouseID, filter.ProductID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.movementRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToMovementResponses(movements), total, nil
}

// GetTotalOnHand sums the on-hand quantity for a product across all warehouses
func (s *LedgerService) GetTotalOnHand(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.stockLevelRepo.SumQuantityByProduct(ctx, productID)
}

// CheckLedger verifies that the materialized stock level equals the sum of
// its ledger movements
func (s *LedgerService) CheckLedger(ctx context.Context, warehouseID, productID uuid.UUID) (*LedgerCheckResponse, error) {
	level, err := s.stockLevelRepo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}

	sum, err := s.movementRepo.SumSignedQuantity(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}

	return &LedgerCheckResponse{
		WarehouseID: warehouseID,
		ProductID:   productID,
		QtyOnHand:   level.QtyOnHand,
		LedgerSum:   sum,
		Consistent:  level.QtyOnHand.Equal(sum),
	}, nil
}
