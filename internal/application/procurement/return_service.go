package procurement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinventory "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/procurement"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// ReturnService handles supplier return business operations.
//
// The central invariant is quantity conservation per purchase order line:
// the quantity claimed by all consuming returns of a line never exceeds the
// quantity actually received on that line. The claimed quantity of a return
// is its requested quantity while REQUESTED and its approved quantity from
// approval onwards; rejected and cancelled returns release their claim.
type ReturnService struct {
	returnRepo      procurement.ReturnRequestRepository
	orderRepo       procurement.PurchaseOrderRepository
	scope           TransactionScope
	ledger          *appinventory.LedgerService
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	returnRepo procurement.ReturnRequestRepository,
	orderRepo procurement.PurchaseOrderRepository,
	scope TransactionScope,
	ledger *appinventory.LedgerService,
) *ReturnService {
	return &ReturnService{
		returnRepo: returnRepo,
		orderRepo:  orderRepo,
		scope:      scope,
		ledger:     ledger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReturnService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *ReturnService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create opens a new return request against a purchase order.
// Every requested line is validated against the returnable capacity of its
// order line before the request is persisted; one invalid line fails the
// whole request.
func (s *ReturnService) Create(ctx context.Context, req CreateReturnRequest) (*ReturnResponse, error) {
	var ret *procurement.ReturnRequest

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		order, err := repos.OrderRepo().FindByID(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}

		returnable, err := s.returnableQuantities(ctx, repos.ReturnRepo(), order, uuid.Nil)
		if err != nil {
			return err
		}

		lines := make([]procurement.NewReturnLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			item := order.GetItem(line.OrderItemID)
			if item == nil {
				return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order item %s not found", line.OrderItemID))
			}
			if line.Quantity.GreaterThan(returnable[item.ID]) {
				return shared.NewDomainError("QUANTITY_EXCEEDED",
					fmt.Sprintf("Cannot return %s for item %s, only %s returnable", line.Quantity.String(), item.ID, returnable[item.ID].String()))
			}
			lines = append(lines, procurement.NewReturnLine{
				OrderItemID:     item.ID,
				ProductID:       item.ProductID,
				ProductSKU:      item.ProductSKU,
				OrderedQty:      item.OrderedQty,
				ReceivedQtyOnPO: item.ReceivedQty,
				Quantity:        line.Quantity,
				UnitCost:        item.UnitCost,
				Notes:           line.Notes,
			})
		}

		returnNumber, err := repos.ReturnRepo().GenerateReturnNumber(ctx)
		if err != nil {
			return err
		}

		ret, err = procurement.NewReturnRequest(returnNumber, order.ID, req.Reason, req.RequestedBy, lines)
		if err != nil {
			return err
		}

		return repos.ReturnRepo().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordReturnOpened(ctx)
	}

	response := ToReturnResponse(ret)
	return &response, nil
}

// Approve decides the approved quantities of a return. The returnable
// capacity is recomputed inside the transaction, so a concurrent return on
// the same order lines cannot push the total claim past the received
// quantity. The version check on save turns a lost race into a
// CONFLICTING_UPDATE for the caller to retry.
func (s *ReturnService) Approve(ctx context.Context, returnID uuid.UUID, req ApproveReturnRequest) (*ReturnResponse, error) {
	var ret *procurement.ReturnRequest

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByID(ctx, returnID)
		if err != nil {
			return err
		}

		order, err := repos.OrderRepo().FindByID(ctx, ret.PurchaseOrderID)
		if err != nil {
			return err
		}

		returnable, err := s.returnableQuantities(ctx, repos.ReturnRepo(), order, ret.ID)
		if err != nil {
			return err
		}

		decisions := make([]procurement.ReturnApproval, 0, len(req.Lines))
		for _, line := range req.Lines {
			retLine := ret.GetLine(line.LineID)
			if retLine == nil {
				return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Return line %s not found", line.LineID))
			}
			if line.QtyApproved.GreaterThan(returnable[retLine.OrderItemID]) {
				return shared.NewDomainError("QUANTITY_EXCEEDED",
					fmt.Sprintf("Cannot approve %s for line %s, only %s returnable", line.QtyApproved.String(), line.LineID, returnable[retLine.OrderItemID].String()))
			}
			decisions = append(decisions, procurement.ReturnApproval{
				LineID:      line.LineID,
				QtyApproved: line.QtyApproved,
				RestockFee:  line.RestockFee,
			})
		}

		if err := ret.Approve(req.ApprovedBy, decisions); err != nil {
			return err
		}

		return repos.ReturnRepo().SaveWithLock(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	response := ToReturnResponse(ret)
	return &response, nil
}

// Reject rejects a return request without approving any quantity
func (s *ReturnService) Reject(ctx context.Context, returnID, rejectedBy uuid.UUID) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if err := ret.Reject(rejectedBy); err != nil {
		return nil, err
	}

	if err := s.returnRepo.SaveWithLock(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	response := ToReturnResponse(ret)
	return &response, nil
}

// Receive records a physical receipt of returned goods. When PostToStock is
// set, a RETURN movement is posted to the ledger for every received line in
// the same transaction.
func (s *ReturnService) Receive(ctx context.Context, returnID uuid.UUID, req ReceiveReturnRequest) (*ReturnResponse, error) {
	var ret *procurement.ReturnRequest
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		ret, err = repos.ReturnRepo().FindByID(ctx, returnID)
		if err != nil {
			return err
		}

		lines := make([]procurement.ReturnReceiptLine, len(req.Lines))
		for i, line := range req.Lines {
			lines[i] = procurement.ReturnReceiptLine{LineID: line.LineID, Quantity: line.Quantity}
		}

		receipt, err := ret.Receive(req.ReceivedBy, lines)
		if err != nil {
			return err
		}

		if req.PostToStock {
			for _, item := range receipt.Items {
				_, ledgerEvents, err := s.ledger.PostMovementIn(ctx, repos, appinventory.PostMovementRequest{
					WarehouseID:  req.WarehouseID,
					ProductID:    item.ProductID,
					Type:         inventory.MovementTypeReturn,
					Quantity:     item.Quantity,
					SourceType:   inventory.SourceTypeReturnRequest,
					SourceID:     ret.ReturnNumber,
					SourceLineID: item.ReturnLineID.String(),
					OperatorID:   &req.ReceivedBy,
				})
				if err != nil {
					return err
				}
				events = append(events, ledgerEvents...)
			}
		}

		events = append(events, ret.GetDomainEvents()...)
		ret.ClearDomainEvents()

		return repos.ReturnRepo().SaveWithLock(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		for _, event := range events {
			_ = s.eventPublisher.Publish(ctx, event)
		}
	}

	response := ToReturnResponse(ret)
	return &response, nil
}

// Refund settles a fully received return
func (s *ReturnService) Refund(ctx context.Context, returnID uuid.UUID, req RefundReturnRequest) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if err := ret.Refund(req.Amount); err != nil {
		return nil, err
	}

	if err := s.returnRepo.SaveWithLock(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordReturnRefunded(ctx, ret.RefundAmount)
	}

	response := ToReturnResponse(ret)
	return &response, nil
}

// Cancel cancels a return request that has not been decided yet
func (s *ReturnService) Cancel(ctx context.Context, returnID uuid.UUID) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}

	if err := ret.Cancel(); err != nil {
		return nil, err
	}

	if err := s.returnRepo.SaveWithLock(ctx, ret); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, ret)

	response := ToReturnResponse(ret)
	return &response, nil
}

// GetByID retrieves a return request by ID
func (s *ReturnService) GetByID(ctx context.Context, returnID uuid.UUID) (*ReturnResponse, error) {
	ret, err := s.returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	response := ToReturnResponse(ret)
	return &response, nil
}

// List retrieves return requests with filtering and pagination
func (s *ReturnService) List(ctx context.Context, filter ReturnListFilter) ([]ReturnResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.PurchaseOrderID != nil {
		domainFilter.Filters["purchase_order_id"] = *filter.PurchaseOrderID
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = filter.Status.String()
	}

	rets, err := s.returnRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.returnRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToReturnResponses(rets), total, nil
}

// ListByPurchaseOrder retrieves all return requests against an order
func (s *ReturnService) ListByPurchaseOrder(ctx context.Context, orderID uuid.UUID) ([]ReturnResponse, error) {
	rets, err := s.returnRepo.FindByPurchaseOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToReturnResponses(rets), nil
}

// returnableQuantities computes, per order item, the quantity still open for
// returning: the received quantity minus the quantity claimed by other
// consuming returns. The same formula serves request validation, approval
// validation and the reconciliation view.
func (s *ReturnService) returnableQuantities(ctx context.Context, returnRepo procurement.ReturnRequestRepository, order *procurement.PurchaseOrder, excludeReturnID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	itemIDs := make([]uuid.UUID, len(order.Items))
	for i := range order.Items {
		itemIDs[i] = order.Items[i].ID
	}

	consumed, err := returnRepo.ConsumedQuantities(ctx, itemIDs, excludeReturnID)
	if err != nil {
		return nil, err
	}

	returnable := make(map[uuid.UUID]decimal.Decimal, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		capacity := item.ReceivedQty.Sub(consumed[item.ID])
		if capacity.IsNegative() {
			capacity = decimal.Zero
		}
		returnable[item.ID] = capacity
	}
	return returnable, nil
}

// publishEvents publishes and clears the return's pending domain events
func (s *ReturnService) publishEvents(ctx context.Context, ret *procurement.ReturnRequest) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range ret.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	ret.ClearDomainEvents()
}
