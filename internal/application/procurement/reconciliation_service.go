package procurement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/procurement"
)

// ReconciliationService answers the bookkeeping questions the receiving and
// returns desks ask about an order: how much is still receivable per line,
// and how much is still returnable once existing returns are accounted for.
type ReconciliationService struct {
	orderRepo  procurement.PurchaseOrderRepository
	returnRepo procurement.ReturnRequestRepository
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	orderRepo procurement.PurchaseOrderRepository,
	returnRepo procurement.ReturnRequestRepository,
) *ReconciliationService {
	return &ReconciliationService{
		orderRepo:  orderRepo,
		returnRepo: returnRepo,
	}
}

// ReconcileOrder computes the receivable and returnable quantities for every
// line of an order. Receivable is the ordered quantity not yet received.
// Returnable is the received quantity minus the quantity claimed by all
// consuming returns of the line.
func (s *ReconciliationService) ReconcileOrder(ctx context.Context, orderID uuid.UUID) (*OrderReconciliationResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	itemIDs := make([]uuid.UUID, len(order.Items))
	for i := range order.Items {
		itemIDs[i] = order.Items[i].ID
	}

	consumed, err := s.returnRepo.ConsumedQuantities(ctx, itemIDs, uuid.Nil)
	if err != nil {
		return nil, err
	}

	lines := make([]OrderLineReconciliation, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		returnable := item.ReceivedQty.Sub(consumed[item.ID])
		if returnable.IsNegative() {
			returnable = decimal.Zero
		}
		lines[i] = OrderLineReconciliation{
			ItemID:        item.ID,
			ProductID:     item.ProductID,
			ProductSKU:    item.ProductSKU,
			OrderedQty:    item.OrderedQty,
			ReceivedQty:   item.ReceivedQty,
			ReceivableQty: item.RemainingQty(),
			ConsumedQty:   consumed[item.ID],
			ReturnableQty: returnable,
		}
	}

	return &OrderReconciliationResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
		Lines:       lines,
	}, nil
}
