package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinventory "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/partner"
	"github.com/wms/backend/internal/domain/procurement"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
	"github.com/wms/backend/internal/infrastructure/telemetry"
)

// DocumentStore persists generated order documents.
// The production implementation stores to S3; tests use an in-memory store.
type DocumentStore interface {
	// Put stores a document under the given key
	Put(ctx context.Context, key, contentType string, body []byte) error
	// Get retrieves a document by key
	Get(ctx context.Context, key string) ([]byte, error)
}

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	orderRepo       procurement.PurchaseOrderRepository
	supplierRepo    partner.SupplierRepository
	warehouseRepo   partner.WarehouseRepository
	productRepo     catalog.ProductRepository
	scope           TransactionScope
	ledger          *appinventory.LedgerService
	documents       DocumentStore
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo procurement.PurchaseOrderRepository,
	supplierRepo partner.SupplierRepository,
	warehouseRepo partner.WarehouseRepository,
	productRepo catalog.ProductRepository,
	scope TransactionScope,
	ledger *appinventory.LedgerService,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orderRepo:     orderRepo,
		supplierRepo:  supplierRepo,
		warehouseRepo: warehouseRepo,
		productRepo:   productRepo,
		scope:         scope,
		ledger:        ledger,
	}
}

// SetDocumentStore sets the store for generated order documents
func (s *PurchaseOrderService) SetDocumentStore(store DocumentStore) {
	s.documents = store
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (s *PurchaseOrderService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Create creates a new draft purchase order
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Supplier %s is not active", supplier.Code))
	}

	warehouse, err := s.warehouseRepo.FindByID(ctx, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !warehouse.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Warehouse %s is not active", warehouse.Code))
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order, err := procurement.NewPurchaseOrder(orderNumber, supplier.ID, supplier.Name, req.WarehouseID, req.BuyerID)
	if err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		if err := s.addItemFromCatalog(ctx, order, item.ProductID, item.Quantity, item.UnitCost); err != nil {
			return nil, err
		}
	}

	if req.Remark != "" {
		order.SetRemark(req.Remark)
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, order)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderCreated(ctx, order.TotalAmount)
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// addItemFromCatalog snapshots the product master data onto a new order line
func (s *PurchaseOrderService) addItemFromCatalog(ctx context.Context, order *procurement.PurchaseOrder, productID uuid.UUID, quantity, unitCost decimal.Decimal) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Product %s is not active", product.SKU))
	}

	cost := unitCost
	if cost.IsZero() {
		cost = product.UnitCost
	}

	_, err = order.AddItem(product.ID, product.SKU, product.Name, product.Unit, quantity, valueobject.NewMoneyUSD(cost))
	return err
}

// GetByID retrieves a purchase order by ID
func (s *PurchaseOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetByOrderNumber retrieves a purchase order by order number
func (s *PurchaseOrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// List retrieves purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, filter PurchaseOrderListFilter) ([]PurchaseOrderResponse, int64, error) {
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
	domainFilter.Search = filter.Search
	if filter.SupplierID != nil {
		domainFilter.Filters["supplier_id"] = *filter.SupplierID
	}
	if filter.Status != nil {
		domainFilter.Filters["status"] = filter.Status.String()
	}
	if filter.StartDate != nil {
		domainFilter.Filters["start_date"] = *filter.StartDate
	}
	if filter.EndDate != nil {
		domainFilter.Filters["end_date"] = *filter.EndDate
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToPurchaseOrderResponses(orders), total, nil
}

// AddItem adds an item to a draft purchase order
func (s *PurchaseOrderService) AddItem(ctx context.Context, orderID uuid.UUID, req AddPurchaseOrderItemRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.addItemFromCatalog(ctx, order, req.ProductID, req.Quantity, req.UnitCost); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// UpdateItem updates the quantity and cost of a draft order item
func (s *PurchaseOrderService) UpdateItem(ctx context.Context, orderID, itemID uuid.UUID, req UpdatePurchaseOrderItemRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.UpdateItem(itemID, req.Quantity, valueobject.NewMoneyUSD(req.UnitCost)); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// RemoveItem removes an item from a draft purchase order
func (s *PurchaseOrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.RemoveItem(itemID); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Submit submits a draft order for approval
func (s *PurchaseOrderService) Submit(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Submit(); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, order)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Approve approves a pending order and generates the order document
func (s *PurchaseOrderService) Approve(ctx context.Context, orderID uuid.UUID, req ApprovePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Approve(req.ApproverID); err != nil {
		return nil, err
	}

	if s.documents != nil {
		key := fmt.Sprintf("purchase-orders/%s.txt", order.OrderNumber)
		if err := s.documents.Put(ctx, key, "text/plain; charset=utf-8", renderOrderDocument(order)); err != nil {
			return nil, fmt.Errorf("store order document: %w", err)
		}
		order.SetDocumentKey(key)
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, order)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderApproved(ctx, order.TotalAmount)
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// SendToSupplier marks an approved order as emailed to the supplier.
// Returns the supplier email the order document was addressed to.
func (s *PurchaseOrderService) SendToSupplier(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, string, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	supplier, err := s.supplierRepo.FindByID(ctx, order.SupplierID)
	if err != nil {
		return nil, "", err
	}
	if !supplier.HasEmail() {
		return nil, "", shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Supplier %s has no email address", supplier.Code))
	}

	if err := order.UpdateStatus(procurement.PurchaseOrderStatusEmailSent); err != nil {
		return nil, "", err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, "", err
	}

	s.publishEvents(ctx, order)

	response := ToPurchaseOrderResponse(order)
	return &response, supplier.Email, nil
}

// UpdateStatus advances an order along the supplier-side state machine
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req UpdatePurchaseOrderStatusRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.UpdateStatus(req.Status); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, order)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Receive processes receipt of goods for a delivered order. The received
// quantities and the IN movements on the stock ledger are committed in one
// transaction, so the order and the ledger can never disagree.
func (s *PurchaseOrderService) Receive(ctx context.Context, orderID uuid.UUID, req ReceivePurchaseOrderRequest) (*ReceiveResultResponse, error) {
	var order *procurement.PurchaseOrder
	var infos []procurement.ReceivedItemInfo
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		lines := make([]procurement.ReceiveLine, len(req.Lines))
		for i, line := range req.Lines {
			lines[i] = procurement.ReceiveLine{ItemID: line.ItemID, Quantity: line.Quantity}
		}

		infos, err = order.Receive(lines, req.OperatorID)
		if err != nil {
			return err
		}

		for _, info := range infos {
			_, ledgerEvents, err := s.ledger.PostMovementIn(ctx, repos, appinventory.PostMovementRequest{
				WarehouseID:  order.WarehouseID,
				ProductID:    info.ProductID,
				Type:         inventory.MovementTypeIn,
				Quantity:     info.Quantity,
				SourceType:   inventory.SourceTypePurchaseOrder,
				SourceID:     order.OrderNumber,
				SourceLineID: info.ItemID.String(),
				OperatorID:   &req.OperatorID,
			})
			if err != nil {
				return err
			}
			events = append(events, ledgerEvents...)
		}

		events = append(events, order.GetDomainEvents()...)
		order.ClearDomainEvents()

		return repos.OrderRepo().SaveWithLock(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		for _, event := range events {
			_ = s.eventPublisher.Publish(ctx, event)
		}
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderReceived(ctx, len(infos))
	}

	return &ReceiveResultResponse{
		Order:         ToPurchaseOrderResponse(order),
		ReceivedLines: ToReceivedLineResponses(infos),
		Completed:     order.Status == procurement.PurchaseOrderStatusCompleted,
	}, nil
}

// Cancel cancels a purchase order
func (s *PurchaseOrderService) Cancel(ctx context.Context, orderID uuid.UUID, req CancelPurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, order)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Delete deletes a purchase order (only allowed in DRAFT status)
func (s *PurchaseOrderService) Delete(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.IsDraft() {
		return shared.NewDomainError("INVALID_STATE", "Only draft orders can be deleted")
	}

	return s.orderRepo.Delete(ctx, orderID)
}

// GetStatusSummary retrieves order counts per status
func (s *PurchaseOrderService) GetStatusSummary(ctx context.Context) (*PurchaseOrderStatusSummary, error) {
	counts, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	summary := &PurchaseOrderStatusSummary{Counts: make(map[string]int64, len(counts))}
	for status, count := range counts {
		summary.Counts[status.String()] = count
		summary.Total += count
	}
	return summary, nil
}

// publishEvents publishes and clears the order's pending domain events
func (s *PurchaseOrderService) publishEvents(ctx context.Context, order *procurement.PurchaseOrder) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range order.GetDomainEvents() {
		_ = s.eventPublisher.Publish(ctx, event)
	}
	order.ClearDomainEvents()
}

// renderOrderDocument renders a plain-text order document for the supplier
func renderOrderDocument(order *procurement.PurchaseOrder) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "PURCHASE ORDER %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "Supplier: %s\n", order.SupplierName)
	fmt.Fprintf(&b, "Status: %s\n\n", order.Status)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%-20s %-40s %12s x %12s = %12s\n",
			item.ProductSKU, item.ProductName, item.OrderedQty.String(), item.UnitCost.StringFixed(2), item.Amount.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", order.TotalAmount.StringFixed(2))
	return []byte(b.String())
}
