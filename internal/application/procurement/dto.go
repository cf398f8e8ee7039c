package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/procurement"
)

// ==================== Purchase Order DTOs ====================

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID  uuid.UUID                      `json:"supplier_id" binding:"required"`
	WarehouseID uuid.UUID                      `json:"warehouse_id" binding:"required"`
	BuyerID     uuid.UUID                      `json:"buyer_id" binding:"required"`
	Items       []CreatePurchaseOrderItemInput `json:"items"`
	Remark      string                         `json:"remark"`
}

// CreatePurchaseOrderItemInput represents an item in the create order request
type CreatePurchaseOrderItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"required"`
}

// AddPurchaseOrderItemRequest represents a request to add an item to a draft order
type AddPurchaseOrderItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"required"`
}

// UpdatePurchaseOrderItemRequest represents a request to update a draft order item
type UpdatePurchaseOrderItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost decimal.Decimal `json:"unit_cost" binding:"required"`
}

// ApprovePurchaseOrderRequest represents an approval decision
type ApprovePurchaseOrderRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
}

// UpdatePurchaseOrderStatusRequest represents a generic status advance
type UpdatePurchaseOrderStatusRequest struct {
	Status procurement.PurchaseOrderStatus `json:"status" binding:"required"`
}

// ReceiveLineInput represents a single line to receive
type ReceiveLineInput struct {
	ItemID   uuid.UUID       `json:"item_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ReceivePurchaseOrderRequest represents a request to receive goods for an order
type ReceivePurchaseOrderRequest struct {
	OperatorID uuid.UUID          `json:"operator_id" binding:"required"`
	Lines      []ReceiveLineInput `json:"lines" binding:"required,min=1"`
}

// CancelPurchaseOrderRequest represents a request to cancel an order
type CancelPurchaseOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// PurchaseOrderListFilter represents filter options for the order list
type PurchaseOrderListFilter struct {
	Search     string                           `form:"search"`
	SupplierID *uuid.UUID                       `form:"supplier_id"`
	Status     *procurement.PurchaseOrderStatus `form:"status"`
	StartDate  *time.Time                       `form:"start_date"`
	EndDate    *time.Time                       `form:"end_date"`
	Page       int                              `form:"page" binding:"min=0"`
	PageSize   int                              `form:"page_size" binding:"min=0,max=100"`
	OrderBy    string                           `form:"order_by"`
	OrderDir   string                           `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseOrderItemResponse represents an order item in API responses
type PurchaseOrderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `json:"product_name"`
	Unit         string          `json:"unit"`
	OrderedQty   decimal.Decimal `json:"ordered_qty"`
	ReceivedQty  decimal.Decimal `json:"received_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Amount       decimal.Decimal `json:"amount"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID           uuid.UUID                   `json:"id"`
	OrderNumber  string                      `json:"order_number"`
	SupplierID   uuid.UUID                   `json:"supplier_id"`
	SupplierName string                      `json:"supplier_name"`
	WarehouseID  uuid.UUID                   `json:"warehouse_id"`
	BuyerID      uuid.UUID                   `json:"buyer_id"`
	ApproverID   *uuid.UUID                  `json:"approver_id,omitempty"`
	Items        []PurchaseOrderItemResponse `json:"items"`
	ItemCount    int                         `json:"item_count"`
	TotalAmount  decimal.Decimal             `json:"total_amount"`
	Status       string                      `json:"status"`
	DocumentKey  string                      `json:"document_key,omitempty"`
	Remark       string                      `json:"remark,omitempty"`
	SubmittedAt  *time.Time                  `json:"submitted_at,omitempty"`
	ApprovedAt   *time.Time                  `json:"approved_at,omitempty"`
	CompletedAt  *time.Time                  `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                  `json:"cancelled_at,omitempty"`
	CancelReason string                      `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	Version      int64                       `json:"version"`
}

// ReceiveResultResponse represents the outcome of a receiving operation
type ReceiveResultResponse struct {
	Order         PurchaseOrderResponse  `json:"order"`
	ReceivedLines []ReceivedLineResponse `json:"received_lines"`
	Completed     bool                   `json:"completed"`
}

// ReceivedLineResponse represents one received line in the result
type ReceivedLineResponse struct {
	ItemID     uuid.UUID       `json:"item_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	ProductSKU string          `json:"product_sku"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// PurchaseOrderStatusSummary represents order counts per status
type PurchaseOrderStatusSummary struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// ==================== Return Request DTOs ====================

// CreateReturnLineInput represents one line in a create return request
type CreateReturnLineInput struct {
	OrderItemID uuid.UUID       `json:"order_item_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Notes       string          `json:"notes"`
}

// CreateReturnRequest represents a request to open a return against an order
type CreateReturnRequest struct {
	PurchaseOrderID uuid.UUID               `json:"purchase_order_id" binding:"required"`
	Reason          string                  `json:"reason" binding:"required,min=1,max=500"`
	RequestedBy     uuid.UUID               `json:"requested_by" binding:"required"`
	Lines           []CreateReturnLineInput `json:"lines" binding:"required,min=1"`
}

// ApproveReturnLineInput represents one line of an approval decision
type ApproveReturnLineInput struct {
	LineID      uuid.UUID       `json:"line_id" binding:"required"`
	QtyApproved decimal.Decimal `json:"qty_approved"`
	RestockFee  decimal.Decimal `json:"restock_fee"`
}

// ApproveReturnRequest represents an approval decision for a return
type ApproveReturnRequest struct {
	ApprovedBy uuid.UUID                `json:"approved_by" binding:"required"`
	Lines      []ApproveReturnLineInput `json:"lines"`
}

// ReceiveReturnLineInput represents one line of a return receiving operation
type ReceiveReturnLineInput struct {
	LineID   uuid.UUID       `json:"line_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ReceiveReturnRequest represents a request to receive returned goods
type ReceiveReturnRequest struct {
	ReceivedBy  uuid.UUID                `json:"received_by" binding:"required"`
	WarehouseID uuid.UUID                `json:"warehouse_id" binding:"required"`
	Lines       []ReceiveReturnLineInput `json:"lines" binding:"required,min=1"`
	PostToStock bool                     `json:"post_to_stock"`
}

// RefundReturnRequest represents a refund settlement.
// A nil amount settles at the default computed from the received lines.
type RefundReturnRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// ReturnListFilter represents filter options for the return list
type ReturnListFilter struct {
	PurchaseOrderID *uuid.UUID                `form:"purchase_order_id"`
	Status          *procurement.ReturnStatus `form:"status"`
	Page            int                       `form:"page" binding:"min=0"`
	PageSize        int                       `form:"page_size" binding:"min=0,max=100"`
	OrderBy         string                    `form:"order_by"`
	OrderDir        string                    `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ReturnLineResponse represents a return line in API responses
type ReturnLineResponse struct {
	ID           uuid.UUID       `json:"id"`
	OrderItemID  uuid.UUID       `json:"order_item_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductSKU   string          `json:"product_sku"`
	QtyRequested decimal.Decimal `json:"qty_requested"`
	QtyApproved  decimal.Decimal `json:"qty_approved"`
	QtyReceived  decimal.Decimal `json:"qty_received"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	RestockFee   decimal.Decimal `json:"restock_fee"`
	Notes        string          `json:"notes,omitempty"`
}

// ReturnReceiptResponse represents a receipt in API responses
type ReturnReceiptResponse struct {
	ID         uuid.UUID                   `json:"id"`
	ReceivedBy uuid.UUID                   `json:"received_by"`
	ReceivedAt time.Time                   `json:"received_at"`
	Items      []ReturnReceiptItemResponse `json:"items"`
}

// ReturnReceiptItemResponse represents one receipt item in API responses
type ReturnReceiptItemResponse struct {
	ReturnLineID uuid.UUID       `json:"return_line_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// ReturnResponse represents a return request in API responses
type ReturnResponse struct {
	ID              uuid.UUID               `json:"id"`
	ReturnNumber    string                  `json:"return_number"`
	PurchaseOrderID uuid.UUID               `json:"purchase_order_id"`
	Status          string                  `json:"status"`
	Reason          string                  `json:"reason"`
	RequestedBy     uuid.UUID               `json:"requested_by"`
	ApprovedBy      *uuid.UUID              `json:"approved_by,omitempty"`
	Lines           []ReturnLineResponse    `json:"lines"`
	Receipts        []ReturnReceiptResponse `json:"receipts,omitempty"`
	RefundAmount    decimal.Decimal         `json:"refund_amount"`
	ApprovedAt      *time.Time              `json:"approved_at,omitempty"`
	ReceivedAt      *time.Time              `json:"received_at,omitempty"`
	RefundedAt      *time.Time              `json:"refunded_at,omitempty"`
	CancelledAt     *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	Version         int64                   `json:"version"`
}

// ==================== Reconciliation DTOs ====================

// OrderLineReconciliation reports the receivable and returnable capacity of one order line
type OrderLineReconciliation struct {
	ItemID        uuid.UUID       `json:"item_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductSKU    string          `json:"product_sku"`
	OrderedQty    decimal.Decimal `json:"ordered_qty"`
	ReceivedQty   decimal.Decimal `json:"received_qty"`
	ReceivableQty decimal.Decimal `json:"receivable_qty"`
	ConsumedQty   decimal.Decimal `json:"consumed_qty"`
	ReturnableQty decimal.Decimal `json:"returnable_qty"`
}

// OrderReconciliationResponse reports the reconciliation view of a whole order
type OrderReconciliationResponse struct {
	OrderID     uuid.UUID                 `json:"order_id"`
	OrderNumber string                    `json:"order_number"`
	Status      string                    `json:"status"`
	Lines       []OrderLineReconciliation `json:"lines"`
}

// ==================== Converters ====================

// ToPurchaseOrderItemResponse converts a domain order item to a response DTO
func ToPurchaseOrderItemResponse(item *procurement.PurchaseOrderItem) PurchaseOrderItemResponse {
	return PurchaseOrderItemResponse{
		ID:           item.ID,
		ProductID:    item.ProductID,
		ProductSKU:   item.ProductSKU,
		ProductName:  item.ProductName,
		Unit:         item.Unit,
		OrderedQty:   item.OrderedQty,
		ReceivedQty:  item.ReceivedQty,
		RemainingQty: item.RemainingQty(),
		UnitCost:     item.UnitCost,
		Amount:       item.Amount,
	}
}

// ToPurchaseOrderResponse converts a domain order to a response DTO
func ToPurchaseOrderResponse(order *procurement.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(order.Items))
	for i := range order.Items {
		items[i] = ToPurchaseOrderItemResponse(&order.Items[i])
	}
	return PurchaseOrderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		SupplierID:   order.SupplierID,
		SupplierName: order.SupplierName,
		WarehouseID:  order.WarehouseID,
		BuyerID:      order.BuyerID,
		ApproverID:   order.ApproverID,
		Items:        items,
		ItemCount:    order.ItemCount(),
		TotalAmount:  order.TotalAmount,
		Status:       order.Status.String(),
		DocumentKey:  order.DocumentKey,
		Remark:       order.Remark,
		SubmittedAt:  order.SubmittedAt,
		ApprovedAt:   order.ApprovedAt,
		CompletedAt:  order.CompletedAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
		Version:      int64(order.Version),
	}
}

// ToPurchaseOrderResponses converts a list of domain orders to response DTOs
func ToPurchaseOrderResponses(orders []procurement.PurchaseOrder) []PurchaseOrderResponse {
	responses := make([]PurchaseOrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToPurchaseOrderResponse(&orders[i])
	}
	return responses
}

// ToReceivedLineResponses converts domain received infos to response DTOs
func ToReceivedLineResponses(infos []procurement.ReceivedItemInfo) []ReceivedLineResponse {
	responses := make([]ReceivedLineResponse, len(infos))
	for i, info := range infos {
		responses[i] = ReceivedLineResponse{
			ItemID:     info.ItemID,
			ProductID:  info.ProductID,
			ProductSKU: info.ProductSKU,
			Quantity:   info.Quantity,
		}
	}
	return responses
}

// ToReturnLineResponse converts a domain return line to a response DTO
func ToReturnLineResponse(line *procurement.ReturnLineItem) ReturnLineResponse {
	return ReturnLineResponse{
		ID:           line.ID,
		OrderItemID:  line.OrderItemID,
		ProductID:    line.ProductID,
		ProductSKU:   line.ProductSKU,
		QtyRequested: line.QtyRequested,
		QtyApproved:  line.QtyApproved,
		QtyReceived:  line.QtyReceived,
		UnitCost:     line.UnitCost,
		RestockFee:   line.RestockFee,
		Notes:        line.Notes,
	}
}

// ToReturnReceiptResponse converts a domain receipt to a response DTO
func ToReturnReceiptResponse(receipt *procurement.ReturnReceipt) ReturnReceiptResponse {
	items := make([]ReturnReceiptItemResponse, len(receipt.Items))
	for i := range receipt.Items {
		items[i] = ReturnReceiptItemResponse{
			ReturnLineID: receipt.Items[i].ReturnLineID,
			ProductID:    receipt.Items[i].ProductID,
			Quantity:     receipt.Items[i].Quantity,
		}
	}
	return ReturnReceiptResponse{
		ID:         receipt.ID,
		ReceivedBy: receipt.ReceivedBy,
		ReceivedAt: receipt.ReceivedAt,
		Items:      items,
	}
}

// ToReturnResponse converts a domain return request to a response DTO
func ToReturnResponse(ret *procurement.ReturnRequest) ReturnResponse {
	lines := make([]ReturnLineResponse, len(ret.Lines))
	for i := range ret.Lines {
		lines[i] = ToReturnLineResponse(&ret.Lines[i])
	}
	receipts := make([]ReturnReceiptResponse, len(ret.Receipts))
	for i := range ret.Receipts {
		receipts[i] = ToReturnReceiptResponse(&ret.Receipts[i])
	}
	return ReturnResponse{
		ID:              ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		PurchaseOrderID: ret.PurchaseOrderID,
		Status:          ret.Status.String(),
		Reason:          ret.Reason,
		RequestedBy:     ret.RequestedBy,
		ApprovedBy:      ret.ApprovedBy,
		Lines:           lines,
		Receipts:        receipts,
		RefundAmount:    ret.RefundAmount,
		ApprovedAt:      ret.ApprovedAt,
		ReceivedAt:      ret.ReceivedAt,
		RefundedAt:      ret.RefundedAt,
		CancelledAt:     ret.CancelledAt,
		CreatedAt:       ret.CreatedAt,
		Version:         int64(ret.Version),
	}
}

// ToReturnResponses converts a list of domain return requests to response DTOs
func ToReturnResponses(rets []procurement.ReturnRequest) []ReturnResponse {
	responses := make([]ReturnResponse, len(rets))
	for i := range rets {
		responses[i] = ToReturnResponse(&rets[i])
	}
	return responses
}
