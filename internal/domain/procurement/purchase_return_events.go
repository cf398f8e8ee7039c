package procurement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeReturnRequest = "ReturnRequest"

// Event type constants
const (
	EventTypeReturnRequested = "ReturnRequested"
	EventTypeReturnApproved  = "ReturnApproved"
	EventTypeReturnRejected  = "ReturnRejected"
	EventTypeReturnReceived  = "ReturnReceived"
	EventTypeReturnRefunded  = "ReturnRefunded"
	EventTypeReturnCancelled = "ReturnCancelled"
)

// ReturnRequestedEvent is raised when a return request is created
type ReturnRequestedEvent struct {
	shared.BaseDomainEvent
	ReturnID        uuid.UUID       `json:"return_id"`
	ReturnNumber    string          `json:"return_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	RequestedBy     uuid.UUID       `json:"requested_by"`
	TotalRequested  decimal.Decimal `json:"total_requested"`
}

// NewReturnRequestedEvent creates a new ReturnRequestedEvent
func NewReturnRequestedEvent(ret *ReturnRequest) *ReturnRequestedEvent {
	return &ReturnRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRequested, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		PurchaseOrderID: ret.PurchaseOrderID,
		RequestedBy:     ret.RequestedBy,
		TotalRequested:  ret.TotalRequestedQty(),
	}
}

// ReturnApprovedEvent is raised when a return request is approved
type ReturnApprovedEvent struct {
	shared.BaseDomainEvent
	ReturnID        uuid.UUID       `json:"return_id"`
	ReturnNumber    string          `json:"return_number"`
	PurchaseOrderID uuid.UUID       `json:"purchase_order_id"`
	ApprovedBy      uuid.UUID       `json:"approved_by"`
	TotalApproved   decimal.Decimal `json:"total_approved"`
}

// NewReturnApprovedEvent creates a new ReturnApprovedEvent
func NewReturnApprovedEvent(ret *ReturnRequest) *ReturnApprovedEvent {
	var approvedBy uuid.UUID
	if ret.ApprovedBy != nil {
		approvedBy = *ret.ApprovedBy
	}
	return &ReturnApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnApproved, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		PurchaseOrderID: ret.PurchaseOrderID,
		ApprovedBy:      approvedBy,
		TotalApproved:   ret.TotalApprovedQty(),
	}
}

// ReturnRejectedEvent is raised when a return request is rejected
type ReturnRejectedEvent struct {
	shared.BaseDomainEvent
	ReturnID        uuid.UUID `json:"return_id"`
	ReturnNumber    string    `json:"return_number"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
}

// NewReturnRejectedEvent creates a new ReturnRejectedEvent
func NewReturnRejectedEvent(ret *ReturnRequest) *ReturnRejectedEvent {
	return &ReturnRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRejected, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		PurchaseOrderID: ret.PurchaseOrderID,
	}
}

// ReturnReceivedEvent is raised when returned goods are physically received
type ReturnReceivedEvent struct {
	shared.BaseDomainEvent
	ReturnID      uuid.UUID       `json:"return_id"`
	ReturnNumber  string          `json:"return_number"`
	ReceiptID     uuid.UUID       `json:"receipt_id"`
	ReceivedBy    uuid.UUID       `json:"received_by"`
	TotalReceived decimal.Decimal `json:"total_received"`
	NewStatus     ReturnStatus    `json:"new_status"`
}

// NewReturnReceivedEvent creates a new ReturnReceivedEvent
func NewReturnReceivedEvent(ret *ReturnRequest, receipt *ReturnReceipt) *ReturnReceivedEvent {
	return &ReturnReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnReceived, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		ReceiptID:       receipt.ID,
		ReceivedBy:      receipt.ReceivedBy,
		TotalReceived:   ret.TotalReceivedQty(),
		NewStatus:       ret.Status,
	}
}

// ReturnRefundedEvent is raised when the refund is settled
type ReturnRefundedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID       `json:"return_id"`
	ReturnNumber string          `json:"return_number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// NewReturnRefundedEvent creates a new ReturnRefundedEvent
func NewReturnRefundedEvent(ret *ReturnRequest) *ReturnRefundedEvent {
	return &ReturnRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRefunded, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
		RefundAmount:    ret.RefundAmount,
	}
}

// ReturnCancelledEvent is raised when a return request is cancelled
type ReturnCancelledEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID `json:"return_id"`
	ReturnNumber string    `json:"return_number"`
}

// NewReturnCancelledEvent creates a new ReturnCancelledEvent
func NewReturnCancelledEvent(ret *ReturnRequest) *ReturnCancelledEvent {
	return &ReturnCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCancelled, AggregateTypeReturnRequest, ret.ID),
		ReturnID:        ret.ID,
		ReturnNumber:    ret.ReturnNumber,
	}
}
