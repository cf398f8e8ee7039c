package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// ReturnStatus represents the status of a return request
type ReturnStatus string

const (
	ReturnStatusRequested         ReturnStatus = "REQUESTED"
	ReturnStatusApproved          ReturnStatus = "APPROVED"
	ReturnStatusRejected          ReturnStatus = "REJECTED"
	ReturnStatusPartiallyReceived ReturnStatus = "PARTIALLY_RECEIVED"
	ReturnStatusReceived          ReturnStatus = "RECEIVED"
	ReturnStatusRefunded          ReturnStatus = "REFUNDED"
	ReturnStatusCancelled         ReturnStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReturnStatus
func (s ReturnStatus) IsValid() bool {
	switch s {
	case ReturnStatusRequested, ReturnStatusApproved, ReturnStatusRejected,
		ReturnStatusPartiallyReceived, ReturnStatusReceived, ReturnStatusRefunded,
		ReturnStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReturnStatus
func (s ReturnStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further status change is permitted
func (s ReturnStatus) IsTerminal() bool {
	return s == ReturnStatusRejected || s == ReturnStatusRefunded || s == ReturnStatusCancelled
}

// IsConsuming returns true if a return in this status still claims quantity
// of its purchase order lines. REJECTED and CANCELLED returns release their
// claim; everything else holds it.
func (s ReturnStatus) IsConsuming() bool {
	switch s {
	case ReturnStatusRequested, ReturnStatusApproved, ReturnStatusPartiallyReceived,
		ReturnStatusReceived, ReturnStatusRefunded:
		return true
	}
	return false
}

// ReturnLineItem represents one purchase order line being returned
type ReturnLineItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReturnID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderItemID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null"`
	ProductSKU      string          `gorm:"type:varchar(50);not null"`
	OrderedQty      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Snapshot of the order line at request time
	ReceivedQtyOnPO decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Snapshot of the order line at request time
	QtyRequested    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QtyApproved     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QtyReceived     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Never exceeds QtyApproved
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RestockFee      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Notes           string          `gorm:"type:varchar(500)"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnLineItem) TableName() string {
	return "return_line_items"
}

// RemainingToReceive returns the approved quantity not yet received back
func (l *ReturnLineItem) RemainingToReceive() decimal.Decimal {
	remaining := l.QtyApproved.Sub(l.QtyReceived)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// LineRefund returns the default refund for this line:
// received quantity times unit cost, minus the restocking fee, floored at zero.
func (l *ReturnLineItem) LineRefund() decimal.Decimal {
	refund := l.QtyReceived.Mul(l.UnitCost).Sub(l.RestockFee)
	if refund.IsNegative() {
		return decimal.Zero
	}
	return refund
}

// ReturnReceiptItem records the quantity received on one return line in one receipt
type ReturnReceiptItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReturnLineID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnReceiptItem) TableName() string {
	return "return_receipt_items"
}

// ReturnReceipt records one physical receiving event against a return request
type ReturnReceipt struct {
	ID         uuid.UUID           `gorm:"type:uuid;primary_key"`
	ReturnID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	ReceivedBy uuid.UUID           `gorm:"type:uuid;not null"`
	ReceivedAt time.Time           `gorm:"not null"`
	Items      []ReturnReceiptItem `gorm:"foreignKey:ReceiptID;references:ID"`
	CreatedAt  time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnReceipt) TableName() string {
	return "return_receipts"
}

// NewReturnLine is the input for one line of a new return request
type NewReturnLine struct {
	OrderItemID     uuid.UUID
	ProductID       uuid.UUID
	ProductSKU      string
	OrderedQty      decimal.Decimal
	ReceivedQtyOnPO decimal.Decimal
	Quantity        decimal.Decimal
	UnitCost        decimal.Decimal
	Notes           string
}

// ReturnApproval is the input for one line of an approval decision
type ReturnApproval struct {
	LineID      uuid.UUID       `json:"line_id"`
	QtyApproved decimal.Decimal `json:"qty_approved"`
	RestockFee  decimal.Decimal `json:"restock_fee"`
}

// ReturnReceiptLine is the input for one line of a receiving operation
type ReturnReceiptLine struct {
	LineID   uuid.UUID       `json:"line_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReturnRequest represents a supplier return aggregate root.
// It tracks the requested/approved/received quantities per purchase order
// line and the refund settlement.
type ReturnRequest struct {
	shared.BaseAggregateRoot
	ReturnNumber    string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	PurchaseOrderID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status          ReturnStatus     `gorm:"type:varchar(20);not null;default:'REQUESTED'"`
	Reason          string           `gorm:"type:varchar(500);not null"`
	RequestedBy     uuid.UUID        `gorm:"type:uuid;not null"`
	ApprovedBy      *uuid.UUID       `gorm:"type:uuid"`
	Lines           []ReturnLineItem `gorm:"foreignKey:ReturnID;references:ID"`
	Receipts        []ReturnReceipt  `gorm:"foreignKey:ReturnID;references:ID"`
	RefundAmount    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	ApprovedAt      *time.Time
	ReceivedAt      *time.Time
	RefundedAt      *time.Time
	CancelledAt     *time.Time
}

// TableName returns the table name for GORM
func (ReturnRequest) TableName() string {
	return "return_requests"
}

// NewReturnRequest creates a new return request in REQUESTED status.
// All lines are created atomically; any invalid line fails the whole request.
func NewReturnRequest(returnNumber string, purchaseOrderID uuid.UUID, reason string, requestedBy uuid.UUID, lines []NewReturnLine) (*ReturnRequest, error) {
	if returnNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Return number cannot be empty")
	}
	if purchaseOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Purchase order ID cannot be empty")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Return reason is required")
	}
	if requestedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Requester ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Return request must have at least one line")
	}

	ret := &ReturnRequest{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReturnNumber:      returnNumber,
		PurchaseOrderID:   purchaseOrderID,
		Status:            ReturnStatusRequested,
		Reason:            reason,
		RequestedBy:       requestedBy,
		Lines:             make([]ReturnLineItem, 0, len(lines)),
		Receipts:          make([]ReturnReceipt, 0),
		RefundAmount:      decimal.Zero,
	}

	seen := make(map[uuid.UUID]bool, len(lines))
	now := time.Now()
	for _, line := range lines {
		if line.OrderItemID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_INPUT", "Order item ID cannot be empty")
		}
		if seen[line.OrderItemID] {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Duplicate order item %s in return lines", line.OrderItemID))
		}
		seen[line.OrderItemID] = true

		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Return quantity for item %s must be positive", line.OrderItemID))
		}
		if line.UnitCost.IsNegative() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Unit cost cannot be negative")
		}

		ret.Lines = append(ret.Lines, ReturnLineItem{
			ID:              uuid.New(),
			ReturnID:        ret.ID,
			OrderItemID:     line.OrderItemID,
			ProductID:       line.ProductID,
			ProductSKU:      line.ProductSKU,
			OrderedQty:      line.OrderedQty,
			ReceivedQtyOnPO: line.ReceivedQtyOnPO,
			QtyRequested:    line.Quantity,
			QtyApproved:     decimal.Zero,
			QtyReceived:     decimal.Zero,
			UnitCost:        line.UnitCost,
			RestockFee:      decimal.Zero,
			Notes:           line.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	ret.AddDomainEvent(NewReturnRequestedEvent(ret))

	return ret, nil
}

// ConsumedQuantity returns how much of the given purchase order item this
// return currently claims. A REQUESTED return claims the requested quantity,
// a return approved or further along claims the approved quantity, and a
// non-consuming return claims nothing.
func (r *ReturnRequest) ConsumedQuantity(orderItemID uuid.UUID) decimal.Decimal {
	if !r.Status.IsConsuming() {
		return decimal.Zero
	}
	for idx := range r.Lines {
		if r.Lines[idx].OrderItemID == orderItemID {
			if r.Status == ReturnStatusRequested {
				return r.Lines[idx].QtyRequested
			}
			return r.Lines[idx].QtyApproved
		}
	}
	return decimal.Zero
}

// Approve decides the approved quantity per line, transitioning REQUESTED to
// APPROVED. Lines not mentioned in the decision keep a zero approval. When
// every line ends up with a zero approval the request becomes REJECTED.
// The caller is responsible for checking approved quantities against the
// returnable capacity of the order lines before invoking this.
func (r *ReturnRequest) Approve(approvedBy uuid.UUID, decisions []ReturnApproval) error {
	if r.Status != ReturnStatusRequested {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve return %s in %s status", r.ReturnNumber, r.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Approver ID cannot be empty")
	}

	seen := make(map[uuid.UUID]bool, len(decisions))
	for _, d := range decisions {
		if seen[d.LineID] {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Duplicate line %s in approval decisions", d.LineID))
		}
		seen[d.LineID] = true

		line := r.GetLine(d.LineID)
		if line == nil {
			return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Return line %s not found", d.LineID))
		}
		if d.QtyApproved.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Approved quantity for line %s cannot be negative", d.LineID))
		}
		if d.QtyApproved.GreaterThan(line.QtyRequested) {
			return shared.NewDomainError("QUANTITY_EXCEEDED",
				fmt.Sprintf("Cannot approve %s for line %s, only %s requested", d.QtyApproved.String(), d.LineID, line.QtyRequested.String()))
		}
		if d.RestockFee.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", "Restocking fee cannot be negative")
		}
	}

	now := time.Now()
	totalApproved := decimal.Zero
	for _, d := range decisions {
		line := r.GetLine(d.LineID)
		line.QtyApproved = d.QtyApproved
		line.RestockFee = d.RestockFee
		line.UpdatedAt = now
		totalApproved = totalApproved.Add(d.QtyApproved)
	}

	r.ApprovedBy = &approvedBy
	r.ApprovedAt = &now

	if totalApproved.IsZero() {
		r.Status = ReturnStatusRejected
		r.UpdatedAt = now
		r.IncrementVersion()
		r.AddDomainEvent(NewReturnRejectedEvent(r))
		return nil
	}

	r.Status = ReturnStatusApproved
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnApprovedEvent(r))

	return nil
}

// Reject rejects the whole request without approving any quantity
func (r *ReturnRequest) Reject(rejectedBy uuid.UUID) error {
	if r.Status != ReturnStatusRequested {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject return %s in %s status", r.ReturnNumber, r.Status))
	}
	if rejectedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Approver ID cannot be empty")
	}

	now := time.Now()
	r.Status = ReturnStatusRejected
	r.ApprovedBy = &rejectedBy
	r.ApprovedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnRejectedEvent(r))

	return nil
}

// Receive records a physical receipt of returned goods.
// Allowed in APPROVED or PARTIALLY_RECEIVED status. All lines are validated
// before any line is applied. Received quantity per line never exceeds the
// approved quantity. When every line is fully received the request advances
// to RECEIVED, otherwise to PARTIALLY_RECEIVED.
func (r *ReturnRequest) Receive(receivedBy uuid.UUID, lines []ReturnReceiptLine) (*ReturnReceipt, error) {
	if r.Status != ReturnStatusApproved && r.Status != ReturnStatusPartiallyReceived {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive return %s in %s status", r.ReturnNumber, r.Status))
	}
	if receivedBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Receiver ID cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Receipt lines cannot be empty")
	}

	// Validation pass
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if seen[line.LineID] {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Duplicate line %s in receipt lines", line.LineID))
		}
		seen[line.LineID] = true

		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Receipt quantity for line %s must be positive", line.LineID))
		}

		retLine := r.GetLine(line.LineID)
		if retLine == nil {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Return line %s not found", line.LineID))
		}
		if line.Quantity.GreaterThan(retLine.RemainingToReceive()) {
			return nil, shared.NewDomainError("QUANTITY_EXCEEDED",
				fmt.Sprintf("Cannot receive %s for line %s, only %s remaining", line.Quantity.String(), line.LineID, retLine.RemainingToReceive().String()))
		}
	}

	// Apply pass
	now := time.Now()
	receipt := &ReturnReceipt{
		ID:         uuid.New(),
		ReturnID:   r.ID,
		ReceivedBy: receivedBy,
		ReceivedAt: now,
		Items:      make([]ReturnReceiptItem, 0, len(lines)),
		CreatedAt:  now,
	}

	for _, line := range lines {
		retLine := r.GetLine(line.LineID)
		retLine.QtyReceived = retLine.QtyReceived.Add(line.Quantity)
		retLine.UpdatedAt = now

		receipt.Items = append(receipt.Items, ReturnReceiptItem{
			ID:           uuid.New(),
			ReceiptID:    receipt.ID,
			ReturnLineID: retLine.ID,
			ProductID:    retLine.ProductID,
			Quantity:     line.Quantity,
			CreatedAt:    now,
		})
	}

	r.Receipts = append(r.Receipts, *receipt)

	if r.isFullyReceived() {
		r.Status = ReturnStatusReceived
		r.ReceivedAt = &now
	} else {
		r.Status = ReturnStatusPartiallyReceived
	}

	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnReceivedEvent(r, receipt))

	return receipt, nil
}

// Refund settles the return, transitioning RECEIVED to REFUNDED.
// A nil amount uses the default settlement: the sum over all lines of
// received quantity times unit cost minus the restocking fee, each line
// floored at zero. An explicit amount overrides the default.
func (r *ReturnRequest) Refund(amount *decimal.Decimal) error {
	if r.Status != ReturnStatusReceived {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot refund return %s in %s status", r.ReturnNumber, r.Status))
	}

	refund := r.DefaultRefundAmount()
	if amount != nil {
		if amount.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", "Refund amount cannot be negative")
		}
		refund = *amount
	}

	now := time.Now()
	r.RefundAmount = refund
	r.Status = ReturnStatusRefunded
	r.RefundedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnRefundedEvent(r))

	return nil
}

// Cancel cancels the request. Only allowed in REQUESTED status; once a
// return is approved its claim on the order lines can no longer be walked
// back this way.
func (r *ReturnRequest) Cancel() error {
	if r.Status != ReturnStatusRequested {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel return %s in %s status", r.ReturnNumber, r.Status))
	}

	now := time.Now()
	r.Status = ReturnStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReturnCancelledEvent(r))

	return nil
}

// DefaultRefundAmount computes the default settlement across all lines
func (r *ReturnRequest) DefaultRefundAmount() decimal.Decimal {
	total := decimal.Zero
	for idx := range r.Lines {
		total = total.Add(r.Lines[idx].LineRefund())
	}
	return total
}

// TotalRequestedQty returns the total requested quantity across all lines
func (r *ReturnRequest) TotalRequestedQty() decimal.Decimal {
	total := decimal.Zero
	for idx := range r.Lines {
		total = total.Add(r.Lines[idx].QtyRequested)
	}
	return total
}

// TotalApprovedQty returns the total approved quantity across all lines
func (r *ReturnRequest) TotalApprovedQty() decimal.Decimal {
	total := decimal.Zero
	for idx := range r.Lines {
		total = total.Add(r.Lines[idx].QtyApproved)
	}
	return total
}

// TotalReceivedQty returns the total received quantity across all lines
func (r *ReturnRequest) TotalReceivedQty() decimal.Decimal {
	total := decimal.Zero
	for idx := range r.Lines {
		total = total.Add(r.Lines[idx].QtyReceived)
	}
	return total
}

// isFullyReceived checks if every line with an approval has been fully received
func (r *ReturnRequest) isFullyReceived() bool {
	for idx := range r.Lines {
		if r.Lines[idx].RemainingToReceive().IsPositive() {
			return false
		}
	}
	return true
}

// GetLine returns a line by its ID
func (r *ReturnRequest) GetLine(lineID uuid.UUID) *ReturnLineItem {
	for idx := range r.Lines {
		if r.Lines[idx].ID == lineID {
			return &r.Lines[idx]
		}
	}
	return nil
}

// GetLineByOrderItem returns a line by the purchase order item it references
func (r *ReturnRequest) GetLineByOrderItem(orderItemID uuid.UUID) *ReturnLineItem {
	for idx := range r.Lines {
		if r.Lines[idx].OrderItemID == orderItemID {
			return &r.Lines[idx]
		}
	}
	return nil
}
