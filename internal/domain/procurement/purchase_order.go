package procurement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/shared/valueobject"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft           PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusPendingApproval PurchaseOrderStatus = "PENDING_APPROVAL"
	PurchaseOrderStatusApproved        PurchaseOrderStatus = "APPROVED"
	PurchaseOrderStatusEmailSent       PurchaseOrderStatus = "EMAIL_SENT"
	PurchaseOrderStatusSupplierReplied PurchaseOrderStatus = "SUPPLIER_REPLIED"
	PurchaseOrderStatusConfirmed       PurchaseOrderStatus = "CONFIRMED"
	PurchaseOrderStatusShipped         PurchaseOrderStatus = "SHIPPED"
	PurchaseOrderStatusDelayExpected   PurchaseOrderStatus = "DELAY_EXPECTED"
	PurchaseOrderStatusDelivered       PurchaseOrderStatus = "DELIVERED"
	PurchaseOrderStatusCompleted       PurchaseOrderStatus = "COMPLETED"
	PurchaseOrderStatusCancelled       PurchaseOrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusPendingApproval, PurchaseOrderStatusApproved,
		PurchaseOrderStatusEmailSent, PurchaseOrderStatusSupplierReplied, PurchaseOrderStatusConfirmed,
		PurchaseOrderStatusShipped, PurchaseOrderStatusDelayExpected, PurchaseOrderStatusDelivered,
		PurchaseOrderStatusCompleted, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further status change is permitted
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusCompleted || s == PurchaseOrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	// CANCELLED is reachable from any non-terminal state
	if target == PurchaseOrderStatusCancelled {
		return !s.IsTerminal()
	}

	switch s {
	case PurchaseOrderStatusDraft:
		return target == PurchaseOrderStatusPendingApproval
	case PurchaseOrderStatusPendingApproval:
		return target == PurchaseOrderStatusApproved
	case PurchaseOrderStatusApproved:
		return target == PurchaseOrderStatusEmailSent
	case PurchaseOrderStatusEmailSent:
		return target == PurchaseOrderStatusSupplierReplied
	case PurchaseOrderStatusSupplierReplied:
		return target == PurchaseOrderStatusConfirmed
	case PurchaseOrderStatusConfirmed:
		return target == PurchaseOrderStatusShipped || target == PurchaseOrderStatusDelayExpected
	case PurchaseOrderStatusShipped:
		return target == PurchaseOrderStatusDelivered || target == PurchaseOrderStatusDelayExpected
	case PurchaseOrderStatusDelayExpected:
		return target == PurchaseOrderStatusShipped || target == PurchaseOrderStatusDelivered
	case PurchaseOrderStatusDelivered:
		return target == PurchaseOrderStatusCompleted
	}
	return false
}

// CanReceive returns true if receiving goods is allowed in this status
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusDelivered
}

// PurchaseOrderItem represents a line item in a purchase order
type PurchaseOrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductSKU  string          `gorm:"type:varchar(50);not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Unit        string          `gorm:"type:varchar(20);not null"`
	OrderedQty  decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Frozen once the order leaves DRAFT
	ReceivedQty decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Monotonically non-decreasing
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // OrderedQty * UnitCost
	Remark      string          `gorm:"type:varchar(500)"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// NewPurchaseOrderItem creates a new purchase order item
func NewPurchaseOrderItem(orderID, productID uuid.UUID, productSKU, productName, unit string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseOrderItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Ordered quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unit cost cannot be negative")
	}

	now := time.Now()
	return &PurchaseOrderItem{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductSKU:  productSKU,
		ProductName: productName,
		Unit:        unit,
		OrderedQty:  quantity,
		ReceivedQty: decimal.Zero,
		UnitCost:    unitCost.Amount(),
		Amount:      quantity.Mul(unitCost.Amount()),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateQuantity updates the ordered quantity and recalculates the amount
func (i *PurchaseOrderItem) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Ordered quantity must be positive")
	}

	i.OrderedQty = quantity
	i.Amount = quantity.Mul(i.UnitCost)
	i.UpdatedAt = time.Now()

	return nil
}

// UpdateUnitCost updates the unit cost and recalculates the amount
func (i *PurchaseOrderItem) UpdateUnitCost(unitCost valueobject.Money) error {
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Unit cost cannot be negative")
	}

	i.UnitCost = unitCost.Amount()
	i.Amount = i.OrderedQty.Mul(i.UnitCost)
	i.UpdatedAt = time.Now()

	return nil
}

// RemainingQty returns the quantity still to be received
func (i *PurchaseOrderItem) RemainingQty() decimal.Decimal {
	remaining := i.OrderedQty.Sub(i.ReceivedQty)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyReceived returns true if all ordered quantity has been received
func (i *PurchaseOrderItem) IsFullyReceived() bool {
	return i.ReceivedQty.GreaterThanOrEqual(i.OrderedQty)
}

// AddReceivedQuantity adds to the received quantity
func (i *PurchaseOrderItem) AddReceivedQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Receive quantity must be positive")
	}

	newReceived := i.ReceivedQty.Add(quantity)
	if newReceived.GreaterThan(i.OrderedQty) {
		return shared.NewDomainError("QUANTITY_EXCEEDED",
			fmt.Sprintf("Cannot receive %s for item %s, only %s remaining", quantity.String(), i.ID, i.RemainingQty().String()))
	}

	i.ReceivedQty = newReceived
	i.UpdatedAt = time.Now()

	return nil
}

// ReceiveLine represents a single line in a receiving operation
type ReceiveLine struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ReceivedItemInfo describes one line actually received, for ledger posting
type ReceivedItemInfo struct {
	ItemID     uuid.UUID
	ProductID  uuid.UUID
	ProductSKU string
	Quantity   decimal.Decimal
	UnitCost   decimal.Decimal
}

// PurchaseOrder represents a purchase order aggregate root.
// It owns the ordering/approval/shipping/receiving state machine and the
// received-quantity bookkeeping per line.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber    string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	SupplierName   string              `gorm:"type:varchar(200);not null"`
	WarehouseID    uuid.UUID           `gorm:"type:uuid;not null;index"` // Target warehouse for receiving
	BuyerID        uuid.UUID           `gorm:"type:uuid;not null"`
	ApproverID     *uuid.UUID          `gorm:"type:uuid"` // Recorded at approval for audit
	Items          []PurchaseOrderItem `gorm:"foreignKey:OrderID;references:ID"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"` // Recomputed whenever items change
	Status         PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	DocumentKey    string              `gorm:"type:varchar(255)"` // Reference to the generated order document
	Remark         string              `gorm:"type:text"`
	LastActivityAt time.Time           `gorm:"not null"`
	SubmittedAt    *time.Time
	ApprovedAt     *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new draft purchase order
func NewPurchaseOrder(orderNumber string, supplierID uuid.UUID, supplierName string, warehouseID, buyerID uuid.UUID) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order number cannot exceed 50 characters")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Supplier ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Warehouse ID cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Buyer ID cannot be empty")
	}

	order := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierID:        supplierID,
		SupplierName:      supplierName,
		WarehouseID:       warehouseID,
		BuyerID:           buyerID,
		Items:             make([]PurchaseOrderItem, 0),
		TotalAmount:       decimal.Zero,
		Status:            PurchaseOrderStatusDraft,
		LastActivityAt:    time.Now(),
	}

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))

	return order, nil
}

// AddItem adds a new item to the order. Only allowed in DRAFT status.
func (o *PurchaseOrder) AddItem(productID uuid.UUID, productSKU, productName, unit string, quantity decimal.Decimal, unitCost valueobject.Money) (*PurchaseOrderItem, error) {
	if o.Status != PurchaseOrderStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add items to order %s in %s status", o.OrderNumber, o.Status))
	}

	for _, item := range o.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("INVALID_INPUT", "Product already exists in order, update the line instead")
		}
	}

	item, err := NewPurchaseOrderItem(o.ID, productID, productSKU, productName, unit, quantity, unitCost)
	if err != nil {
		return nil, err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotals()
	o.touch()

	return item, nil
}

// UpdateItem updates the quantity and unit cost of an existing line.
// Only allowed in DRAFT status.
func (o *PurchaseOrder) UpdateItem(itemID uuid.UUID, quantity decimal.Decimal, unitCost valueobject.Money) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update items of order %s in %s status", o.OrderNumber, o.Status))
	}

	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			if err := o.Items[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			if err := o.Items[idx].UpdateUnitCost(unitCost); err != nil {
				return err
			}
			o.recalculateTotals()
			o.touch()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order item %s not found", itemID))
}

// RemoveItem removes an item from the order. Only allowed in DRAFT status.
func (o *PurchaseOrder) RemoveItem(itemID uuid.UUID) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot remove items from order %s in %s status", o.OrderNumber, o.Status))
	}

	for idx, item := range o.Items {
		if item.ID == itemID {
			o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
			o.recalculateTotals()
			o.touch()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order item %s not found", itemID))
}

// SetRemark sets the order remark
func (o *PurchaseOrder) SetRemark(remark string) {
	o.Remark = remark
	o.touch()
}

// Submit submits the order for approval, transitioning DRAFT to PENDING_APPROVAL.
// Requires at least one item.
func (o *PurchaseOrder) Submit() error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit order %s in %s status", o.OrderNumber, o.Status))
	}
	if len(o.Items) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Cannot submit order without items")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusPendingApproval
	o.SubmittedAt = &now
	o.touch()

	o.AddDomainEvent(NewPurchaseOrderSubmittedEvent(o))

	return nil
}

// Approve approves the order, transitioning PENDING_APPROVAL to APPROVED.
// The approver identity is recorded for audit.
func (o *PurchaseOrder) Approve(approverID uuid.UUID) error {
	if o.Status != PurchaseOrderStatusPendingApproval {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve order %s in %s status", o.OrderNumber, o.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Approver ID cannot be empty")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusApproved
	o.ApproverID = &approverID
	o.ApprovedAt = &now
	o.touch()

	o.AddDomainEvent(NewPurchaseOrderApprovedEvent(o, approverID))

	return nil
}

// updateStatusTargets are the statuses a generic UpdateStatus call may move to.
// DRAFT, PENDING_APPROVAL, APPROVED, COMPLETED and CANCELLED have dedicated
// operations and are never reachable through the generic advance.
var updateStatusTargets = map[PurchaseOrderStatus]bool{
	PurchaseOrderStatusEmailSent:       true,
	PurchaseOrderStatusSupplierReplied: true,
	PurchaseOrderStatusConfirmed:       true,
	PurchaseOrderStatusShipped:         true,
	PurchaseOrderStatusDelayExpected:   true,
	PurchaseOrderStatusDelivered:       true,
}

// UpdateStatus advances the order along the supplier-side edges of the state
// machine (EMAIL_SENT through DELIVERED, including DELAY_EXPECTED detours).
func (o *PurchaseOrder) UpdateStatus(target PurchaseOrderStatus) error {
	if !target.IsValid() || !updateStatusTargets[target] {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Status %s is not a valid update target", target))
	}
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Order %s is in terminal status %s", o.OrderNumber, o.Status))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot transition order %s from %s to %s", o.OrderNumber, o.Status, target))
	}

	oldStatus := o.Status
	o.Status = target
	o.touch()

	o.AddDomainEvent(NewPurchaseOrderStatusChangedEvent(o, oldStatus, target))

	return nil
}

// Receive processes receipt of goods against one or more lines.
// Only allowed in DELIVERED status. All lines are validated before any line
// is applied, so a failure never leaves a partial receipt. When every line
// is fully received the order advances to COMPLETED.
func (o *PurchaseOrder) Receive(lines []ReceiveLine, operatorID uuid.UUID) ([]ReceivedItemInfo, error) {
	if !o.Status.CanReceive() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive goods for order %s in %s status, DELIVERED required", o.OrderNumber, o.Status))
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Receive lines cannot be empty")
	}

	// Validation pass: every line must reference a distinct known item with a
	// positive quantity within its remaining capacity.
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if seen[line.ItemID] {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Duplicate item %s in receive lines", line.ItemID))
		}
		seen[line.ItemID] = true

		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Receive quantity for item %s must be positive", line.ItemID))
		}

		item := o.GetItem(line.ItemID)
		if item == nil {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Order item %s not found", line.ItemID))
		}
		if line.Quantity.GreaterThan(item.RemainingQty()) {
			return nil, shared.NewDomainError("QUANTITY_EXCEEDED",
				fmt.Sprintf("Cannot receive %s for item %s, only %s remaining", line.Quantity.String(), line.ItemID, item.RemainingQty().String()))
		}
	}

	// Apply pass
	receivedInfos := make([]ReceivedItemInfo, 0, len(lines))
	for _, line := range lines {
		item := o.GetItem(line.ItemID)
		if err := item.AddReceivedQuantity(line.Quantity); err != nil {
			return nil, err
		}
		receivedInfos = append(receivedInfos, ReceivedItemInfo{
			ItemID:     item.ID,
			ProductID:  item.ProductID,
			ProductSKU: item.ProductSKU,
			Quantity:   line.Quantity,
			UnitCost:   item.UnitCost,
		})
	}

	if o.isAllItemsReceived() {
		now := time.Now()
		o.Status = PurchaseOrderStatusCompleted
		o.CompletedAt = &now
	}

	o.touch()

	o.AddDomainEvent(NewPurchaseOrderReceivedEvent(o, operatorID, receivedInfos))
	if o.Status == PurchaseOrderStatusCompleted {
		o.AddDomainEvent(NewPurchaseOrderCompletedEvent(o))
	}

	return receivedInfos, nil
}

// Cancel cancels the order. Allowed from any non-terminal status.
func (o *PurchaseOrder) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order %s in terminal status %s", o.OrderNumber, o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "Cancel reason is required")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.touch()

	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o))

	return nil
}

// SetDocumentKey records the storage reference of the generated order document
func (o *PurchaseOrder) SetDocumentKey(key string) {
	o.DocumentKey = key
	o.touch()
}

// recalculateTotals recomputes the order total from its lines
func (o *PurchaseOrder) recalculateTotals() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount)
	}
	o.TotalAmount = total
}

func (o *PurchaseOrder) touch() {
	now := time.Now()
	o.UpdatedAt = now
	o.LastActivityAt = now
	o.IncrementVersion()
}

// isAllItemsReceived checks if all items have been fully received
func (o *PurchaseOrder) isAllItemsReceived() bool {
	for _, item := range o.Items {
		if !item.IsFullyReceived() {
			return false
		}
	}
	return len(o.Items) > 0
}

// TotalReceivedQty returns the total received quantity across all lines
func (o *PurchaseOrder) TotalReceivedQty() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.ReceivedQty)
	}
	return total
}

// TotalRemainingQty returns the total quantity still to be received
func (o *PurchaseOrder) TotalRemainingQty() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.RemainingQty())
	}
	return total
}

// GetTotalAmountMoney returns the order total as Money
func (o *PurchaseOrder) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

// ItemCount returns the number of items in the order
func (o *PurchaseOrder) ItemCount() int {
	return len(o.Items)
}

// IsDraft returns true if the order is in draft status
func (o *PurchaseOrder) IsDraft() bool {
	return o.Status == PurchaseOrderStatusDraft
}

// IsTerminal returns true if the order is completed or cancelled
func (o *PurchaseOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// CanModify returns true if line items can still be edited
func (o *PurchaseOrder) CanModify() bool {
	return o.IsDraft()
}

// GetItem returns an item by its ID
func (o *PurchaseOrder) GetItem(itemID uuid.UUID) *PurchaseOrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// GetItemByProduct returns an item by product ID
func (o *PurchaseOrder) GetItemByProduct(productID uuid.UUID) *PurchaseOrderItem {
	for idx := range o.Items {
		if o.Items[idx].ProductID == productID {
			return &o.Items[idx]
		}
	}
	return nil
}
