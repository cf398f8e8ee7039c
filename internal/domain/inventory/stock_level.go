package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// StockLevel represents the materialized on-hand quantity for a
// warehouse-product combination. It is the aggregate root for stock
// operations; the composite identifier is WarehouseID + ProductID.
// Every change goes through ApplyMovement so the movement ledger and
// the materialized quantity never diverge.
type StockLevel struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_warehouse_product,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_level_warehouse_product,priority:2"`
	QtyOnHand   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel creates a new stock level for a warehouse-product combination
func NewStockLevel(warehouseID, productID uuid.UUID) (*StockLevel, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}

	return &StockLevel{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		ProductID:         productID,
		QtyOnHand:         decimal.Zero,
	}, nil
}

// ApplyMovement applies a movement of the given type and quantity to the
// on-hand balance. It returns the balance before and after the change.
// IN and RETURN add, OUT subtracts, ADJUST sets the balance absolutely.
// A change that would drive the balance negative is rejected.
func (l *StockLevel) ApplyMovement(movType MovementType, quantity decimal.Decimal) (before, after decimal.Decimal, err error) {
	if !movType.IsValid() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid movement type: %s", movType))
	}
	if movType == MovementTypeAdjust {
		if quantity.IsNegative() {
			return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Adjustment target quantity cannot be negative")
		}
	} else if !quantity.IsPositive() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INVALID_INPUT", "Movement quantity must be positive")
	}

	before = l.QtyOnHand

	switch movType {
	case MovementTypeIn, MovementTypeReturn:
		after = before.Add(quantity)
	case MovementTypeOut:
		after = before.Sub(quantity)
	case MovementTypeAdjust:
		after = quantity
	}

	if after.IsNegative() {
		return decimal.Zero, decimal.Zero, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Movement of %s would drive stock below zero, only %s on hand", quantity.String(), before.String()))
	}

	l.QtyOnHand = after
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewStockLevelChangedEvent(l, movType, quantity, before, after))

	return before, after, nil
}

// HasStock returns true if there is stock on hand
func (l *StockLevel) HasStock() bool {
	return l.QtyOnHand.IsPositive()
}

// IsBelow returns true if the on-hand quantity is below the given threshold
func (l *StockLevel) IsBelow(threshold decimal.Decimal) bool {
	return threshold.IsPositive() && l.QtyOnHand.LessThan(threshold)
}
