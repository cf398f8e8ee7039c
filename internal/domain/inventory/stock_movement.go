package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	// MovementTypeIn represents stock received from a supplier
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut represents stock leaving the warehouse
	MovementTypeOut MovementType = "OUT"
	// MovementTypeReturn represents returned stock coming back into the warehouse
	MovementTypeReturn MovementType = "RETURN"
	// MovementTypeAdjust represents an absolute correction of the on-hand quantity
	MovementTypeAdjust MovementType = "ADJUST"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeReturn, MovementTypeAdjust:
		return true
	}
	return false
}

// IsIncrease returns true if this movement type adds to the on-hand quantity
func (t MovementType) IsIncrease() bool {
	return t == MovementTypeIn || t == MovementTypeReturn
}

// IsDecrease returns true if this movement type subtracts from the on-hand quantity
func (t MovementType) IsDecrease() bool {
	return t == MovementTypeOut
}

// SourceType represents the source document type for a movement
type SourceType string

const (
	// SourceTypePurchaseOrder is a purchase order receipt
	SourceTypePurchaseOrder SourceType = "PURCHASE_ORDER"
	// SourceTypeReturnRequest is a supplier return receipt
	SourceTypeReturnRequest SourceType = "RETURN_REQUEST"
	// SourceTypeManualAdjustment is a manual correction
	SourceTypeManualAdjustment SourceType = "MANUAL_ADJUSTMENT"
	// SourceTypeInitialStock is initial stock setup
	SourceTypeInitialStock SourceType = "INITIAL_STOCK"
)

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypePurchaseOrder, SourceTypeReturnRequest, SourceTypeManualAdjustment, SourceTypeInitialStock:
		return true
	}
	return false
}

// StockMovement is an immutable, append-only record of a stock change.
// Once created, movements are never modified or deleted - corrections
// are expressed as new ADJUST movements.
type StockMovement struct {
	shared.BaseEntity
	StockLevelID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_level"`
	WarehouseID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_warehouse_product,priority:1"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movement_warehouse_product,priority:2"`
	Type          MovementType    `gorm:"type:varchar(20);not null;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Positive; for ADJUST the absolute target level
	BalanceBefore decimal.Decimal `gorm:"type:decimal(18,4);not null"` // On-hand quantity before the movement
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,4);not null"` // On-hand quantity after the movement
	SourceType    SourceType      `gorm:"type:varchar(30);not null;index:idx_stock_movement_source,priority:1"`
	SourceID      string          `gorm:"type:varchar(50);not null;index:idx_stock_movement_source,priority:2"`
	SourceLineID  string          `gorm:"type:varchar(50)"` // Source line item (optional)
	Reason        string          `gorm:"type:varchar(255)"`
	OperatorID    *uuid.UUID      `gorm:"type:uuid"` // User who triggered the movement
	MovementDate  time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a new stock movement record
func NewStockMovement(
	stockLevelID uuid.UUID,
	warehouseID uuid.UUID,
	productID uuid.UUID,
	movType MovementType,
	quantity decimal.Decimal,
	balanceBefore decimal.Decimal,
	balanceAfter decimal.Decimal,
	sourceType SourceType,
	sourceID string,
) (*StockMovement, error) {
	if stockLevelID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Stock level ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if !movType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid movement type")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Movement quantity cannot be negative")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid source type")
	}
	if sourceID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Source ID cannot be empty")
	}

	return &StockMovement{
		BaseEntity:    shared.NewBaseEntity(),
		StockLevelID:  stockLevelID,
		WarehouseID:   warehouseID,
		ProductID:     productID,
		Type:          movType,
		Quantity:      quantity,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		SourceType:    sourceType,
		SourceID:      sourceID,
		MovementDate:  time.Now(),
	}, nil
}

// WithSourceLineID sets the source line ID for the movement
func (m *StockMovement) WithSourceLineID(lineID string) *StockMovement {
	m.SourceLineID = lineID
	return m
}

// WithReason sets the reason for the movement
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// WithOperatorID sets the operator ID for the movement
func (m *StockMovement) WithOperatorID(operatorID uuid.UUID) *StockMovement {
	m.OperatorID = &operatorID
	return m
}

// SignedQuantity returns the net change to the on-hand quantity.
// For ADJUST movements this is the difference the adjustment caused.
func (m *StockMovement) SignedQuantity() decimal.Decimal {
	return m.BalanceAfter.Sub(m.BalanceBefore)
}
