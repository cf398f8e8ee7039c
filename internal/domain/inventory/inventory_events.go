package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeStockLevel = "StockLevel"

// Event type constants
const (
	EventTypeStockLevelChanged = "StockLevelChanged"
)

// StockLevelChangedEvent is raised whenever a movement changes the on-hand quantity
type StockLevelChangedEvent struct {
	shared.BaseDomainEvent
	StockLevelID  uuid.UUID       `json:"stock_level_id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	MovementType  MovementType    `json:"movement_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

// NewStockLevelChangedEvent creates a new StockLevelChangedEvent
func NewStockLevelChangedEvent(level *StockLevel, movType MovementType, quantity, before, after decimal.Decimal) *StockLevelChangedEvent {
	return &StockLevelChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLevelChanged, AggregateTypeStockLevel, level.ID),
		StockLevelID:    level.ID,
		WarehouseID:     level.WarehouseID,
		ProductID:       level.ProductID,
		MovementType:    movType,
		Quantity:        quantity,
		BalanceBefore:   before,
		BalanceAfter:    after,
	}
}
