package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/inventory"
)

// PostMovementRequest represents a request to post a movement to the stock ledger
type PostMovementRequest struct {
	WarehouseID  uuid.UUID              `json:"warehouse_id" binding:"required"`
	ProductID    uuid.UUID              `json:"product_id" binding:"required"`
	Type         inventory.MovementType `json:"type" binding:"required"`
	Quantity     decimal.Decimal        `json:"quantity" binding:"required"`
	SourceType   inventory.SourceType   `json:"source_type" binding:"required"`
	SourceID     string                 `json:"source_id" binding:"required,min=1,max=100"`
	SourceLineID string                 `json:"source_line_id"`
	Reason       string                 `json:"reason"`
	OperatorID   *uuid.UUID             `json:"operator_id"`
}

// AdjustStockRequest represents a manual absolute adjustment of a stock level
type AdjustStockRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	TargetQty   decimal.Decimal `json:"target_qty"`
	Reason      string          `json:"reason" binding:"required,min=1,max=500"`
	OperatorID  *uuid.UUID      `json:"operator_id"`
}

// MovementListFilter represents filter options for the movement list
type MovementListFilter struct {
	WarehouseID uuid.UUID `form:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID `form:"product_id" binding:"required"`
	Page        int       `form:"page" binding:"min=0"`
	PageSize    int       `form:"page_size" binding:"min=0,max=100"`
}

// StockLevelListFilter represents filter options for the stock level list
type StockLevelListFilter struct {
	WarehouseID *uuid.UUID `form:"warehouse_id"`
	ProductID   *uuid.UUID `form:"product_id"`
	Page        int        `form:"page" binding:"min=0"`
	PageSize    int        `form:"page_size" binding:"min=0,max=100"`
}

// StockLevelResponse represents a stock level in API responses
type StockLevelResponse struct {
	ID          uuid.UUID       `json:"id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	QtyOnHand   decimal.Decimal `json:"qty_on_hand"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MovementResponse represents a ledger movement in API responses
type MovementResponse struct {
	ID            uuid.UUID       `json:"id"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	SourceType    string          `json:"source_type"`
	SourceID      string          `json:"source_id"`
	SourceLineID  string          `json:"source_line_id,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	OperatorID    *uuid.UUID      `json:"operator_id,omitempty"`
	MovementDate  time.Time       `json:"movement_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LedgerCheckResponse reports whether a materialized stock level matches
// the sum of its ledger movements
type LedgerCheckResponse struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	QtyOnHand   decimal.Decimal `json:"qty_on_hand"`
	LedgerSum   decimal.Decimal `json:"ledger_sum"`
	Consistent  bool            `json:"consistent"`
}

// ToStockLevelResponse converts a domain stock level to a response DTO
func ToStockLevelResponse(level *inventory.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ID:          level.ID,
		WarehouseID: level.WarehouseID,
		ProductID:   level.ProductID,
		QtyOnHand:   level.QtyOnHand,
		UpdatedAt:   level.UpdatedAt,
	}
}

// ToStockLevelResponses converts a list of domain stock levels to response DTOs
func ToStockLevelResponses(levels []inventory.StockLevel) []StockLevelResponse {
	responses := make([]StockLevelResponse, len(levels))
	for i := range levels {
		responses[i] = ToStockLevelResponse(&levels[i])
	}
	return responses
}

// ToMovementResponse converts a domain movement to a response DTO
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:            m.ID,
		WarehouseID:   m.WarehouseID,
		ProductID:     m.ProductID,
		Type:          m.Type.String(),
		Quantity:      m.Quantity,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		SourceType:    string(m.SourceType),
		SourceID:      m.SourceID,
		SourceLineID:  m.SourceLineID,
		Reason:        m.Reason,
		OperatorID:    m.OperatorID,
		MovementDate:  m.MovementDate,
		CreatedAt:     m.CreatedAt,
	}
}

// ToMovementResponses converts a list of domain movements to response DTOs
func ToMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}
