package inventory

import (
	"context"
	"fmt"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockHandler listens for stock level changes and raises an alert when
// the on-hand quantity of a product drops below its minimum stock level.
// The thresholds on the product are advisory; the alert never blocks the
// movement that triggered it.
type LowStockHandler struct {
	logger      *zap.Logger
	productRepo catalog.ProductRepository
	notifier    LowStockNotifier
}

// LowStockNotifier is the interface for delivering low stock alerts.
// Implementations can support different channels (log, email, webhook).
type LowStockNotifier interface {
	// NotifyLowStock delivers a low stock alert
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// LowStockAlert describes a product that fell below its minimum stock level
type LowStockAlert struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
	ProductSKU  string `json:"product_sku"`
	QtyOnHand   string `json:"qty_on_hand"`
	MinLevel    string `json:"min_level"`
	OutOfStock  bool   `json:"out_of_stock"`
}

// NewLowStockHandler creates a new handler for stock level changed events
func NewLowStockHandler(logger *zap.Logger, productRepo catalog.ProductRepository) *LowStockHandler {
	return &LowStockHandler{
		logger:      logger,
		productRepo: productRepo,
	}
}

// WithNotifier sets the notifier for delivering alerts
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockLevelChanged}
}

// Handle processes a StockLevelChangedEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockLevelChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockLevelChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockLevelChanged, event.EventType())
	}

	// Only falling balances can cross the threshold
	if changed.BalanceAfter.GreaterThanOrEqual(changed.BalanceBefore) {
		return nil
	}

	product, err := h.productRepo.FindByID(ctx, changed.ProductID)
	if err != nil {
		h.logger.Warn("low stock check skipped, product lookup failed",
			zap.String("product_id", changed.ProductID.String()),
			zap.Error(err),
		)
		return nil
	}

	if product.MinStockLevel.IsZero() || changed.BalanceAfter.GreaterThanOrEqual(product.MinStockLevel) {
		return nil
	}

	alert := LowStockAlert{
		WarehouseID: changed.WarehouseID.String(),
		ProductID:   changed.ProductID.String(),
		ProductSKU:  product.SKU,
		QtyOnHand:   changed.BalanceAfter.String(),
		MinLevel:    product.MinStockLevel.String(),
		OutOfStock:  changed.BalanceAfter.IsZero(),
	}

	h.logger.Warn("stock below minimum level",
		zap.String("warehouse_id", alert.WarehouseID),
		zap.String("product_sku", alert.ProductSKU),
		zap.String("qty_on_hand", alert.QtyOnHand),
		zap.String("min_level", alert.MinLevel),
	)

	if h.notifier != nil {
		if err := h.notifier.NotifyLowStock(ctx, alert); err != nil {
			h.logger.Error("failed to deliver low stock alert", zap.Error(err))
		}
	}

	return nil
}
