// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the warehouse system.
// It tracks purchase order activity, stock movements, and returns.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	stockMovementTotal    *Counter
	stockMovementQuantity *Counter
	orderCreatedTotal     *Counter
	orderAmountTotal      *Counter
	orderApprovedTotal    *Counter
	orderReceivedLines    *Counter
	returnOpenedTotal     *Counter
	returnRefundedTotal   *Counter
	returnRefundedAmount  *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stockProvider StockMetricsProvider
}

// StockMetricsProvider provides stock data for periodic metrics collection.
// The interface lets the telemetry layer query inventory state without
// depending on the inventory domain directly.
type StockMetricsProvider interface {
	// GetLowStockCount returns the count of products below their minimum threshold
	GetLowStockCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error

	bm.stockMovementTotal, err = NewCounter(
		cfg.Meter,
		"wms_stock_movement_total",
		"Total number of stock movements posted to the ledger",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	bm.stockMovementQuantity, err = NewCounter(
		cfg.Meter,
		"wms_stock_movement_quantity_total",
		"Total absolute quantity moved, in base units",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderCreatedTotal, err = NewCounter(
		cfg.Meter,
		"wms_purchase_order_created_total",
		"Total number of purchase orders created",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderAmountTotal, err = NewCounter(
		cfg.Meter,
		"wms_purchase_order_amount_total",
		"Total purchase order amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderApprovedTotal, err = NewCounter(
		cfg.Meter,
		"wms_purchase_order_approved_total",
		"Total number of purchase orders approved",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderReceivedLines, err = NewCounter(
		cfg.Meter,
		"wms_purchase_order_received_lines_total",
		"Total number of order lines received",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	bm.returnOpenedTotal, err = NewCounter(
		cfg.Meter,
		"wms_return_opened_total",
		"Total number of return requests opened",
		"{returns}",
	)
	if err != nil {
		return nil, err
	}

	bm.returnRefundedTotal, err = NewCounter(
		cfg.Meter,
		"wms_return_refunded_total",
		"Total number of returns refunded",
		"{returns}",
	)
	if err != nil {
		return nil, err
	}

	bm.returnRefundedAmount, err = NewCounter(
		cfg.Meter,
		"wms_return_refunded_amount_total",
		"Total refunded amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"wms_low_stock_count",
		"Number of products below minimum stock threshold",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordStockMovement records a stock movement posted to the ledger.
func (bm *BusinessMetrics) RecordStockMovement(ctx context.Context, movType string, qty decimal.Decimal) {
	bm.stockMovementTotal.Inc(ctx, AttrMovementType.String(movType))
	bm.stockMovementQuantity.Add(ctx, qty.Abs().IntPart(), AttrMovementType.String(movType))
}

// RecordOrderCreated records a purchase order creation with its total amount.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, amount decimal.Decimal) {
	bm.orderCreatedTotal.Inc(ctx)
	bm.orderAmountTotal.Add(ctx, toCents(amount), AttrOrderStatus.String("created"))
}

// RecordOrderApproved records a purchase order approval with the approved amount.
func (bm *BusinessMetrics) RecordOrderApproved(ctx context.Context, amount decimal.Decimal) {
	bm.orderApprovedTotal.Inc(ctx)
	bm.orderAmountTotal.Add(ctx, toCents(amount), AttrOrderStatus.String("approved"))
}

// RecordOrderReceived records a receiving operation with the number of lines
// that carried stock.
func (bm *BusinessMetrics) RecordOrderReceived(ctx context.Context, lineCount int) {
	bm.orderReceivedLines.Add(ctx, int64(lineCount))
}

// RecordReturnOpened records a newly opened return request.
func (bm *BusinessMetrics) RecordReturnOpened(ctx context.Context) {
	bm.returnOpenedTotal.Inc(ctx)
}

// RecordReturnRefunded records a settled return with the refunded amount.
func (bm *BusinessMetrics) RecordReturnRefunded(ctx context.Context, amount decimal.Decimal) {
	bm.returnRefundedTotal.Inc(ctx)
	bm.returnRefundedAmount.Add(ctx, toCents(amount))
}

// toCents converts a monetary amount to the smallest currency unit.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectStockMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectStockMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectStockMetrics(ctx context.Context) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	count, err := bm.stockProvider.GetLowStockCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count", zap.Error(err))
		return
	}
	bm.lowStockCount.Record(ctx, count)
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
