package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wms/backend/internal/domain/procurement"
	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// consumingStatuses are the return statuses that still claim quantity of
// their purchase order lines.
var consumingStatuses = []procurement.ReturnStatus{
	procurement.ReturnStatusRequested,
	procurement.ReturnStatusApproved,
	procurement.ReturnStatusPartiallyReceived,
	procurement.ReturnStatusReceived,
	procurement.ReturnStatusRefunded,
}

// GormReturnRequestRepository implements ReturnRequestRepository using GORM
type GormReturnRequestRepository struct {
	db *gorm.DB
}

// NewGormReturnRequestRepository creates a new GormReturnRequestRepository
func NewGormReturnRequestRepository(db *gorm.DB) *GormReturnRequestRepository {
	return &GormReturnRequestRepository{db: db}
}

// FindByID finds a return request by its ID, with lines and receipts preloaded
func (r *GormReturnRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.ReturnRequest, error) {
	var ret procurement.ReturnRequest
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Receipts").
		Preload("Receipts.Items").
		First(&ret, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByReturnNumber finds a return request by its return number
func (r *GormReturnRequestRepository) FindByReturnNumber(ctx context.Context, returnNumber string) (*procurement.ReturnRequest, error) {
	var ret procurement.ReturnRequest
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Receipts").
		Preload("Receipts.Items").
		Where("return_number = ?", returnNumber).
		First(&ret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ret, nil
}

// FindByPurchaseOrder finds all return requests against an order
func (r *GormReturnRequestRepository) FindByPurchaseOrder(ctx context.Context, purchaseOrderID uuid.UUID) ([]procurement.ReturnRequest, error) {
	var returns []procurement.ReturnRequest
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("purchase_order_id = ?", purchaseOrderID).
		Order("created_at ASC").
		Find(&returns).Error; err != nil {
		return nil, err
	}
	return returns, nil
}

// FindByStatus finds return requests in a given status
func (r *GormReturnRequestRepository) FindByStatus(ctx context.Context, status procurement.ReturnStatus, filter shared.Filter) ([]procurement.ReturnRequest, error) {
	var returns []procurement.ReturnRequest
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&procurement.ReturnRequest{}).Where("status = ?", status),
		filter,
	)

	if err := query.Preload("Lines").Find(&returns).Error; err != nil {
		return nil, err
	}
	return returns, nil
}

// FindAll finds return requests matching the filter
func (r *GormReturnRequestRepository) FindAll(ctx context.Context, filter shared.Filter) ([]procurement.ReturnRequest, error) {
	var returns []procurement.ReturnRequest
	query := r.applyFilter(r.db.WithContext(ctx).Model(&procurement.ReturnRequest{}), filter)

	if err := query.Preload("Lines").Find(&returns).Error; err != nil {
		return nil, err
	}
	return returns, nil
}

// Save creates or updates a return request together with its lines and receipts
func (r *GormReturnRequestRepository) Save(ctx context.Context, ret *procurement.ReturnRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines", "Receipts").Save(ret).Error; err != nil {
			return err
		}
		return r.saveChildren(tx, ret)
	})
}

// SaveWithLock saves with optimistic locking. The aggregate has already
// incremented its version in memory; the update only succeeds if the stored
// row still carries the previous version.
func (r *GormReturnRequestRepository) SaveWithLock(ctx context.Context, ret *procurement.ReturnRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expectedVersion := ret.Version - 1

		result := tx.Model(&procurement.ReturnRequest{}).
			Where("id = ? AND version = ?", ret.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":        ret.Status,
				"reason":        ret.Reason,
				"approved_by":   ret.ApprovedBy,
				"refund_amount": ret.RefundAmount,
				"approved_at":   ret.ApprovedAt,
				"received_at":   ret.ReceivedAt,
				"refunded_at":   ret.RefundedAt,
				"cancelled_at":  ret.CancelledAt,
				"version":       ret.Version,
				"updated_at":    time.Now(),
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&procurement.ReturnRequest{}).
				Where("id = ?", ret.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return shared.ErrNotFound
			}
			return shared.ErrConflictingUpdate
		}

		return r.saveChildren(tx, ret)
	})
}

// saveChildren upserts the lines and receipts of the aggregate. Lines are
// fixed at creation and receipts are append-only, so nothing is ever deleted.
func (r *GormReturnRequestRepository) saveChildren(tx *gorm.DB, ret *procurement.ReturnRequest) error {
	for i := range ret.Lines {
		ret.Lines[i].ReturnID = ret.ID
		if err := tx.Save(&ret.Lines[i]).Error; err != nil {
			return err
		}
	}

	for i := range ret.Receipts {
		receipt := &ret.Receipts[i]
		receipt.ReturnID = ret.ID
		if err := tx.Omit("Items").Save(receipt).Error; err != nil {
			return err
		}
		for j := range receipt.Items {
			receipt.Items[j].ReceiptID = receipt.ID
			if err := tx.Save(&receipt.Items[j]).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// ConsumedQuantities sums, per purchase order item, the quantity claimed by
// returns that are still consuming, excluding the given return request.
// A REQUESTED return claims its requested quantity; once decided, the
// approved quantity is what counts.
func (r *GormReturnRequestRepository) ConsumedQuantities(ctx context.Context, orderItemIDs []uuid.UUID, excludeReturnID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	consumed := make(map[uuid.UUID]decimal.Decimal, len(orderItemIDs))
	if len(orderItemIDs) == 0 {
		return consumed, nil
	}

	type consumedRow struct {
		OrderItemID uuid.UUID
		Total       decimal.Decimal
	}

	query := r.db.WithContext(ctx).
		Table("return_line_items").
		Select(
			"return_line_items.order_item_id AS order_item_id, "+
				"SUM(CASE WHEN return_requests.status = ? THEN return_line_items.qty_requested "+
				"ELSE return_line_items.qty_approved END) AS total",
			procurement.ReturnStatusRequested,
		).
		Joins("JOIN return_requests ON return_requests.id = return_line_items.return_id").
		Where("return_line_items.order_item_id IN ?", orderItemIDs).
		Where("return_requests.status IN ?", consumingStatuses).
		Group("return_line_items.order_item_id")

	if excludeReturnID != uuid.Nil {
		query = query.Where("return_requests.id <> ?", excludeReturnID)
	}

	var rows []consumedRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		consumed[row.OrderItemID] = row.Total
	}
	return consumed, nil
}

// GenerateReturnNumber generates a unique return number.
// Format: RR-YYYY-NNNNN (e.g., RR-2026-00001)
func (r *GormReturnRequestRepository) GenerateReturnNumber(ctx context.Context) (string, error) {
	return nextDocumentNumber(ctx, r.db, &procurement.ReturnRequest{}, "return_number", "RR")
}

// Count counts return requests matching the filter
func (r *GormReturnRequestRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&procurement.ReturnRequest{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormReturnRequestRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, ReturnRequestSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormReturnRequestRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("return_number ILIKE ? OR reason ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "purchase_order_id":
			query = query.Where("purchase_order_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "requested_by":
			query = query.Where("requested_by = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at <= ?", t)
			}
		}
	}

	return query
}

// Ensure GormReturnRequestRepository implements ReturnRequestRepository
var _ procurement.ReturnRequestRepository = (*GormReturnRequestRepository)(nil)
