package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// SupplierSortFields contains allowed sort fields for suppliers
var SupplierSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"code":           true,
	"name":           true,
	"status":         true,
	"lead_time_days": true,
}

// WarehouseSortFields contains allowed sort fields for warehouses
var WarehouseSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"status":     true,
	"is_default": true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"sku":             true,
	"name":            true,
	"unit":            true,
	"unit_cost":       true,
	"min_stock_level": true,
	"max_stock_level": true,
	"status":          true,
}

// StockLevelSortFields contains allowed sort fields for stock levels
var StockLevelSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"warehouse_id": true,
	"product_id":   true,
	"qty_on_hand":  true,
}

// StockMovementSortFields contains allowed sort fields for stock movements
var StockMovementSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"warehouse_id":  true,
	"product_id":    true,
	"type":          true,
	"quantity":      true,
	"source_type":   true,
	"source_id":     true,
	"movement_date": true,
}

// PurchaseOrderSortFields contains allowed sort fields for purchase orders
var PurchaseOrderSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"order_number":     true,
	"supplier_id":      true,
	"supplier_name":    true,
	"warehouse_id":     true,
	"status":           true,
	"total_amount":     true,
	"last_activity_at": true,
	"submitted_at":     true,
	"approved_at":      true,
	"completed_at":     true,
}

// ReturnRequestSortFields contains allowed sort fields for return requests
var ReturnRequestSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"return_number":     true,
	"purchase_order_id": true,
	"status":            true,
	"refund_amount":     true,
	"approved_at":       true,
	"received_at":       true,
	"refunded_at":       true,
}
