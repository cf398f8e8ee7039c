package persistence

import (
	"context"

	appinventory "github.com/wms/backend/internal/application/inventory"
	appprocurement "github.com/wms/backend/internal/application/procurement"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/procurement"
	"gorm.io/gorm"
)

// gormTransactionalRepositories provides access to all repositories bound to
// one database transaction. It satisfies both the inventory and the
// procurement transactional repository interfaces, so a single transaction
// can span a return receipt and the stock posting it triggers.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the purchase order repository scoped to the current transaction
func (r *gormTransactionalRepositories) OrderRepo() procurement.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}

// ReturnRepo returns the return request repository scoped to the current transaction
func (r *gormTransactionalRepositories) ReturnRepo() procurement.ReturnRequestRepository {
	return NewGormReturnRequestRepository(r.tx)
}

// StockLevelRepo returns the stock level repository scoped to the current transaction
func (r *gormTransactionalRepositories) StockLevelRepo() inventory.StockLevelRepository {
	return NewGormStockLevelRepository(r.tx)
}

// MovementRepo returns the stock movement repository scoped to the current transaction
func (r *gormTransactionalRepositories) MovementRepo() inventory.StockMovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// GormInventoryTransactionScope implements the inventory TransactionScope
// using GORM transactions.
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// GormProcurementTransactionScope implements the procurement TransactionScope
// using GORM transactions.
type GormProcurementTransactionScope struct {
	db *gorm.DB
}

// NewGormProcurementTransactionScope creates a new GormProcurementTransactionScope
func NewGormProcurementTransactionScope(db *gorm.DB) *GormProcurementTransactionScope {
	return &GormProcurementTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormProcurementTransactionScope) Execute(ctx context.Context, fn func(repos appprocurement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Ensure the scopes implement their application interfaces
var (
	_ appinventory.TransactionScope            = (*GormInventoryTransactionScope)(nil)
	_ appprocurement.TransactionScope          = (*GormProcurementTransactionScope)(nil)
	_ appinventory.TransactionalRepositories   = (*gormTransactionalRepositories)(nil)
	_ appprocurement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
