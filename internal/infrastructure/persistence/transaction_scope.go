package persistence

import (
	"context"

	"gorm.io/gorm"

	apppayplan "github.com/insurance/payplan/internal/application/payplan"
	"github.com/insurance/payplan/internal/domain/payplan"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Materialization, recreation and atomic saves run through it.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a database transaction. An error from fn rolls the
// transaction back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppayplan.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// RecordRepo returns the financial record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) RecordRepo() payplan.FinancialRecordRepository {
	return NewGormFinancialRecordRepository(r.tx)
}

// InstallmentRepo returns the installment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InstallmentRepo() payplan.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apppayplan.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apppayplan.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
