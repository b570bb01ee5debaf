package payplan

import (
	"context"

	"github.com/insurance/payplan/internal/domain/payplan"
)

// TransactionScope runs a unit of work against repositories that share one
// database transaction. A returned error rolls the whole unit back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories bound to the current transaction
type TransactionalRepositories interface {
	// RecordRepo returns the financial record repository scoped to the transaction
	RecordRepo() payplan.FinancialRecordRepository
	// InstallmentRepo returns the installment repository scoped to the transaction
	InstallmentRepo() payplan.InstallmentRepository
}

// NoOpTransactionScope runs the unit of work directly on the given
// repositories. Used in tests and when the store has no transactions.
type NoOpTransactionScope struct {
	recordRepo      payplan.FinancialRecordRepository
	installmentRepo payplan.InstallmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	recordRepo payplan.FinancialRecordRepository,
	installmentRepo payplan.InstallmentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		recordRepo:      recordRepo,
		installmentRepo: installmentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// RecordRepo returns the financial record repository.
func (s *NoOpTransactionScope) RecordRepo() payplan.FinancialRecordRepository {
	return s.recordRepo
}

// InstallmentRepo returns the installment repository.
func (s *NoOpTransactionScope) InstallmentRepo() payplan.InstallmentRepository {
	return s.installmentRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
