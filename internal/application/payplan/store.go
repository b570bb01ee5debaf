package payplan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/infrastructure/logger"
)

// StoreAdapter loads schedules and heals the duplicates that concurrent
// materializations leave behind. Healing deletes children before parents,
// one row at a time.
type StoreAdapter struct {
	records      payplan.FinancialRecordRepository
	installments payplan.InstallmentRepository
	metrics      Metrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewStoreAdapter creates a StoreAdapter over the given repositories
func NewStoreAdapter(
	records payplan.FinancialRecordRepository,
	installments payplan.InstallmentRepository,
	metrics Metrics,
	zapLogger *zap.Logger,
	now func() time.Time,
) *StoreAdapter {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &StoreAdapter{
		records:      records,
		installments: installments,
		metrics:      metrics,
		logger:       zapLogger,
		now:          now,
	}
}

// LoadRecord returns the surviving record of a subject, or nil when none
// exists. Older duplicates are deleted along with their installments.
func (s *StoreAdapter) LoadRecord(ctx context.Context, subjectID uuid.UUID) (*payplan.FinancialRecord, error) {
	records, err := s.records.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, payplan.StoreUnavailable("load financial records", err)
	}
	plan := payplan.PlanRecordHealing(records)
	if !plan.NeedsHealing() {
		return plan.Survivor, nil
	}

	logger.WithLogger(ctx, s.logger).Warn("Healing duplicate financial records",
		zap.String("subject_id", subjectID.String()),
		zap.String("survivor_id", plan.Survivor.ID.String()),
		zap.Int("duplicates", len(plan.Losers)),
	)
	for _, loser := range plan.Losers {
		if err := s.installments.DeleteByRecord(ctx, loser.ID); err != nil {
			return nil, payplan.StoreUnavailable("heal duplicate record installments", err)
		}
		if err := s.records.Delete(ctx, loser.ID); err != nil {
			return nil, payplan.StoreUnavailable("heal duplicate record", err)
		}
	}
	s.metrics.RecordHealing(ctx, len(plan.Losers), 0)
	return plan.Survivor, nil
}

// LoadInstallments returns the installments of a record with duplicate
// numbers removed. The record's installment count follows the healed list.
func (s *StoreAdapter) LoadInstallments(ctx context.Context, record *payplan.FinancialRecord) ([]*payplan.Installment, error) {
	installments, err := s.installments.FindByRecord(ctx, record.ID)
	if err != nil {
		return nil, payplan.StoreUnavailable("load installments", err)
	}
	return s.HealInstallments(ctx, record, installments)
}

// HealInstallments deletes duplicate installment numbers from an already
// loaded list and syncs the record's count.
func (s *StoreAdapter) HealInstallments(ctx context.Context, record *payplan.FinancialRecord, installments []*payplan.Installment) ([]*payplan.Installment, error) {
	plan := payplan.PlanInstallmentHealing(installments)
	if plan.NeedsHealing() {
		logger.WithLogger(ctx, s.logger).Warn("Healing duplicate installments",
			zap.String("record_id", record.ID.String()),
			zap.Int("duplicates", len(plan.Duplicates)),
		)
		for _, dup := range plan.Duplicates {
			if err := s.installments.Delete(ctx, dup.ID); err != nil {
				return nil, payplan.StoreUnavailable("heal duplicate installment", err)
			}
		}
		s.metrics.RecordHealing(ctx, 0, len(plan.Duplicates))
	}

	if n := len(plan.Kept); n > 0 && n != record.InstallmentCount {
		if err := record.SetInstallmentCount(n, s.now()); err != nil {
			return nil, err
		}
		if err := s.records.Update(ctx, record); err != nil {
			return nil, payplan.StoreUnavailable("update installment count", err)
		}
	}
	return plan.Kept, nil
}

// DeleteSubject removes every record of a subject and their installments
func (s *StoreAdapter) DeleteSubject(ctx context.Context, subjectID uuid.UUID) error {
	records, err := s.records.FindBySubject(ctx, subjectID)
	if err != nil {
		return payplan.StoreUnavailable("load financial records", err)
	}
	for _, record := range records {
		if err := s.installments.DeleteByRecord(ctx, record.ID); err != nil {
			return payplan.StoreUnavailable("delete installments", err)
		}
		if err := s.records.Delete(ctx, record.ID); err != nil {
			return payplan.StoreUnavailable("delete financial record", err)
		}
	}
	return nil
}

// Persist inserts a freshly materialized record and its installments
func (s *StoreAdapter) Persist(ctx context.Context, record *payplan.FinancialRecord, installments []*payplan.Installment) error {
	if err := s.records.Create(ctx, record); err != nil {
		return payplan.StoreUnavailable("create financial record", err)
	}
	if err := s.installments.CreateBatch(ctx, installments); err != nil {
		return payplan.StoreUnavailable("create installments", err)
	}
	return nil
}
