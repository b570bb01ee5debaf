package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared"
	"github.com/insurance/payplan/internal/infrastructure/persistence/models"
)

// GormFinancialRecordRepository implements payplan.FinancialRecordRepository using GORM
type GormFinancialRecordRepository struct {
	db *gorm.DB
}

// NewGormFinancialRecordRepository creates a new GormFinancialRecordRepository
func NewGormFinancialRecordRepository(db *gorm.DB) *GormFinancialRecordRepository {
	return &GormFinancialRecordRepository{db: db}
}

// FindBySubject returns every record of a subject, newest first
func (r *GormFinancialRecordRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*payplan.FinancialRecord, error) {
	var rows []models.FinancialRecordModel
	if err := r.db.WithContext(ctx).
		Where("subject_document_id = ?", subjectID).
		Order("last_updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find financial records: %w", err)
	}
	records := make([]*payplan.FinancialRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records, nil
}

// FindByID finds a financial record by its ID
func (r *GormFinancialRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.FinancialRecord, error) {
	var row models.FinancialRecordModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find financial record: %w", err)
	}
	return row.ToDomain(), nil
}

// Create inserts a new financial record
func (r *GormFinancialRecordRepository) Create(ctx context.Context, record *payplan.FinancialRecord) error {
	if err := r.db.WithContext(ctx).Create(models.FinancialRecordModelFromDomain(record)).Error; err != nil {
		return fmt.Errorf("failed to create financial record: %w", err)
	}
	return nil
}

// Update writes every column of an existing record
func (r *GormFinancialRecordRepository) Update(ctx context.Context, record *payplan.FinancialRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.FinancialRecordModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"payment_method":    record.PaymentMethod,
			"installment_count": record.InstallmentCount,
			"total_amount":      record.TotalAmount,
			"net_premium":       record.NetPremium,
			"gross_premium":     record.GrossPremium,
			"iof":               record.IOF,
			"last_updated_at":   record.LastUpdatedAt,
			"edited_by":         record.EditedBy,
			"source_kind":       record.SourceKind,
			"confirmed":         record.Confirmed,
			"updated_at":        record.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update financial record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete hard-deletes a record. Callers delete its installments first.
func (r *GormFinancialRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.FinancialRecordModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete financial record: %w", err)
	}
	return nil
}

// Ensure GormFinancialRecordRepository implements FinancialRecordRepository
var _ payplan.FinancialRecordRepository = (*GormFinancialRecordRepository)(nil)
