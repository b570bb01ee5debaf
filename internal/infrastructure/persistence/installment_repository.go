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

// GormInstallmentRepository implements payplan.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByRecord loads the installments of a record in installment order.
// Rows sharing a number keep their insertion order so healing keeps the oldest.
func (r *GormInstallmentRepository) FindByRecord(ctx context.Context, recordID uuid.UUID) ([]*payplan.Installment, error) {
	var rows []models.InstallmentModel
	if err := r.db.WithContext(ctx).
		Where("financial_record_id = ?", recordID).
		Order("installment_number ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find installments: %w", err)
	}
	installments := make([]*payplan.Installment, len(rows))
	for i := range rows {
		installments[i] = rows[i].ToDomain()
	}
	return installments, nil
}

// FindByID finds an installment by its ID
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.Installment, error) {
	var row models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find installment: %w", err)
	}
	return row.ToDomain(), nil
}

// Create inserts a single installment
func (r *GormInstallmentRepository) Create(ctx context.Context, installment *payplan.Installment) error {
	if err := r.db.WithContext(ctx).Create(models.InstallmentModelFromDomain(installment)).Error; err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

// CreateBatch inserts installments in one statement
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, installments []*payplan.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	rows := make([]*models.InstallmentModel, len(installments))
	for i, inst := range installments {
		rows[i] = models.InstallmentModelFromDomain(inst)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to create installments: %w", err)
	}
	return nil
}

// Update writes the editable columns of an installment
func (r *GormInstallmentRepository) Update(ctx context.Context, installment *payplan.Installment) error {
	result := r.db.WithContext(ctx).
		Model(&models.InstallmentModel{}).
		Where("id = ?", installment.ID).
		Updates(map[string]any{
			"installment_number": installment.Number,
			"amount":             installment.Amount,
			"due_date":           installment.DueDate,
			"payment_date":       installment.PaymentDate,
			"status":             installment.Status,
			"details":            installment.Details,
			"updated_at":         installment.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update installment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes one installment
func (r *GormInstallmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.InstallmentModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete installment: %w", err)
	}
	return nil
}

// DeleteByRecord removes every installment of a record
func (r *GormInstallmentRepository) DeleteByRecord(ctx context.Context, recordID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("financial_record_id = ?", recordID).
		Delete(&models.InstallmentModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete installments of record: %w", err)
	}
	return nil
}

// Ensure GormInstallmentRepository implements InstallmentRepository
var _ payplan.InstallmentRepository = (*GormInstallmentRepository)(nil)
