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

// GormSubjectDocumentRepository reads subject documents using GORM
type GormSubjectDocumentRepository struct {
	db *gorm.DB
}

// NewGormSubjectDocumentRepository creates a new GormSubjectDocumentRepository
func NewGormSubjectDocumentRepository(db *gorm.DB) *GormSubjectDocumentRepository {
	return &GormSubjectDocumentRepository{db: db}
}

// FindByID finds a subject document by its ID
func (r *GormSubjectDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.SubjectDocument, error) {
	var row models.SubjectDocumentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find subject document: %w", err)
	}
	return row.ToDomain(), nil
}

// Save upserts a subject document. The engine never calls it; ingestion
// tooling and tests do.
func (r *GormSubjectDocumentRepository) Save(ctx context.Context, doc *payplan.SubjectDocument) error {
	if err := r.db.WithContext(ctx).Save(models.SubjectDocumentModelFromDomain(doc)).Error; err != nil {
		return fmt.Errorf("failed to save subject document: %w", err)
	}
	return nil
}

// Ensure GormSubjectDocumentRepository implements SubjectDocumentRepository
var _ payplan.SubjectDocumentRepository = (*GormSubjectDocumentRepository)(nil)
