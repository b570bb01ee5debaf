package payplan

import (
	"context"

	"github.com/google/uuid"
)

// FinancialRecordRepository defines persistence for financial records
type FinancialRecordRepository interface {
	// FindBySubject returns every record of a subject, duplicates included
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*FinancialRecord, error)

	// FindByID returns shared.ErrNotFound when the record does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*FinancialRecord, error)

	Create(ctx context.Context, record *FinancialRecord) error
	Update(ctx context.Context, record *FinancialRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InstallmentRepository defines persistence for installments
type InstallmentRepository interface {
	// FindByRecord returns installments ordered by installment number ascending
	FindByRecord(ctx context.Context, recordID uuid.UUID) ([]*Installment, error)

	// FindByID returns shared.ErrNotFound when the installment does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Installment, error)

	Create(ctx context.Context, installment *Installment) error
	CreateBatch(ctx context.Context, installments []*Installment) error
	Update(ctx context.Context, installment *Installment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByRecord(ctx context.Context, recordID uuid.UUID) error
}

// SubjectDocumentRepository reads subject documents
type SubjectDocumentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SubjectDocument, error)
}
