package payplan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/insurance/payplan/internal/domain/payplan"
)

// MockFinancialRecordRepository is a mock implementation of payplan.FinancialRecordRepository
type MockFinancialRecordRepository struct {
	mock.Mock
}

func (m *MockFinancialRecordRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*payplan.FinancialRecord, error) {
	args := m.Called(ctx, subjectID)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID) []*payplan.FinancialRecord); ok {
		return fn(ctx, subjectID), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payplan.FinancialRecord), args.Error(1)
}

func (m *MockFinancialRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.FinancialRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payplan.FinancialRecord), args.Error(1)
}

func (m *MockFinancialRecordRepository) Create(ctx context.Context, record *payplan.FinancialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockFinancialRecordRepository) Update(ctx context.Context, record *payplan.FinancialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockFinancialRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInstallmentRepository is a mock implementation of payplan.InstallmentRepository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindByRecord(ctx context.Context, recordID uuid.UUID) ([]*payplan.Installment, error) {
	args := m.Called(ctx, recordID)
	if fn, ok := args.Get(0).(func(context.Context, uuid.UUID) []*payplan.Installment); ok {
		return fn(ctx, recordID), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payplan.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payplan.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Create(ctx context.Context, installment *payplan.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*payplan.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) Update(ctx context.Context, installment *payplan.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInstallmentRepository) DeleteByRecord(ctx context.Context, recordID uuid.UUID) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

// MockSubjectDocumentRepository is a mock implementation of payplan.SubjectDocumentRepository
type MockSubjectDocumentRepository struct {
	mock.Mock
}

func (m *MockSubjectDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payplan.SubjectDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payplan.SubjectDocument), args.Error(1)
}

// recordingMetrics counts metric calls
type recordingMetrics struct {
	mu                   sync.Mutex
	materializations     []string
	placeholders         int
	healedRecords        int
	healedInstallments   int
	partialWriteFailures int
	saves                int
}

func (m *recordingMetrics) RecordMaterialization(_ context.Context, source string, placeholder bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materializations = append(m.materializations, source)
	if placeholder {
		m.placeholders++
	}
}

func (m *recordingMetrics) RecordHealing(_ context.Context, records, installments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healedRecords += records
	m.healedInstallments += installments
}

func (m *recordingMetrics) RecordPartialWriteFailure(_ context.Context, failedRows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partialWriteFailures += failedRows
}

func (m *recordingMetrics) RecordSaveDuration(context.Context, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
}
