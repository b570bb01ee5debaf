package payplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func testRecord(subjectID uuid.UUID, count int, updated time.Time) *payplan.FinancialRecord {
	return &payplan.FinancialRecord{
		BaseEntity:        shared.BaseEntity{ID: uuid.New(), CreatedAt: updated, UpdatedAt: updated},
		SubjectDocumentID: subjectID,
		PaymentMethod:     payplan.PaymentMethodBoleto,
		InstallmentCount:  count,
		TotalAmount:       decimal.NewFromInt(int64(100 * count)),
		LastUpdatedAt:     updated,
		SourceKind:        payplan.SourceKindFromDocument,
	}
}

func testInstallment(recordID uuid.UUID, number int, amount string, status payplan.InstallmentStatus) *payplan.Installment {
	due := time.Date(2024, time.Month(number), 10, 0, 0, 0, 0, time.UTC)
	return &payplan.Installment{
		BaseEntity:        shared.BaseEntity{ID: uuid.New(), CreatedAt: fixedNow, UpdatedAt: fixedNow},
		FinancialRecordID: recordID,
		Number:            number,
		Amount:            decimal.RequireFromString(amount),
		DueDate:           &due,
		Status:            status,
	}
}

func TestStoreAdapter_LoadRecord(t *testing.T) {
	ctx := context.Background()
	subjectID := uuid.New()

	t.Run("absent subject returns nil", func(t *testing.T) {
		records := new(MockFinancialRecordRepository)
		records.On("FindBySubject", ctx, subjectID).Return([]*payplan.FinancialRecord{}, nil)

		store := NewStoreAdapter(records, new(MockInstallmentRepository), nil, nil, nil)
		record, err := store.LoadRecord(ctx, subjectID)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("heals duplicates keeping the newest", func(t *testing.T) {
		older := testRecord(subjectID, 2, fixedNow.Add(-time.Hour))
		newer := testRecord(subjectID, 2, fixedNow)

		records := new(MockFinancialRecordRepository)
		installments := new(MockInstallmentRepository)
		metrics := &recordingMetrics{}
		records.On("FindBySubject", ctx, subjectID).Return([]*payplan.FinancialRecord{older, newer}, nil)
		installments.On("DeleteByRecord", ctx, older.ID).Return(nil).Once()
		records.On("Delete", ctx, older.ID).Return(nil).Once()

		store := NewStoreAdapter(records, installments, metrics, nil, nil)
		record, err := store.LoadRecord(ctx, subjectID)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, record.ID)
		assert.Equal(t, 1, metrics.healedRecords)
		records.AssertExpectations(t)
		installments.AssertExpectations(t)
		records.AssertNotCalled(t, "Delete", ctx, newer.ID)
	})

	t.Run("store failure is StoreUnavailable", func(t *testing.T) {
		records := new(MockFinancialRecordRepository)
		records.On("FindBySubject", ctx, subjectID).Return(nil, errors.New("connection refused"))

		store := NewStoreAdapter(records, new(MockInstallmentRepository), nil, nil, nil)
		_, err := store.LoadRecord(ctx, subjectID)
		assert.True(t, errors.Is(err, payplan.ErrStoreUnavailable))
	})

	t.Run("failed heal is StoreUnavailable", func(t *testing.T) {
		older := testRecord(subjectID, 1, fixedNow.Add(-time.Hour))
		newer := testRecord(subjectID, 1, fixedNow)

		records := new(MockFinancialRecordRepository)
		installments := new(MockInstallmentRepository)
		records.On("FindBySubject", ctx, subjectID).Return([]*payplan.FinancialRecord{newer, older}, nil)
		installments.On("DeleteByRecord", ctx, older.ID).Return(errors.New("deadlock"))

		store := NewStoreAdapter(records, installments, nil, nil, nil)
		_, err := store.LoadRecord(ctx, subjectID)
		assert.True(t, errors.Is(err, payplan.ErrStoreUnavailable))
		records.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestStoreAdapter_LoadInstallments(t *testing.T) {
	ctx := context.Background()

	t.Run("heals duplicate numbers and syncs the count", func(t *testing.T) {
		record := testRecord(uuid.New(), 3, fixedNow)
		first := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
		dup := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
		second := testInstallment(record.ID, 2, "100", payplan.InstallmentStatusPending)

		records := new(MockFinancialRecordRepository)
		installments := new(MockInstallmentRepository)
		metrics := &recordingMetrics{}
		installments.On("FindByRecord", ctx, record.ID).Return([]*payplan.Installment{first, dup, second}, nil)
		installments.On("Delete", ctx, dup.ID).Return(nil).Once()
		records.On("Update", ctx, record).Return(nil).Once()

		store := NewStoreAdapter(records, installments, metrics, nil, func() time.Time { return fixedNow })
		kept, err := store.LoadInstallments(ctx, record)
		require.NoError(t, err)

		require.Len(t, kept, 2)
		assert.Equal(t, first.ID, kept[0].ID)
		assert.Equal(t, second.ID, kept[1].ID)
		assert.Equal(t, 2, record.InstallmentCount)
		assert.Equal(t, 1, metrics.healedInstallments)
		installments.AssertExpectations(t)
		records.AssertExpectations(t)
	})

	t.Run("clean list writes nothing", func(t *testing.T) {
		record := testRecord(uuid.New(), 2, fixedNow)
		list := []*payplan.Installment{
			testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending),
			testInstallment(record.ID, 2, "100", payplan.InstallmentStatusPending),
		}
		records := new(MockFinancialRecordRepository)
		installments := new(MockInstallmentRepository)
		installments.On("FindByRecord", ctx, record.ID).Return(list, nil)

		store := NewStoreAdapter(records, installments, nil, nil, nil)
		kept, err := store.LoadInstallments(ctx, record)
		require.NoError(t, err)
		assert.Len(t, kept, 2)
		installments.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
		records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
