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

type serviceFixture struct {
	records      *MockFinancialRecordRepository
	installments *MockInstallmentRepository
	subjects     *MockSubjectDocumentRepository
	metrics      *recordingMetrics
}

func newServiceFixture() *serviceFixture {
	return &serviceFixture{
		records:      new(MockFinancialRecordRepository),
		installments: new(MockInstallmentRepository),
		subjects:     new(MockSubjectDocumentRepository),
		metrics:      &recordingMetrics{},
	}
}

func (f *serviceFixture) service(atomic bool) *ReconciliationService {
	return NewReconciliationService(ServiceConfig{
		Records:      f.records,
		Installments: f.installments,
		Subjects:     f.subjects,
		Metrics:      f.metrics,
		Clock:        func() time.Time { return fixedNow },
		AtomicSave:   atomic,
	})
}

func (f *serviceFixture) withSubject(subjectID uuid.UUID) *payplan.SubjectDocument {
	doc := &payplan.SubjectDocument{
		BaseEntity: shared.BaseEntity{ID: subjectID},
		Kind:       payplan.SubjectKindPolicy,
	}
	f.subjects.On("FindByID", mock.Anything, subjectID).Return(doc, nil)
	return doc
}

func TestGetOrCreateSchedule_SubjectNotFound(t *testing.T) {
	f := newServiceFixture()
	subjectID := uuid.New()
	f.subjects.On("FindByID", mock.Anything, subjectID).Return(nil, shared.ErrNotFound)

	_, err := f.service(false).GetOrCreateSchedule(context.Background(), subjectID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGetOrCreateSchedule_StoreUnavailable(t *testing.T) {
	f := newServiceFixture()
	subjectID := uuid.New()
	f.withSubject(subjectID)
	f.records.On("FindBySubject", mock.Anything, subjectID).Return(nil, errors.New("dial tcp: timeout"))

	svc := f.service(false)
	_, err := svc.GetOrCreateSchedule(context.Background(), subjectID)
	assert.True(t, errors.Is(err, payplan.ErrStoreUnavailable))
	assert.Equal(t, StateFailed, svc.State(subjectID))
}

func TestGetOrCreateSchedule_MaterializesPlaceholder(t *testing.T) {
	f := newServiceFixture()
	subjectID := uuid.New()
	f.withSubject(subjectID)

	var created *payplan.FinancialRecord
	var createdInstallments []*payplan.Installment
	f.records.On("FindBySubject", mock.Anything, subjectID).Return([]*payplan.FinancialRecord{}, nil).Once()
	f.records.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*payplan.FinancialRecord)
	}).Return(nil)
	f.installments.On("CreateBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdInstallments = args.Get(1).([]*payplan.Installment)
	}).Return(nil)
	f.records.On("FindBySubject", mock.Anything, subjectID).Return(func(context.Context, uuid.UUID) []*payplan.FinancialRecord {
		return []*payplan.FinancialRecord{created}
	}, nil)
	f.installments.On("FindByRecord", mock.Anything, mock.Anything).Return(func(context.Context, uuid.UUID) []*payplan.Installment {
		return createdInstallments
	}, nil)

	svc := f.service(false)
	view, err := svc.GetOrCreateSchedule(context.Background(), subjectID)
	require.NoError(t, err)

	assert.Equal(t, StateReady, view.State)
	assert.Equal(t, payplan.SourcePlaceholder, view.TermsSource)
	require.Len(t, view.Installments, 1)
	assert.True(t, view.Installments[0].Amount.IsZero())
	assert.Equal(t, "boleto", view.Record.PaymentMethod)
	assert.Equal(t, 1, f.metrics.placeholders)
}

func TestSaveSchedule_NoRecord(t *testing.T) {
	f := newServiceFixture()
	subjectID := uuid.New()
	f.withSubject(subjectID)
	f.records.On("FindBySubject", mock.Anything, subjectID).Return([]*payplan.FinancialRecord{}, nil)

	_, err := f.service(false).SaveSchedule(context.Background(), subjectID, SaveScheduleInput{})
	assert.True(t, errors.Is(err, payplan.ErrValidationFailed))
}

func TestSaveSchedule(t *testing.T) {
	ctx := context.Background()
	paidOn := "2024-03-01"

	setup := func(t *testing.T, atomic bool, failSecond bool) (*serviceFixture, *ReconciliationService, uuid.UUID, SaveScheduleInput) {
		t.Helper()
		f := newServiceFixture()
		subjectID := uuid.New()
		f.withSubject(subjectID)
		record := testRecord(subjectID, 2, fixedNow.Add(-24*time.Hour))
		first := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
		second := testInstallment(record.ID, 2, "100", payplan.InstallmentStatusPending)

		f.records.On("FindBySubject", mock.Anything, subjectID).Return([]*payplan.FinancialRecord{record}, nil)
		f.installments.On("FindByRecord", mock.Anything, record.ID).Return([]*payplan.Installment{first, second}, nil)
		f.records.On("Update", mock.Anything, record).Return(nil)
		f.installments.On("Update", mock.Anything, mock.MatchedBy(func(i *payplan.Installment) bool { return i.Number == 1 })).Return(nil)
		var secondErr error
		if failSecond {
			secondErr = errors.New("connection reset by peer")
		}
		f.installments.On("Update", mock.Anything, mock.MatchedBy(func(i *payplan.Installment) bool { return i.Number == 2 })).Return(secondErr)

		input := SaveScheduleInput{
			EditedBy: "ana",
			Installments: []InstallmentInput{
				{ID: first.ID, Amount: decimal.RequireFromString("120.10"), Status: "paid", PaymentDate: &paidOn},
				{ID: second.ID, Amount: decimal.RequireFromString("95.40"), Status: "pending"},
			},
		}
		return f, f.service(atomic), subjectID, input
	}

	t.Run("recomputes the total and confirms", func(t *testing.T) {
		f, svc, subjectID, input := setup(t, false, false)

		view, err := svc.SaveSchedule(ctx, subjectID, input)
		require.NoError(t, err)

		assert.Equal(t, "215.50", view.Record.TotalAmount.StringFixed(2))
		assert.True(t, view.Record.Confirmed)
		assert.Equal(t, "mixed", view.Record.SourceKind)
		require.NotNil(t, view.Record.EditedBy)
		assert.Equal(t, "ana", *view.Record.EditedBy)
		assert.Equal(t, "paid", view.Installments[0].Status)
		assert.Equal(t, paidOn, *view.Installments[0].PaymentDate)
		assert.Equal(t, StateReady, svc.State(subjectID))
		assert.Equal(t, 1, f.metrics.saves)
	})

	t.Run("a failed row is a partial write failure", func(t *testing.T) {
		f, svc, subjectID, input := setup(t, false, true)

		_, err := svc.SaveSchedule(ctx, subjectID, input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, payplan.ErrPartialWriteFailure))
		assert.Contains(t, err.Error(), "installment 2")
		assert.Equal(t, StateEditing, svc.State(subjectID))
		assert.Equal(t, 1, f.metrics.partialWriteFailures)
		f.records.AssertNumberOfCalls(t, "Update", 1)
		f.installments.AssertNumberOfCalls(t, "Update", 2)
	})

	t.Run("atomic save reports StoreUnavailable", func(t *testing.T) {
		f, svc, subjectID, input := setup(t, true, true)

		_, err := svc.SaveSchedule(ctx, subjectID, input)
		assert.True(t, errors.Is(err, payplan.ErrStoreUnavailable))
		assert.Equal(t, StateFailed, svc.State(subjectID))
		assert.Zero(t, f.metrics.partialWriteFailures)
	})

	t.Run("foreign installment is rejected before any write", func(t *testing.T) {
		f, svc, subjectID, input := setup(t, false, false)
		input.Installments[1].ID = uuid.New()

		_, err := svc.SaveSchedule(ctx, subjectID, input)
		assert.True(t, errors.Is(err, payplan.ErrValidationFailed))
		f.records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("bad date is rejected", func(t *testing.T) {
		_, svc, subjectID, input := setup(t, false, false)
		bad := "01/03/2024"
		input.Installments[0].DueDate = &bad

		_, err := svc.SaveSchedule(ctx, subjectID, input)
		assert.True(t, errors.Is(err, payplan.ErrValidationFailed))
	})
}

func TestToggleInstallmentPaid(t *testing.T) {
	ctx := context.Background()

	setup := func(updateErr error) (*serviceFixture, *payplan.Installment) {
		f := newServiceFixture()
		record := testRecord(uuid.New(), 1, fixedNow)
		inst := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
		f.installments.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
		f.records.On("FindByID", mock.Anything, record.ID).Return(record, nil)
		f.installments.On("Update", mock.Anything, inst).Return(updateErr)
		return f, inst
	}

	t.Run("marks paid today", func(t *testing.T) {
		f, inst := setup(nil)
		got, err := f.service(false).ToggleInstallmentPaid(ctx, inst.ID)
		require.NoError(t, err)
		assert.Equal(t, payplan.InstallmentStatusPaid, got.Status)
		require.NotNil(t, got.PaymentDate)
		assert.Equal(t, payplan.CalendarDay(fixedNow), *got.PaymentDate)
	})

	t.Run("store failure restores the installment", func(t *testing.T) {
		f, inst := setup(errors.New("i/o timeout"))
		got, err := f.service(false).ToggleInstallmentPaid(ctx, inst.ID)
		assert.True(t, errors.Is(err, payplan.ErrStoreUnavailable))
		require.NotNil(t, got)
		assert.Equal(t, payplan.InstallmentStatusPending, got.Status)
		assert.Nil(t, got.PaymentDate)
	})

	t.Run("unknown installment", func(t *testing.T) {
		f := newServiceFixture()
		id := uuid.New()
		f.installments.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)
		_, err := f.service(false).ToggleInstallmentPaid(ctx, id)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestRemoveInstallment_KeepsAtLeastOne(t *testing.T) {
	f := newServiceFixture()
	record := testRecord(uuid.New(), 1, fixedNow)
	inst := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
	f.installments.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
	f.records.On("FindByID", mock.Anything, record.ID).Return(record, nil)
	f.installments.On("FindByRecord", mock.Anything, record.ID).Return([]*payplan.Installment{inst}, nil)

	err := f.service(false).RemoveInstallment(context.Background(), inst.ID)
	assert.True(t, errors.Is(err, payplan.ErrValidationFailed))
	f.installments.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestBeginEdit(t *testing.T) {
	f := newServiceFixture()
	subjectID := uuid.New()
	f.withSubject(subjectID)
	record := testRecord(subjectID, 1, fixedNow)
	inst := testInstallment(record.ID, 1, "100", payplan.InstallmentStatusPending)
	f.records.On("FindBySubject", mock.Anything, subjectID).Return([]*payplan.FinancialRecord{record}, nil)
	f.installments.On("FindByRecord", mock.Anything, record.ID).Return([]*payplan.Installment{inst}, nil)

	svc := f.service(false)
	assert.Equal(t, StateAbsent, svc.State(subjectID))

	view, err := svc.BeginEdit(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, view.State)
	assert.Equal(t, StateEditing, svc.State(subjectID))

	// Reloading while editing keeps the editor open
	view, err = svc.GetOrCreateSchedule(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, view.State)
	f.records.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
