package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared"
)

var recordColumns = []string{
	"id", "created_at", "updated_at", "subject_document_id", "payment_method",
	"installment_count", "total_amount", "net_premium", "gross_premium", "iof",
	"last_updated_at", "edited_by", "source_kind", "confirmed",
}

func TestGormFinancialRecordRepository_FindBySubject(t *testing.T) {
	t.Run("maps rows newest first", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormFinancialRecordRepository(gormDB)

		subjectID := uuid.New()
		recordID := uuid.New()
		now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(recordColumns).
			AddRow(recordID, now, now, subjectID, "cartao_credito", 10, "1625.93", "1500.00", "1625.93", "125.93",
				now, nil, "from_document", false)

		mock.ExpectQuery(`SELECT \* FROM "financial_records" WHERE subject_document_id = \$1 ORDER BY last_updated_at DESC`).
			WithArgs(subjectID).
			WillReturnRows(rows)

		records, err := repo.FindBySubject(context.Background(), subjectID)
		require.NoError(t, err)
		require.Len(t, records, 1)

		record := records[0]
		assert.Equal(t, recordID, record.ID)
		assert.Equal(t, payplan.PaymentMethodCreditCard, record.PaymentMethod)
		assert.Equal(t, 10, record.InstallmentCount)
		assert.True(t, decimal.RequireFromString("1625.93").Equal(record.TotalAmount))
		assert.Nil(t, record.EditedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps driver errors", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormFinancialRecordRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "financial_records"`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.FindBySubject(context.Background(), uuid.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to find financial records")
	})
}

func TestGormFinancialRecordRepository_FindByID(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormFinancialRecordRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "financial_records" WHERE id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	record, err := repo.FindByID(context.Background(), id)
	assert.Nil(t, record)
	assert.Equal(t, shared.ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFinancialRecordRepository_Update(t *testing.T) {
	t.Run("missing row is not found", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormFinancialRecordRepository(gormDB)

		mock.ExpectExec(`UPDATE "financial_records" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		record := &payplan.FinancialRecord{BaseEntity: shared.NewBaseEntity()}
		err := repo.Update(context.Background(), record)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates one row", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormFinancialRecordRepository(gormDB)

		mock.ExpectExec(`UPDATE "financial_records" SET .* WHERE id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		record := &payplan.FinancialRecord{BaseEntity: shared.NewBaseEntity(), InstallmentCount: 3}
		assert.NoError(t, repo.Update(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInstallmentRepository_DeleteByRecord(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormInstallmentRepository(gormDB)

	recordID := uuid.New()
	mock.ExpectExec(`DELETE FROM "installments" WHERE financial_record_id = \$1`).
		WithArgs(recordID).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, repo.DeleteByRecord(context.Background(), recordID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
