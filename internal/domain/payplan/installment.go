package payplan

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/shared"
)

// InstallmentStatus represents the stored status of an installment
type InstallmentStatus string

const (
	InstallmentStatusPending  InstallmentStatus = "pending"
	InstallmentStatusPaid     InstallmentStatus = "paid"
	InstallmentStatusOverdue  InstallmentStatus = "overdue"
	InstallmentStatusCanceled InstallmentStatus = "canceled"
)

// IsValid checks if the status is valid
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPaid, InstallmentStatusOverdue, InstallmentStatusCanceled:
		return true
	}
	return false
}

// String returns the string representation of InstallmentStatus
func (s InstallmentStatus) String() string {
	return string(s)
}

// Details is opaque per-installment metadata stored as JSONB
type Details map[string]any

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *Details) Scan(value any) error {
	if value == nil {
		*d = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Details: unsupported type")
	}

	if len(bytes) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// Installment is one scheduled payment of a financial record
type Installment struct {
	shared.BaseEntity
	FinancialRecordID uuid.UUID         `json:"financial_record_id"`
	Number            int               `json:"installment_number"`
	Amount            decimal.Decimal   `json:"amount"`
	DueDate           *time.Time        `json:"due_date"`
	PaymentDate       *time.Time        `json:"payment_date"`
	Status            InstallmentStatus `json:"status"`
	Details           Details           `json:"details,omitempty"`
}

// NewInstallment creates a pending installment
func NewInstallment(recordID uuid.UUID, number int, amount decimal.Decimal, dueDate *time.Time, now time.Time) (*Installment, error) {
	if recordID == uuid.Nil {
		return nil, ValidationFailed("Financial record ID cannot be empty")
	}
	if number < 1 {
		return nil, ValidationFailed("Installment number must be at least 1")
	}
	if amount.IsNegative() {
		return nil, ValidationFailed("Installment amount cannot be negative")
	}
	return &Installment{
		BaseEntity:        shared.NewBaseEntityAt(now),
		FinancialRecordID: recordID,
		Number:            number,
		Amount:            amount,
		DueDate:           dueDate,
		Status:            InstallmentStatusPending,
	}, nil
}

// InstallmentsFromSchedule turns generated lines into installments of a record
func InstallmentsFromSchedule(recordID uuid.UUID, schedule []ScheduledInstallment, now time.Time) ([]*Installment, error) {
	out := make([]*Installment, 0, len(schedule))
	for _, line := range schedule {
		due := line.DueDate
		inst, err := NewInstallment(recordID, line.Number, line.Amount, &due, now)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// IsPaid returns true if the installment has been paid
func (i *Installment) IsPaid() bool {
	return i.Status == InstallmentStatusPaid
}

// TogglePaid flips Pending/Overdue to Paid (payment date = today) and Paid
// back to Pending (payment date cleared). Canceled installments are rejected.
func (i *Installment) TogglePaid(today time.Time) error {
	switch i.Status {
	case InstallmentStatusPaid:
		i.Status = InstallmentStatusPending
		i.PaymentDate = nil
	case InstallmentStatusPending, InstallmentStatusOverdue:
		day := CalendarDay(today)
		i.Status = InstallmentStatusPaid
		i.PaymentDate = &day
	default:
		return ValidationFailed("Canceled installments cannot be marked as paid")
	}
	i.Touch(today)
	return nil
}

// InstallmentEdit is the per-row payload of a schedule save
type InstallmentEdit struct {
	Amount      decimal.Decimal
	DueDate     *time.Time
	PaymentDate *time.Time
	Status      InstallmentStatus
}

// ApplyEdit overwrites the editable fields
func (i *Installment) ApplyEdit(edit InstallmentEdit, now time.Time) error {
	if edit.Amount.IsNegative() {
		return ValidationFailed("Installment amount cannot be negative")
	}
	if !edit.Status.IsValid() {
		return ValidationFailed("Installment status is not valid")
	}
	i.Amount = edit.Amount
	i.DueDate = edit.DueDate
	i.PaymentDate = edit.PaymentDate
	i.Status = edit.Status
	i.Touch(now)
	return nil
}

// Clone returns a copy used to restore state after a failed write
func (i *Installment) Clone() *Installment {
	c := *i
	if i.DueDate != nil {
		d := *i.DueDate
		c.DueDate = &d
	}
	if i.PaymentDate != nil {
		p := *i.PaymentDate
		c.PaymentDate = &p
	}
	if i.Details != nil {
		c.Details = make(Details, len(i.Details))
		for k, v := range i.Details {
			c.Details[k] = v
		}
	}
	return &c
}

// Amounts collects the amounts of a list of installments
func Amounts(installments []*Installment) []decimal.Decimal {
	out := make([]decimal.Decimal, len(installments))
	for i, inst := range installments {
		out[i] = inst.Amount
	}
	return out
}
