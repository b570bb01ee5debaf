package payplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/shared"
	"github.com/insurance/payplan/internal/domain/shared/valueobject"
)

// SourceKind records where a financial record's figures came from
type SourceKind string

const (
	SourceKindFromDocument SourceKind = "from_document" // Derived from the document payload
	SourceKindManual       SourceKind = "manual"        // Typed in by an operator
	SourceKindMixed        SourceKind = "mixed"         // Document-derived, then edited
)

// IsValid checks if the source kind is valid
func (s SourceKind) IsValid() bool {
	switch s {
	case SourceKindFromDocument, SourceKindManual, SourceKindMixed:
		return true
	}
	return false
}

// String returns the string representation of SourceKind
func (s SourceKind) String() string {
	return string(s)
}

// FinancialRecord is the canonical summary of a subject document's payment
// terms. Exactly one live record exists per subject; extra rows are healed.
type FinancialRecord struct {
	shared.BaseEntity
	SubjectDocumentID uuid.UUID       `json:"subject_document_id"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	InstallmentCount  int             `json:"installment_count"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	NetPremium        decimal.Decimal `json:"net_premium"`
	GrossPremium      decimal.Decimal `json:"gross_premium"`
	IOF               decimal.Decimal `json:"iof"`
	LastUpdatedAt     time.Time       `json:"last_updated_at"`
	EditedBy          *string         `json:"edited_by,omitempty"`
	SourceKind        SourceKind      `json:"source_kind"`
	Confirmed         bool            `json:"confirmed"`
}

// NewFinancialRecordFromTerms materializes a record from extracted terms
func NewFinancialRecordFromTerms(subjectID uuid.UUID, terms ExtractedTerms, now time.Time) (*FinancialRecord, error) {
	if subjectID == uuid.Nil {
		return nil, ValidationFailed("Subject document ID cannot be empty")
	}
	method := terms.PaymentMethod
	if !method.IsValid() {
		method = PaymentMethodBoleto
	}
	count := terms.InstallmentCount
	if count < 1 {
		count = 1
	}
	return &FinancialRecord{
		BaseEntity:        shared.NewBaseEntityAt(now),
		SubjectDocumentID: subjectID,
		PaymentMethod:     method,
		InstallmentCount:  count,
		TotalAmount:       terms.TotalAmount.Abs(),
		NetPremium:        terms.NetPremium.Abs(),
		GrossPremium:      terms.GrossPremium.Abs(),
		IOF:               terms.IOF.Abs(),
		LastUpdatedAt:     now,
		SourceKind:        SourceKindFromDocument,
	}, nil
}

// RecordEdit carries the header fields an operator may change on save
type RecordEdit struct {
	PaymentMethod *PaymentMethod
	NetPremium    *decimal.Decimal
	GrossPremium  *decimal.Decimal
	IOF           *decimal.Decimal
	EditedBy      string
}

// ApplyEdit confirms the record after a human save. The total is recomputed
// as the sum of the given installment amounts.
func (r *FinancialRecord) ApplyEdit(edit RecordEdit, amounts []decimal.Decimal, now time.Time) error {
	if len(amounts) < 1 {
		return ValidationFailed("A schedule needs at least one installment")
	}
	for _, a := range amounts {
		if a.IsNegative() {
			return ValidationFailed("Installment amounts cannot be negative")
		}
	}
	if edit.PaymentMethod != nil {
		if !edit.PaymentMethod.IsValid() {
			return ValidationFailed("Payment method is not valid")
		}
		r.PaymentMethod = *edit.PaymentMethod
	}
	for _, v := range []*decimal.Decimal{edit.NetPremium, edit.GrossPremium, edit.IOF} {
		if v != nil && v.IsNegative() {
			return ValidationFailed("Premium amounts cannot be negative")
		}
	}
	if edit.NetPremium != nil {
		r.NetPremium = *edit.NetPremium
	}
	if edit.GrossPremium != nil {
		r.GrossPremium = *edit.GrossPremium
	}
	if edit.IOF != nil {
		r.IOF = *edit.IOF
	}

	r.TotalAmount = valueobject.SumAmounts(amounts)
	r.InstallmentCount = len(amounts)
	r.Confirmed = true
	if r.SourceKind != SourceKindManual {
		r.SourceKind = SourceKindMixed
	}
	if edit.EditedBy != "" {
		editor := edit.EditedBy
		r.EditedBy = &editor
	}
	r.LastUpdatedAt = now
	r.Touch(now)
	return nil
}

// SetInstallmentCount keeps the count in step with the stored installments
func (r *FinancialRecord) SetInstallmentCount(n int, now time.Time) error {
	if n < 1 {
		return ValidationFailed("Installment count must be at least 1")
	}
	r.InstallmentCount = n
	r.LastUpdatedAt = now
	r.Touch(now)
	return nil
}

// IsCreditCard reports whether the plan is collected by a card issuer
func (r *FinancialRecord) IsCreditCard() bool {
	return r.PaymentMethod.IsCreditCard()
}
