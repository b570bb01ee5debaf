package payplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared/valueobject"
)

// DateLayout is the wire format of due and payment dates
const DateLayout = "2006-01-02"

// ScheduleView is a subject's schedule as shown to the operator
type ScheduleView struct {
	SubjectID    uuid.UUID         `json:"subject_id"`
	State        ScheduleState     `json:"state"`
	Record       *RecordView       `json:"record"`
	Installments []InstallmentView `json:"installments"`
	FullySettled bool              `json:"fully_settled"`
	TermsSource  string            `json:"terms_source,omitempty"`
}

// RecordView is the financial record header
type RecordView struct {
	ID                 uuid.UUID       `json:"id"`
	PaymentMethod      string          `json:"payment_method"`
	InstallmentCount   int             `json:"installment_count"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	TotalAmountDisplay string          `json:"total_amount_display"`
	NetPremium         decimal.Decimal `json:"net_premium"`
	GrossPremium       decimal.Decimal `json:"gross_premium"`
	IOF                decimal.Decimal `json:"iof"`
	LastUpdatedAt      time.Time       `json:"last_updated_at"`
	EditedBy           *string         `json:"edited_by,omitempty"`
	SourceKind         string          `json:"source_kind"`
	Confirmed          bool            `json:"confirmed"`
}

// InstallmentView is one schedule line with its display status
type InstallmentView struct {
	ID            uuid.UUID       `json:"id"`
	Number        int             `json:"installment_number"`
	Amount        decimal.Decimal `json:"amount"`
	AmountDisplay string          `json:"amount_display"`
	DueDate       *string         `json:"due_date"`
	PaymentDate   *string         `json:"payment_date"`
	Status        string          `json:"status"`
	DisplayStatus string          `json:"display_status"`
	Details       map[string]any  `json:"details,omitempty"`
}

// SettlementView answers whether a subject is fully paid
type SettlementView struct {
	SubjectID    uuid.UUID `json:"subject_id"`
	FullySettled bool      `json:"fully_settled"`
}

// StateView exposes the tracked state of a subject
type StateView struct {
	SubjectID uuid.UUID     `json:"subject_id"`
	State     ScheduleState `json:"state"`
}

// SaveScheduleInput is the operator's edited schedule
type SaveScheduleInput struct {
	PaymentMethod *string            `json:"payment_method" binding:"omitempty,oneof=boleto debito_automatico cartao_credito"`
	NetPremium    *decimal.Decimal   `json:"net_premium" binding:"omitempty,brl_amount"`
	GrossPremium  *decimal.Decimal   `json:"gross_premium" binding:"omitempty,brl_amount"`
	IOF           *decimal.Decimal   `json:"iof" binding:"omitempty,brl_amount"`
	EditedBy      string             `json:"edited_by" binding:"max=200"`
	Installments  []InstallmentInput `json:"installments" binding:"required,min=1,dive"`
}

// InstallmentInput is one edited schedule line
type InstallmentInput struct {
	ID          uuid.UUID       `json:"id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"brl_amount"`
	DueDate     *string         `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentDate *string         `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status" binding:"required,oneof=pending paid overdue canceled"`
}

func (in SaveScheduleInput) recordEdit() payplan.RecordEdit {
	edit := payplan.RecordEdit{
		NetPremium:   in.NetPremium,
		GrossPremium: in.GrossPremium,
		IOF:          in.IOF,
		EditedBy:     in.EditedBy,
	}
	if in.PaymentMethod != nil {
		method := payplan.PaymentMethod(*in.PaymentMethod)
		edit.PaymentMethod = &method
	}
	return edit
}

func (in InstallmentInput) edit() (payplan.InstallmentEdit, error) {
	due, err := parseDate(in.DueDate)
	if err != nil {
		return payplan.InstallmentEdit{}, err
	}
	paid, err := parseDate(in.PaymentDate)
	if err != nil {
		return payplan.InstallmentEdit{}, err
	}
	return payplan.InstallmentEdit{
		Amount:      in.Amount.Round(valueobject.CentPlaces),
		DueDate:     due,
		PaymentDate: paid,
		Status:      payplan.InstallmentStatus(in.Status),
	}, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, payplan.ValidationFailed("Dates must use the YYYY-MM-DD format")
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// ToRecordView converts a domain record to its view
func ToRecordView(r *payplan.FinancialRecord) *RecordView {
	if r == nil {
		return nil
	}
	return &RecordView{
		ID:                 r.ID,
		PaymentMethod:      r.PaymentMethod.String(),
		InstallmentCount:   r.InstallmentCount,
		TotalAmount:        r.TotalAmount,
		TotalAmountDisplay: valueobject.FormatBRL(r.TotalAmount),
		NetPremium:         r.NetPremium,
		GrossPremium:       r.GrossPremium,
		IOF:                r.IOF,
		LastUpdatedAt:      r.LastUpdatedAt,
		EditedBy:           r.EditedBy,
		SourceKind:         r.SourceKind.String(),
		Confirmed:          r.Confirmed,
	}
}

// ToInstallmentView converts a domain installment to its view, resolving the
// display status against today
func ToInstallmentView(inst *payplan.Installment, today time.Time) InstallmentView {
	return InstallmentView{
		ID:            inst.ID,
		Number:        inst.Number,
		Amount:        inst.Amount,
		AmountDisplay: valueobject.FormatBRL(inst.Amount),
		DueDate:       formatDate(inst.DueDate),
		PaymentDate:   formatDate(inst.PaymentDate),
		Status:        inst.Status.String(),
		DisplayStatus: string(payplan.ResolveDisplayStatus(inst, today)),
		Details:       inst.Details,
	}
}

func newScheduleView(subjectID uuid.UUID, state ScheduleState, snap *scheduleSnapshot, today time.Time) *ScheduleView {
	view := &ScheduleView{
		SubjectID:    subjectID,
		State:        state,
		Record:       ToRecordView(snap.Record),
		Installments: make([]InstallmentView, 0, len(snap.Installments)),
		TermsSource:  snap.TermsSource,
		FullySettled: payplan.EvaluateSettlement(payplan.SettlementInput{
			Record:       snap.Record,
			Installments: snap.Installments,
			Projection:   snap.Projection,
		}),
	}
	for _, inst := range snap.Installments {
		view.Installments = append(view.Installments, ToInstallmentView(inst, today))
	}
	return view
}
