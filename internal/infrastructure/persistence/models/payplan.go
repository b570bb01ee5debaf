package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/payplan"
)

// FinancialRecordModel is the persistence model for payplan.FinancialRecord.
// subject_document_id is indexed but not unique: concurrent materializations
// may insert duplicates that the application heals on load.
type FinancialRecordModel struct {
	BaseModel
	SubjectDocumentID uuid.UUID             `gorm:"type:uuid;not null;index:idx_financial_records_subject"`
	PaymentMethod     payplan.PaymentMethod `gorm:"type:varchar(30);not null"`
	InstallmentCount  int                   `gorm:"not null;default:1"`
	TotalAmount       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	NetPremium        decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	GrossPremium      decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	IOF               decimal.Decimal       `gorm:"column:iof;type:decimal(18,2);not null;default:0"`
	LastUpdatedAt     time.Time             `gorm:"not null;index:idx_financial_records_subject"`
	EditedBy          *string               `gorm:"type:varchar(200)"`
	SourceKind        payplan.SourceKind    `gorm:"type:varchar(20);not null"`
	Confirmed         bool                  `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (FinancialRecordModel) TableName() string {
	return "financial_records"
}

// ToDomain converts the persistence model to a domain FinancialRecord
func (m *FinancialRecordModel) ToDomain() *payplan.FinancialRecord {
	return &payplan.FinancialRecord{
		BaseEntity:        m.BaseModel.ToDomain(),
		SubjectDocumentID: m.SubjectDocumentID,
		PaymentMethod:     m.PaymentMethod,
		InstallmentCount:  m.InstallmentCount,
		TotalAmount:       m.TotalAmount,
		NetPremium:        m.NetPremium,
		GrossPremium:      m.GrossPremium,
		IOF:               m.IOF,
		LastUpdatedAt:     m.LastUpdatedAt,
		EditedBy:          m.EditedBy,
		SourceKind:        m.SourceKind,
		Confirmed:         m.Confirmed,
	}
}

// FromDomain populates the persistence model from a domain FinancialRecord
func (m *FinancialRecordModel) FromDomain(r *payplan.FinancialRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.SubjectDocumentID = r.SubjectDocumentID
	m.PaymentMethod = r.PaymentMethod
	m.InstallmentCount = r.InstallmentCount
	m.TotalAmount = r.TotalAmount
	m.NetPremium = r.NetPremium
	m.GrossPremium = r.GrossPremium
	m.IOF = r.IOF
	m.LastUpdatedAt = r.LastUpdatedAt
	m.EditedBy = r.EditedBy
	m.SourceKind = r.SourceKind
	m.Confirmed = r.Confirmed
}

// FinancialRecordModelFromDomain creates a persistence model from a domain FinancialRecord
func FinancialRecordModelFromDomain(r *payplan.FinancialRecord) *FinancialRecordModel {
	m := &FinancialRecordModel{}
	m.FromDomain(r)
	return m
}

// InstallmentModel is the persistence model for payplan.Installment. The
// installment number is not unique per record for the same reason as above.
type InstallmentModel struct {
	BaseModel
	FinancialRecordID uuid.UUID                 `gorm:"type:uuid;not null;index:idx_installments_record"`
	InstallmentNumber int                       `gorm:"not null;index:idx_installments_record"`
	Amount            decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	DueDate           *time.Time                `gorm:"type:date"`
	PaymentDate       *time.Time                `gorm:"type:date"`
	Status            payplan.InstallmentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Details           payplan.Details           `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "installments"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *payplan.Installment {
	return &payplan.Installment{
		BaseEntity:        m.BaseModel.ToDomain(),
		FinancialRecordID: m.FinancialRecordID,
		Number:            m.InstallmentNumber,
		Amount:            m.Amount,
		DueDate:           m.DueDate,
		PaymentDate:       m.PaymentDate,
		Status:            m.Status,
		Details:           m.Details,
	}
}

// FromDomain populates the persistence model from a domain Installment
func (m *InstallmentModel) FromDomain(i *payplan.Installment) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.FinancialRecordID = i.FinancialRecordID
	m.InstallmentNumber = i.Number
	m.Amount = i.Amount
	m.DueDate = i.DueDate
	m.PaymentDate = i.PaymentDate
	m.Status = i.Status
	m.Details = i.Details
}

// InstallmentModelFromDomain creates a persistence model from a domain Installment
func InstallmentModelFromDomain(i *payplan.Installment) *InstallmentModel {
	m := &InstallmentModel{}
	m.FromDomain(i)
	return m
}

// SubjectDocumentModel maps the read-only subject_documents table
type SubjectDocumentModel struct {
	BaseModel
	Kind             payplan.SubjectKind            `gorm:"type:varchar(20);not null"`
	FinancialPayload payplan.Payload                `gorm:"type:jsonb"`
	RenderedText     *string                        `gorm:"type:text"`
	EffectiveDate    *time.Time                     `gorm:"type:date"`
	NextInstallment  *payplan.InstallmentProjection `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (SubjectDocumentModel) TableName() string {
	return "subject_documents"
}

// ToDomain converts the persistence model to a domain SubjectDocument
func (m *SubjectDocumentModel) ToDomain() *payplan.SubjectDocument {
	doc := &payplan.SubjectDocument{
		BaseEntity:       m.BaseModel.ToDomain(),
		Kind:             m.Kind,
		FinancialPayload: m.FinancialPayload,
		EffectiveDate:    m.EffectiveDate,
		NextInstallment:  m.NextInstallment,
	}
	if m.RenderedText != nil {
		doc.RenderedText = *m.RenderedText
	}
	return doc
}

// FromDomain populates the persistence model from a domain SubjectDocument
func (m *SubjectDocumentModel) FromDomain(d *payplan.SubjectDocument) {
	m.FromDomainBaseEntity(d.BaseEntity)
	m.Kind = d.Kind
	m.FinancialPayload = d.FinancialPayload
	m.EffectiveDate = d.EffectiveDate
	m.NextInstallment = d.NextInstallment
	m.RenderedText = nil
	if d.RenderedText != "" {
		text := d.RenderedText
		m.RenderedText = &text
	}
}

// SubjectDocumentModelFromDomain creates a persistence model from a domain SubjectDocument
func SubjectDocumentModelFromDomain(d *payplan.SubjectDocument) *SubjectDocumentModel {
	m := &SubjectDocumentModel{}
	m.FromDomain(d)
	return m
}
