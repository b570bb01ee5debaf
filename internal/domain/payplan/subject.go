package payplan

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/insurance/payplan/internal/domain/shared"
)

// SubjectKind is informational: the kind of document whose plan is reconciled
type SubjectKind string

const (
	SubjectKindProposal    SubjectKind = "proposal"
	SubjectKindPolicy      SubjectKind = "policy"
	SubjectKindEndorsement SubjectKind = "endorsement"
)

// SubjectDocument is a proposal, policy or endorsement. The engine only reads it.
type SubjectDocument struct {
	shared.BaseEntity
	Kind             SubjectKind            `json:"kind"`
	FinancialPayload Payload                `json:"financial_payload"`
	RenderedText     string                 `json:"rendered_text,omitempty"`
	EffectiveDate    *time.Time             `json:"effective_date,omitempty"`
	NextInstallment  *InstallmentProjection `json:"next_installment,omitempty"`
}

// Anchor is the date schedules are generated from: the effective date when
// known, else now.
func (d *SubjectDocument) Anchor(now time.Time) time.Time {
	if d.EffectiveDate != nil && !d.EffectiveDate.IsZero() {
		return *d.EffectiveDate
	}
	return now
}

// InstallmentProjection is the cached "next installment" carried on a
// subject document by upstream systems.
type InstallmentProjection struct {
	Number        int    `json:"numero"`
	Total         int    `json:"total"`
	Status        string `json:"status"`
	PaymentMethod string `json:"forma_pagamento,omitempty"`
}

var paidStatusWords = []string{"paid", "pago", "paga", "quitado", "quitada", "liquidado", "liquidada"}

// IsPaid reports whether the free-text status means paid
func (p *InstallmentProjection) IsPaid() bool {
	return containsAny(foldWords(p.Status), paidStatusWords)
}

// UnmarshalJSON accepts numbers either as JSON numbers or as strings
func (p *InstallmentProjection) UnmarshalJSON(data []byte) error {
	raw, err := DecodePayload(data)
	if err != nil {
		return err
	}
	p.Number, _ = raw.Count("numero")
	p.Total, _ = raw.Count("total")
	p.Status, _ = raw.Text("status")
	p.PaymentMethod, _ = raw.Text("forma_pagamento")
	return nil
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (p InstallmentProjection) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (p *InstallmentProjection) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = InstallmentProjection{}
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	}
	return errors.New("failed to scan InstallmentProjection: unsupported type")
}
