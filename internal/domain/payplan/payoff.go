package payplan

import "time"

// DisplayStatus is the human-facing status of an installment. It is derived
// on read and never stored.
type DisplayStatus string

const (
	DisplayStatusPaid     DisplayStatus = "paid"
	DisplayStatusCanceled DisplayStatus = "canceled"
	DisplayStatusOverdue  DisplayStatus = "overdue"
	DisplayStatusDueToday DisplayStatus = "due_today"
	DisplayStatusUpcoming DisplayStatus = "upcoming"
	DisplayStatusPending  DisplayStatus = "pending" // Pending without a due date
)

// ResolveDisplayStatus refines Pending by comparing the due date with today
// at calendar-day granularity. Other statuses pass through.
func ResolveDisplayStatus(inst *Installment, today time.Time) DisplayStatus {
	switch inst.Status {
	case InstallmentStatusPaid:
		return DisplayStatusPaid
	case InstallmentStatusCanceled:
		return DisplayStatusCanceled
	case InstallmentStatusOverdue:
		return DisplayStatusOverdue
	}
	if inst.DueDate == nil {
		return DisplayStatusPending
	}
	due := dayKey(*inst.DueDate)
	now := dayKey(today)
	switch {
	case due == now:
		return DisplayStatusDueToday
	case due > now:
		return DisplayStatusUpcoming
	default:
		return DisplayStatusOverdue
	}
}

// dayKey compares dates by their written calendar day, ignoring zones
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// SettlementInput is everything the settlement heuristic may look at
type SettlementInput struct {
	Record       *FinancialRecord
	Installments []*Installment
	Projection   *InstallmentProjection
	// PaymentMethod is the method resolved from the document, used when no
	// record exists yet
	PaymentMethod PaymentMethod
}

// EvaluateSettlement decides whether a document is fully paid. False
// negatives are acceptable, false positives are not.
//
//  1. Credit card plans are never settled here; the issuer owns them.
//  2. Stored installments: settled iff every one is paid.
//  3. Only a cached projection: settled iff it is the last installment and
//     paid, or a single-slip plan whose only installment is paid.
//  4. Anything else is not settled.
func EvaluateSettlement(in SettlementInput) bool {
	if in.Record != nil && in.Record.IsCreditCard() {
		return false
	}
	if in.PaymentMethod.IsCreditCard() {
		return false
	}
	if in.Record == nil && in.Projection != nil && in.Projection.PaymentMethod != "" &&
		NormalizePaymentMethod(in.Projection.PaymentMethod).IsCreditCard() {
		return false
	}

	if len(in.Installments) > 0 {
		for _, inst := range in.Installments {
			if !inst.IsPaid() {
				return false
			}
		}
		return true
	}

	p := in.Projection
	if p == nil || !p.IsPaid() {
		return false
	}
	if p.Total > 0 && p.Number == p.Total {
		return true
	}
	return IsSingleSlipLabel(p.PaymentMethod) && p.Total <= 1
}
