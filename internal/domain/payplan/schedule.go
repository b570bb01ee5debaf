package payplan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/shared/valueobject"
)

// DueDateCadence is the fixed spacing, in days, between generated due dates.
// Schedules are not calendar-month aware.
const DueDateCadence = 30

// ScheduledInstallment is one generated line of a schedule
type ScheduledInstallment struct {
	Number  int             `json:"number"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate time.Time       `json:"due_date"`
}

// GenerateSchedule builds exactly terms.InstallmentCount installments. Due
// dates start 30 days after the anchor's calendar day and advance 30 days each.
// Explicit per-installment amounts are used where present; the rest come from
// a uniform split in whole cents whose leftover cents go to the last installments.
func GenerateSchedule(terms ExtractedTerms, anchor time.Time) []ScheduledInstallment {
	n := terms.InstallmentCount
	if n < 1 {
		n = 1
	}

	var uniform []valueobject.Money
	if len(terms.PerInstallmentAmounts) < n {
		// Split never fails for n >= 1
		uniform, _ = valueobject.NewMoneyBRL(terms.TotalAmount).Split(n)
	}

	start := CalendarDay(anchor)
	schedule := make([]ScheduledInstallment, n)
	for k := 1; k <= n; k++ {
		amount := decimal.Zero
		if k <= len(terms.PerInstallmentAmounts) {
			amount = terms.PerInstallmentAmounts[k-1]
		} else if uniform != nil {
			amount = uniform[k-1].Amount()
		}
		schedule[k-1] = ScheduledInstallment{
			Number:  k,
			Amount:  amount.Round(valueobject.CentPlaces),
			DueDate: NextDueDate(start, k),
		}
	}
	return schedule
}

// NextDueDate returns the due date k cadences after the given day
func NextDueDate(from time.Time, k int) time.Time {
	return CalendarDay(from).AddDate(0, 0, DueDateCadence*k)
}

// CalendarDay truncates t to midnight in its own location
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
