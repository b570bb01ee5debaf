package payplan

import (
	"github.com/shopspring/decimal"

	"github.com/insurance/payplan/internal/domain/shared/valueobject"
)

// MaxInstallmentCount bounds counts read from documents. Digit runs such as a
// year occasionally land in the count field.
const MaxInstallmentCount = 120

// Source names recorded on ExtractedTerms
const (
	SourceRenderedText = "rendered_text"
	SourcePlaceholder  = "placeholder"
)

// ExtractedTerms is the canonical view of a document's payment terms
type ExtractedTerms struct {
	PaymentMethod         PaymentMethod     `json:"payment_method"`
	MethodLabel           string            `json:"method_label,omitempty"`
	InstallmentCount      int               `json:"installment_count"`
	TotalAmount           decimal.Decimal   `json:"total_amount"`
	NetPremium            decimal.Decimal   `json:"net_premium"`
	GrossPremium          decimal.Decimal   `json:"gross_premium"`
	IOF                   decimal.Decimal   `json:"iof"`
	PerInstallmentAmounts []decimal.Decimal `json:"per_installment_amounts,omitempty"`
	Source                string            `json:"source"`
	Placeholder           bool              `json:"placeholder"`
}

// PlaceholderTerms is used when no source yields usable terms: a single
// zero-valued boleto installment awaiting a human edit.
func PlaceholderTerms() ExtractedTerms {
	return ExtractedTerms{
		PaymentMethod:    PaymentMethodBoleto,
		InstallmentCount: 1,
		TotalAmount:      decimal.Zero,
		NetPremium:       decimal.Zero,
		GrossPremium:     decimal.Zero,
		IOF:              decimal.Zero,
		Source:           SourcePlaceholder,
		Placeholder:      true,
	}
}

// termFacts is what a single candidate object exposes before precedence rules
// are applied.
type termFacts struct {
	methodLabel  string
	count        int
	hasCount     bool
	total        decimal.Decimal
	netPremium   decimal.Decimal
	grossPremium decimal.Decimal
	iof          decimal.Decimal
	explicitList []decimal.Decimal
	perScalar    decimal.Decimal
	rangeLow     decimal.Decimal
	rangeHigh    decimal.Decimal
	hasRange     bool
}

func (f termFacts) hasPlan() bool {
	return f.hasCount || len(f.explicitList) > 0 || f.perScalar.IsPositive() || f.hasRange
}

// qualifies reports whether the candidate carries a total or an installment plan
func (f termFacts) qualifies() bool {
	return f.total.IsPositive() || f.hasPlan()
}

// terms applies the per-installment precedence: explicit list, then a scalar
// figure repeated, then a range, else a uniform split left to the generator.
func (f termFacts) terms(source string) ExtractedTerms {
	t := ExtractedTerms{
		PaymentMethod: NormalizePaymentMethod(f.methodLabel),
		MethodLabel:   f.methodLabel,
		TotalAmount:   f.total,
		NetPremium:    f.netPremium,
		GrossPremium:  f.grossPremium,
		IOF:           f.iof,
		Source:        source,
	}

	count := 1
	if f.hasCount {
		count = f.count
	} else if n, ok := inferCount(f.total, f.perScalar); ok {
		count = n
	}

	switch {
	case len(f.explicitList) > 0:
		count = len(f.explicitList)
		t.PerInstallmentAmounts = append([]decimal.Decimal(nil), f.explicitList...)
	case f.perScalar.IsPositive():
		count = clampCount(count)
		t.PerInstallmentAmounts = repeatAmount(f.perScalar, count)
	case f.hasRange:
		count = clampCount(count)
		t.PerInstallmentAmounts = RangeAmounts(count, f.rangeLow, f.rangeHigh)
	}

	t.InstallmentCount = clampCount(count)
	if len(t.PerInstallmentAmounts) > t.InstallmentCount {
		t.PerInstallmentAmounts = t.PerInstallmentAmounts[:t.InstallmentCount]
	}
	if !t.TotalAmount.IsPositive() && len(t.PerInstallmentAmounts) > 0 {
		t.TotalAmount = valueobject.SumAmounts(t.PerInstallmentAmounts)
	}
	return t
}

// RangeAmounts expands a from-to range over n installments: every installment
// takes the low figure except the last, which takes the high one.
func RangeAmounts(n int, low, high decimal.Decimal) []decimal.Decimal {
	if n < 1 {
		return nil
	}
	amounts := repeatAmount(low, n)
	amounts[n-1] = high
	return amounts
}

func repeatAmount(amount decimal.Decimal, n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = amount
	}
	return out
}

// inferCount derives the count from total / per-installment when both are
// known and agree to the cent.
func inferCount(total, per decimal.Decimal) (int, bool) {
	if !total.IsPositive() || !per.IsPositive() {
		return 0, false
	}
	n := total.Div(per).Round(0)
	if n.LessThan(decimal.NewFromInt(1)) {
		return 0, false
	}
	drift := n.Mul(per).Sub(total).Abs()
	if drift.GreaterThan(decimal.New(1, -2).Mul(n)) {
		return 0, false
	}
	return int(n.IntPart()), true
}

func clampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxInstallmentCount {
		return MaxInstallmentCount
	}
	return n
}
