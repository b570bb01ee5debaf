package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	BRL Currency = "BRL" // Brazilian Real (default)
	USD Currency = "USD"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = BRL

// CentPlaces is the number of decimal places money is rounded to
const CentPlaces int32 = 2

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyBRL creates Money in BRL
func NewMoneyBRL(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: BRL}
}

// ZeroBRL returns a zero-value Money in BRL
func ZeroBRL() Money {
	return Money{amount: decimal.Zero, currency: BRL}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts.
// Returns error if currencies don't match.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Round rounds half away from zero to the given places
func (m Money) Round(places int32) Money {
	return Money{amount: m.amount.Round(places), currency: m.currency}
}

// Equals reports equal amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Split divides the amount into n shares. Every share is rounded down to
// cents and the leftover cents go one each to the last shares, so shares
// never differ by more than a cent and always sum to the original.
func (m Money) Split(n int) ([]Money, error) {
	if n < 1 {
		return nil, fmt.Errorf("cannot split into %d parts", n)
	}
	count := decimal.NewFromInt(int64(n))
	share := m.amount.Div(count).RoundDown(CentPlaces)
	leftover := m.amount.Sub(share.Mul(count))

	cent := decimal.New(1, -CentPlaces)
	if leftover.IsNegative() {
		cent = cent.Neg()
	}
	extra := int(leftover.Div(cent).IntPart())
	// Sub-cent digits of the original stay on the last share
	residue := leftover.Sub(cent.Mul(decimal.NewFromInt(int64(extra))))

	parts := make([]Money, n)
	for i := range parts {
		amount := share
		if i >= n-extra {
			amount = amount.Add(cent)
		}
		parts[i] = Money{amount: amount, currency: m.currency}
	}
	parts[n-1].amount = parts[n-1].amount.Add(residue)
	return parts, nil
}

// SumAmounts adds up plain decimals
func SumAmounts(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// AverageAmount returns the cent-rounded mean, zero for an empty list
func AverageAmount(amounts []decimal.Decimal) decimal.Decimal {
	if len(amounts) == 0 {
		return decimal.Zero
	}
	return SumAmounts(amounts).Div(decimal.NewFromInt(int64(len(amounts)))).Round(CentPlaces)
}

// String returns "<amount> <currency>"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(CentPlaces), m.currency)
}

// FormatBRL renders the amount the way Brazilian documents print it, e.g. "R$ 1.234,56"
func (m Money) FormatBRL() string {
	f, _ := m.amount.Round(CentPlaces).Float64()
	return brPrinter.Sprintf("R$ %.2f", f)
}

// FormatBRL formats a bare decimal in Brazilian currency notation
func FormatBRL(amount decimal.Decimal) string {
	return NewMoneyBRL(amount).FormatBRL()
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.StringFixed(CentPlaces), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if raw.Currency == "" {
		raw.Currency = DefaultCurrency
	}
	m.amount = amount
	m.currency = raw.Currency
	return nil
}

// Value implements driver.Valuer, storing only the amount
func (m Money) Value() (driver.Value, error) {
	return m.amount.StringFixed(CentPlaces), nil
}

// Scan implements sql.Scanner; the currency is always BRL in storage
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.amount = d
	m.currency = BRL
	return nil
}
