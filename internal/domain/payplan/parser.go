package payplan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric        = regexp.MustCompile(`[^0-9.,]`)
	trailingCentsDot  = regexp.MustCompile(`^\d+\.\d{1,2}$`)
	firstDigitRun     = regexp.MustCompile(`\d+`)
	amountRangeFields = regexp.MustCompile(`(\d[\d.,]*)\s*(?:-|\x{2013}|\s(?:a|ate|to)\s)\s*(?:r\$\s*)?(\d[\d.,]*)`)
)

// ParseAmount parses a Brazilian-formatted amount ("R$ 1.234,56") into a
// decimal. Empty or unparsable input yields zero and the result is never
// negative. A lone dot followed by one or two digits ("162.59") is read as a
// decimal point, matching values that were stringified from JSON numbers.
func ParseAmount(text string) decimal.Decimal {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	cleaned = strings.Trim(cleaned, ".,")
	if cleaned == "" {
		return decimal.Zero
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot > lastComma:
		// 1,234.56
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case trailingCentsDot.MatchString(cleaned):
	default:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}

// ParseAmountRange reads "R$ X a R$ Y" style ranges. The connector may be
// "a", "até", "to" or a dash.
func ParseAmountRange(text string) (low, high decimal.Decimal, ok bool) {
	m := amountRangeFields.FindStringSubmatch(foldText(text))
	if m == nil {
		return decimal.Zero, decimal.Zero, false
	}
	low, high = ParseAmount(m[1]), ParseAmount(m[2])
	if !low.IsPositive() || !high.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	return low, high, true
}

// ParseInstallmentCount extracts the first run of digits, defaulting to 1
func ParseInstallmentCount(text string) int {
	run := firstDigitRun.FindString(text)
	if run == "" {
		return 1
	}
	n, err := strconv.Atoi(run)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
