package payplan

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PaymentMethod is the closed set of payment categories a plan can use
type PaymentMethod string

const (
	PaymentMethodBoleto      PaymentMethod = "boleto"            // Boleto or booklet slip (carnê / ficha)
	PaymentMethodDirectDebit PaymentMethod = "debito_automatico" // Automatic debit from a bank account
	PaymentMethodCreditCard  PaymentMethod = "cartao_credito"    // Card installments, managed by the issuer
)

// IsValid checks if the method is one of the known categories
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBoleto, PaymentMethodDirectDebit, PaymentMethodCreditCard:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsCreditCard reports whether installments are collected by a card issuer
func (m PaymentMethod) IsCreditCard() bool {
	return m == PaymentMethodCreditCard
}

var (
	creditCardKeywords  = []string{"cartao", "credito", "card"}
	directDebitKeywords = []string{"debito", "conta", "automatico"}
	singleSlipKeywords  = []string{"ficha"}

	// Words that contain a keyword without meaning it
	keywordExclusions = []string{"contato", "contabil", "descontad"}
)

// NormalizePaymentMethod maps a free-text label to a PaymentMethod. Matching is
// an accent and case insensitive substring search, so OCR text with glued
// words ("CARTAOCREDITO") still classifies. Boletos, carnês, fichas and bank
// names all fall through to the boleto default.
func NormalizePaymentMethod(text string) PaymentMethod {
	folded := foldKeywordText(text)
	switch {
	case containsAnyFold(folded, creditCardKeywords):
		return PaymentMethodCreditCard
	case containsAnyFold(folded, directDebitKeywords):
		return PaymentMethodDirectDebit
	}
	return PaymentMethodBoleto
}

// IsSingleSlipLabel reports whether a label describes a single "ficha de
// compensação" payment document.
func IsSingleSlipLabel(text string) bool {
	return containsAnyFold(foldKeywordText(text), singleSlipKeywords)
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases and strips diacritics: "Cartão de Crédito" -> "cartao de credito"
func foldText(text string) string {
	folded, _, err := transform.String(accentFolder, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// foldKeywordText folds the text and blanks out the excluded words
func foldKeywordText(text string) string {
	folded := foldText(text)
	for _, ex := range keywordExclusions {
		folded = strings.ReplaceAll(folded, ex, " ")
	}
	return folded
}

func containsAnyFold(folded string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// foldWords splits folded text into whole words. Status words need it:
// "pagamento" must not read as "paga".
func foldWords(text string) map[string]struct{} {
	fields := strings.FieldsFunc(foldText(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		words[f] = struct{}{}
	}
	return words
}

func containsAny(words map[string]struct{}, keywords []string) bool {
	for _, k := range keywords {
		if _, ok := words[k]; ok {
			return true
		}
	}
	return false
}
