package payplan

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Key aliases under which documents expose the same fact
var (
	totalKeys        = []string{"valor_total", "preco_total", "premio_total", "total"}
	netPremiumKeys   = []string{"premio_liquido"}
	grossPremiumKeys = []string{"premio_bruto", "premio_total"}
	iofKeys          = []string{"iof"}
	methodKeys       = []string{"forma_pagamento", "meio_pagamento", "parcelamento.forma_pagamento"}
	countKeys        = []string{"quantidade_parcelas", "parcelas", "parcelamento.quantidade"}
	perInstallKeys   = []string{"valor_parcela", "parcelamento.valor_parcela"}
	rangeKeys        = []string{"parcelamento", "faixa_parcelas", "parcelamento.faixa"}
	explicitListKeys = []string{"parcelas_detalhe"}
)

// TermsAdapter reads terms from one known payload shape
type TermsAdapter struct {
	Name    string
	Extract func(Payload) (ExtractedTerms, bool)
	// MethodLabel reads just the payment method label, even from a shape
	// that carries no plan. Optional.
	MethodLabel func(Payload) (string, bool)
}

// ObjectAdapter builds an adapter reading the object found at path. An empty
// path reads the payload root.
func ObjectAdapter(name, path string) TermsAdapter {
	object := func(p Payload) (Payload, bool) {
		if path == "" {
			return p, true
		}
		return p.Object(path)
	}
	return TermsAdapter{
		Name: name,
		MethodLabel: func(p Payload) (string, bool) {
			obj, ok := object(p)
			if !ok {
				return "", false
			}
			return obj.Text(methodKeys...)
		},
		Extract: func(p Payload) (ExtractedTerms, bool) {
			obj, ok := object(p)
			if !ok {
				return ExtractedTerms{}, false
			}
			facts := readFacts(obj)
			if !facts.qualifies() {
				return ExtractedTerms{}, false
			}
			return facts.terms(name), true
		},
	}
}

// DefaultAdapters lists the payload shapes in descending order of completeness
func DefaultAdapters() []TermsAdapter {
	return []TermsAdapter{
		ObjectAdapter("dados_financeiros", "dados_financeiros"),
		ObjectAdapter("valores", "valores"),
		ObjectAdapter("proposta", "proposta"),
		ObjectAdapter("resultado.proposta", "resultado.proposta"),
		ObjectAdapter("root", ""),
	}
}

// Resolver picks the first payload shape that yields usable terms
type Resolver struct {
	adapters []TermsAdapter
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithAdapters replaces the adapter chain
func WithAdapters(adapters ...TermsAdapter) ResolverOption {
	return func(r *Resolver) {
		r.adapters = adapters
	}
}

// NewResolver creates a resolver with the default adapter chain
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{adapters: DefaultAdapters()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails. When no adapter qualifies it scans the rendered text,
// and when that finds nothing it returns PlaceholderTerms.
func (r *Resolver) Resolve(payload Payload, renderedText string) ExtractedTerms {
	if payload != nil {
		for _, adapter := range r.adapters {
			if terms, ok := adapter.Extract(payload); ok {
				return terms
			}
		}
	}
	if terms, ok := ScanRenderedText(renderedText); ok {
		return terms
	}
	return PlaceholderTerms()
}

// ResolvePaymentMethod returns the document's payment method. When no shape
// yields full terms it still honors the first method label found, so a
// document that only states "Cartão de Crédito" reads as a card.
func (r *Resolver) ResolvePaymentMethod(payload Payload, renderedText string) PaymentMethod {
	terms := r.Resolve(payload, renderedText)
	if !terms.Placeholder || payload == nil {
		return terms.PaymentMethod
	}
	for _, adapter := range r.adapters {
		if adapter.MethodLabel == nil {
			continue
		}
		if label, ok := adapter.MethodLabel(payload); ok {
			return NormalizePaymentMethod(label)
		}
	}
	return terms.PaymentMethod
}

func readFacts(obj Payload) termFacts {
	var f termFacts
	f.methodLabel, _ = obj.Text(methodKeys...)
	f.count, f.hasCount = obj.Count(countKeys...)
	f.total, _ = obj.Amount(totalKeys...)
	f.netPremium, _ = obj.Amount(netPremiumKeys...)
	f.grossPremium, _ = obj.Amount(grossPremiumKeys...)
	f.iof, _ = obj.Amount(iofKeys...)
	f.perScalar, _ = obj.Amount(perInstallKeys...)

	if items, ok := obj.List(explicitListKeys...); ok {
		f.explicitList = explicitAmounts(items)
	}
	if label, ok := obj.Text(rangeKeys...); ok {
		f.rangeLow, f.rangeHigh, f.hasRange = ParseAmountRange(label)
		// "10x de R$ 162,59"
		if n, amount, ok := parseInstallmentPhrase(label); ok {
			if !f.hasCount {
				f.count, f.hasCount = n, true
			}
			if !f.hasRange && !f.perScalar.IsPositive() {
				f.perScalar = amount
			}
		}
	}
	return f
}

// explicitAmounts orders parcelas_detalhe entries by their numero, falling
// back to list order when numbers are missing or repeated.
func explicitAmounts(items []Payload) []decimal.Decimal {
	byNumber := make(map[int]decimal.Decimal, len(items))
	ordered := make([]decimal.Decimal, 0, len(items))
	numbered := true
	for _, item := range items {
		amount, _ := item.Amount("valor", "valor_parcela")
		ordered = append(ordered, amount)
		n, ok := item.Count("numero", "parcela")
		if !ok {
			numbered = false
			continue
		}
		if _, dup := byNumber[n]; dup {
			numbered = false
		}
		byNumber[n] = amount
	}
	if !numbered || len(byNumber) != len(items) {
		return ordered
	}
	out := make([]decimal.Decimal, 0, len(items))
	for n := 1; len(out) < len(items); n++ {
		amount, ok := byNumber[n]
		if !ok {
			return ordered
		}
		out = append(out, amount)
	}
	return out
}

var (
	installmentPhrase = regexp.MustCompile(`(\d{1,3})\s*(?:x|vezes|parcelas?)\s*(?:de\s*)?(?:r\$\s*)?(\d[\d.,]*)`)
	textTotal         = regexp.MustCompile(`(?:valor total|premio total|preco total|total a pagar)[^\d\n]{0,20}(\d[\d.,]*)`)
	textNetPremium    = regexp.MustCompile(`premio liquido[^\d\n]{0,20}(\d[\d.,]*)`)
	textIOF           = regexp.MustCompile(`\biof[^\d\n]{0,20}(\d[\d.,]*)`)
	textCurrencyRange = regexp.MustCompile(`r\$\s*(\d[\d.,]*)\s*(?:-|\x{2013}|\s(?:a|ate|to)\s)\s*r\$\s*(\d[\d.,]*)`)
	textCount         = regexp.MustCompile(`(\d{1,3})\s*parcelas`)
	textMethod        = regexp.MustCompile(`(?:forma|meio) de pagamento\s*:?\s*([^\n]+)`)
)

func parseInstallmentPhrase(text string) (int, decimal.Decimal, bool) {
	m := installmentPhrase.FindStringSubmatch(foldText(text))
	if m == nil {
		return 0, decimal.Zero, false
	}
	amount := ParseAmount(m[2])
	if !amount.IsPositive() {
		return 0, decimal.Zero, false
	}
	return ParseInstallmentCount(m[1]), amount, true
}

// ScanRenderedText is the last-resort source: regular expressions over the
// text rendered for the document. It is best effort and reports false when
// nothing usable was found.
func ScanRenderedText(text string) (ExtractedTerms, bool) {
	if strings.TrimSpace(text) == "" {
		return ExtractedTerms{}, false
	}
	folded := foldText(text)

	var f termFacts
	if m := textTotal.FindStringSubmatch(folded); m != nil {
		f.total = ParseAmount(m[1])
	}
	if m := textNetPremium.FindStringSubmatch(folded); m != nil {
		f.netPremium = ParseAmount(m[1])
	}
	if m := textIOF.FindStringSubmatch(folded); m != nil {
		f.iof = ParseAmount(m[1])
	}
	if m := textMethod.FindStringSubmatch(folded); m != nil {
		f.methodLabel = strings.TrimSpace(m[1])
	}
	if m := textCurrencyRange.FindStringSubmatch(folded); m != nil {
		f.rangeLow, f.rangeHigh = ParseAmount(m[1]), ParseAmount(m[2])
		f.hasRange = f.rangeLow.IsPositive() && f.rangeHigh.IsPositive()
	}
	if n, amount, ok := parseInstallmentPhrase(folded); ok {
		f.count, f.hasCount = n, true
		if !f.hasRange {
			f.perScalar = amount
		}
	}
	if !f.hasCount {
		if m := textCount.FindStringSubmatch(folded); m != nil {
			f.count, f.hasCount = ParseInstallmentCount(m[1]), true
		}
	}

	if !f.qualifies() {
		return ExtractedTerms{}, false
	}
	return f.terms(SourceRenderedText), true
}
