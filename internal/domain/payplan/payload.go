package payplan

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is the raw, weakly-typed financial payload produced by the OCR
// pipeline. Values can be nested objects, strings in Brazilian notation or
// JSON numbers.
type Payload map[string]any

// DecodePayload parses JSON keeping numbers exact
func DecodePayload(data []byte) (Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Payload{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode financial payload: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Value implements driver.Valuer for JSONB storage
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSONB storage
func (p *Payload) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = Payload{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("failed to scan Payload: unsupported type")
	}
	decoded, err := DecodePayload(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// Lookup resolves a dotted path ("parcelamento.quantidade")
func (p Payload) Lookup(path string) (any, bool) {
	var current any = map[string]any(p)
	for _, key := range strings.Split(path, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

// Object returns the nested object at path, if the value there is an object
func (p Payload) Object(path string) (Payload, bool) {
	v, ok := p.Lookup(path)
	if !ok {
		return nil, false
	}
	return asObject(v)
}

// Amount returns the first alias holding a positive amount
func (p Payload) Amount(aliases ...string) (decimal.Decimal, bool) {
	for _, alias := range aliases {
		v, ok := p.Lookup(alias)
		if !ok {
			continue
		}
		if d, ok := toAmount(v); ok && d.IsPositive() {
			return d, true
		}
	}
	return decimal.Zero, false
}

// Count returns the first alias holding an installment count. Arrays count
// their elements.
func (p Payload) Count(aliases ...string) (int, bool) {
	for _, alias := range aliases {
		v, ok := p.Lookup(alias)
		if !ok {
			continue
		}
		if n, ok := toCount(v); ok {
			return n, true
		}
	}
	return 0, false
}

// Text returns the first alias holding a non-blank string
func (p Payload) Text(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		v, ok := p.Lookup(alias)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// List returns the first alias holding an array of objects
func (p Payload) List(aliases ...string) ([]Payload, bool) {
	for _, alias := range aliases {
		v, ok := p.Lookup(alias)
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		out := make([]Payload, 0, len(items))
		for _, item := range items {
			if obj, ok := asObject(item); ok {
				out = append(out, obj)
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

func asObject(v any) (Payload, bool) {
	switch o := v.(type) {
	case Payload:
		return o, true
	case map[string]any:
		return Payload(o), true
	}
	return nil, false
}

func toAmount(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.Zero, false
		}
		return ParseAmount(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d.Abs(), true
	case float64:
		return decimal.NewFromFloat(n).Abs(), true
	case int:
		return decimal.NewFromInt(int64(n)).Abs(), true
	case int64:
		return decimal.NewFromInt(n).Abs(), true
	}
	return decimal.Zero, false
}

func toCount(v any) (int, bool) {
	switch n := v.(type) {
	case string:
		if firstDigitRun.FindString(n) == "" {
			return 0, false
		}
		return ParseInstallmentCount(n), true
	case json.Number:
		i, err := strconv.ParseFloat(n.String(), 64)
		if err != nil || i < 1 {
			return 0, false
		}
		return int(math.Round(i)), true
	case float64:
		if n < 1 {
			return 0, false
		}
		return int(math.Round(n)), true
	case int:
		return n, n >= 1
	case int64:
		return int(n), n >= 1
	case []any:
		return len(n), len(n) > 0
	}
	return 0, false
}
