package billing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// displayPlaces is the number of decimal places used when a value leaves the
// engine for display or submission.
const displayPlaces = 2

// Amounts beyond these bounds are treated as unparsable. Formatting rescales
// the coefficient by the exponent, so an input like "1e2000000000" would
// otherwise cost unbounded work.
const (
	maxExponent = 30
	maxDigits   = 40
)

// Parse coerces a form value into a decimal amount.
//
// Blank, unparsable or non-finite input is treated as zero and never reported
// as an error: a half-typed price field must not block the billing flow.
func Parse(value any) decimal.Decimal {
	switch v := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return bounded(v)
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return bounded(*v)
	case string:
		return parseString(v)
	case json.Number:
		return parseString(string(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case float32:
		return parseFloat(float64(v))
	case float64:
		return parseFloat(v)
	default:
		return decimal.Zero
	}
}

func parseString(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	d, ok := parseBounded(trimmed)
	if !ok {
		return decimal.Zero
	}
	return d
}

func parseBounded(trimmed string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(trimmed)
	if err != nil || !inBounds(d) {
		return decimal.Zero, false
	}
	return d, true
}

func inBounds(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp <= maxExponent && exp >= -maxExponent && d.NumDigits() <= maxDigits
}

func bounded(d decimal.Decimal) decimal.Decimal {
	if !inBounds(d) {
		return decimal.Zero
	}
	return d
}

func parseFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return bounded(decimal.NewFromFloat(f))
}

// Valid reports whether raw parses as a number within bounds. Blank input is
// not valid.
func Valid(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	_, ok := parseBounded(trimmed)
	return ok
}

// Format renders an amount with two decimal places, rounding half away from zero.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(displayPlaces)
}

// Round returns amount rounded to two decimal places.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(displayPlaces)
}
