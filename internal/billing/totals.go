package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is interpreted.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

var hundred = decimal.NewFromInt(100)

// DiscountSpec describes the discount entered on a form.
type DiscountSpec struct {
	Type  DiscountType `json:"type"`
	Value string       `json:"value"`
}

// RoundoffSpec is a signed correction applied after the discount.
type RoundoffSpec struct {
	Amount string `json:"amount"`
}

// Totals holds the derived amounts of a form. Values are unrounded.
type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Roundoff       decimal.Decimal
	GrandTotal     decimal.Decimal
}

// FormattedTotals is the two-decimal rendering of Totals.
type FormattedTotals struct {
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	Roundoff       string `json:"roundoff"`
	GrandTotal     string `json:"grand_total"`
}

// Formatted rounds every amount to two decimal places.
func (t Totals) Formatted() FormattedTotals {
	return FormattedTotals{
		Subtotal:       Format(t.Subtotal),
		DiscountAmount: Format(t.DiscountAmount),
		Roundoff:       Format(t.Roundoff),
		GrandTotal:     Format(t.GrandTotal),
	}
}

// DiscountAmount resolves the discount against subtotal. Blank, unparsable
// or negative values have no effect. Any type other than percent is fixed.
func DiscountAmount(subtotal decimal.Decimal, spec DiscountSpec) decimal.Decimal {
	if !Valid(spec.Value) {
		return decimal.Zero
	}
	value := Parse(spec.Value)
	if value.IsNegative() {
		return decimal.Zero
	}
	if DiscountType(strings.ToLower(strings.TrimSpace(string(spec.Type)))) == DiscountPercent {
		return subtotal.Mul(value).Div(hundred)
	}
	return value
}

// GrandTotal applies the discount, floors the result at zero and then adds
// the roundoff. The roundoff is not clamped and may take the total negative.
func GrandTotal(subtotal decimal.Decimal, discount DiscountSpec, roundoff RoundoffSpec) Totals {
	discountAmount := DiscountAmount(subtotal, discount)

	base := subtotal.Sub(discountAmount)
	if base.IsNegative() {
		base = decimal.Zero
	}

	adjust := Parse(roundoff.Amount)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		Roundoff:       adjust,
		GrandTotal:     base.Add(adjust),
	}
}

// Compute derives totals for a full form.
func Compute(lines []LineItem, discount DiscountSpec, roundoff RoundoffSpec) Totals {
	return GrandTotal(Subtotal(lines), discount, roundoff)
}
