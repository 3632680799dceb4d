package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one row of an invoice or purchase form.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// Complete reports whether the line references a product.
func (l LineItem) Complete() bool {
	return strings.TrimSpace(l.ProductID) != ""
}

// Total is quantity * unit price. Non-positive quantities contribute nothing.
func (l LineItem) Total() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(l.Quantity)).Mul(Parse(l.UnitPrice))
}

// Subtotal sums the totals of every complete line in insertion order.
func Subtotal(lines []LineItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		if !line.Complete() {
			continue
		}
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal
}

// IncompleteLines returns the original indexes of lines without a product.
func IncompleteLines(lines []LineItem) []int {
	var idx []int
	for i, line := range lines {
		if !line.Complete() {
			idx = append(idx, i)
		}
	}
	return idx
}

// CompleteLines returns only the lines that reference a product.
func CompleteLines(lines []LineItem) []LineItem {
	out := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		if line.Complete() {
			out = append(out, line)
		}
	}
	return out
}

// CanSubmit is the submission gate: at least one complete line is required.
func CanSubmit(lines []LineItem) bool {
	for _, line := range lines {
		if line.Complete() {
			return true
		}
	}
	return false
}
