package accounting

import (
	"fmt"
	"strings"

	"github.com/SscSPs/repair_shop_billing/internal/core/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the priced result of a set of line items.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round2 rounds half away from zero to two decimal places.
// Every monetary value crossing a calculator boundary goes through it.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal is round2(quantity × unitPrice).
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// Subtotal is round2(Σ line totals). Line totals are recomputed, never trusted from input.
func Subtotal(items []domain.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineTotal(item.Quantity, item.UnitPrice))
	}
	return Round2(sum)
}

// Tax is round2(subtotal × ratePercent / 100).
func Tax(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(ratePercent).Div(hundred))
}

// Total is round2(subtotal + tax).
func Total(subtotal, tax decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Add(tax))
}

// Remaining is round2(total − paid).
func Remaining(total, paid decimal.Decimal) decimal.Decimal {
	return Round2(total.Sub(paid))
}

// Percentage is round2(amount × percent / 100).
func Percentage(amount, percent decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(percent).Div(hundred))
}

// PriceItems returns a copy of items with Total set from quantity and unit price.
func PriceItems(items []domain.LineItem) []domain.LineItem {
	priced := make([]domain.LineItem, len(items))
	for i, item := range items {
		item.Total = LineTotal(item.Quantity, item.UnitPrice)
		priced[i] = item
	}
	return priced
}

// ComputeTotals prices the items and derives subtotal, tax and total at ratePercent.
func ComputeTotals(items []domain.LineItem, ratePercent decimal.Decimal) ([]domain.LineItem, Totals) {
	priced := PriceItems(items)
	subtotal := Subtotal(priced)
	tax := Tax(subtotal, ratePercent)
	return priced, Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    Total(subtotal, tax),
	}
}

// ValidateLineItems checks that at least one item exists and every item is well formed.
func ValidateLineItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("at least one line item is required")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("line item %d: description is required", i)
		}
		if item.Quantity.IsNegative() {
			return fmt.Errorf("line item %d: quantity must not be negative", i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("line item %d: unit price must not be negative", i)
		}
	}
	return nil
}
