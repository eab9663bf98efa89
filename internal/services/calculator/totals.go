// Package calculator computes document totals from line items.
package calculator

import (
	"strings"

	"github.com/shopspring/decimal"

	"invoicing-system/internal/apperror"
)

// CurrencyPlaces is the minor-unit precision of the document currency (IDR has none).
const CurrencyPlaces int32 = 0

// Stored precision of rates, quantities and prices. Finer inputs are rejected.
const (
	PercentPlaces  int32 = 2
	QuantityPlaces int32 = 4
	PricePlaces    int32 = 2
)

var hundred = decimal.NewFromInt(100)

// ExceedsPlaces reports whether d carries more fractional digits than places.
func ExceedsPlaces(d decimal.Decimal, places int32) bool {
	return !d.Equal(d.Truncate(places))
}

// LineItem is the canonical item shape used by quotations and invoices.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	GroupName   string          `json:"group_name,omitempty"`
	Model       string          `json:"model,omitempty"`
}

// Amount is quantity × unit price, rounded to the currency precision.
func (i LineItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice).Round(CurrencyPlaces)
}

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

type Result struct {
	Items  []LineItem
	Totals Totals
}

// FilterItems drops items whose description is blank.
func FilterItems(items []LineItem) []LineItem {
	kept := make([]LineItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			continue
		}
		item.Description = strings.TrimSpace(item.Description)
		kept = append(kept, item)
	}
	return kept
}

// Compute filters items and derives subtotal, discount, tax and total.
// Tax is always charged on the discounted subtotal.
func Compute(items []LineItem, taxRatePercent, discountPercent decimal.Decimal) (Result, error) {
	const op = "calculator.Compute"

	if taxRatePercent.IsNegative() || taxRatePercent.GreaterThan(hundred) {
		return Result{}, apperror.Validation(op, "tax rate must be between 0 and 100 percent")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Result{}, apperror.Validation(op, "discount must be between 0 and 100 percent")
	}
	if ExceedsPlaces(taxRatePercent, PercentPlaces) || ExceedsPlaces(discountPercent, PercentPlaces) {
		return Result{}, apperror.Validation(op, "tax rate and discount allow at most %d decimal places", PercentPlaces)
	}

	kept := FilterItems(items)

	sum := decimal.Zero
	for _, item := range kept {
		if !item.Quantity.IsPositive() {
			return Result{}, apperror.New(op, apperror.ErrInvalidLineItem,
				"quantity of \""+item.Description+"\" must be greater than zero")
		}
		if item.UnitPrice.IsNegative() {
			return Result{}, apperror.New(op, apperror.ErrInvalidLineItem,
				"unit price of \""+item.Description+"\" must not be negative")
		}
		if ExceedsPlaces(item.Quantity, QuantityPlaces) || ExceedsPlaces(item.UnitPrice, PricePlaces) {
			return Result{}, apperror.New(op, apperror.ErrInvalidLineItem,
				"\""+item.Description+"\" has too many decimal places")
		}
		sum = sum.Add(item.Quantity.Mul(item.UnitPrice))
	}

	subtotal := sum.Round(CurrencyPlaces)
	discountAmount := subtotal.Mul(discountPercent).Div(hundred).Round(CurrencyPlaces)
	taxAmount := subtotal.Sub(discountAmount).Mul(taxRatePercent).Div(hundred).Round(CurrencyPlaces)

	return Result{
		Items: kept,
		Totals: Totals{
			Subtotal:       subtotal,
			DiscountAmount: discountAmount,
			TaxAmount:      taxAmount,
			Total:          subtotal.Sub(discountAmount).Add(taxAmount),
		},
	}, nil
}
