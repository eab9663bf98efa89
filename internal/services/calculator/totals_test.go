package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing-system/internal/apperror"
)

func item(desc string, qty, price string) LineItem {
	return LineItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		Unit:        "pcs",
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleItems() []LineItem {
	return []LineItem{
		item("Panel listrik", "2", "100000"),
		item("Instalasi", "1", "50000"),
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		items        []LineItem
		tax          string
		discount     string
		wantSubtotal string
		wantDiscount string
		wantTax      string
		wantTotal    string
	}{
		{"no discount", sampleItems(), "11", "0", "250000", "0", "27500", "277500"},
		{"with discount", sampleItems(), "11", "10", "250000", "25000", "24750", "249750"},
		{"no tax", sampleItems(), "0", "0", "250000", "0", "0", "250000"},
		{"empty", nil, "11", "0", "0", "0", "0", "0"},
		{
			"rounds to whole rupiah",
			[]LineItem{item("Kabel", "3", "333.5")},
			"11", "2.5",
			"1001", "25", "107", "1083",
		},
		{
			"fractional quantity",
			[]LineItem{item("Kabel per meter", "1.5", "12000")},
			"11", "0",
			"18000", "0", "1980", "19980",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Compute(tt.items, dec(tt.tax), dec(tt.discount))
			require.NoError(t, err)

			assert.True(t, res.Totals.Subtotal.Equal(dec(tt.wantSubtotal)), "subtotal = %s", res.Totals.Subtotal)
			assert.True(t, res.Totals.DiscountAmount.Equal(dec(tt.wantDiscount)), "discount = %s", res.Totals.DiscountAmount)
			assert.True(t, res.Totals.TaxAmount.Equal(dec(tt.wantTax)), "tax = %s", res.Totals.TaxAmount)
			assert.True(t, res.Totals.Total.Equal(dec(tt.wantTotal)), "total = %s", res.Totals.Total)
		})
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	items := sampleItems()

	first, err := Compute(items, dec("11"), dec("10"))
	require.NoError(t, err)
	second, err := Compute(items, dec("11"), dec("10"))
	require.NoError(t, err)

	assert.Equal(t, first.Totals.Total.String(), second.Totals.Total.String())
	assert.Equal(t, first.Totals.TaxAmount.String(), second.Totals.TaxAmount.String())
	assert.Equal(t, sampleItems(), items)
}

func TestComputeDropsBlankDescriptions(t *testing.T) {
	items := []LineItem{
		item("", "5", "999999"),
		item("   ", "1", "1"),
		item(" Panel listrik ", "2", "100000"),
	}

	res, err := Compute(items, dec("11"), dec("0"))
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Panel listrik", res.Items[0].Description)
	assert.True(t, res.Totals.Subtotal.Equal(dec("200000")))
}

func TestComputeBlankItemsAreNotValidated(t *testing.T) {
	_, err := Compute([]LineItem{item("", "0", "-5"), item("Jasa", "1", "1000")}, dec("11"), dec("0"))
	assert.NoError(t, err)
}

func TestComputeRejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
	}{
		{"zero quantity", []LineItem{item("Jasa", "0", "1000")}},
		{"negative quantity", []LineItem{item("Jasa", "-1", "1000")}},
		{"negative price", []LineItem{item("Jasa", "1", "-1")}},
		{"quantity precision", []LineItem{item("Kabel", "1.00005", "1000")}},
		{"price precision", []LineItem{item("Jasa", "1", "1000.005")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.items, dec("11"), dec("0"))
			assert.True(t, errors.Is(err, apperror.ErrInvalidLineItem), "got %v", err)
		})
	}
}

func TestComputeRejectsInvalidRates(t *testing.T) {
	_, err := Compute(sampleItems(), dec("-1"), dec("0"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = Compute(sampleItems(), dec("11"), dec("101"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = Compute(sampleItems(), dec("11"), dec("-5"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = Compute(sampleItems(), dec("1000"), dec("0"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = Compute(sampleItems(), dec("100.01"), dec("0"))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestComputeRejectsRatesFinerThanStored(t *testing.T) {
	items := []LineItem{item("Konsultasi", "1", "1000000")}

	_, err := Compute(items, dec("11"), dec("12.345"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = Compute(items, dec("11.005"), dec("0"))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	res, err := Compute(items, dec("11"), dec("12.350"))
	require.NoError(t, err)
	assert.True(t, res.Totals.DiscountAmount.Equal(dec("123500")), "got %s", res.Totals.DiscountAmount)

	res, err = Compute(items, dec("100"), dec("0"))
	require.NoError(t, err)
	assert.True(t, res.Totals.TaxAmount.Equal(dec("1000000")))
}

func TestExceedsPlaces(t *testing.T) {
	assert.False(t, ExceedsPlaces(dec("12.35"), 2))
	assert.False(t, ExceedsPlaces(dec("12.3500"), 2))
	assert.False(t, ExceedsPlaces(dec("-7"), 0))
	assert.True(t, ExceedsPlaces(dec("12.345"), 2))
	assert.True(t, ExceedsPlaces(dec("0.00001"), 4))
}

func TestAmount(t *testing.T) {
	assert.True(t, item("Kabel", "2.5", "1001").Amount().Equal(dec("2503")))
}
