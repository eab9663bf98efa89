package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/services/calculator"
)

func TestDateUnmarshal(t *testing.T) {
	var f Fields
	require.NoError(t, json.Unmarshal([]byte(`{"issue_date":"2024-03-05"}`), &f))
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), f.IssueDate.Time)

	require.NoError(t, json.Unmarshal([]byte(`{"issue_date":"2024-03-05T08:00:00+07:00"}`), &f))
	assert.Equal(t, 5, f.IssueDate.Day())

	assert.Error(t, json.Unmarshal([]byte(`{"issue_date":"05/03/2024"}`), &f))
}

func TestItemsPresence(t *testing.T) {
	var absent, empty Fields
	require.NoError(t, json.Unmarshal([]byte(`{"notes":"x"}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"items":[]}`), &empty))

	assert.False(t, absent.RecalculationRequested())
	assert.True(t, empty.RecalculationRequested())
}

func TestPrecheck(t *testing.T) {
	valid := func(s string) bool { return s == "draft" }
	item := calculator.LineItem{Description: "Jasa", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}
	bad := calculator.LineItem{Description: "Jasa", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(10)}
	status := "paid"
	discount := decimal.NewFromInt(150)

	assert.NoError(t, Fields{Items: []calculator.LineItem{item}}.Precheck("op", true, valid))
	assert.ErrorIs(t, Fields{}.Precheck("op", true, valid), apperror.ErrValidation)
	assert.ErrorIs(t, Fields{Items: []calculator.LineItem{{Description: " "}}}.Precheck("op", true, valid), apperror.ErrValidation)
	assert.ErrorIs(t, Fields{Items: []calculator.LineItem{bad}}.Precheck("op", true, valid), apperror.ErrInvalidLineItem)
	assert.ErrorIs(t, Fields{Status: &status}.Precheck("op", false, valid), apperror.ErrValidation)
	assert.ErrorIs(t, Fields{Discount: &discount}.Precheck("op", false, valid), apperror.ErrValidation)
	assert.NoError(t, Fields{}.Precheck("op", false, valid))
}

func TestRatesAndDates(t *testing.T) {
	tax := decimal.NewFromInt(5)
	f := Fields{TaxRate: &tax}

	gotTax, gotDiscount := f.Rates(decimal.NewFromInt(11), decimal.NewFromInt(10))
	assert.True(t, gotTax.Equal(tax))
	assert.True(t, gotDiscount.Equal(decimal.NewFromInt(10)))

	now := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	issue, end := f.Dates(now, nil)
	assert.Equal(t, now, issue)
	assert.Equal(t, now.AddDate(0, 0, DefaultTermDays), end)

	due := Date{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)}
	_, end = f.Dates(now, &due)
	assert.Equal(t, due.Time, end)
}

func TestApplyText(t *testing.T) {
	notes, terms := "old", "old"
	newNotes := " thanks "
	Fields{Notes: &newNotes}.ApplyText(Text{Notes: &notes, Terms: &terms})

	assert.Equal(t, "thanks", notes)
	assert.Equal(t, "old", terms)
	assert.Equal(t, "fallback", Or(nil, "fallback"))
	assert.Equal(t, "x", Or(&[]string{"x"}[0], "fallback"))
}
