// Package document holds the input shape and checks shared by quotations and invoices.
package document

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/services/calculator"
)

// DefaultTermDays is the gap between issue date and due date / valid-until when none is given.
const DefaultTermDays = 30

const dateLayout = "2006-01-02"

// Date accepts "2006-01-02" as well as RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// Fields are the editable attributes common to both document kinds.
// Discount is always a percent. A nil Items slice means "not supplied".
type Fields struct {
	IssueDate     *Date                 `json:"issue_date"`
	TaxRate       *decimal.Decimal      `json:"tax_rate"`
	Discount      *decimal.Decimal      `json:"discount"`
	Status        *string               `json:"status"`
	Notes         *string               `json:"notes"`
	Terms         *string               `json:"terms"`
	BankAccount   *string               `json:"bank_account"`
	SignatureName *string               `json:"signature_name"`
	Items         []calculator.LineItem `json:"items"`
}

// RecalculationRequested reports whether totals must be derived again.
func (f Fields) RecalculationRequested() bool {
	return f.Items != nil || f.TaxRate != nil || f.Discount != nil
}

// Precheck validates items and rates before anything touches the store.
// requireItems enforces at least one item with a description.
func (f Fields) Precheck(op string, requireItems bool, validStatus func(string) bool) error {
	if f.Status != nil && !validStatus(*f.Status) {
		return apperror.Validation(op, "unknown status %q", *f.Status)
	}
	if requireItems && len(calculator.FilterItems(f.Items)) == 0 {
		return apperror.Validation(op, "at least one line item with a description is required")
	}

	tax, discount := decimal.Zero, decimal.Zero
	if f.TaxRate != nil {
		tax = *f.TaxRate
	}
	if f.Discount != nil {
		discount = *f.Discount
	}
	_, err := calculator.Compute(f.Items, tax, discount)
	return err
}

// Rates resolves the tax rate and discount percent, falling back to the given defaults.
func (f Fields) Rates(defaultTax, defaultDiscount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	tax, discount := defaultTax, defaultDiscount
	if f.TaxRate != nil {
		tax = *f.TaxRate
	}
	if f.Discount != nil {
		discount = *f.Discount
	}
	return tax, discount
}

// Dates returns the issue date and the end of the payment or validity term.
func (f Fields) Dates(now time.Time, end *Date) (time.Time, time.Time) {
	issue := now
	if f.IssueDate != nil && !f.IssueDate.IsZero() {
		issue = f.IssueDate.Time
	}
	if end != nil && !end.IsZero() {
		return issue, end.Time
	}
	return issue, issue.AddDate(0, 0, DefaultTermDays)
}

// Text holds the free-text fields of a stored document.
type Text struct {
	Notes         *string
	Terms         *string
	BankAccount   *string
	SignatureName *string
}

// ApplyText copies the supplied text fields onto the stored ones.
func (f Fields) ApplyText(t Text) {
	set(t.Notes, f.Notes)
	set(t.Terms, f.Terms)
	set(t.BankAccount, f.BankAccount)
	set(t.SignatureName, f.SignatureName)
}

func set(dst, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Or returns v when it is non-empty and fallback otherwise.
func Or(v *string, fallback string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return strings.TrimSpace(*v)
	}
	return fallback
}
