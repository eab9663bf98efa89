// Package pdf renders quotations and invoices as A4 PDF documents.
package pdf

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicing-system/internal/database/models"
)

// RenderInput is the deterministic input used for document rendering.
type RenderInput struct {
	Company  CompanyView
	Document DocumentView
	Client   ClientView
	Items    []LineItemView
}

type CompanyView struct {
	Name            string
	Address         string
	Phone           string
	Email           string
	BankName        string
	BankAccountName string
	Currency        string
}

type DocumentView struct {
	Title    string
	Number   string
	Status   string
	IssuedAt time.Time
	// DueAt is the payment due date of an invoice or the validity end of a quotation.
	DueAt    time.Time
	DueLabel string

	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	Total           decimal.Decimal
	AmountPaid      *decimal.Decimal

	Notes         string
	Terms         string
	BankAccount   string
	SignatureName string
}

type ClientView struct {
	Name        string
	CompanyName string
	Address     string
	Email       string
	Phone       string
}

type LineItemView struct {
	Group       string
	Model       string
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

type Renderer interface {
	RenderPDF(input RenderInput) ([]byte, error)
}

func CompanyFromSettings(s *models.Settings) CompanyView {
	return CompanyView{
		Name:            s.CompanyName,
		Address:         s.CompanyAddress,
		Phone:           s.CompanyPhone,
		Email:           s.CompanyEmail,
		BankName:        s.BankName,
		BankAccountName: s.BankAccountName,
		Currency:        s.Currency,
	}
}

func QuotationInput(q *models.Quotation, company CompanyView) RenderInput {
	items := make([]LineItemView, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, lineItemView(it.ItemFields))
	}
	return RenderInput{
		Company: company,
		Document: documentView(q.DocumentTotals, DocumentView{
			Title:         "SURAT PENAWARAN HARGA",
			Number:        q.QuotationNumber,
			Status:        q.Status,
			IssuedAt:      q.IssueDate,
			DueAt:         q.ValidUntil,
			DueLabel:      "Berlaku hingga",
			Notes:         q.Notes,
			Terms:         q.Terms,
			BankAccount:   q.BankAccount,
			SignatureName: q.SignatureName,
		}),
		Client: clientView(q.Client),
		Items:  items,
	}
}

func InvoiceInput(inv *models.Invoice, company CompanyView) RenderInput {
	items := make([]LineItemView, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, lineItemView(it.ItemFields))
	}
	paid := inv.AmountPaid
	return RenderInput{
		Company: company,
		Document: documentView(inv.DocumentTotals, DocumentView{
			Title:         "INVOICE",
			Number:        inv.InvoiceNumber,
			Status:        inv.Status,
			IssuedAt:      inv.IssueDate,
			DueAt:         inv.DueDate,
			DueLabel:      "Jatuh tempo",
			AmountPaid:    &paid,
			Notes:         inv.Notes,
			Terms:         inv.Terms,
			BankAccount:   inv.BankAccount,
			SignatureName: inv.SignatureName,
		}),
		Client: clientView(inv.Client),
		Items:  items,
	}
}

func documentView(t models.DocumentTotals, v DocumentView) DocumentView {
	v.Subtotal = t.Subtotal
	v.DiscountPercent = t.DiscountPercent
	v.DiscountAmount = t.DiscountAmount
	v.TaxRate = t.TaxRate
	v.TaxAmount = t.TaxAmount
	v.Total = t.Total
	return v
}

func clientView(c *models.Client) ClientView {
	if c == nil {
		return ClientView{}
	}
	return ClientView{
		Name:        c.Name,
		CompanyName: c.CompanyName,
		Address:     c.Address,
		Email:       c.Email,
		Phone:       c.Phone,
	}
}

func lineItemView(f models.ItemFields) LineItemView {
	return LineItemView{
		Group:       f.GroupName,
		Model:       f.Model,
		Description: f.Description,
		Quantity:    f.Quantity,
		Unit:        f.Unit,
		UnitPrice:   f.UnitPrice,
		Amount:      f.Amount,
	}
}
