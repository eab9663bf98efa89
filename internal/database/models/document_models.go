package models

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicing-system/internal/services/calculator"
)

const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
	StatusPartial   = "partial"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

var quotationStatuses = map[string]bool{
	StatusDraft: true, StatusSent: true, StatusAccepted: true, StatusRejected: true, StatusExpired: true,
}

var invoiceStatuses = map[string]bool{
	StatusDraft: true, StatusSent: true, StatusPartial: true, StatusPaid: true, StatusOverdue: true, StatusCancelled: true,
}

func IsQuotationStatus(s string) bool { return quotationStatuses[s] }

func IsInvoiceStatus(s string) bool { return invoiceStatuses[s] }

// DocumentTotals are the money fields shared by quotations and invoices.
// DiscountPercent is the discount as authored; DiscountAmount is derived from it.
type DocumentTotals struct {
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"discount_amount"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tax_rate"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
}

func (d *DocumentTotals) Apply(t calculator.Totals, taxRate, discountPercent decimal.Decimal) {
	d.Subtotal = t.Subtotal
	d.DiscountPercent = discountPercent
	d.DiscountAmount = t.DiscountAmount
	d.TaxRate = taxRate
	d.TaxAmount = t.TaxAmount
	d.Total = t.Total
}

// ItemFields are the columns shared by quotation and invoice items.
type ItemFields struct {
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	Unit        string          `gorm:"size:32" json:"unit"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	GroupName   string          `gorm:"size:128" json:"group_name,omitempty"`
	Model       string          `gorm:"size:128" json:"model,omitempty"`
}

func NewItemFields(position int, item calculator.LineItem) ItemFields {
	return ItemFields{
		Position:    position,
		Description: item.Description,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		UnitPrice:   item.UnitPrice,
		Amount:      item.Amount(),
		GroupName:   item.GroupName,
		Model:       item.Model,
	}
}

func (f ItemFields) LineItem() calculator.LineItem {
	return calculator.LineItem{
		Description: f.Description,
		Quantity:    f.Quantity,
		Unit:        f.Unit,
		UnitPrice:   f.UnitPrice,
		GroupName:   f.GroupName,
		Model:       f.Model,
	}
}

type Quotation struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64     `gorm:"not null;uniqueIndex:idx_quotations_user_number,priority:1" json:"user_id"`
	QuotationNumber string    `gorm:"size:64;not null;uniqueIndex:idx_quotations_user_number,priority:2" json:"quotation_number"`
	ClientID        int64     `gorm:"not null;index" json:"client_id"`
	IssueDate       time.Time `gorm:"not null" json:"issue_date"`
	ValidUntil      time.Time `gorm:"not null" json:"valid_until"`
	Status          string    `gorm:"size:16;not null;index" json:"status"`

	DocumentTotals `gorm:"embedded"`

	Notes         string    `gorm:"type:text" json:"notes"`
	Terms         string    `gorm:"type:text" json:"terms"`
	BankAccount   string    `gorm:"size:128" json:"bank_account"`
	SignatureName string    `gorm:"size:128" json:"signature_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items  []QuotationItem `gorm:"foreignKey:QuotationID" json:"items"`
}

type QuotationItem struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	QuotationID int64 `gorm:"index;not null" json:"quotation_id"`
	ItemFields  `gorm:"embedded"`
}

type Invoice struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"not null;uniqueIndex:idx_invoices_user_number,priority:1" json:"user_id"`
	InvoiceNumber string    `gorm:"size:64;not null;uniqueIndex:idx_invoices_user_number,priority:2" json:"invoice_number"`
	ClientID      int64     `gorm:"not null;index" json:"client_id"`
	QuotationID   *int64    `gorm:"index" json:"quotation_id,omitempty"`
	IssueDate     time.Time `gorm:"not null" json:"issue_date"`
	DueDate       time.Time `gorm:"not null" json:"due_date"`
	Status        string    `gorm:"size:16;not null;index" json:"status"`

	DocumentTotals `gorm:"embedded"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount_paid"`

	Notes         string    `gorm:"type:text" json:"notes"`
	Terms         string    `gorm:"type:text" json:"terms"`
	BankAccount   string    `gorm:"size:128" json:"bank_account"`
	SignatureName string    `gorm:"size:128" json:"signature_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client   *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

type InvoiceItem struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID  int64 `gorm:"index;not null" json:"invoice_id"`
	ItemFields `gorm:"embedded"`
}

// Payment is append-only.
type Payment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   int64           `gorm:"index;not null" json:"invoice_id"`
	UserID      int64           `gorm:"index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Method      string          `gorm:"size:32" json:"method"`
	Reference   string          `gorm:"size:128" json:"reference"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}
