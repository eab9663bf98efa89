package models

import (
	"time"

	"github.com/shopspring/decimal"

	"invoicing-system/internal/services/numbering"
)

const (
	DefaultInvoicePrefix   = "INV/{YYYY}/{MM}/"
	DefaultQuotationPrefix = "SPH/{YYYY}/{MM}/"
	DefaultPadding         = 4
	DefaultCurrency        = "IDR"
)

var DefaultTaxRate = decimal.NewFromInt(11)

// Settings holds one user's numbering series and company branding.
type Settings struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"uniqueIndex;not null" json:"user_id"`

	InvoicePrefix  string `gorm:"size:64;not null" json:"invoice_prefix"`
	InvoiceNextNum int64  `gorm:"not null" json:"invoice_next_num"`
	InvoicePadding int    `gorm:"not null" json:"invoice_padding"`
	SphPrefix      string `gorm:"size:64;not null" json:"sph_prefix"`
	SphNextNum     int64  `gorm:"not null" json:"sph_next_num"`
	SphPadding     int    `gorm:"not null" json:"sph_padding"`

	DefaultTaxRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"default_tax_rate"`
	Currency       string          `gorm:"size:8;not null" json:"currency"`

	CompanyName     string `gorm:"size:128" json:"company_name"`
	CompanyAddress  string `gorm:"type:text" json:"company_address"`
	CompanyPhone    string `gorm:"size:32" json:"company_phone"`
	CompanyEmail    string `gorm:"size:128" json:"company_email"`
	LogoURL         string `gorm:"size:255" json:"logo_url"`
	BankName        string `gorm:"size:64" json:"bank_name"`
	BankAccount     string `gorm:"size:64" json:"bank_account"`
	BankAccountName string `gorm:"size:128" json:"bank_account_name"`
	SignatureName   string `gorm:"size:128" json:"signature_name"`
	DefaultTerms    string `gorm:"type:text" json:"default_terms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:         userID,
		InvoicePrefix:  DefaultInvoicePrefix,
		InvoiceNextNum: 1,
		InvoicePadding: DefaultPadding,
		SphPrefix:      DefaultQuotationPrefix,
		SphNextNum:     1,
		SphPadding:     DefaultPadding,
		DefaultTaxRate: DefaultTaxRate,
		Currency:       DefaultCurrency,
	}
}

// Numbering returns the numbering state of series.
func (s Settings) Numbering(series numbering.Series) numbering.Config {
	if series == numbering.SeriesQuotation {
		return numbering.Config{Prefix: s.SphPrefix, NextNumber: s.SphNextNum, Padding: s.SphPadding}
	}
	return numbering.Config{Prefix: s.InvoicePrefix, NextNumber: s.InvoiceNextNum, Padding: s.InvoicePadding}
}

// NextNumberColumn is the counter column of series.
func NextNumberColumn(series numbering.Series) string {
	if series == numbering.SeriesQuotation {
		return "sph_next_num"
	}
	return "invoice_next_num"
}
