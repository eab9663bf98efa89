package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/models"
	"invoicing-system/internal/events"
	"invoicing-system/internal/logger"
	"invoicing-system/internal/services/calculator"
	clienthandler "invoicing-system/internal/services/client/handler"
	"invoicing-system/internal/services/document"
	"invoicing-system/internal/services/numbering"
	"invoicing-system/internal/services/pagination"
	settingshandler "invoicing-system/internal/services/settings/handler"
)

type CreateInvoiceInput struct {
	ClientID int64          `json:"client_id"`
	DueDate  *document.Date `json:"due_date"`
	document.Fields
}

type UpdateInvoiceInput struct {
	ClientID *int64         `json:"client_id"`
	DueDate  *document.Date `json:"due_date"`
	document.Fields
}

// ConvertInput overrides the dates of an invoice created from a quotation.
type ConvertInput struct {
	IssueDate *document.Date `json:"issue_date"`
	DueDate   *document.Date `json:"due_date"`
}

type PaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate *document.Date  `json:"payment_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
}

type ListInvoicesQuery struct {
	pagination.Params
	Status   string `form:"status"`
	ClientID int64  `form:"client_id"`
	Search   string `form:"search"`
}

type InvoiceHandler struct {
	db        *gorm.DB
	settings  *settingshandler.SettingsHandler
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewInvoiceHandler(db *gorm.DB, settings *settingshandler.SettingsHandler, publisher events.Publisher) *InvoiceHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &InvoiceHandler{
		db:        db,
		settings:  settings,
		publisher: publisher,
		log:       logger.WithComponent("invoice"),
		now:       time.Now,
	}
}

func (h *InvoiceHandler) Create(ctx context.Context, userID int64, in CreateInvoiceInput) (*models.Invoice, error) {
	const op = "invoice.Create"

	if in.ClientID == 0 {
		return nil, apperror.Validation(op, "client_id is required")
	}
	if err := in.Precheck(op, true, models.IsInvoiceStatus); err != nil {
		return nil, err
	}

	now := h.now()
	var invoice *models.Invoice
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := clienthandler.FindOwned(ctx, tx, userID, in.ClientID); err != nil {
			return err
		}

		settings, err := h.settings.Lock(ctx, tx, userID)
		if err != nil {
			return err
		}

		taxRate, discount := in.Rates(settings.DefaultTaxRate, decimal.Zero)
		res, err := calculator.Compute(in.Items, taxRate, discount)
		if err != nil {
			return err
		}

		issue, due := in.Dates(now, in.DueDate)
		invoice = &models.Invoice{
			UserID:        userID,
			ClientID:      in.ClientID,
			IssueDate:     issue,
			DueDate:       due,
			Status:        document.Or(in.Status, models.StatusDraft),
			AmountPaid:    decimal.Zero,
			Notes:         document.Or(in.Notes, ""),
			Terms:         document.Or(in.Terms, settings.DefaultTerms),
			BankAccount:   document.Or(in.BankAccount, settings.BankAccount),
			SignatureName: document.Or(in.SignatureName, settings.SignatureName),
		}
		invoice.Apply(res.Totals, taxRate, discount)

		return h.insert(ctx, tx, settings, invoice, res.Items, now)
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	h.log.Info().
		Int64("user_id", userID).
		Int64("invoice_id", invoice.ID).
		Str("number", invoice.InvoiceNumber).
		Msg("invoice created")
	h.publish(ctx, events.InvoiceCreated, invoice, nil)

	return h.Get(ctx, userID, invoice.ID)
}

// CreateFromQuotation issues an invoice carrying the quotation's client, items,
// tax rate and discount percent, and marks the quotation accepted.
func (h *InvoiceHandler) CreateFromQuotation(ctx context.Context, userID, quotationID int64, in ConvertInput) (*models.Invoice, error) {
	const op = "invoice.CreateFromQuotation"

	now := h.now()
	var (
		invoice   *models.Invoice
		quotation models.Quotation
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", quotationID, userID).
			First(&quotation).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(op, "quotation")
		}
		if err != nil {
			return err
		}

		var rows []models.QuotationItem
		if err := tx.Where("quotation_id = ?", quotation.ID).Order("position ASC").Find(&rows).Error; err != nil {
			return err
		}
		items := make([]calculator.LineItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, r.LineItem())
		}
		res, err := calculator.Compute(items, quotation.TaxRate, quotation.DiscountPercent)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return apperror.Validation(op, "quotation has no line items")
		}

		settings, err := h.settings.Lock(ctx, tx, userID)
		if err != nil {
			return err
		}

		issue, due := document.Fields{IssueDate: in.IssueDate}.Dates(now, in.DueDate)
		invoice = &models.Invoice{
			UserID:        userID,
			ClientID:      quotation.ClientID,
			QuotationID:   &quotation.ID,
			IssueDate:     issue,
			DueDate:       due,
			Status:        models.StatusDraft,
			AmountPaid:    decimal.Zero,
			Notes:         quotation.Notes,
			Terms:         quotation.Terms,
			BankAccount:   quotation.BankAccount,
			SignatureName: quotation.SignatureName,
		}
		invoice.Apply(res.Totals, quotation.TaxRate, quotation.DiscountPercent)

		if err := h.insert(ctx, tx, settings, invoice, res.Items, now); err != nil {
			return err
		}

		quotation.Status = models.StatusAccepted
		return tx.Model(&models.Quotation{}).
			Where("id = ?", quotation.ID).
			Update("status", models.StatusAccepted).Error
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	h.log.Info().
		Int64("user_id", userID).
		Int64("quotation_id", quotationID).
		Int64("invoice_id", invoice.ID).
		Str("number", invoice.InvoiceNumber).
		Msg("quotation converted to invoice")
	h.publish(ctx, events.QuotationConverted, invoice, map[string]any{
		"quotation_id":     quotation.ID,
		"quotation_number": quotation.QuotationNumber,
	})
	h.publish(ctx, events.InvoiceCreated, invoice, nil)

	return h.Get(ctx, userID, invoice.ID)
}

// insert numbers the invoice from the locked settings row and stores it with its items.
func (h *InvoiceHandler) insert(ctx context.Context, tx *gorm.DB, settings *models.Settings, invoice *models.Invoice, items []calculator.LineItem, now time.Time) error {
	number, err := h.settings.ReserveNumber(ctx, tx, settings, numbering.SeriesInvoice, now, nil)
	if err != nil {
		return err
	}
	invoice.InvoiceNumber = number

	if err := tx.Omit(clause.Associations).Create(invoice).Error; err != nil {
		return err
	}
	invoice.Items, err = insertItems(tx, invoice.ID, items)
	return err
}

func (h *InvoiceHandler) Update(ctx context.Context, userID, id int64, in UpdateInvoiceInput) (*models.Invoice, error) {
	const op = "invoice.Update"

	if err := in.Precheck(op, in.Items != nil, models.IsInvoiceStatus); err != nil {
		return nil, err
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := lockOwned(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if in.ClientID != nil {
			if _, err := clienthandler.FindOwned(ctx, tx, userID, *in.ClientID); err != nil {
				return err
			}
			invoice.ClientID = *in.ClientID
		}
		if in.IssueDate != nil && !in.IssueDate.IsZero() {
			invoice.IssueDate = in.IssueDate.Time
		}
		if in.DueDate != nil && !in.DueDate.IsZero() {
			invoice.DueDate = in.DueDate.Time
		}
		if in.Status != nil {
			invoice.Status = *in.Status
		}
		in.ApplyText(document.Text{
			Notes:         &invoice.Notes,
			Terms:         &invoice.Terms,
			BankAccount:   &invoice.BankAccount,
			SignatureName: &invoice.SignatureName,
		})

		if in.RecalculationRequested() {
			items := in.Items
			if items == nil {
				if items, err = storedItems(ctx, tx, invoice.ID); err != nil {
					return err
				}
			}
			taxRate, discount := in.Rates(invoice.TaxRate, invoice.DiscountPercent)
			res, err := calculator.Compute(items, taxRate, discount)
			if err != nil {
				return err
			}
			invoice.Apply(res.Totals, taxRate, discount)

			if in.Items != nil {
				if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
					return err
				}
				if _, err := insertItems(tx, invoice.ID, res.Items); err != nil {
					return err
				}
			}
		}

		return tx.Omit(clause.Associations).Save(invoice).Error
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	invoice, err := h.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	h.log.Info().Int64("user_id", userID).Int64("invoice_id", id).Msg("invoice updated")
	h.publish(ctx, events.InvoiceUpdated, invoice, nil)
	return invoice, nil
}

func (h *InvoiceHandler) UpdateStatus(ctx context.Context, userID, id int64, status string) (*models.Invoice, error) {
	return h.Update(ctx, userID, id, UpdateInvoiceInput{Fields: document.Fields{Status: &status}})
}

// AddPayment appends a payment and derives the invoice status from the
// cumulative amount paid. The invoice row stays locked until commit.
func (h *InvoiceHandler) AddPayment(ctx context.Context, userID, invoiceID int64, in PaymentInput) (*models.Payment, error) {
	const op = "invoice.AddPayment"

	if !in.Amount.IsPositive() {
		return nil, apperror.New(op, apperror.ErrInvalidPayment, "payment amount must be greater than zero")
	}

	var (
		invoice *models.Invoice
		payment models.Payment
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if invoice, err = lockOwned(ctx, tx, userID, invoiceID); err != nil {
			return err
		}

		paidAt := h.now()
		if in.PaymentDate != nil && !in.PaymentDate.IsZero() {
			paidAt = in.PaymentDate.Time
		}
		payment = models.Payment{
			InvoiceID:   invoice.ID,
			UserID:      userID,
			Amount:      in.Amount,
			PaymentDate: paidAt,
			Method:      strings.TrimSpace(in.Method),
			Reference:   strings.TrimSpace(in.Reference),
			Notes:       strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		var payments []models.Payment
		if err := tx.Where("invoice_id = ?", invoice.ID).Find(&payments).Error; err != nil {
			return err
		}
		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}

		invoice.AmountPaid = paid
		invoice.Status = statusForPayments(invoice.Status, paid, invoice.Total)
		return tx.Model(&models.Invoice{}).
			Where("id = ?", invoice.ID).
			Updates(map[string]any{"amount_paid": invoice.AmountPaid, "status": invoice.Status}).Error
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	h.log.Info().
		Int64("user_id", userID).
		Int64("invoice_id", invoiceID).
		Str("amount", payment.Amount.String()).
		Str("status", invoice.Status).
		Msg("payment recorded")
	h.publish(ctx, events.PaymentRecorded, invoice, map[string]any{
		"payment_id":  payment.ID,
		"amount":      payment.Amount.String(),
		"amount_paid": invoice.AmountPaid.String(),
	})
	return &payment, nil
}

func statusForPayments(current string, paid, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return models.StatusPaid
	case paid.IsPositive():
		return models.StatusPartial
	default:
		return current
	}
}

func (h *InvoiceHandler) ListPayments(ctx context.Context, userID, invoiceID int64) ([]models.Payment, error) {
	const op = "invoice.ListPayments"

	var owned int64
	if err := h.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND user_id = ?", invoiceID, userID).
		Count(&owned).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}
	if owned == 0 {
		return nil, apperror.NotFound(op, "invoice")
	}

	var payments []models.Payment
	if err := h.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}
	return payments, nil
}

// Get returns the invoice with its client, items ordered by position and payments.
func (h *InvoiceHandler) Get(ctx context.Context, userID, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := h.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("invoice.Get", "invoice")
	}
	if err != nil {
		return nil, apperror.Persistence("invoice.Get", err)
	}
	return &invoice, nil
}

func (h *InvoiceHandler) List(ctx context.Context, userID int64, q ListInvoicesQuery) ([]models.Invoice, pagination.Meta, error) {
	const op = "invoice.List"

	if q.Status != "" && !models.IsInvoiceStatus(q.Status) {
		return nil, pagination.Meta{}, apperror.Validation(op, "unknown status %q", q.Status)
	}

	query := h.db.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ?", userID)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.ClientID != 0 {
		query = query.Where("client_id = ?", q.ClientID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query = query.Where("LOWER(invoice_number) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}

	var invoices []models.Invoice
	if err := query.Scopes(q.Scope).
		Preload("Client").
		Order("issue_date DESC, id DESC").
		Find(&invoices).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}
	return invoices, q.Meta(total), nil
}

// Delete removes the invoice with its items and payments.
func (h *InvoiceHandler) Delete(ctx context.Context, userID, id int64) error {
	const op = "invoice.Delete"

	var invoice *models.Invoice
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if invoice, err = lockOwned(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Invoice{}, id).Error
	})
	if err != nil {
		return apperror.Persistence(op, err)
	}

	h.log.Info().Int64("user_id", userID).Int64("invoice_id", id).Msg("invoice deleted")
	h.publish(ctx, events.InvoiceDeleted, invoice, nil)
	return nil
}

func (h *InvoiceHandler) publish(ctx context.Context, eventType string, inv *models.Invoice, data map[string]any) {
	event := events.Event{
		EventType:      eventType,
		UserID:         inv.UserID,
		DocumentID:     inv.ID,
		DocumentNumber: inv.InvoiceNumber,
		Status:         inv.Status,
		Total:          inv.Total.String(),
		Timestamp:      h.now(),
	}
	if data != nil {
		event.Data = data
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func lockOwned(ctx context.Context, tx *gorm.DB, userID, id int64) (*models.Invoice, error) {
	var invoice models.Invoice
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("invoice.lockOwned", "invoice")
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func storedItems(ctx context.Context, tx *gorm.DB, invoiceID int64) ([]calculator.LineItem, error) {
	var rows []models.InvoiceItem
	if err := tx.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]calculator.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.LineItem())
	}
	return items, nil
}

func insertItems(tx *gorm.DB, invoiceID int64, items []calculator.LineItem) ([]models.InvoiceItem, error) {
	rows := make([]models.InvoiceItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, models.InvoiceItem{
			InvoiceID:  invoiceID,
			ItemFields: models.NewItemFields(i+1, item),
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
