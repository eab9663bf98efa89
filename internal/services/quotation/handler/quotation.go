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

type CreateQuotationInput struct {
	ClientID   int64          `json:"client_id"`
	ValidUntil *document.Date `json:"valid_until"`
	document.Fields
}

type UpdateQuotationInput struct {
	ClientID   *int64         `json:"client_id"`
	ValidUntil *document.Date `json:"valid_until"`
	document.Fields
}

type ListQuotationsQuery struct {
	pagination.Params
	Status   string `form:"status"`
	ClientID int64  `form:"client_id"`
	Search   string `form:"search"`
}

type QuotationHandler struct {
	db        *gorm.DB
	settings  *settingshandler.SettingsHandler
	publisher events.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewQuotationHandler(db *gorm.DB, settings *settingshandler.SettingsHandler, publisher events.Publisher) *QuotationHandler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &QuotationHandler{
		db:        db,
		settings:  settings,
		publisher: publisher,
		log:       logger.WithComponent("quotation"),
		now:       time.Now,
	}
}

// NumberIsFree reports whether candidate is unused among userID's quotations.
func NumberIsFree(tx *gorm.DB, userID int64) numbering.UniquenessCheck {
	return func(ctx context.Context, candidate string) (bool, error) {
		var count int64
		err := tx.WithContext(ctx).
			Model(&models.Quotation{}).
			Where("user_id = ? AND quotation_number = ?", userID, candidate).
			Count(&count).Error
		return count == 0, err
	}
}

func (h *QuotationHandler) Create(ctx context.Context, userID int64, in CreateQuotationInput) (*models.Quotation, error) {
	const op = "quotation.Create"

	if in.ClientID == 0 {
		return nil, apperror.Validation(op, "client_id is required")
	}
	if err := in.Precheck(op, true, models.IsQuotationStatus); err != nil {
		return nil, err
	}

	now := h.now()
	var quotation models.Quotation
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

		number, err := h.settings.ReserveNumber(ctx, tx, settings, numbering.SeriesQuotation, now, NumberIsFree(tx, userID))
		if err != nil {
			return err
		}

		issue, validUntil := in.Dates(now, in.ValidUntil)
		quotation = models.Quotation{
			UserID:          userID,
			QuotationNumber: number,
			ClientID:        in.ClientID,
			IssueDate:       issue,
			ValidUntil:      validUntil,
			Status:          document.Or(in.Status, models.StatusDraft),
			Notes:           document.Or(in.Notes, ""),
			Terms:           document.Or(in.Terms, settings.DefaultTerms),
			BankAccount:     document.Or(in.BankAccount, settings.BankAccount),
			SignatureName:   document.Or(in.SignatureName, settings.SignatureName),
		}
		quotation.Apply(res.Totals, taxRate, discount)

		if err := tx.Omit(clause.Associations).Create(&quotation).Error; err != nil {
			return err
		}
		quotation.Items, err = insertItems(tx, quotation.ID, res.Items)
		return err
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	h.log.Info().
		Int64("user_id", userID).
		Int64("quotation_id", quotation.ID).
		Str("number", quotation.QuotationNumber).
		Msg("quotation created")
	h.publish(ctx, events.QuotationCreated, &quotation)

	return h.Get(ctx, userID, quotation.ID)
}

func (h *QuotationHandler) Update(ctx context.Context, userID, id int64, in UpdateQuotationInput) (*models.Quotation, error) {
	const op = "quotation.Update"

	if err := in.Precheck(op, in.Items != nil, models.IsQuotationStatus); err != nil {
		return nil, err
	}

	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotation, err := lockOwned(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		if in.ClientID != nil {
			if _, err := clienthandler.FindOwned(ctx, tx, userID, *in.ClientID); err != nil {
				return err
			}
			quotation.ClientID = *in.ClientID
		}
		if in.IssueDate != nil && !in.IssueDate.IsZero() {
			quotation.IssueDate = in.IssueDate.Time
		}
		if in.ValidUntil != nil && !in.ValidUntil.IsZero() {
			quotation.ValidUntil = in.ValidUntil.Time
		}
		if in.Status != nil {
			quotation.Status = *in.Status
		}
		in.ApplyText(document.Text{
			Notes:         &quotation.Notes,
			Terms:         &quotation.Terms,
			BankAccount:   &quotation.BankAccount,
			SignatureName: &quotation.SignatureName,
		})

		if in.RecalculationRequested() {
			items := in.Items
			if items == nil {
				if items, err = storedItems(ctx, tx, quotation.ID); err != nil {
					return err
				}
			}
			taxRate, discount := in.Rates(quotation.TaxRate, quotation.DiscountPercent)
			res, err := calculator.Compute(items, taxRate, discount)
			if err != nil {
				return err
			}
			quotation.Apply(res.Totals, taxRate, discount)

			if in.Items != nil {
				if err := tx.Where("quotation_id = ?", quotation.ID).Delete(&models.QuotationItem{}).Error; err != nil {
					return err
				}
				if _, err := insertItems(tx, quotation.ID, res.Items); err != nil {
					return err
				}
			}
		}

		return tx.Omit(clause.Associations).Save(quotation).Error
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	quotation, err := h.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	h.log.Info().Int64("user_id", userID).Int64("quotation_id", id).Msg("quotation updated")
	h.publish(ctx, events.QuotationUpdated, quotation)
	return quotation, nil
}

func (h *QuotationHandler) UpdateStatus(ctx context.Context, userID, id int64, status string) (*models.Quotation, error) {
	return h.Update(ctx, userID, id, UpdateQuotationInput{Fields: document.Fields{Status: &status}})
}

// Get returns the quotation with its client and items ordered by position.
func (h *QuotationHandler) Get(ctx context.Context, userID, id int64) (*models.Quotation, error) {
	var quotation models.Quotation
	err := h.db.WithContext(ctx).
		Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ? AND user_id = ?", id, userID).
		First(&quotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("quotation.Get", "quotation")
	}
	if err != nil {
		return nil, apperror.Persistence("quotation.Get", err)
	}
	return &quotation, nil
}

func (h *QuotationHandler) List(ctx context.Context, userID int64, q ListQuotationsQuery) ([]models.Quotation, pagination.Meta, error) {
	const op = "quotation.List"

	if q.Status != "" && !models.IsQuotationStatus(q.Status) {
		return nil, pagination.Meta{}, apperror.Validation(op, "unknown status %q", q.Status)
	}

	query := h.db.WithContext(ctx).Model(&models.Quotation{}).Where("user_id = ?", userID)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.ClientID != 0 {
		query = query.Where("client_id = ?", q.ClientID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		query = query.Where("LOWER(quotation_number) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}

	var quotations []models.Quotation
	if err := query.Scopes(q.Scope).
		Preload("Client").
		Order("issue_date DESC, id DESC").
		Find(&quotations).Error; err != nil {
		return nil, pagination.Meta{}, apperror.Persistence(op, err)
	}
	return quotations, q.Meta(total), nil
}

// Delete removes the quotation and its items. Invoices converted from it keep
// their data but lose the link.
func (h *QuotationHandler) Delete(ctx context.Context, userID, id int64) error {
	const op = "quotation.Delete"

	var quotation *models.Quotation
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if quotation, err = lockOwned(ctx, tx, userID, id); err != nil {
			return err
		}
		if err := tx.Where("quotation_id = ?", id).Delete(&models.QuotationItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Invoice{}).
			Where("quotation_id = ? AND user_id = ?", id, userID).
			Update("quotation_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quotation{}, id).Error
	})
	if err != nil {
		return apperror.Persistence(op, err)
	}

	h.log.Info().Int64("user_id", userID).Int64("quotation_id", id).Msg("quotation deleted")
	h.publish(ctx, events.QuotationDeleted, quotation)
	return nil
}

func (h *QuotationHandler) publish(ctx context.Context, eventType string, q *models.Quotation) {
	event := events.Event{
		EventType:      eventType,
		UserID:         q.UserID,
		DocumentID:     q.ID,
		DocumentNumber: q.QuotationNumber,
		Status:         q.Status,
		Total:          q.Total.String(),
		Timestamp:      h.now(),
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

func lockOwned(ctx context.Context, tx *gorm.DB, userID, id int64) (*models.Quotation, error) {
	var quotation models.Quotation
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&quotation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("quotation.lockOwned", "quotation")
	}
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

func storedItems(ctx context.Context, tx *gorm.DB, quotationID int64) ([]calculator.LineItem, error) {
	var rows []models.QuotationItem
	if err := tx.WithContext(ctx).Where("quotation_id = ?", quotationID).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]calculator.LineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.LineItem())
	}
	return items, nil
}

func insertItems(tx *gorm.DB, quotationID int64, items []calculator.LineItem) ([]models.QuotationItem, error) {
	rows := make([]models.QuotationItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, models.QuotationItem{
			QuotationID: quotationID,
			ItemFields:  models.NewItemFields(i+1, item),
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
