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
	"invoicing-system/internal/logger"
	"invoicing-system/internal/services/calculator"
	"invoicing-system/internal/services/numbering"
)

const maxPadding = 12

type UpdateSettingsInput struct {
	InvoicePrefix  *string          `json:"invoice_prefix"`
	InvoiceNextNum *int64           `json:"invoice_next_num"`
	InvoicePadding *int             `json:"invoice_padding"`
	SphPrefix      *string          `json:"sph_prefix"`
	SphNextNum     *int64           `json:"sph_next_num"`
	SphPadding     *int             `json:"sph_padding"`
	DefaultTaxRate *decimal.Decimal `json:"default_tax_rate"`
	Currency       *string          `json:"currency"`

	CompanyName     *string `json:"company_name"`
	CompanyAddress  *string `json:"company_address"`
	CompanyPhone    *string `json:"company_phone"`
	CompanyEmail    *string `json:"company_email"`
	LogoURL         *string `json:"logo_url"`
	BankName        *string `json:"bank_name"`
	BankAccount     *string `json:"bank_account"`
	BankAccountName *string `json:"bank_account_name"`
	SignatureName   *string `json:"signature_name"`
	DefaultTerms    *string `json:"default_terms"`
}

type SettingsHandler struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{
		db:  db,
		log: logger.WithComponent("settings"),
	}
}

// Get returns the user's settings, creating the default row on first access.
func (s *SettingsHandler) Get(ctx context.Context, userID int64) (*models.Settings, error) {
	const op = "settings.Get"

	var settings models.Settings
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Persistence(op, err)
	}

	if err := s.ensure(ctx, s.db, userID); err != nil {
		return nil, apperror.Persistence(op, err)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, apperror.Persistence(op, err)
	}
	return &settings, nil
}

// Lock loads the user's settings row with FOR UPDATE inside tx. Every document
// creation goes through it, so counter reads for one user are serialized.
func (s *SettingsHandler) Lock(ctx context.Context, tx *gorm.DB, userID int64) (*models.Settings, error) {
	if err := s.ensure(ctx, tx, userID); err != nil {
		return nil, err
	}

	var settings models.Settings
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// ReserveNumber generates the next number of series and advances the counter
// inside tx. settings must have been loaded with Lock in the same transaction.
func (s *SettingsHandler) ReserveNumber(ctx context.Context, tx *gorm.DB, settings *models.Settings, series numbering.Series, now time.Time, isUnique numbering.UniquenessCheck) (string, error) {
	res, err := numbering.Generate(ctx, settings.Numbering(series), now, isUnique)
	if err != nil {
		if errors.Is(err, apperror.ErrNumberGenerationExhausted) {
			s.log.Error().
				Err(err).
				Int64("user_id", settings.UserID).
				Str("series", string(series)).
				Msg("numbering series exhausted, counter or prefix needs attention")
		}
		return "", err
	}

	column := models.NextNumberColumn(series)
	if err := tx.WithContext(ctx).
		Model(&models.Settings{}).
		Where("id = ?", settings.ID).
		Update(column, res.NextCounter).Error; err != nil {
		return "", err
	}

	if series == numbering.SeriesQuotation {
		settings.SphNextNum = res.NextCounter
	} else {
		settings.InvoiceNextNum = res.NextCounter
	}
	return res.Number, nil
}

func (s *SettingsHandler) Update(ctx context.Context, userID int64, in UpdateSettingsInput) (*models.Settings, error) {
	const op = "settings.Update"

	var settings *models.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		settings, err = s.Lock(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := applySettings(settings, in); err != nil {
			return err
		}
		return tx.Save(settings).Error
	})
	if err != nil {
		return nil, apperror.Persistence(op, err)
	}

	s.log.Info().Int64("user_id", userID).Msg("settings updated")
	return settings, nil
}

func (s *SettingsHandler) ensure(ctx context.Context, tx *gorm.DB, userID int64) error {
	defaults := models.DefaultSettings(userID)
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&defaults).Error
}

func applySettings(s *models.Settings, in UpdateSettingsInput) error {
	const op = "settings.Update"

	if in.InvoicePrefix != nil {
		if strings.TrimSpace(*in.InvoicePrefix) == "" {
			return apperror.Validation(op, "invoice_prefix must not be empty")
		}
		s.InvoicePrefix = *in.InvoicePrefix
	}
	if in.SphPrefix != nil {
		if strings.TrimSpace(*in.SphPrefix) == "" {
			return apperror.Validation(op, "sph_prefix must not be empty")
		}
		s.SphPrefix = *in.SphPrefix
	}
	if in.InvoiceNextNum != nil {
		if *in.InvoiceNextNum < s.InvoiceNextNum {
			return apperror.Validation(op, "invoice_next_num cannot go below %d", s.InvoiceNextNum)
		}
		s.InvoiceNextNum = *in.InvoiceNextNum
	}
	if in.SphNextNum != nil {
		if *in.SphNextNum < s.SphNextNum {
			return apperror.Validation(op, "sph_next_num cannot go below %d", s.SphNextNum)
		}
		s.SphNextNum = *in.SphNextNum
	}
	if in.InvoicePadding != nil {
		if *in.InvoicePadding < 1 || *in.InvoicePadding > maxPadding {
			return apperror.Validation(op, "invoice_padding must be between 1 and %d", maxPadding)
		}
		s.InvoicePadding = *in.InvoicePadding
	}
	if in.SphPadding != nil {
		if *in.SphPadding < 1 || *in.SphPadding > maxPadding {
			return apperror.Validation(op, "sph_padding must be between 1 and %d", maxPadding)
		}
		s.SphPadding = *in.SphPadding
	}
	if in.DefaultTaxRate != nil {
		if in.DefaultTaxRate.IsNegative() || in.DefaultTaxRate.GreaterThan(decimal.NewFromInt(100)) ||
			calculator.ExceedsPlaces(*in.DefaultTaxRate, calculator.PercentPlaces) {
			return apperror.Validation(op, "default_tax_rate must be between 0 and 100 with at most 2 decimal places")
		}
		s.DefaultTaxRate = *in.DefaultTaxRate
	}

	setString(&s.Currency, in.Currency)
	setString(&s.CompanyName, in.CompanyName)
	setString(&s.CompanyAddress, in.CompanyAddress)
	setString(&s.CompanyPhone, in.CompanyPhone)
	setString(&s.CompanyEmail, in.CompanyEmail)
	setString(&s.LogoURL, in.LogoURL)
	setString(&s.BankName, in.BankName)
	setString(&s.BankAccount, in.BankAccount)
	setString(&s.BankAccountName, in.BankAccountName)
	setString(&s.SignatureName, in.SignatureName)
	setString(&s.DefaultTerms, in.DefaultTerms)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
