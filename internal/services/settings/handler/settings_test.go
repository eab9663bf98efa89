package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/dbtest"
	"invoicing-system/internal/database/models"
	"invoicing-system/internal/services/numbering"
)

func TestGetInitializesDefaults(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	h := NewSettingsHandler(db)

	settings, err := h.Get(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, user.ID, settings.UserID)
	assert.Equal(t, models.DefaultInvoicePrefix, settings.InvoicePrefix)
	assert.Equal(t, models.DefaultQuotationPrefix, settings.SphPrefix)
	assert.Equal(t, int64(1), settings.InvoiceNextNum)
	assert.True(t, settings.DefaultTaxRate.Equal(decimal.NewFromInt(11)))

	again, err := h.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Settings{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettingsAreScopedByUser(t *testing.T) {
	db := dbtest.New(t)
	alice := dbtest.CreateUser(t, db, "alice")
	bob := dbtest.CreateUser(t, db, "bob")
	h := NewSettingsHandler(db)

	prefix := "ALC-"
	_, err := h.Update(context.Background(), alice.ID, UpdateSettingsInput{InvoicePrefix: &prefix})
	require.NoError(t, err)

	bobs, err := h.Get(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultInvoicePrefix, bobs.InvoicePrefix)
}

func TestUpdate(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	h := NewSettingsHandler(db)

	prefix := "Q/{YYYY}/"
	next := int64(50)
	padding := 6
	tax := decimal.RequireFromString("12")
	company := "  PT Sinar Jaya  "

	settings, err := h.Update(context.Background(), user.ID, UpdateSettingsInput{
		SphPrefix:      &prefix,
		SphNextNum:     &next,
		SphPadding:     &padding,
		DefaultTaxRate: &tax,
		CompanyName:    &company,
	})
	require.NoError(t, err)

	assert.Equal(t, "Q/{YYYY}/", settings.SphPrefix)
	assert.Equal(t, int64(50), settings.SphNextNum)
	assert.Equal(t, 6, settings.SphPadding)
	assert.True(t, settings.DefaultTaxRate.Equal(tax))
	assert.Equal(t, "PT Sinar Jaya", settings.CompanyName)

	stored, err := h.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), stored.SphNextNum)
}

func TestUpdateValidation(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	h := NewSettingsHandler(db)

	empty := " "
	zero := 0
	backwards := int64(0)
	tax := decimal.NewFromInt(101)
	fineTax := decimal.RequireFromString("11.125")

	tests := []struct {
		name string
		in   UpdateSettingsInput
	}{
		{"empty prefix", UpdateSettingsInput{InvoicePrefix: &empty}},
		{"padding", UpdateSettingsInput{InvoicePadding: &zero}},
		{"counter backwards", UpdateSettingsInput{InvoiceNextNum: &backwards}},
		{"tax rate", UpdateSettingsInput{DefaultTaxRate: &tax}},
		{"tax rate precision", UpdateSettingsInput{DefaultTaxRate: &fineTax}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Update(context.Background(), user.ID, tt.in)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestReserveNumberAdvancesCounter(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	h := NewSettingsHandler(db)
	now := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	var numbers []string
	for i := 0; i < 3; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			settings, err := h.Lock(context.Background(), tx, user.ID)
			if err != nil {
				return err
			}
			number, err := h.ReserveNumber(context.Background(), tx, settings, numbering.SeriesInvoice, now, nil)
			numbers = append(numbers, number)
			return err
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"INV/2024/03/0001", "INV/2024/03/0002", "INV/2024/03/0003"}, numbers)

	settings, err := h.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), settings.InvoiceNextNum)
	assert.Equal(t, int64(1), settings.SphNextNum)
}

func TestReserveNumberRollsBackWithTransaction(t *testing.T) {
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	h := NewSettingsHandler(db)
	boom := errors.New("insert failed")

	err := db.Transaction(func(tx *gorm.DB) error {
		settings, err := h.Lock(context.Background(), tx, user.ID)
		if err != nil {
			return err
		}
		if _, err := h.ReserveNumber(context.Background(), tx, settings, numbering.SeriesQuotation, time.Now(), nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	settings, err := h.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), settings.SphNextNum)
}
