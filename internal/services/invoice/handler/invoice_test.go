package handler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"invoicing-system/internal/apperror"
	"invoicing-system/internal/database/dbtest"
	"invoicing-system/internal/database/models"
	"invoicing-system/internal/events"
	"invoicing-system/internal/services/calculator"
	"invoicing-system/internal/services/document"
	quotationhandler "invoicing-system/internal/services/quotation/handler"
	settingshandler "invoicing-system/internal/services/settings/handler"
)

var march5 = time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	h        *InvoiceHandler
	settings *settingshandler.SettingsHandler
	events   *events.Recorder
	user     models.User
	client   models.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	user := dbtest.CreateUser(t, db, "rina")
	settings := settingshandler.NewSettingsHandler(db)
	rec := &events.Recorder{}

	h := NewInvoiceHandler(db, settings, rec)
	h.now = func() time.Time { return march5 }

	return fixture{
		db:       db,
		h:        h,
		settings: settings,
		events:   rec,
		user:     user,
		client:   dbtest.CreateClient(t, db, user.ID, "Budi"),
	}
}

func item(desc string, qty, price int64) calculator.LineItem {
	return calculator.LineItem{
		Description: desc,
		Quantity:    decimal.NewFromInt(qty),
		Unit:        "pcs",
		UnitPrice:   decimal.NewFromInt(price),
	}
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func assertDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

// untaxed creates an invoice whose total equals price.
func (f fixture) untaxed(t *testing.T, price int64) *models.Invoice {
	t.Helper()
	inv, err := f.h.Create(context.Background(), f.user.ID, CreateInvoiceInput{
		ClientID: f.client.ID,
		Fields: document.Fields{
			TaxRate: dec(0),
			Items:   []calculator.LineItem{item("Jasa", 1, price)},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	due := document.Date{Time: time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)}

	inv, err := f.h.Create(context.Background(), f.user.ID, CreateInvoiceInput{
		ClientID: f.client.ID,
		DueDate:  &due,
		Fields: document.Fields{
			Discount: dec(10),
			Items:    []calculator.LineItem{item("Kabel", 2, 50000), item("Instalasi", 1, 100000)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "INV/2024/03/0001", inv.InvoiceNumber)
	assert.Equal(t, models.StatusDraft, inv.Status)
	assert.Equal(t, due.Time, inv.DueDate.UTC())
	assertDecimal(t, 200000, inv.Subtotal)
	assertDecimal(t, 20000, inv.DiscountAmount)
	assertDecimal(t, 19800, inv.TaxAmount)
	assertDecimal(t, 199800, inv.Total)
	assertDecimal(t, 0, inv.AmountPaid)
	require.Len(t, inv.Items, 2)

	second := f.untaxed(t, 1000)
	assert.Equal(t, "INV/2024/03/0002", second.InvoiceNumber)

	settings, err := f.settings.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), settings.InvoiceNextNum)
	assert.Equal(t, int64(1), settings.SphNextNum)
	assert.Equal(t, []string{events.InvoiceCreated, events.InvoiceCreated}, f.events.Types())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.h.Create(context.Background(), f.user.ID, CreateInvoiceInput{ClientID: f.client.ID})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.h.Create(context.Background(), f.user.ID, CreateInvoiceInput{
		ClientID: 404,
		Fields:   document.Fields{Items: []calculator.LineItem{item("Jasa", 1, 1000)}},
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	settings, err := f.settings.Get(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), settings.InvoiceNextNum)
}

func TestPaymentsDeriveStatus(t *testing.T) {
	f := newFixture(t)
	inv := f.untaxed(t, 100000)
	assertDecimal(t, 100000, inv.Total)

	_, err := f.h.AddPayment(context.Background(), f.user.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(40000), Method: "transfer"})
	require.NoError(t, err)

	got, err := f.h.Get(context.Background(), f.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, got.Status)
	assertDecimal(t, 40000, got.AmountPaid)

	payment, err := f.h.AddPayment(context.Background(), f.user.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(60000)})
	require.NoError(t, err)
	assert.Equal(t, inv.ID, payment.InvoiceID)
	assert.Equal(t, march5, payment.PaymentDate)

	got, err = f.h.Get(context.Background(), f.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	assertDecimal(t, 100000, got.AmountPaid)
	assert.Len(t, got.Payments, 2)

	payments, err := f.h.ListPayments(context.Background(), f.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	assert.Equal(t, []string{events.InvoiceCreated, events.PaymentRecorded, events.PaymentRecorded}, f.events.Types())
}

func TestPaymentOverridesExplicitStatus(t *testing.T) {
	f := newFixture(t)
	inv := f.untaxed(t, 100000)

	_, err := f.h.UpdateStatus(context.Background(), f.user.ID, inv.ID, models.StatusOverdue)
	require.NoError(t, err)

	_, err = f.h.AddPayment(context.Background(), f.user.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(1)})
	require.NoError(t, err)

	got, err := f.h.Get(context.Background(), f.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, got.Status)
}

func TestAddPaymentRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	inv := f.untaxed(t, 100000)
	other := dbtest.CreateUser(t, f.db, "bob")

	for _, amount := range []int64{0, -5} {
		_, err := f.h.AddPayment(context.Background(), f.user.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(amount)})
		assert.ErrorIs(t, err, apperror.ErrInvalidPayment)
	}

	_, err := f.h.AddPayment(context.Background(), other.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.h.ListPayments(context.Background(), other.ID, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStatusForPayments(t *testing.T) {
	total := decimal.NewFromInt(100)
	tests := []struct {
		paid int64
		want string
	}{
		{0, models.StatusSent},
		{1, models.StatusPartial},
		{99, models.StatusPartial},
		{100, models.StatusPaid},
		{150, models.StatusPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForPayments(models.StatusSent, decimal.NewFromInt(tt.paid), total), "paid %d", tt.paid)
	}
}

func TestUpdateRecomputesFromStoredPercent(t *testing.T) {
	f := newFixture(t)
	inv, err := f.h.Create(context.Background(), f.user.ID, CreateInvoiceInput{
		ClientID: f.client.ID,
		Fields: document.Fields{
			Discount: dec(10),
			Items:    []calculator.LineItem{item("Kabel", 2, 50000), item("Instalasi", 1, 100000)},
		},
	})
	require.NoError(t, err)

	got, err := f.h.Update(context.Background(), f.user.ID, inv.ID, UpdateInvoiceInput{
		Fields: document.Fields{Items: []calculator.LineItem{item("Kabel", 1, 100000)}},
	})
	require.NoError(t, err)

	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assertDecimal(t, 10, got.DiscountPercent)
	assertDecimal(t, 10000, got.DiscountAmount)
	assertDecimal(t, 99900, got.Total)
	require.Len(t, got.Items, 1)

	same, err := f.h.Update(context.Background(), f.user.ID, inv.ID, UpdateInvoiceInput{
		Fields: document.Fields{Items: []calculator.LineItem{item("Kabel", 1, 100000)}},
	})
	require.NoError(t, err)
	assert.True(t, same.Total.Equal(got.Total))
	assert.True(t, same.DiscountAmount.Equal(got.DiscountAmount))
}

func TestCreateFromQuotation(t *testing.T) {
	f := newFixture(t)
	quotations := quotationhandler.NewQuotationHandler(f.db, f.settings, f.events)
	q, err := quotations.Create(context.Background(), f.user.ID, quotationhandler.CreateQuotationInput{
		ClientID: f.client.ID,
		Fields: document.Fields{
			Discount: dec(10),
			TaxRate:  dec(11),
			Items:    []calculator.LineItem{item("Kabel", 2, 50000), item("Instalasi", 1, 100000)},
		},
	})
	require.NoError(t, err)

	inv, err := f.h.CreateFromQuotation(context.Background(), f.user.ID, q.ID, ConvertInput{})
	require.NoError(t, err)

	assert.Equal(t, "INV/2024/03/0001", inv.InvoiceNumber)
	require.NotNil(t, inv.QuotationID)
	assert.Equal(t, q.ID, *inv.QuotationID)
	assert.Equal(t, q.ClientID, inv.ClientID)
	assertDecimal(t, 10, inv.DiscountPercent)
	assert.True(t, inv.Total.Equal(q.Total))
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Kabel", inv.Items[0].Description)

	accepted, err := quotations.Get(context.Background(), f.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Status)

	assert.Contains(t, f.events.Types(), events.QuotationConverted)

	_, err = f.h.CreateFromQuotation(context.Background(), f.user.ID, 9999, ConvertInput{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	inv := f.untaxed(t, 100000)
	_, err := f.h.AddPayment(context.Background(), f.user.ID, inv.ID, PaymentInput{Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	require.NoError(t, f.h.Delete(context.Background(), f.user.ID, inv.ID))

	_, err = f.h.Get(context.Background(), f.user.ID, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	var items, payments int64
	require.NoError(t, f.db.Model(&models.InvoiceItem{}).Count(&items).Error)
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, items)
	assert.Zero(t, payments)

	next := f.untaxed(t, 1000)
	assert.Equal(t, "INV/2024/03/0002", next.InvoiceNumber)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.untaxed(t, 1000)
	paid := f.untaxed(t, 2000)
	_, err := f.h.AddPayment(context.Background(), f.user.ID, paid.ID, PaymentInput{Amount: decimal.NewFromInt(2000)})
	require.NoError(t, err)

	all, meta, err := f.h.List(context.Background(), f.user.ID, ListInvoicesQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(2), meta.TotalCount)

	byStatus, _, err := f.h.List(context.Background(), f.user.ID, ListInvoicesQuery{Status: models.StatusPaid})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, paid.ID, byStatus[0].ID)

	_, _, err = f.h.List(context.Background(), f.user.ID, ListInvoicesQuery{Status: models.StatusAccepted})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
