package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/database/models"
	"invoicing-system/internal/pdf"
	invoicehandler "invoicing-system/internal/services/invoice/handler"
	"invoicing-system/internal/services/pagination"
)

type InvoiceService interface {
	Create(ctx context.Context, userID int64, in invoicehandler.CreateInvoiceInput) (*models.Invoice, error)
	Update(ctx context.Context, userID, id int64, in invoicehandler.UpdateInvoiceInput) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, userID, id int64, status string) (*models.Invoice, error)
	Get(ctx context.Context, userID, id int64) (*models.Invoice, error)
	List(ctx context.Context, userID int64, q invoicehandler.ListInvoicesQuery) ([]models.Invoice, pagination.Meta, error)
	Delete(ctx context.Context, userID, id int64) error
	AddPayment(ctx context.Context, userID, invoiceID int64, in invoicehandler.PaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, userID, invoiceID int64) ([]models.Payment, error)
}

type InvoiceHTTPHandler struct {
	responder
	invoices InvoiceService
	settings SettingsService
	renderer pdf.Renderer
}

func NewInvoiceHTTPHandler(invoices InvoiceService, settings SettingsService, renderer pdf.Renderer, production bool) *InvoiceHTTPHandler {
	return &InvoiceHTTPHandler{
		responder: newResponder(production),
		invoices:  invoices,
		settings:  settings,
		renderer:  renderer,
	}
}

func (h *InvoiceHTTPHandler) CreateInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req invoicehandler.CreateInvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.invoices.Create(ctx, userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Invoice created successfully", invoice))
}

func (h *InvoiceHTTPHandler) ListInvoices(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var query invoicehandler.ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoices, meta, err := h.invoices.List(ctx, userID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Invoices retrieved successfully", invoices, meta))
}

func (h *InvoiceHTTPHandler) GetInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.invoices.Get(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Invoice retrieved successfully", invoice))
}

func (h *InvoiceHTTPHandler) UpdateInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req invoicehandler.UpdateInvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.invoices.Update(ctx, userID, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Invoice updated successfully", invoice))
}

func (h *InvoiceHTTPHandler) UpdateInvoiceStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.invoices.UpdateStatus(ctx, userID, id, req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Invoice status updated successfully", invoice))
}

func (h *InvoiceHTTPHandler) DeleteInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.invoices.Delete(ctx, userID, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Invoice deleted successfully", nil))
}

// --- Payments ---

func (h *InvoiceHTTPHandler) AddPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req invoicehandler.PaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payment, err := h.invoices.AddPayment(ctx, userID, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Payment recorded successfully", payment))
}

func (h *InvoiceHTTPHandler) ListPayments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payments, err := h.invoices.ListPayments(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Payments retrieved successfully", payments))
}

func (h *InvoiceHTTPHandler) InvoicePDF(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.invoices.Get(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	body, err := h.renderer.RenderPDF(pdf.InvoiceInput(invoice, pdf.CompanyFromSettings(settings)))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	writePDF(c, invoice.InvoiceNumber, body)
}
