package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/database/models"
	"invoicing-system/internal/pdf"
	invoicehandler "invoicing-system/internal/services/invoice/handler"
	"invoicing-system/internal/services/pagination"
	quotationhandler "invoicing-system/internal/services/quotation/handler"
)

type QuotationService interface {
	Create(ctx context.Context, userID int64, in quotationhandler.CreateQuotationInput) (*models.Quotation, error)
	Update(ctx context.Context, userID, id int64, in quotationhandler.UpdateQuotationInput) (*models.Quotation, error)
	UpdateStatus(ctx context.Context, userID, id int64, status string) (*models.Quotation, error)
	Get(ctx context.Context, userID, id int64) (*models.Quotation, error)
	List(ctx context.Context, userID int64, q quotationhandler.ListQuotationsQuery) ([]models.Quotation, pagination.Meta, error)
	Delete(ctx context.Context, userID, id int64) error
}

// QuotationConverter issues invoices from quotations.
type QuotationConverter interface {
	CreateFromQuotation(ctx context.Context, userID, quotationID int64, in invoicehandler.ConvertInput) (*models.Invoice, error)
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type QuotationHTTPHandler struct {
	responder
	quotations QuotationService
	converter  QuotationConverter
	settings   SettingsService
	renderer   pdf.Renderer
}

func NewQuotationHTTPHandler(quotations QuotationService, converter QuotationConverter, settings SettingsService, renderer pdf.Renderer, production bool) *QuotationHTTPHandler {
	return &QuotationHTTPHandler{
		responder:  newResponder(production),
		quotations: quotations,
		converter:  converter,
		settings:   settings,
		renderer:   renderer,
	}
}

func (h *QuotationHTTPHandler) CreateQuotation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req quotationhandler.CreateQuotationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	quotation, err := h.quotations.Create(ctx, userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Quotation created successfully", quotation))
}

func (h *QuotationHTTPHandler) ListQuotations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var query quotationhandler.ListQuotationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	quotations, meta, err := h.quotations.List(ctx, userID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Quotations retrieved successfully", quotations, meta))
}

func (h *QuotationHTTPHandler) GetQuotation(c *gin.Context) {
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

	quotation, err := h.quotations.Get(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Quotation retrieved successfully", quotation))
}

func (h *QuotationHTTPHandler) UpdateQuotation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req quotationhandler.UpdateQuotationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	quotation, err := h.quotations.Update(ctx, userID, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Quotation updated successfully", quotation))
}

func (h *QuotationHTTPHandler) UpdateQuotationStatus(c *gin.Context) {
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

	quotation, err := h.quotations.UpdateStatus(ctx, userID, id, req.Status)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Quotation status updated successfully", quotation))
}

func (h *QuotationHTTPHandler) DeleteQuotation(c *gin.Context) {
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

	if err := h.quotations.Delete(ctx, userID, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Quotation deleted successfully", nil))
}

func (h *QuotationHTTPHandler) ConvertQuotation(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req invoicehandler.ConvertInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
			return
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	invoice, err := h.converter.CreateFromQuotation(ctx, userID, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Quotation converted to invoice successfully", invoice))
}

func (h *QuotationHTTPHandler) QuotationPDF(c *gin.Context) {
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

	quotation, err := h.quotations.Get(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	body, err := h.renderer.RenderPDF(pdf.QuotationInput(quotation, pdf.CompanyFromSettings(settings)))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	writePDF(c, quotation.QuotationNumber, body)
}
