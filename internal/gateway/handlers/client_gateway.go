package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/database/models"
	clienthandler "invoicing-system/internal/services/client/handler"
	"invoicing-system/internal/services/pagination"
)

type ClientService interface {
	Create(ctx context.Context, userID int64, in clienthandler.ClientInput) (*models.Client, error)
	Get(ctx context.Context, userID, id int64) (*models.Client, error)
	List(ctx context.Context, userID int64, q clienthandler.ListClientsQuery) ([]models.Client, pagination.Meta, error)
	Update(ctx context.Context, userID, id int64, in clienthandler.ClientInput) (*models.Client, error)
	Delete(ctx context.Context, userID, id int64) error
}

type ClientHTTPHandler struct {
	responder
	clients ClientService
}

func NewClientHTTPHandler(clients ClientService, production bool) *ClientHTTPHandler {
	return &ClientHTTPHandler{
		responder: newResponder(production),
		clients:   clients,
	}
}

func (h *ClientHTTPHandler) CreateClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req clienthandler.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := h.clients.Create(ctx, userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Client created successfully", client))
}

func (h *ClientHTTPHandler) ListClients(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var query clienthandler.ListClientsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	clients, meta, err := h.clients.List(ctx, userID, query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Clients retrieved successfully", clients, meta))
}

func (h *ClientHTTPHandler) GetClient(c *gin.Context) {
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

	client, err := h.clients.Get(ctx, userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client retrieved successfully", client))
}

func (h *ClientHTTPHandler) UpdateClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req clienthandler.ClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	client, err := h.clients.Update(ctx, userID, id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client updated successfully", client))
}

func (h *ClientHTTPHandler) DeleteClient(c *gin.Context) {
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

	if err := h.clients.Delete(ctx, userID, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client deleted successfully", nil))
}
