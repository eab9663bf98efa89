package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/database/models"
	settingshandler "invoicing-system/internal/services/settings/handler"
)

type SettingsService interface {
	Get(ctx context.Context, userID int64) (*models.Settings, error)
	Update(ctx context.Context, userID int64, in settingshandler.UpdateSettingsInput) (*models.Settings, error)
}

type SettingsHTTPHandler struct {
	responder
	settings SettingsService
}

func NewSettingsHTTPHandler(settings SettingsService, production bool) *SettingsHTTPHandler {
	return &SettingsHTTPHandler{
		responder: newResponder(production),
		settings:  settings,
	}
}

func (h *SettingsHTTPHandler) GetSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	settings, err := h.settings.Get(ctx, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Settings retrieved successfully", settings))
}

func (h *SettingsHTTPHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req settingshandler.UpdateSettingsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	settings, err := h.settings.Update(ctx, userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Settings updated successfully", settings))
}
