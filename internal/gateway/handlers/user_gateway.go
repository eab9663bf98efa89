package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/database/models"
	userhandler "invoicing-system/internal/services/user/handler"
)

type UserService interface {
	Register(ctx context.Context, in userhandler.RegisterInput) (*userhandler.AuthResult, error)
	Login(ctx context.Context, in userhandler.LoginInput) (*userhandler.AuthResult, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type UserHTTPHandler struct {
	responder
	users UserService
}

func NewUserHTTPHandler(users UserService, production bool) *UserHTTPHandler {
	return &UserHTTPHandler{
		responder: newResponder(production),
		users:     users,
	}
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req userhandler.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.users.Login(ctx, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("login successful", resp))
}

func (h *UserHTTPHandler) Register(c *gin.Context) {
	var req userhandler.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := h.users.Register(ctx, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("user registered successfully", resp))
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("User retrieved successfully", user))
}
