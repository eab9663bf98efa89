package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicing-system/internal/gateway/middleware"
	"invoicing-system/internal/logger"
)

const requestTimeout = 10 * time.Second

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// responder turns service errors into HTTP responses. In production internal
// failures are reported with a generic message.
type responder struct {
	production bool
	log        zerolog.Logger
}

func newResponder(production bool) responder {
	return responder{production: production, log: logger.WithComponent("gateway")}
}

func (r responder) handleServiceError(c *gin.Context, err error) {
	s, ok := status.FromError(err)
	if !ok {
		s = status.New(codes.Unknown, err.Error())
	}

	switch s.Code() {
	case codes.InvalidArgument, codes.FailedPrecondition:
		c.JSON(http.StatusBadRequest, errorResponse(s.Message()))
	case codes.NotFound:
		c.JSON(http.StatusNotFound, errorResponse(s.Message()))
	case codes.Unauthenticated:
		c.JSON(http.StatusUnauthorized, errorResponse(s.Message()))
	case codes.AlreadyExists:
		c.JSON(http.StatusConflict, errorResponse(s.Message()))
	case codes.DeadlineExceeded:
		c.JSON(http.StatusGatewayTimeout, errorResponse("Request timed out"))
	default:
		requestID, _ := c.Get("request_id")
		r.log.Error().
			Err(err).
			Interface("request_id", requestID).
			Str("path", c.FullPath()).
			Msg("request failed")

		message := "Internal server error"
		if !r.production {
			message = err.Error()
		}
		c.JSON(http.StatusInternalServerError, errorResponse(message))
	}
	_ = c.Error(err)
	c.Abort()
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("Authentication required"))
		c.Abort()
	}
	return id, ok
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid "+name))
		c.Abort()
		return 0, false
	}
	return id, true
}
