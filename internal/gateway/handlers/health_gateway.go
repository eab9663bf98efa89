package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"invoicing-system/internal/health"
)

type HealthChecker interface {
	Run(ctx context.Context) health.Report
}

type HealthHTTPHandler struct {
	checker HealthChecker
}

func NewHealthHTTPHandler(checker HealthChecker) *HealthHTTPHandler {
	return &HealthHTTPHandler{checker: checker}
}

func (h *HealthHTTPHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	report := h.checker.Run(ctx)

	unavailable := []string{}
	for name, s := range report.Services {
		if s.Status != health.StatusHealthy {
			unavailable = append(unavailable, name)
		}
	}

	httpStatus := http.StatusOK
	if !report.Healthy() {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":               report.OverallStatus,
		"message":              "Server is running",
		"unavailable_services": unavailable,
		"timestamp":            report.Timestamp,
	})
}

func (h *HealthHTTPHandler) DetailedHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	c.JSON(http.StatusOK, h.checker.Run(ctx))
}
