package main

import (
	"github.com/gin-gonic/gin"

	"invoicing-system/internal/gateway/handlers"
	"invoicing-system/internal/gateway/middleware"
)

type routerDeps struct {
	rateLimit string
	tokens    middleware.TokenVerifier

	users      *handlers.UserHTTPHandler
	clients    *handlers.ClientHTTPHandler
	settings   *handlers.SettingsHTTPHandler
	quotations *handlers.QuotationHTTPHandler
	invoices   *handlers.InvoiceHTTPHandler
	health     *handlers.HealthHTTPHandler
}

func newRouter(d routerDeps) (*gin.Engine, error) {
	r := gin.New()

	r.Use(middleware.RequestLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())

	rateLimit, err := middleware.RateLimit(d.rateLimit)
	if err != nil {
		return nil, err
	}

	// --- Public API Group ---
	public := r.Group("/api/v1")
	public.Use(rateLimit)
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", d.users.Login)
			auth.POST("/register", d.users.Register)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(rateLimit, middleware.JWTAuth(d.tokens))
	{
		protected.GET("/auth/me", d.users.Me)

		clients := protected.Group("/clients")
		{
			clients.POST("", d.clients.CreateClient)
			clients.GET("", d.clients.ListClients)
			clients.GET("/:id", d.clients.GetClient)
			clients.PUT("/:id", d.clients.UpdateClient)
			clients.DELETE("/:id", d.clients.DeleteClient)
		}

		quotations := protected.Group("/quotations")
		{
			quotations.POST("", d.quotations.CreateQuotation)
			quotations.GET("", d.quotations.ListQuotations)
			quotations.GET("/:id", d.quotations.GetQuotation)
			quotations.PUT("/:id", d.quotations.UpdateQuotation)
			quotations.PATCH("/:id/status", d.quotations.UpdateQuotationStatus)
			quotations.DELETE("/:id", d.quotations.DeleteQuotation)
			quotations.POST("/:id/convert", d.quotations.ConvertQuotation)
			quotations.GET("/:id/pdf", d.quotations.QuotationPDF)
		}

		invoices := protected.Group("/invoices")
		{
			invoices.POST("", d.invoices.CreateInvoice)
			invoices.GET("", d.invoices.ListInvoices)
			invoices.GET("/:id", d.invoices.GetInvoice)
			invoices.PUT("/:id", d.invoices.UpdateInvoice)
			invoices.PATCH("/:id/status", d.invoices.UpdateInvoiceStatus)
			invoices.DELETE("/:id", d.invoices.DeleteInvoice)
			invoices.POST("/:id/payments", d.invoices.AddPayment)
			invoices.GET("/:id/payments", d.invoices.ListPayments)
			invoices.GET("/:id/pdf", d.invoices.InvoicePDF)
		}

		settings := protected.Group("/settings")
		{
			settings.GET("", d.settings.GetSettings)
			settings.PUT("", d.settings.UpdateSettings)
		}
	}

	r.GET("/health", d.health.Health)
	r.GET("/health/detailed", d.health.DetailedHealth)

	return r, nil
}
