package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/trade-invoices/config"
	"github.com/yourusername/trade-invoices/invoicing"
	"github.com/yourusername/trade-invoices/lock"
	"github.com/yourusername/trade-invoices/logger"
	"github.com/yourusername/trade-invoices/middleware"
	"gorm.io/gorm"
)

const serviceName = "trade-invoices-api"

// NewRouter wires every API route.
func NewRouter(db *gorm.DB, cfg *config.Config, locks lock.ActionLock) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger.WithComponent("http")))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": serviceName,
		})
	})

	api := router.Group("/api/v1")
	{
		authHandler := NewAuthHandler(db, cfg)
		api.POST("/auth/refresh", authHandler.Refresh)

		invoiceHandler := NewInvoiceHandler(db, cfg, locks)
		invoices := api.Group("/invoices")
		invoices.Use(middleware.JwtAuthMiddleware(cfg))

		view := middleware.RequireCapability(invoicing.CapabilityView)
		invoices.GET("", view, invoiceHandler.ListInvoices)
		invoices.GET("/:id", view, invoiceHandler.GetInvoice)
		invoices.GET("/:id/coverage", view, invoiceHandler.GetCoverage)

		invoices.POST("", middleware.RequireCapability(invoicing.CapabilityCreate), invoiceHandler.CreateInvoice)
		invoices.PUT("/:id", middleware.RequireCapability(invoicing.CapabilityEdit), invoiceHandler.UpdateInvoice)
		invoices.POST("/:id/issue", middleware.RequireCapability(invoicing.CapabilityIssue), invoiceHandler.IssueInvoice)
		invoices.POST("/:id/cancel", middleware.RequireCapability(invoicing.CapabilityCancel), invoiceHandler.CancelInvoice)
		invoices.POST("/:id/payments", middleware.RequireCapability(invoicing.CapabilityReconcile), invoiceHandler.RecordPayment)
	}

	return router
}
