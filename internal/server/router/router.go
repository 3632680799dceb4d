package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/billdesk/internal/server/handlers"
)

// New wires the Gin engine with the operator routes and middlewares.
func New(handler *handlers.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/session", handler.Session)
	r.POST("/session/login", handler.Login)
	r.POST("/session/logout", handler.Logout)

	r.GET("/onboarding", handler.Onboarding)
	r.POST("/onboarding", handler.Onboard)

	r.GET("/stores", handler.Stores)
	r.POST("/stores/select", handler.SelectStore)

	r.POST("/totals", handler.Totals)
	r.GET("/invoice-form", handler.InvoiceForm)
	r.GET("/purchase-form", handler.PurchaseForm)
	r.POST("/invoices", handler.SubmitInvoice)
	r.POST("/purchases", handler.SubmitPurchase)

	r.GET("/resources/:resource", handler.List)
	r.POST("/resources/:resource", handler.Create)
	r.DELETE("/resources/:resource/:id", handler.RequestDelete)

	r.GET("/deletions", handler.PendingDeletion)
	r.POST("/deletions/confirm", handler.ConfirmDelete)
	r.POST("/deletions/cancel", handler.CancelDelete)

	r.GET("/dashboard", handler.Dashboard)
	r.POST("/dashboard/snapshots", handler.SnapshotDashboard)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
