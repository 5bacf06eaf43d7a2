package app

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"pos/internal/handler"
	"pos/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler *handler.PaymentHandler
	WebhookHandler *handler.WebhookHandler
	PageHandler    *handler.PageHandler
	// IdempotencyStore enables response replay for Idempotency-Key requests. Optional.
	IdempotencyStore middleware.ResponseStore
	NewRelicApp      *newrelic.Application
	Logger           *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		metrics.WritePrometheus(c.Writer, true)
	})

	// Pages.
	router.GET("/", deps.PageHandler.Index)
	router.GET("/pos", deps.PageHandler.POS)
	router.GET("/pos.html", deps.PageHandler.POS)
	router.NoRoute(deps.PageHandler.NotFound)

	// The webhook reads the raw body, so it stays outside the idempotency group.
	router.POST("/webhook", deps.WebhookHandler.HandleWebhook)

	// Payment routes.
	payments := router.Group("")
	if deps.IdempotencyStore != nil {
		payments.Use(middleware.IdempotencyMiddleware(deps.IdempotencyStore, deps.Logger))
	}
	{
		payments.POST("/create-payment-intent", deps.PaymentHandler.CreatePaymentIntent)
		payments.POST("/process-on-reader", deps.PaymentHandler.ProcessOnReader)
		payments.POST("/cancel-payment", deps.PaymentHandler.CancelPayment)
	}

	return router
}
