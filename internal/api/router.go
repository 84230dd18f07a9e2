package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inference-billing-ledger/internal/api/handler"
	"github.com/inference-billing-ledger/internal/api/middleware"
	"github.com/inference-billing-ledger/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	authRequired gin.HandlerFunc,
	accountHandler *handler.AccountHandler,
	billingHandler *handler.BillingHandler,
	predictHandler *handler.PredictHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Middleware())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Credential operations, open to unauthenticated callers
		auth := v1.Group("/auth")
		{
			auth.POST("/register", accountHandler.Register)
			auth.POST("/login", accountHandler.Login)
		}

		// Everything below acts on the token's account
		authed := v1.Group("")
		authed.Use(authRequired)
		{
			authed.GET("/me", accountHandler.Me)
			authed.POST("/plan", accountHandler.ChangeTier)
			authed.POST("/topup", billingHandler.TopUp)
			authed.GET("/transactions", billingHandler.ListTransactions)
			authed.POST("/predict", predictHandler.Predict)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
