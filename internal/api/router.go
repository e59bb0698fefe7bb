package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/api/handlers"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/api/middleware"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, svc *service.Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Order Split & Inventory API",
			"endpoints": []string{
				"GET /health",
				"POST /webhooks/shopify/orders",
				"GET /v1/orders/:orderRef/splits",
				"GET /v1/splits/:id",
				"GET /v1/inventory",
				"POST /v1/sync/erp",
				"POST /v1/sync/storefront",
				"GET /v1/sync/status",
				"GET /v1/notifications",
			},
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Shopify order webhooks: mirror the order and split new ones
	webhooks := router.Group("/webhooks/shopify")
	webhooks.Use(middleware.IdempotencyMiddleware(repos, logger))
	{
		webhooks.POST("/orders", handlers.HandleShopifyOrderWebhook(cfg, repos, svc.Ingest, logger))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg.API, logger))
	{
		v1.GET("/orders/:orderRef/splits", handlers.HandleListOrderSplits(svc, logger))
		v1.POST("/orders/:orderRef/erp-push", handlers.HandlePushOrderToERP(svc, logger))

		splits := v1.Group("/splits/:id")
		{
			splits.GET("", handlers.HandleGetSplit(svc, logger))
			splits.GET("/timeline", handlers.HandleSplitTimeline(svc, logger))
			splits.POST("/confirm", handlers.HandleSplitTransition(svc.Lifecycle.Confirm, logger))
			splits.POST("/ready-for-pickup", handlers.HandleSplitTransition(svc.Lifecycle.ReadyForPickup, logger))
			splits.POST("/out-for-delivery", handlers.HandleSplitTransition(svc.Lifecycle.OutForDelivery, logger))
			splits.POST("/delivered", handlers.HandleSplitTransition(svc.Lifecycle.Delivered, logger))
			splits.POST("/cancel", handlers.HandleSplitTransition(svc.Lifecycle.Cancel, logger))
			splits.POST("/resume", handlers.HandleSplitTransition(svc.Lifecycle.Resume, logger))
			splits.POST("/on-hold", handlers.HandleSplitOnHold(svc, logger))
			splits.PATCH("/on-hold-status", handlers.HandleSplitOnHoldStatus(svc, logger))
			splits.POST("/admin-status", handlers.HandleSplitAdminStatus(svc, logger))
			splits.GET("/candidates", handlers.HandleSplitCandidates(svc, logger))
			splits.POST("/reassign", handlers.HandleSplitReassign(svc, logger))
			splits.POST("/reassign-backup", handlers.HandleSplitReassignBackup(svc, logger))
		}

		v1.GET("/inventory", handlers.HandleListInventory(svc, logger))
		v1.POST("/inventory/recompute", handlers.HandleRecomputeInventory(svc, logger))

		sync := v1.Group("/sync")
		{
			sync.POST("/erp", handlers.HandleTriggerErpSync(svc, logger))
			sync.POST("/storefront", handlers.HandleTriggerStorefrontSync(svc, logger))
			sync.GET("/status", handlers.HandleSyncStatus(svc, logger))
			sync.POST("/status/:id/dismiss", handlers.HandleDismissSyncStatus(svc, logger))
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", handlers.HandleListNotifications(svc, logger))
			notifications.POST("/read-all", handlers.HandleMarkAllNotificationsRead(svc, logger))
			notifications.POST("/:id/read", handlers.HandleMarkNotificationRead(svc, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
