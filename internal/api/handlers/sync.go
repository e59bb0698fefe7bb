package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

const recentRunsLimit = 10

// HandleTriggerErpSync handles POST /v1/sync/erp?mode=incremental|full&outletId=
// The sync keeps running when the caller disconnects; the lease bounds it.
func HandleTriggerErpSync(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())

		switch mode := c.DefaultQuery("mode", "incremental"); mode {
		case "incremental":
			var outletID int
			if raw := c.Query("outletId"); raw != "" {
				n, err := strconv.Atoi(raw)
				if err != nil || n <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outletId"})
					return
				}
				outletID = n
			}
			result, err := svc.ErpSync.SyncIncremental(ctx, outletID)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"mode": mode, "result": result})
		case "full":
			result, err := svc.ErpSync.SyncFull(ctx)
			if err != nil {
				respondError(c, logger, err)
				return
			}
			status := http.StatusOK
			if !result.Success {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"mode": mode, "result": result})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be incremental or full"})
		}
	}
}

// HandleTriggerStorefrontSync handles POST /v1/sync/storefront
func HandleTriggerStorefrontSync(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Storefront.Run(context.WithoutCancel(c.Request.Context()))
		if err != nil && status == nil {
			respondError(c, logger, err)
			return
		}
		if err != nil {
			logger.Warn("Storefront sync finished with failure", zap.String("sync_id", status.ID.String()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "status": toSyncStatusResponse(status)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": toSyncStatusResponse(status)})
	}
}

// HandleSyncStatus handles GET /v1/sync/status
func HandleSyncStatus(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		latest, err := svc.Storefront.Latest(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		recent, err := svc.Storefront.ListRecent(c.Request.Context(), recentRunsLimit)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		resp := gin.H{"latest": nil, "recent": toSyncStatusResponses(recent)}
		if latest != nil {
			resp["latest"] = toSyncStatusResponse(latest)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleDismissSyncStatus handles POST /v1/sync/status/:id/dismiss
func HandleDismissSyncStatus(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		status, err := svc.Storefront.Dismiss(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": toSyncStatusResponse(status)})
	}
}
