package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

// HandleListNotifications handles GET /v1/notifications?limit=&offset=
func HandleListNotifications(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		page, err := svc.Notifications.List(c.Request.Context(), limit, offset)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notifications": toNotificationResponses(page.Entries),
			"unreadCount":   page.UnreadCount,
			"limit":         limit,
			"offset":        offset,
		})
	}
}

// HandleMarkNotificationRead handles POST /v1/notifications/:id/read
func HandleMarkNotificationRead(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		if err := svc.Notifications.MarkRead(c.Request.Context(), id); err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// HandleMarkAllNotificationsRead handles POST /v1/notifications/read-all
func HandleMarkAllNotificationsRead(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.Notifications.MarkAllRead(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "updated": n})
	}
}
