package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/api/middleware"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

func verifyShopifyHMAC(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	// constant-time compare
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(header)))
}

// OrderIngester mirrors a Shopify order and splits it when new.
type OrderIngester interface {
	Ingest(ctx context.Context, p *service.ShopifyOrderPayload) (*service.IngestResult, error)
}

// HandleShopifyOrderWebhook handles POST /webhooks/shopify/orders.
// Configure Shopify webhook topics:
// - orders/create
// - orders/updated
// The order is mirrored and, when new, split to its preferred store.
// Processing failures still answer 200 so Shopify does not retry forever;
// they are visible in the notification log.
func HandleShopifyOrderWebhook(cfg *config.Config, repos *repository.Repositories, ingester OrderIngester, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(cfg.Shopify.WebhookSecret)
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shopify webhook not configured"})
			return
		}

		// Shopify HMAC is computed over raw bytes
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		if !verifyShopifyHMAC(secret, bodyBytes, c.GetHeader("X-Shopify-Hmac-Sha256")) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}

		var payload service.ShopifyOrderPayload
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON", "details": err.Error()})
			return
		}

		topic := c.GetHeader("X-Shopify-Topic")
		result, err := ingester.Ingest(c.Request.Context(), &payload)
		if err != nil {
			var verr *errors.ErrValidation
			if stderrors.As(err, &verr) {
				logger.Warn("Shopify webhook: order ignored", zap.Int64("shopify_order_id", payload.ID), zap.Error(err))
				c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ignored", "message": err.Error()})
				return
			}
			logger.Error("Shopify webhook: order ingest failed", zap.Int64("shopify_order_id", payload.ID), zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"ok": true, "status": "error", "message": "order ingest failed"})
			return
		}

		// failed deliveries keep no key so a replay retries the split
		storeWebhookKey(c, repos, result.Order.ID, logger)

		status := "updated"
		if result.Created {
			status = "created"
		}
		splitIDs := make([]string, 0, len(result.Splits))
		for _, s := range result.Splits {
			splitIDs = append(splitIDs, s.SplitID)
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":           true,
			"status":       status,
			"order_number": result.Order.OrderNumber,
			"splits":       splitIDs,
			"topic":        topic,
		})
	}
}

// storeWebhookKey records the delivery id set by the idempotency middleware.
func storeWebhookKey(c *gin.Context, repos *repository.Repositories, orderID uuid.UUID, logger *zap.Logger) {
	key, requestHash, isDuplicate := middleware.GetIdempotencyInfo(c)
	if key == "" || isDuplicate {
		return
	}
	if err := repos.IdempotencyKey.Create(c.Request.Context(), &domain.IdempotencyKey{
		Key:              key,
		OrderReferenceID: orderID,
		RequestHash:      requestHash,
	}); err != nil {
		logger.Warn("Failed to store webhook idempotency key", zap.String("key", key), zap.Error(err))
	}
}
