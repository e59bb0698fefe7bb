package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ShopifyWebhookHeader = "X-Shopify-Webhook-Id"
)

const (
	ctxIdempotencyKey  = "idempotency_key"
	ctxRequestHash     = "idempotency_request_hash"
	ctxIdempotencyUsed = "idempotency_key_used"
)

// IdempotencyMiddleware short-circuits deliveries that were already processed.
// The key comes from X-Shopify-Webhook-Id, or Idempotency-Key for manual replays.
// Handlers store the key once processing succeeded.
func IdempotencyMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(ShopifyWebhookHeader)
		if idempotencyKey == "" {
			idempotencyKey = c.GetHeader(IdempotencyKeyHeader)
		}
		if idempotencyKey == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("Failed to read request body for idempotency", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request"})
			c.Abort()
			return
		}

		// Restore body for handler
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		existingKey, err := repos.IdempotencyKey.GetByKey(c.Request.Context(), idempotencyKey)
		if err != nil {
			logger.Error("Failed to check idempotency key", zap.Error(err))
			c.Next()
			return
		}

		if existingKey != nil {
			if existingKey.RequestHash != requestHash {
				c.JSON(http.StatusConflict, gin.H{
					"error": "idempotency key conflict: same key used with different payload",
				})
				c.Abort()
				return
			}

			logger.Info("Duplicate delivery skipped", zap.String("key", idempotencyKey))
			c.Set(ctxIdempotencyUsed, true)
			c.JSON(http.StatusOK, gin.H{
				"ok":                 true,
				"status":             "duplicate",
				"order_reference_id": existingKey.OrderReferenceID.String(),
			})
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, idempotencyKey)
		c.Set(ctxRequestHash, requestHash)
		c.Next()
	}
}

// GetIdempotencyInfo retrieves idempotency information from context
func GetIdempotencyInfo(c *gin.Context) (key string, requestHash string, isDuplicate bool) {
	if used, exists := c.Get(ctxIdempotencyUsed); exists {
		if b, ok := used.(bool); ok && b {
			return "", "", true
		}
	}

	keyVal, _ := c.Get(ctxIdempotencyKey)
	hashVal, _ := c.Get(ctxRequestHash)

	key, _ = keyVal.(string)
	requestHash, _ = hashVal.(string)

	return key, requestHash, false
}
