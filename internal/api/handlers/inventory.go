package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// StockResponse is one row of the inventory page
type StockResponse struct {
	SKU          string `json:"sku"`
	OutletID     int    `json:"outletId"`
	ProductID    int64  `json:"productId"`
	VariantID    int64  `json:"variantId"`
	PrimaryStock int    `json:"primaryStock"`
	BackUpStock  int    `json:"backUpStock"`
	HybridStock  int    `json:"hybridStock"`
	UpdatedAt    string `json:"updatedAt"`
}

func toStockResponses(records []*domain.HybridStockRecord) []StockResponse {
	out := make([]StockResponse, 0, len(records))
	for _, r := range records {
		out = append(out, StockResponse{
			SKU:          r.SKU,
			OutletID:     r.OutletID,
			ProductID:    r.ProductID,
			VariantID:    r.VariantID,
			PrimaryStock: r.PrimaryStock,
			BackUpStock:  r.BackUpStock,
			HybridStock:  r.HybridStock,
			UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// pagination reads limit/offset query parameters with bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// HandleListInventory handles GET /v1/inventory?sku=&outletId=&limit=&offset=
func HandleListInventory(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		filter := repository.HybridStockFilter{
			SKU:    c.Query("sku"),
			Limit:  limit,
			Offset: offset,
		}
		if raw := c.Query("outletId"); raw != "" {
			outletID, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid outletId"})
				return
			}
			filter.OutletID = outletID
		}

		records, total, err := svc.HybridStock.List(c.Request.Context(), filter)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"items":  toStockResponses(records),
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// HandleRecomputeInventory handles POST /v1/inventory/recompute
func HandleRecomputeInventory(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.HybridStock.RecomputeAll(c.Request.Context())
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "records": n})
	}
}
