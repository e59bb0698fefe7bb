package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/service"
)

// SplitResponse is the admin view of an order split
type SplitResponse struct {
	ID               string                           `json:"id"`
	OrderReferenceID string                           `json:"orderReferenceId"`
	OrderNumber      string                           `json:"orderNumber"`
	SplitID          string                           `json:"splitId"`
	StoreCode        string                           `json:"storeCode"`
	StoreName        string                           `json:"storeName"`
	ErpStoreID       int                              `json:"erpStoreId"`
	LineItems        []domain.SplitLineItem           `json:"lineItems"`
	OrderStatus      domain.SplitStatus               `json:"orderStatus"`
	StatusLabel      string                           `json:"statusLabel"`
	NextStatuses     []domain.SplitStatus             `json:"nextStatuses"`
	OnHoldStatus     *domain.OnHoldStatus             `json:"onHoldStatus,omitempty"`
	OnHoldComment    *string                          `json:"onHoldComment,omitempty"`
	ReAssignStatus   bool                             `json:"reAssignStatus"`
	TimeStamp        map[domain.SplitStatus]time.Time `json:"timeStamp"`
	TplMessage       *string                          `json:"tplMessage,omitempty"`
	TplTaskID        *string                          `json:"tplTaskId,omitempty"`
	RiderName        *string                          `json:"riderName,omitempty"`
	RiderContact     *string                          `json:"riderContact,omitempty"`
	ErpOrderID       *string                          `json:"erpOrderId,omitempty"`
	CreatedAt        string                           `json:"createdAt"`
	UpdatedAt        string                           `json:"updatedAt"`
}

func toSplitResponse(s *domain.OrderSplit) SplitResponse {
	return SplitResponse{
		ID:               s.ID.String(),
		OrderReferenceID: s.OrderReferenceID.String(),
		OrderNumber:      s.OrderNumber,
		SplitID:          s.SplitID,
		StoreCode:        s.StoreCode,
		StoreName:        s.StoreName,
		ErpStoreID:       s.ErpStoreID,
		LineItems:        s.LineItems,
		OrderStatus:      s.OrderStatus,
		StatusLabel:      s.OrderStatus.Label(),
		NextStatuses:     s.OrderStatus.NextStatuses(domain.PolicyStandard),
		OnHoldStatus:     s.OnHoldStatus,
		OnHoldComment:    s.OnHoldComment,
		ReAssignStatus:   s.ReAssignStatus,
		TimeStamp:        s.TimeStamp,
		TplMessage:       s.TplMessage,
		TplTaskID:        s.TplTaskID,
		RiderName:        s.RiderName,
		RiderContact:     s.RiderContact,
		ErpOrderID:       s.ErpOrderID,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        s.UpdatedAt.Format(time.RFC3339),
	}
}

func toSplitResponses(splits []*domain.OrderSplit) []SplitResponse {
	out := make([]SplitResponse, 0, len(splits))
	for _, s := range splits {
		out = append(out, toSplitResponse(s))
	}
	return out
}

// HandleListOrderSplits handles GET /v1/orders/:orderRef/splits
func HandleListOrderSplits(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef, ok := uuidParam(c, "orderRef")
		if !ok {
			return
		}
		splits, err := svc.Splits.ListSplits(c.Request.Context(), orderRef)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"splits": toSplitResponses(splits)})
	}
}

// HandleGetSplit handles GET /v1/splits/:id
func HandleGetSplit(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		split, err := svc.Splits.GetSplit(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

// HandleSplitTimeline handles GET /v1/splits/:id/timeline
func HandleSplitTimeline(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		groups, err := svc.Lifecycle.Timeline(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"timeline": groups})
	}
}

type splitAction func(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error)

// HandleSplitTransition handles the body-less status actions
// (confirm, ready-for-pickup, out-for-delivery, delivered, cancel, resume).
func HandleSplitTransition(action splitAction, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		split, err := action(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

// HandleSplitOnHold handles POST /v1/splits/:id/on-hold
func HandleSplitOnHold(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req service.OnHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		split, err := svc.Lifecycle.OnHold(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

type onHoldStatusRequest struct {
	OnHoldStatus domain.OnHoldStatus `json:"onHoldStatus"`
}

// HandleSplitOnHoldStatus handles PATCH /v1/splits/:id/on-hold-status
func HandleSplitOnHoldStatus(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req onHoldStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		split, err := svc.Lifecycle.UpdateOnHoldStatus(c.Request.Context(), id, req.OnHoldStatus)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

type adminStatusRequest struct {
	Status domain.SplitStatus `json:"status"`
}

// HandleSplitAdminStatus handles POST /v1/splits/:id/admin-status
func HandleSplitAdminStatus(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req adminStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		split, err := svc.Lifecycle.AdminSetStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

// HandleSplitCandidates handles GET /v1/splits/:id/candidates?sku=&productId=&quantity=
func HandleSplitCandidates(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quantity"})
			return
		}
		var productID int64
		if raw := c.Query("productId"); raw != "" {
			if productID, err = strconv.ParseInt(raw, 10, 64); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid productId"})
				return
			}
		}

		records, err := svc.Splits.Candidates(c.Request.Context(), id, c.Query("sku"), productID, quantity)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"candidates": toStockResponses(records)})
	}
}

// HandleSplitReassign handles POST /v1/splits/:id/reassign
func HandleSplitReassign(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		var req service.ReassignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
		splits, err := svc.Splits.Reassign(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"splits": toSplitResponses(splits)})
	}
}

// HandleSplitReassignBackup handles POST /v1/splits/:id/reassign-backup
func HandleSplitReassignBackup(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		split, err := svc.Splits.ReassignToBackup(c.Request.Context(), id)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toSplitResponse(split))
	}
}

// HandlePushOrderToERP handles POST /v1/orders/:orderRef/erp-push
func HandlePushOrderToERP(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderRef, ok := uuidParam(c, "orderRef")
		if !ok {
			return
		}
		results, err := svc.ErpPush.PushOrder(c.Request.Context(), orderRef)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"salesOrders": results})
	}
}
