package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// respondError maps typed service errors to HTTP responses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		notFound     *errors.ErrNotFound
		validation   *errors.ErrValidation
		noInventory  *errors.ErrNoInventory
		transition   *errors.ErrInvalidStateTransition
		onHold       *errors.ErrInvalidOnHoldTransition
		backup       *errors.ErrBackupWarehouse
		inProgress   *errors.ErrSyncInProgress
		conflict     *errors.ErrConflict
		splitMissing *errors.ErrSplitMissing
		unauthorized *errors.ErrUnauthorized
		external     *errors.ErrExternal
	)
	switch {
	case stderrors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case stderrors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validation.Error(), "fields": validation.Fields})
	case stderrors.As(err, &noInventory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  noInventory.Error(),
			"fields": gin.H{"sku": noInventory.SKU, "quantity": noInventory.Quantity},
		})
	case stderrors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error(), "from": transition.From, "to": transition.To})
	case stderrors.As(err, &onHold):
		c.JSON(http.StatusConflict, gin.H{"error": onHold.Error()})
	case stderrors.As(err, &backup):
		c.JSON(http.StatusConflict, gin.H{"error": backup.Error(), "count": backup.Count})
	case stderrors.As(err, &inProgress):
		c.JSON(http.StatusConflict, gin.H{"error": inProgress.Error()})
	case stderrors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case stderrors.As(err, &splitMissing):
		c.JSON(http.StatusConflict, gin.H{"error": splitMissing.Error()})
	case stderrors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": unauthorized.Error()})
	case stderrors.As(err, &external):
		logger.Error("External system error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": external.Error()})
	default:
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// uuidParam parses a UUID path parameter, writing a 400 when it is malformed.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
