package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	xdb := wrapSqlx(db)
	return &repository.Repositories{
		Store:             NewStoreRepository(db, logger),
		ErpItem:           NewErpItemRepository(xdb, logger),
		HybridStock:       NewHybridStockRepository(xdb, logger),
		StorefrontVariant: NewStorefrontVariantRepository(db, logger),
		Order:             NewOrderRepository(db, logger),
		OrderSplit:        NewOrderSplitRepository(db, logger),
		SyncStatus:        NewSyncStatusRepository(db, logger),
		NotificationLog:   NewNotificationLogRepository(db, logger),
		IdempotencyKey:    NewIdempotencyKeyRepository(db, logger),
	}
}
