package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

// StoreRepository defines store data access methods
type StoreRepository interface {
	// ListActive returns active stores ordered by erp_store_id ascending
	ListActive(ctx context.Context) ([]*domain.Store, error)
	List(ctx context.Context) ([]*domain.Store, error)
	GetByCode(ctx context.Context, storeCode string) (*domain.Store, error)
	GetByErpStoreID(ctx context.Context, erpStoreID int) (*domain.Store, error)
	// ListActiveBackupWarehouses returns every active store flagged as backup warehouse
	ListActiveBackupWarehouses(ctx context.Context) ([]*domain.Store, error)
	Upsert(ctx context.Context, store *domain.Store) error
}

// ErpItemRepository defines ERP item mirror data access methods
type ErpItemRepository interface {
	// LatestTimestamp returns the highest item_time_stamp mirrored for an outlet, or 0
	LatestTimestamp(ctx context.Context, outletID int) (int64, error)
	GetByKeys(ctx context.Context, keys []domain.ErpItemKey) (map[domain.ErpItemKey]*domain.ErpItem, error)
	// UpsertBatch inserts or updates rows on the (item_id, outlet_id) key
	UpsertBatch(ctx context.Context, items []*domain.ErpItem) error
	ListByItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.ErpItem, error)
}

// HybridStockFilter narrows the inventory listing
type HybridStockFilter struct {
	SKU      string
	OutletID int
	Limit    int
	Offset   int
}

// HybridStockRepository defines hybrid stock read-model data access methods
type HybridStockRepository interface {
	UpsertBatch(ctx context.Context, records []*domain.HybridStockRecord) error
	// FindCandidates returns records for sku/product with primary_stock >= minPrimary
	FindCandidates(ctx context.Context, sku string, productID int64, minPrimary int) ([]*domain.HybridStockRecord, error)
	List(ctx context.Context, filter HybridStockFilter) ([]*domain.HybridStockRecord, int, error)
	GetBySKUAndOutlets(ctx context.Context, sku string, outletIDs []int) ([]*domain.HybridStockRecord, error)
}

// StorefrontVariantRepository defines storefront variant mirror data access methods
type StorefrontVariantRepository interface {
	ListNewProducts(ctx context.Context) ([]*domain.StorefrontVariant, error)
	ListLinked(ctx context.Context) ([]*domain.StorefrontVariant, error)
	ListByErpItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.StorefrontVariant, error)
	ListByVariantIDs(ctx context.Context, variantIDs []int64) ([]*domain.StorefrontVariant, error)
	MarkPriceSynced(ctx context.Context, variantIDs []int64) error
	Upsert(ctx context.Context, variant *domain.StorefrontVariant) error
}

// OrderRepository defines storefront order mirror data access methods
type OrderRepository interface {
	// Upsert inserts or updates on shopify_order_id and reports whether the row is new
	Upsert(ctx context.Context, order *domain.Order) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	UpdateShippingCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

// OrderSplitRepository defines order split data access methods
type OrderSplitRepository interface {
	Create(ctx context.Context, split *domain.OrderSplit) error
	Update(ctx context.Context, split *domain.OrderSplit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error)
	ListByOrder(ctx context.Context, orderReferenceID uuid.UUID) ([]*domain.OrderSplit, error)
	// ApplyReassignment writes a reassignment atomically
	ApplyReassignment(ctx context.Context, creates, updates []*domain.OrderSplit, deletes []uuid.UUID) error
}

// SyncStatusRepository defines storefront sync run data access methods
type SyncStatusRepository interface {
	Create(ctx context.Context, status *domain.SyncStatus) error
	Update(ctx context.Context, status *domain.SyncStatus) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error)
	Latest(ctx context.Context) (*domain.SyncStatus, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.SyncStatus, error)
	// ListStale returns runs still marked syncing that started before the cutoff
	ListStale(ctx context.Context, startedBefore time.Time) ([]*domain.SyncStatus, error)
}

// NotificationLogRepository defines notification log data access methods
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *domain.NotificationLogEntry) error
	// List returns unread first, newest first
	List(ctx context.Context, limit, offset int) ([]*domain.NotificationLogEntry, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
}

// IdempotencyKeyRepository defines idempotency key data access methods
type IdempotencyKeyRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error)
	Create(ctx context.Context, key *domain.IdempotencyKey) error
}

// Repositories aggregates all repositories
type Repositories struct {
	Store             StoreRepository
	ErpItem           ErpItemRepository
	HybridStock       HybridStockRepository
	StorefrontVariant StorefrontVariantRepository
	Order             OrderRepository
	OrderSplit        OrderSplitRepository
	SyncStatus        SyncStatusRepository
	NotificationLog   NotificationLogRepository
	IdempotencyKey    IdempotencyKeyRepository
}
