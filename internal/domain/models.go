package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is a physical store or warehouse that can fulfil split orders
type Store struct {
	ID                    uuid.UUID
	ErpStoreID            int // outlet id in the ERP
	StoreCode             string
	StoreName             string
	Status                StoreStatus
	IsBackupWarehouse     bool
	SelectBackupWarehouse *int // ErpStoreID of the backup warehouse used by this store
	StoreCluster          string
	ShopifyLocationID     *int64
	Latitude              *float64
	Longitude             *float64
	Address               string
	Phone                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsActive reports whether the store takes part in syncs and reassignment.
func (s *Store) IsActive() bool {
	return s.Status == StoreStatusActive
}

// ErpItem mirrors one ERP stock row, unique per (ItemID, OutletID)
type ErpItem struct {
	ID            uuid.UUID
	ItemID        int64 `validate:"required,gt=0"`
	ItemName      string
	OutletID      int             `validate:"required,gt=0"`
	MRP           decimal.Decimal // price
	Stock         int
	ItemTimeStamp int64 // ERP watermark
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ErpItemKey is the natural key of an ErpItem
type ErpItemKey struct {
	ItemID   int64
	OutletID int
}

// Key returns the natural key of the row.
func (i *ErpItem) Key() ErpItemKey {
	return ErpItemKey{ItemID: i.ItemID, OutletID: i.OutletID}
}

// SameContent reports whether two rows carry identical ERP data.
func (i *ErpItem) SameContent(o *ErpItem) bool {
	return i.ItemID == o.ItemID &&
		i.OutletID == o.OutletID &&
		i.ItemName == o.ItemName &&
		i.MRP.Equal(o.MRP) &&
		i.Stock == o.Stock &&
		i.ItemTimeStamp == o.ItemTimeStamp
}

// StorefrontVariant mirrors a storefront product variant and its link to the ERP
type StorefrontVariant struct {
	ID              uuid.UUID
	ProductID       int64
	VariantID       int64
	InventoryItemID int64
	SKU             string
	ErpItemID       int64 // ERP item id (stored on the storefront as the variant barcode/metafield)
	OutletID        int
	Tags            []string
	IsNewProduct    bool // true until the price has been pushed once
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HybridStockRecord is the derived stock view per (SKU, outlet)
type HybridStockRecord struct {
	ID           uuid.UUID
	SKU          string
	OutletID     int
	ProductID    int64
	VariantID    int64
	PrimaryStock int
	BackUpStock  int
	HybridStock  int
	UpdatedAt    time.Time
}

// Order mirrors a storefront order. It is never authoritative for fulfillment state.
type Order struct {
	ID              uuid.UUID
	ShopifyOrderID  int64
	OrderNumber     string // without '#', e.g. "1001"
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress Address
	LineItems       []OrderLineItem
	NoteAttributes  map[string]string
	StoreCode       string // explicit store selection at order creation, if any
	SubtotalPrice   decimal.Decimal
	TotalDiscounts  decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	FinancialStatus string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Address is a shipping address with optional coordinates
type Address struct {
	Name      string   `json:"name"`
	Address1  string   `json:"address1"`
	Address2  string   `json:"address2,omitempty"`
	City      string   `json:"city"`
	Province  string   `json:"province,omitempty"`
	Zip       string   `json:"zip"`
	Country   string   `json:"country"`
	Phone     string   `json:"phone,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both coordinates are set.
func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// OrderLineItem is one line of a storefront order
type OrderLineItem struct {
	LineItemID int64           `json:"line_item_id"`
	ProductID  int64           `json:"product_id"`
	VariantID  int64           `json:"variant_id"`
	SKU        string          `json:"sku"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Discount   decimal.Decimal `json:"discount"`
	Tags       []string        `json:"tags,omitempty"`
	ErpItemID  int64           `json:"erp_item_id,omitempty"`
}

// SplitLineItem is the part of an order line assigned to one split
type SplitLineItem struct {
	LineItemID        int64           `json:"line_item_id"`
	ProductID         int64           `json:"product_id"`
	VariantID         int64           `json:"variant_id"`
	ItemReferenceCode string          `json:"item_reference_code"` // SKU
	Title             string          `json:"title"`
	Quantity          int             `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	Discount          decimal.Decimal `json:"discount"`
	OutletID          int             `json:"outlet_id"`
	ErpItemID         int64           `json:"erp_item_id,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
}

// OrderSplit is the fulfillment unit: the part of an order served by one store
type OrderSplit struct {
	ID               uuid.UUID
	OrderReferenceID uuid.UUID
	OrderNumber      string
	SplitID          string // "{orderNumber}-{storeCode}"
	StoreCode        string
	StoreName        string
	ErpStoreID       int
	LineItems        []SplitLineItem
	OrderStatus      SplitStatus
	OnHoldStatus     *OnHoldStatus
	OnHoldComment    *string
	ReAssignStatus   bool
	TimeStamp        map[SplitStatus]time.Time // append-only per status
	TplMessage       *string
	TplTaskID        *string
	RiderName        *string
	RiderContact     *string
	ErpOrderID       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SplitIDFor builds the human-readable split id.
func SplitIDFor(orderNumber, storeCode string) string {
	return fmt.Sprintf("%s-%s", orderNumber, storeCode)
}

// QuantityBySKU sums line quantities per SKU.
func (s *OrderSplit) QuantityBySKU() map[string]int {
	out := make(map[string]int, len(s.LineItems))
	for _, li := range s.LineItems {
		out[li.ItemReferenceCode] += li.Quantity
	}
	return out
}

// RecordTimestamp stores the latest time the split entered status, so the
// newest timeline entry always matches the current status.
func (s *OrderSplit) RecordTimestamp(status SplitStatus, at time.Time) {
	if s.TimeStamp == nil {
		s.TimeStamp = make(map[SplitStatus]time.Time)
	}
	s.TimeStamp[status] = at
}

// SyncStage is the state of one stage of a storefront sync run
type SyncStage struct {
	Status    SyncStageStatus `json:"status"`
	Processed int             `json:"processed"`
	Skipped   int             `json:"skipped"`
	Error     string          `json:"error,omitempty"`
}

// SyncTypes groups the stage states of a run
type SyncTypes struct {
	PriceSync     SyncStage `json:"priceSync"`
	InventorySync SyncStage `json:"inventorySync"`
}

// SyncStatus tracks one price+inventory sync run
type SyncStatus struct {
	ID                  uuid.UUID
	IsSyncing           bool
	LastSyncStartedAt   time.Time
	LastSyncCompletedAt *time.Time
	SyncTypes           SyncTypes
	OverallStatus       SyncOverallStatus
	UserDismissedAt     *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NotificationLogEntry is an append-only audit/notification row shown in the admin UI
type NotificationLogEntry struct {
	ID                     uuid.UUID
	NotificationInfo       string // title
	NotificationDetails    string // markdown
	LogType                LogType
	NotificationViewStatus ViewStatus
	CreatedAt              time.Time
}

// IdempotencyKey stores a processed webhook delivery
type IdempotencyKey struct {
	Key              string
	OrderReferenceID uuid.UUID
	RequestHash      string
	CreatedAt        time.Time
}
