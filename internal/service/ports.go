package service

import (
	"context"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/delivery"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/notify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/shopify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/worker"
)

// ERPClient is the subset of the ERP API the services call.
type ERPClient interface {
	QueryItems(ctx context.Context, filter *erp.Filter, page, limit int) (*erp.ItemsPage, error)
	PushSalesOrder(ctx context.Context, order *erp.SalesOrder) (*erp.SalesOrderResponse, error)
}

// StorefrontClient is the subset of the storefront Admin API used by the sync pipeline.
type StorefrontClient interface {
	BulkUpdatePrices(ctx context.Context, updates []shopify.VariantPriceUpdate) (*shopify.BulkPriceResult, error)
	SetOnHandQuantities(ctx context.Context, quantities []shopify.OnHandQuantity) error
	InventoryItemLocationIDs(ctx context.Context, inventoryItemID int64) ([]int64, error)
}

// RiderDispatcher creates third-party delivery tasks.
type RiderDispatcher interface {
	GetServiceability(ctx context.Context, req *delivery.TaskRequest) (*delivery.Serviceability, error)
	CreateTask(ctx context.Context, req *delivery.TaskRequest) (*delivery.Task, error)
}

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// NotificationQueue accepts customer notifications for asynchronous delivery.
type NotificationQueue interface {
	EnqueueNotification(ctx context.Context, n *notify.CustomerNotification) error
}

var (
	_ ERPClient         = (*erp.Client)(nil)
	_ StorefrontClient  = (*shopify.Client)(nil)
	_ RiderDispatcher   = (*delivery.RiderClient)(nil)
	_ Geocoder          = (*delivery.Geocoder)(nil)
	_ NotificationQueue = (*worker.Dispatcher)(nil)
)
