package service

import (
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

// Clients groups the external systems the services talk to. Rider and
// Geocoder may be nil.
type Clients struct {
	ERP        ERPClient
	Storefront StorefrontClient
	Locker     lock.Locker
	Queue      NotificationQueue
	Rider      RiderDispatcher
	Geocoder   Geocoder
}

// Services aggregates all services
type Services struct {
	Notifications *NotificationLogService
	HybridStock   *HybridStockService
	ErpSync       *ErpSyncService
	Storefront    *StorefrontSyncService
	Splits        *SplitEngine
	ErpPush       *ErpOrderPushService
	Lifecycle     *LifecycleController
	Ingest        *OrderIngestService
}

// NewServices wires every service over one set of repositories and clients.
func NewServices(cfg *config.Config, repos *repository.Repositories, clients Clients, logger *zap.Logger) *Services {
	notifications := NewNotificationLogService(repos.NotificationLog, logger)
	hybrid := NewHybridStockService(repos, logger)
	splits := NewSplitEngine(repos, notifications, logger)
	erpPush := NewErpOrderPushService(repos, clients.ERP, logger)

	return &Services{
		Notifications: notifications,
		HybridStock:   hybrid,
		ErpSync:       NewErpSyncService(cfg.ERP, repos, clients.ERP, clients.Locker, hybrid, notifications, logger),
		Storefront:    NewStorefrontSyncService(cfg.Sync, repos, clients.Storefront, clients.Locker, notifications, logger),
		Splits:        splits,
		ErpPush:       erpPush,
		Lifecycle:     NewLifecycleController(repos, clients.Queue, clients.Rider, clients.Geocoder, erpPush, notifications, logger),
		Ingest:        NewOrderIngestService(repos, splits, notifications, logger),
	}
}
