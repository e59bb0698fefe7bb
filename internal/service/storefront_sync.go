package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/shopify"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// ErrPriceStageIncomplete is returned when the inventory stage runs before
// the price stage of the same run has completed.
var ErrPriceStageIncomplete = errors.New("inventory sync requires a completed price sync in the same run")

// SyncRun carries one price+inventory run between its stages.
type SyncRun struct {
	Status *domain.SyncStatus
	lease  lock.Lease
}

// ID is the SyncStatus id of the run.
func (r *SyncRun) ID() uuid.UUID { return r.Status.ID }

// StorefrontSyncService pushes ERP prices and stock to the storefront.
type StorefrontSyncService struct {
	repos         *repository.Repositories
	client        StorefrontClient
	locker        lock.Locker
	notifications *NotificationLogService
	cfg           config.SyncConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewStorefrontSyncService creates a new storefront sync service
func NewStorefrontSyncService(
	cfg config.SyncConfig,
	repos *repository.Repositories,
	client StorefrontClient,
	locker lock.Locker,
	notifications *NotificationLogService,
	logger *zap.Logger,
) *StorefrontSyncService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Minute
	}
	return &StorefrontSyncService{
		repos:         repos,
		client:        client,
		locker:        locker,
		notifications: notifications,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Run executes the price stage then the inventory stage under a single lease.
func (s *StorefrontSyncService) Run(ctx context.Context) (*domain.SyncStatus, error) {
	run, err := s.StartRun(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseRun(run)

	if _, err := s.RunPriceSync(ctx, run); err != nil {
		return run.Status, err
	}
	status, err := s.RunInventorySync(ctx, run)
	if err != nil {
		return status, err
	}

	s.notifications.Info(ctx, "Storefront sync completed",
		markdownTable(
			[]string{"Stage", "Processed", "Skipped"},
			[][]string{
				{"Price", fmt.Sprint(status.SyncTypes.PriceSync.Processed), fmt.Sprint(status.SyncTypes.PriceSync.Skipped)},
				{"Inventory", fmt.Sprint(status.SyncTypes.InventorySync.Processed), fmt.Sprint(status.SyncTypes.InventorySync.Skipped)},
			},
		))
	return status, nil
}

// StartRun takes the storefront lease, recovers stale runs and records a new
// running SyncStatus.
func (s *StorefrontSyncService) StartRun(ctx context.Context) (*SyncRun, error) {
	key := lock.Key(lock.SyncTypeStorefront, 0)
	lease, err := s.locker.Acquire(ctx, key)
	if errors.Is(err, lock.ErrLeaseHeld) {
		s.logger.Warn("Storefront sync: run already in flight, skipping")
		return nil, &apperrors.ErrSyncInProgress{Scope: key}
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.RecoverStale(ctx); err != nil {
		s.logger.Warn("Storefront sync: stale run recovery failed", zap.Error(err))
	}

	status := &domain.SyncStatus{
		IsSyncing:         true,
		LastSyncStartedAt: s.now(),
		OverallStatus:     domain.SyncOverallRunning,
		SyncTypes: domain.SyncTypes{
			PriceSync:     domain.SyncStage{Status: domain.SyncStageRunning},
			InventorySync: domain.SyncStage{Status: domain.SyncStagePending},
		},
	}
	if err := s.repos.SyncStatus.Create(ctx, status); err != nil {
		s.releaseRun(&SyncRun{lease: lease})
		return nil, fmt.Errorf("create sync status: %w", err)
	}
	s.logger.Info("Storefront sync started", zap.String("sync_id", status.ID.String()))
	return &SyncRun{Status: status, lease: lease}, nil
}

func (s *StorefrontSyncService) releaseRun(run *SyncRun) {
	if run == nil || run.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := run.lease.Release(ctx); err != nil {
		s.logger.Warn("Storefront sync: lease release failed", zap.Error(err))
	}
}

type variantKey struct {
	itemID int64
	outlet int
}

func (s *StorefrontSyncService) erpIndex(ctx context.Context, variants []*domain.StorefrontVariant) (map[variantKey]*domain.ErpItem, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, v := range variants {
		if _, ok := seen[v.ErpItemID]; !ok {
			seen[v.ErpItemID] = struct{}{}
			ids = append(ids, v.ErpItemID)
		}
	}
	items, err := s.repos.ErpItem.ListByItemIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[variantKey]*domain.ErpItem, len(items))
	for _, it := range items {
		index[variantKey{itemID: it.ItemID, outlet: it.OutletID}] = it
	}
	return index, nil
}

// RunPriceSync pushes the ERP mrp of every not-yet-synced variant and clears
// its new-product flag once the storefront accepted it.
func (s *StorefrontSyncService) RunPriceSync(ctx context.Context, run *SyncRun) (*domain.SyncStatus, error) {
	stage := &run.Status.SyncTypes.PriceSync
	stage.Status = domain.SyncStageRunning

	variants, err := s.repos.StorefrontVariant.ListNewProducts(ctx)
	if err != nil {
		return s.fail(ctx, run, stage, err)
	}
	index, err := s.erpIndex(ctx, variants)
	if err != nil {
		return s.fail(ctx, run, stage, err)
	}

	batch := make([]shopify.VariantPriceUpdate, 0, s.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := s.client.BulkUpdatePrices(ctx, append([]shopify.VariantPriceUpdate(nil), batch...))
		if err != nil {
			return err
		}
		for variantID, msg := range res.Failed {
			s.logger.Warn("Price sync: variant rejected", zap.Int64("variant_id", variantID), zap.String("error", msg))
		}
		stage.Skipped += len(res.Failed)
		if err := s.repos.StorefrontVariant.MarkPriceSynced(ctx, res.Updated); err != nil {
			return fmt.Errorf("mark variants synced: %w", err)
		}
		stage.Processed += len(res.Updated)
		batch = batch[:0]
		return nil
	}

	for _, v := range variants {
		item, ok := index[variantKey{itemID: v.ErpItemID, outlet: v.OutletID}]
		if !ok {
			s.logger.Warn("Price sync: no ERP row for variant, skipping",
				zap.Int64("variant_id", v.VariantID),
				zap.Int64("erp_item_id", v.ErpItemID),
				zap.Int("outlet_id", v.OutletID),
			)
			stage.Skipped++
			continue
		}
		batch = append(batch, shopify.VariantPriceUpdate{
			ProductID: v.ProductID,
			VariantID: v.VariantID,
			Price:     item.MRP,
		})
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return s.fail(ctx, run, stage, err)
			}
		}
	}
	if err := flush(); err != nil {
		return s.fail(ctx, run, stage, err)
	}

	stage.Status = domain.SyncStageCompleted
	run.Status.SyncTypes.InventorySync.Status = domain.SyncStageRunning
	if err := s.repos.SyncStatus.Update(ctx, run.Status); err != nil {
		return s.fail(ctx, run, stage, err)
	}
	s.logger.Info("Price sync completed",
		zap.String("sync_id", run.ID().String()),
		zap.Int("processed", stage.Processed),
		zap.Int("skipped", stage.Skipped),
	)
	return run.Status, nil
}

// RunInventorySync sets absolute on-hand quantities for every linked variant
// from the ERP mirror. It only runs after the price stage of the same run.
func (s *StorefrontSyncService) RunInventorySync(ctx context.Context, run *SyncRun) (*domain.SyncStatus, error) {
	if run == nil || run.Status == nil || run.Status.SyncTypes.PriceSync.Status != domain.SyncStageCompleted {
		return nil, ErrPriceStageIncomplete
	}
	stage := &run.Status.SyncTypes.InventorySync
	stage.Status = domain.SyncStageRunning

	variants, err := s.repos.StorefrontVariant.ListLinked(ctx)
	if err != nil {
		return s.fail(ctx, run, stage, err)
	}
	index, err := s.erpIndex(ctx, variants)
	if err != nil {
		return s.fail(ctx, run, stage, err)
	}
	stores, err := s.repos.Store.ListActive(ctx)
	if err != nil {
		return s.fail(ctx, run, stage, err)
	}
	locationByOutlet := make(map[int]int64, len(stores))
	for _, st := range stores {
		if st.ShopifyLocationID != nil {
			locationByOutlet[st.ErpStoreID] = *st.ShopifyLocationID
		}
	}

	batch := make([]shopify.OnHandQuantity, 0, s.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.client.SetOnHandQuantities(ctx, append([]shopify.OnHandQuantity(nil), batch...)); err != nil {
			return err
		}
		stage.Processed += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, v := range variants {
		item, ok := index[variantKey{itemID: v.ErpItemID, outlet: v.OutletID}]
		if !ok {
			stage.Skipped++
			continue
		}
		locationID, ok := locationByOutlet[v.OutletID]
		if !ok {
			ids, err := s.client.InventoryItemLocationIDs(ctx, v.InventoryItemID)
			if err != nil || len(ids) == 0 {
				s.logger.Warn("Inventory sync: no location for inventory item, skipping",
					zap.Int64("inventory_item_id", v.InventoryItemID),
					zap.Error(err),
				)
				stage.Skipped++
				continue
			}
			locationID = ids[0]
		}
		batch = append(batch, shopify.OnHandQuantity{
			InventoryItemID: v.InventoryItemID,
			LocationID:      locationID,
			Quantity:        nonNegative(item.Stock),
		})
		if len(batch) >= s.cfg.BatchSize {
			if err := flush(); err != nil {
				return s.fail(ctx, run, stage, err)
			}
		}
	}
	if err := flush(); err != nil {
		return s.fail(ctx, run, stage, err)
	}

	completed := s.now()
	stage.Status = domain.SyncStageCompleted
	run.Status.IsSyncing = false
	run.Status.OverallStatus = domain.SyncOverallCompleted
	run.Status.LastSyncCompletedAt = &completed
	if err := s.repos.SyncStatus.Update(ctx, run.Status); err != nil {
		return run.Status, err
	}
	s.logger.Info("Inventory sync completed",
		zap.String("sync_id", run.ID().String()),
		zap.Int("processed", stage.Processed),
		zap.Int("skipped", stage.Skipped),
	)
	return run.Status, nil
}

// fail marks the run failed and returns the cause. The status write uses a
// detached context so a cancelled run is still recorded.
func (s *StorefrontSyncService) fail(ctx context.Context, run *SyncRun, stage *domain.SyncStage, cause error) (*domain.SyncStatus, error) {
	completed := s.now()
	stage.Status = domain.SyncStageFailed
	stage.Error = cause.Error()
	run.Status.IsSyncing = false
	run.Status.OverallStatus = domain.SyncOverallFailed
	run.Status.LastSyncCompletedAt = &completed

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.repos.SyncStatus.Update(writeCtx, run.Status); err != nil {
		s.logger.Error("Storefront sync: failed to record failure", zap.Error(err))
	}
	s.logger.Error("Storefront sync failed", zap.String("sync_id", run.ID().String()), zap.Error(cause))
	s.notifications.Error(writeCtx, "Storefront sync failed", cause)
	return run.Status, cause
}

// RecoverStale marks runs still flagged as syncing past the timeout budget as
// failed. It returns how many runs were recovered.
func (s *StorefrontSyncService) RecoverStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.Timeout)
	stale, err := s.repos.SyncStatus.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, st := range stale {
		completed := s.now()
		st.IsSyncing = false
		st.OverallStatus = domain.SyncOverallFailed
		st.LastSyncCompletedAt = &completed
		for _, stage := range []*domain.SyncStage{&st.SyncTypes.PriceSync, &st.SyncTypes.InventorySync} {
			if stage.Status == domain.SyncStageRunning || stage.Status == domain.SyncStagePending {
				stage.Status = domain.SyncStageFailed
				stage.Error = "run exceeded timeout"
			}
		}
		if err := s.repos.SyncStatus.Update(ctx, st); err != nil {
			return 0, err
		}
		s.logger.Warn("Storefront sync: recovered stale run",
			zap.String("sync_id", st.ID.String()),
			zap.Time("started_at", st.LastSyncStartedAt),
		)
	}
	if len(stale) > 0 {
		s.notifications.Error(ctx, "Recovered stuck storefront sync",
			fmt.Errorf("%d run(s) exceeded the %s budget and were marked failed", len(stale), s.cfg.Timeout))
	}
	return len(stale), nil
}

// Latest returns the most recent run, or nil when none exists.
func (s *StorefrontSyncService) Latest(ctx context.Context) (*domain.SyncStatus, error) {
	return s.repos.SyncStatus.Latest(ctx)
}

func (s *StorefrontSyncService) ListRecent(ctx context.Context, limit int) ([]*domain.SyncStatus, error) {
	return s.repos.SyncStatus.ListRecent(ctx, limit)
}

// Dismiss hides a finished run from the admin banner.
func (s *StorefrontSyncService) Dismiss(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error) {
	status, err := s.repos.SyncStatus.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if status.IsSyncing {
		return nil, &apperrors.ErrConflict{Message: "cannot dismiss a running sync"}
	}
	now := s.now()
	status.UserDismissedAt = &now
	if err := s.repos.SyncStatus.Update(ctx, status); err != nil {
		return nil, err
	}
	return status, nil
}
