package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

var syncNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type storefrontFixture struct {
	env    *testEnv
	client *fakeStorefront
	locker *fakeLocker
	svc    *StorefrontSyncService
}

func newStorefrontFixture() *storefrontFixture {
	env := newTestEnv()
	client := &fakeStorefront{rejected: map[int64]string{}, locations: map[int64][]int64{}}
	locker := newFakeLocker()
	svc := NewStorefrontSyncService(config.SyncConfig{}, env.repos, client, locker, env.notificationLog(), env.logger)
	svc.now = func() time.Time { return syncNow }
	return &storefrontFixture{env: env, client: client, locker: locker, svc: svc}
}

// addLinkedVariants creates n new variants on outlet, each backed by an ERP row.
func (f *storefrontFixture) addLinkedVariants(outlet, n int, stock int) {
	for i := 1; i <= n; i++ {
		itemID := int64(outlet*1000 + i)
		f.env.variants.rows = append(f.env.variants.rows, &domain.StorefrontVariant{
			ProductID:       itemID + 100000,
			VariantID:       itemID + 200000,
			InventoryItemID: itemID + 300000,
			SKU:             "SKU-" + uuid.NewString()[:8],
			ErpItemID:       itemID,
			OutletID:        outlet,
			IsNewProduct:    true,
		})
		f.env.erpItems.seed(&domain.ErpItem{
			ItemID:   itemID,
			OutletID: outlet,
			MRP:      decimal.NewFromFloat(49.5),
			Stock:    stock,
		})
	}
}

func batchSizes[T any](batches [][]T) []int {
	out := make([]int, 0, len(batches))
	for _, b := range batches {
		out = append(out, len(b))
	}
	return out
}

func TestStorefrontRun_BatchesAndCompletes(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 7, StoreCode: "S7", ShopifyLocationID: int64Ptr(5001)})
	f.addLinkedVariants(7, 125, 4)

	status, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{50, 50, 25}, batchSizes(f.client.priceBatches))
	assert.Equal(t, []int{50, 50, 25}, batchSizes(f.client.quantityBatches))

	assert.False(t, status.IsSyncing)
	assert.Equal(t, domain.SyncOverallCompleted, status.OverallStatus)
	assert.Equal(t, domain.SyncStageCompleted, status.SyncTypes.PriceSync.Status)
	assert.Equal(t, domain.SyncStageCompleted, status.SyncTypes.InventorySync.Status)
	assert.Equal(t, 125, status.SyncTypes.PriceSync.Processed)
	assert.Equal(t, 125, status.SyncTypes.InventorySync.Processed)
	require.NotNil(t, status.LastSyncCompletedAt)

	stored, err := f.env.syncStatus.GetByID(context.Background(), status.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncOverallCompleted, stored.OverallStatus)

	for _, v := range f.env.variants.rows {
		assert.False(t, v.IsNewProduct, "variant %d should be price-synced", v.VariantID)
	}
	q := f.client.quantityBatches[0][0]
	assert.Equal(t, int64(5001), q.LocationID)
	assert.Equal(t, 4, q.Quantity)
	assert.True(t, f.client.priceBatches[0][0].Price.Equal(decimal.NewFromFloat(49.5)))

	assert.False(t, f.locker.isHeld(lock.Key(lock.SyncTypeStorefront, 0)))
	infos := f.env.notifications.ofType(domain.LogTypeInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "Storefront sync completed", infos[0].NotificationInfo)
}

func TestStorefrontRun_RejectedVariantStaysNew(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 7, StoreCode: "S7", ShopifyLocationID: int64Ptr(5001)})
	f.addLinkedVariants(7, 3, 1)
	rejected := f.env.variants.rows[1].VariantID
	f.client.rejected[rejected] = "price must be positive"

	status, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.SyncTypes.PriceSync.Processed)
	assert.Equal(t, 1, status.SyncTypes.PriceSync.Skipped)
	assert.True(t, f.env.variants.rows[1].IsNewProduct)
	assert.False(t, f.env.variants.rows[0].IsNewProduct)
}

func TestStorefrontRun_SkipsVariantsWithoutERPRow(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 7, StoreCode: "S7", ShopifyLocationID: int64Ptr(5001)})
	f.addLinkedVariants(7, 2, 1)
	f.env.variants.rows = append(f.env.variants.rows, &domain.StorefrontVariant{
		VariantID: 77, InventoryItemID: 78, SKU: "ORPHAN", ErpItemID: 999, OutletID: 7, IsNewProduct: true,
	})

	status, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.SyncTypes.PriceSync.Skipped)
	assert.Equal(t, 1, status.SyncTypes.InventorySync.Skipped)
	assert.Equal(t, 2, status.SyncTypes.InventorySync.Processed)
}

func TestStorefrontRun_InventoryLocationFallbackAndClamp(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 8, StoreCode: "S8"})
	f.addLinkedVariants(8, 2, -3)
	first := f.env.variants.rows[0]
	f.client.locations[first.InventoryItemID] = []int64{6001, 6002}

	status, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	// the second variant has no known location
	assert.Equal(t, 1, status.SyncTypes.InventorySync.Processed)
	assert.Equal(t, 1, status.SyncTypes.InventorySync.Skipped)
	require.Len(t, f.client.quantityBatches, 1)
	q := f.client.quantityBatches[0][0]
	assert.Equal(t, int64(6001), q.LocationID)
	assert.Equal(t, 0, q.Quantity, "negative ERP stock is published as zero")
}

func TestStorefrontRun_FailureMarksRunFailed(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 7, StoreCode: "S7", ShopifyLocationID: int64Ptr(5001)})
	f.addLinkedVariants(7, 3, 1)
	f.client.quantityErr = errors.New("throttled")

	status, err := f.svc.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, status)

	stored, getErr := f.env.syncStatus.GetByID(context.Background(), status.ID)
	require.NoError(t, getErr)
	assert.False(t, stored.IsSyncing)
	assert.Equal(t, domain.SyncOverallFailed, stored.OverallStatus)
	assert.Equal(t, domain.SyncStageCompleted, stored.SyncTypes.PriceSync.Status)
	assert.Equal(t, domain.SyncStageFailed, stored.SyncTypes.InventorySync.Status)
	assert.Equal(t, "throttled", stored.SyncTypes.InventorySync.Error)

	errs := f.env.notifications.ofType(domain.LogTypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Storefront sync failed", errs[0].NotificationInfo)
	assert.Empty(t, f.env.notifications.ofType(domain.LogTypeInfo))
	assert.False(t, f.locker.isHeld(lock.Key(lock.SyncTypeStorefront, 0)))
}

func TestStorefrontRun_PriceFailureSkipsInventory(t *testing.T) {
	f := newStorefrontFixture()
	f.env.stores.add(&domain.Store{ErpStoreID: 7, StoreCode: "S7", ShopifyLocationID: int64Ptr(5001)})
	f.addLinkedVariants(7, 2, 1)
	f.client.priceErr = errors.New("bad gateway")

	status, err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.SyncStageFailed, status.SyncTypes.PriceSync.Status)
	assert.Equal(t, domain.SyncStagePending, status.SyncTypes.InventorySync.Status)
	assert.Empty(t, f.client.quantityBatches)
}

func TestRunInventorySync_RequiresCompletedPriceStage(t *testing.T) {
	f := newStorefrontFixture()
	run, err := f.svc.StartRun(context.Background())
	require.NoError(t, err)
	defer f.svc.releaseRun(run)

	_, err = f.svc.RunInventorySync(context.Background(), run)
	assert.ErrorIs(t, err, ErrPriceStageIncomplete)
	assert.Empty(t, f.client.quantityBatches)

	_, err = f.svc.RunInventorySync(context.Background(), nil)
	assert.ErrorIs(t, err, ErrPriceStageIncomplete)
}

func TestStartRun_RejectsConcurrentRun(t *testing.T) {
	f := newStorefrontFixture()
	f.locker.hold(lock.Key(lock.SyncTypeStorefront, 0))

	_, err := f.svc.Run(context.Background())
	var inProgress *apperrors.ErrSyncInProgress
	require.ErrorAs(t, err, &inProgress)
	assert.Empty(t, f.env.syncStatus.rows)
}

func TestRecoverStale_FailsRunsPastTimeout(t *testing.T) {
	f := newStorefrontFixture()
	ctx := context.Background()
	stale := &domain.SyncStatus{
		IsSyncing:         true,
		LastSyncStartedAt: syncNow.Add(-20 * time.Minute),
		OverallStatus:     domain.SyncOverallRunning,
		SyncTypes: domain.SyncTypes{
			PriceSync:     domain.SyncStage{Status: domain.SyncStageCompleted, Processed: 10},
			InventorySync: domain.SyncStage{Status: domain.SyncStageRunning},
		},
	}
	fresh := &domain.SyncStatus{
		IsSyncing:         true,
		LastSyncStartedAt: syncNow.Add(-5 * time.Minute),
		OverallStatus:     domain.SyncOverallRunning,
	}
	require.NoError(t, f.env.syncStatus.Create(ctx, stale))
	require.NoError(t, f.env.syncStatus.Create(ctx, fresh))

	n, err := f.svc.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.env.syncStatus.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSyncing)
	assert.Equal(t, domain.SyncOverallFailed, got.OverallStatus)
	assert.Equal(t, domain.SyncStageCompleted, got.SyncTypes.PriceSync.Status)
	assert.Equal(t, domain.SyncStageFailed, got.SyncTypes.InventorySync.Status)
	assert.Equal(t, "run exceeded timeout", got.SyncTypes.InventorySync.Error)

	untouched, err := f.env.syncStatus.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, untouched.IsSyncing)

	require.Len(t, f.env.notifications.ofType(domain.LogTypeError), 1)
}

func TestDismiss(t *testing.T) {
	f := newStorefrontFixture()
	ctx := context.Background()
	running := &domain.SyncStatus{IsSyncing: true, LastSyncStartedAt: syncNow, OverallStatus: domain.SyncOverallRunning}
	done := &domain.SyncStatus{LastSyncStartedAt: syncNow.Add(-time.Hour), OverallStatus: domain.SyncOverallCompleted}
	require.NoError(t, f.env.syncStatus.Create(ctx, running))
	require.NoError(t, f.env.syncStatus.Create(ctx, done))

	_, err := f.svc.Dismiss(ctx, running.ID)
	var conflict *apperrors.ErrConflict
	assert.ErrorAs(t, err, &conflict)

	dismissed, err := f.svc.Dismiss(ctx, done.ID)
	require.NoError(t, err)
	require.NotNil(t, dismissed.UserDismissedAt)
	assert.Equal(t, syncNow, *dismissed.UserDismissedAt)

	_, err = f.svc.Dismiss(ctx, uuid.New())
	var notFound *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLatestAndListRecent(t *testing.T) {
	f := newStorefrontFixture()
	ctx := context.Background()

	latest, err := f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.env.syncStatus.Create(ctx, &domain.SyncStatus{
			LastSyncStartedAt: syncNow.Add(time.Duration(i) * time.Hour),
			OverallStatus:     domain.SyncOverallCompleted,
		}))
	}
	latest, err = f.svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncNow.Add(2*time.Hour), latest.LastSyncStartedAt)

	recent, err := f.svc.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
