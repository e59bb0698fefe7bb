package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

func erpRow(itemID int64, outlet, stock int, ts int64) erp.Item {
	return erp.Item{
		ItemID:        itemID,
		ItemName:      fmt.Sprintf("Item %d", itemID),
		MRP:           decimal.NewFromInt(30),
		OutletID:      outlet,
		Stock:         decimal.NewFromInt(int64(stock)),
		ItemTimeStamp: erp.Timestamp(ts),
	}
}

func mirrorRow(itemID int64, outlet, stock int, ts int64) *domain.ErpItem {
	return &domain.ErpItem{
		ItemID:        itemID,
		ItemName:      fmt.Sprintf("Item %d", itemID),
		MRP:           decimal.NewFromInt(30),
		OutletID:      outlet,
		Stock:         stock,
		ItemTimeStamp: ts,
	}
}

func sinceFilter(outlet int, watermark int64) string {
	return erp.OutletSince(outlet, watermark).String()
}

type erpSyncFixture struct {
	env    *testEnv
	client *fakeERP
	locker *fakeLocker
	svc    *ErpSyncService
}

func newErpSyncFixture(cfg config.ERPConfig, outlets ...int) *erpSyncFixture {
	env := newTestEnv()
	for _, o := range outlets {
		env.stores.add(&domain.Store{ErpStoreID: o, StoreCode: fmt.Sprintf("S%d", o), StoreName: fmt.Sprintf("Store %d", o)})
	}
	client := newFakeERP()
	locker := newFakeLocker()
	hybrid := NewHybridStockService(env.repos, env.logger)
	svc := NewErpSyncService(cfg, env.repos, client, locker, hybrid, env.notificationLog(), env.logger)
	return &erpSyncFixture{env: env, client: client, locker: locker, svc: svc}
}

func TestSyncIncremental_UpdatesChangedRowsFromWatermark(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.env.erpItems.seed(mirrorRow(42, 7, 10, 1000), mirrorRow(43, 7, 5, 1000))
	f.client.pages[sinceFilter(7, 1000)] = []*erp.ItemsPage{{
		Items:      []erp.Item{erpRow(42, 7, 7, 1100), erpRow(43, 7, 5, 1000)},
		TotalPages: 1,
	}}

	result, err := f.svc.SyncIncremental(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.FailedOutlets)
	assert.Equal(t, 7, f.env.erpItems.get(42, 7).Stock)
	assert.Equal(t, int64(1100), f.env.erpItems.get(42, 7).ItemTimeStamp)
	assert.Equal(t, []int{1}, f.env.erpItems.batches, "only the changed row is written")

	require.Len(t, f.client.queries, 1)
	assert.Equal(t, "outletId==7,itemTimeStamp>=1000", f.client.queries[0].filter)
	assert.Equal(t, incrementalPageSize, f.client.queries[0].limit)

	infos := f.env.notifications.ofType(domain.LogTypeInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "ERP sync completed for outlet 7", infos[0].NotificationInfo)

	assert.False(t, f.locker.isHeld(lock.Key(lock.SyncTypeERP, 0)))
	assert.False(t, f.locker.isHeld(lock.Key(lock.SyncTypeERP, 7)))
}

func TestSyncIncremental_RerunWithSameDataWritesNothing(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	page := []*erp.ItemsPage{{Items: []erp.Item{erpRow(42, 7, 7, 1100)}, TotalPages: 1}}
	f.client.pages[sinceFilter(7, 0)] = page
	f.client.pages[sinceFilter(7, 1100)] = page

	first, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 0, second.Updated)
	assert.Equal(t, []int{1}, f.env.erpItems.batches)
	assert.Len(t, f.env.erpItems.rows, 1)
}

func TestSyncIncremental_WalksAllPages(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{
		{Items: []erp.Item{erpRow(1, 7, 1, 10)}, TotalPages: 2},
		{Items: []erp.Item{erpRow(2, 7, 1, 11)}, TotalPages: 2},
	}

	result, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, f.client.queries, 2)
	assert.Equal(t, 2, f.client.queries[1].page)
}

func TestSyncIncremental_UpsertsInChunks(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	items := make([]erp.Item, 0, 600)
	for i := 1; i <= 600; i++ {
		items = append(items, erpRow(int64(i), 7, 3, 500))
	}
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{{Items: items, TotalPages: 1}}

	result, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 600, result.Created)
	assert.Equal(t, []int{250, 250, 100}, f.env.erpItems.batches)
}

func TestSyncIncremental_FailedChunkKeepsOthersAndReportsOutlet(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.env.erpItems.failBatch = 2
	items := make([]erp.Item, 0, 600)
	for i := 1; i <= 600; i++ {
		items = append(items, erpRow(int64(i), 7, 3, 500))
	}
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{{Items: items, TotalPages: 1}}

	result, err := f.svc.SyncIncremental(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, result.FailedOutlets)
	assert.Equal(t, 350, result.Created)
	assert.Len(t, f.env.erpItems.rows, 350)
	assert.Equal(t, []int{250, 250, 100}, f.env.erpItems.batches, "every chunk is attempted")

	errs := f.env.notifications.ofType(domain.LogTypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERP sync failed for outlet 7", errs[0].NotificationInfo)
}

func TestSyncIncremental_OutletFailureDoesNotStopSweep(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7, 8)
	f.client.errs[sinceFilter(7, 0)] = errors.New("erp unavailable")
	f.client.pages[sinceFilter(8, 0)] = []*erp.ItemsPage{{Items: []erp.Item{erpRow(5, 8, 2, 20)}, TotalPages: 1}}

	result, err := f.svc.SyncIncremental(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, result.FailedOutlets)
	assert.Equal(t, 1, result.Created)
	assert.NotNil(t, f.env.erpItems.get(5, 8))
}

func TestSyncIncremental_SkipsOutletWithHeldLease(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7, 8)
	f.locker.hold(lock.Key(lock.SyncTypeERP, 8))
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{{Items: []erp.Item{erpRow(1, 7, 1, 1)}, TotalPages: 1}}

	result, err := f.svc.SyncIncremental(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, result.SkippedOutlets)
	for _, q := range f.client.queries {
		assert.NotContains(t, q.filter, "outletId==8")
	}
}

func TestSyncIncremental_RejectsConcurrentRun(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.locker.hold(lock.Key(lock.SyncTypeERP, 0))

	_, err := f.svc.SyncIncremental(context.Background(), 0)
	var inProgress *apperrors.ErrSyncInProgress
	require.ErrorAs(t, err, &inProgress)
	assert.Equal(t, "lease:erp:all", inProgress.Scope)
	assert.Empty(t, f.client.queries)
}

func TestSyncIncremental_InvalidRowsAreCountedNotWritten(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{{
		Items:      []erp.Item{erpRow(0, 7, 1, 1), erpRow(9, 7, 1, 1)},
		TotalPages: 1,
	}}

	result, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, 1, result.Created)
}

func TestSyncIncremental_InactiveOutletIsRejected(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{})
	f.env.stores.add(&domain.Store{ErpStoreID: 9, StoreCode: "S9", Status: domain.StoreStatusInactive})

	_, err := f.svc.SyncIncremental(context.Background(), 9)
	var verr *apperrors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestSyncIncremental_RefreshesHybridStock(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{}, 7)
	f.env.variants.rows = append(f.env.variants.rows, &domain.StorefrontVariant{
		ProductID: 900, VariantID: 901, SKU: "MILK-1L", ErpItemID: 42, OutletID: 7,
	})
	f.client.pages[sinceFilter(7, 0)] = []*erp.ItemsPage{{Items: []erp.Item{erpRow(42, 7, 12, 50)}, TotalPages: 1}}

	_, err := f.svc.SyncIncremental(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, f.env.hybrid.rows, 1)
	rec := f.env.hybrid.rows[0]
	assert.Equal(t, "MILK-1L", rec.SKU)
	assert.Equal(t, 7, rec.OutletID)
	assert.Equal(t, 12, rec.PrimaryStock)
	assert.Equal(t, 12, rec.HybridStock)
}

func TestSyncFull_LowersWatermarkAndSweepsUniverseInOrder(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{OutletUniverse: []int{8, 7}, PageSize: 5000}, 7, 8)
	f.env.erpItems.seed(mirrorRow(42, 7, 10, 1000))
	f.client.pages[sinceFilter(7, 999)] = []*erp.ItemsPage{{
		Items:      []erp.Item{erpRow(42, 7, 10, 1000), erpRow(44, 7, 2, 1000)},
		TotalPages: 1,
	}}

	result, err := f.svc.SyncFull(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 2, result.Pages)

	require.Len(t, f.client.queries, 2)
	assert.Equal(t, "outletId==7,itemTimeStamp>=999", f.client.queries[0].filter)
	assert.Equal(t, 5000, f.client.queries[0].limit)
	assert.Equal(t, "outletId==8,itemTimeStamp>=0", f.client.queries[1].filter)

	infos := f.env.notifications.ofType(domain.LogTypeInfo)
	require.Len(t, infos, 3, "one entry per page plus the summary")
	assert.Equal(t, "ERP full sync completed", infos[2].NotificationInfo)
}

func TestSyncFull_AbortsOnFirstError(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{OutletUniverse: []int{7, 8}}, 7, 8)
	f.client.errs[sinceFilter(7, 0)] = errors.New("timeout")

	result, err := f.svc.SyncFull(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, f.client.queries, 1)
	assert.Contains(t, f.client.queries[0].filter, "outletId==7")

	errs := f.env.notifications.ofType(domain.LogTypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERP full sync aborted at outlet 7", errs[0].NotificationInfo)
	assert.Empty(t, f.env.notifications.ofType(domain.LogTypeInfo))
}

func TestSyncFull_StopsWhenGlobalLeaseIsLost(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{OutletUniverse: []int{7, 8}}, 7, 8)
	f.locker.lose = map[string]bool{lock.Key(lock.SyncTypeERP, 0): true}

	result, err := f.svc.SyncFull(context.Background())
	require.ErrorIs(t, err, errLeaseLost)
	assert.False(t, result.Success)
	assert.Empty(t, f.client.queries, "no outlet is swept without the global lease")
	assert.Equal(t, []string{"lease:erp:all"}, f.locker.acquired)
	assert.False(t, f.locker.isHeld("lease:erp:all"), "the lease is still released")

	errs := f.env.notifications.ofType(domain.LogTypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERP full sync aborted", errs[0].NotificationInfo)
}

func TestNewErpSyncService_ClampsPageSize(t *testing.T) {
	f := newErpSyncFixture(config.ERPConfig{PageSize: 50000})
	assert.Equal(t, maxERPPageSize, f.svc.cfg.PageSize)
	assert.Equal(t, defaultUpsertChunk, f.svc.cfg.UpsertChunk)
}
