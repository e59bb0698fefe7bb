package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/delivery"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/notify"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/shopify"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

// testEnv bundles the in-memory repositories behind a Repositories aggregate.
type testEnv struct {
	stores        *memStores
	erpItems      *memErpItems
	hybrid        *memHybridStock
	variants      *memVariants
	orders        *memOrders
	splits        *memSplits
	syncStatus    *memSyncStatus
	notifications *memNotifications
	repos         *repository.Repositories
	logger        *zap.Logger
}

func newTestEnv() *testEnv {
	env := &testEnv{
		stores:        &memStores{},
		erpItems:      &memErpItems{rows: map[domain.ErpItemKey]*domain.ErpItem{}},
		hybrid:        &memHybridStock{},
		variants:      &memVariants{},
		orders:        &memOrders{rows: map[uuid.UUID]*domain.Order{}},
		splits:        &memSplits{rows: map[uuid.UUID]*domain.OrderSplit{}},
		syncStatus:    &memSyncStatus{rows: map[uuid.UUID]*domain.SyncStatus{}},
		notifications: &memNotifications{},
		logger:        zap.NewNop(),
	}
	env.repos = &repository.Repositories{
		Store:             env.stores,
		ErpItem:           env.erpItems,
		HybridStock:       env.hybrid,
		StorefrontVariant: env.variants,
		Order:             env.orders,
		OrderSplit:        env.splits,
		SyncStatus:        env.syncStatus,
		NotificationLog:   env.notifications,
		IdempotencyKey:    &memIdempotencyKeys{rows: map[string]*domain.IdempotencyKey{}},
	}
	return env
}

func (env *testEnv) notificationLog() *NotificationLogService {
	return NewNotificationLogService(env.notifications, env.logger)
}

func intPtr(n int) *int         { return &n }
func int64Ptr(n int64) *int64   { return &n }
func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

// stores

type memStores struct {
	rows []*domain.Store
}

func (m *memStores) add(s *domain.Store) *domain.Store {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = domain.StoreStatusActive
	}
	m.rows = append(m.rows, s)
	return s
}

func (m *memStores) ListActive(ctx context.Context) ([]*domain.Store, error) {
	var out []*domain.Store
	for _, s := range m.rows {
		if s.IsActive() {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ErpStoreID < out[j].ErpStoreID })
	return out, nil
}

func (m *memStores) List(ctx context.Context) ([]*domain.Store, error) {
	out := make([]*domain.Store, 0, len(m.rows))
	for _, s := range m.rows {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStores) GetByCode(ctx context.Context, code string) (*domain.Store, error) {
	for _, s := range m.rows {
		if s.StoreCode == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "store", ID: code}
}

func (m *memStores) GetByErpStoreID(ctx context.Context, id int) (*domain.Store, error) {
	for _, s := range m.rows {
		if s.ErpStoreID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "store", ID: "outlet"}
}

func (m *memStores) ListActiveBackupWarehouses(ctx context.Context) ([]*domain.Store, error) {
	var out []*domain.Store
	for _, s := range m.rows {
		if s.IsActive() && s.IsBackupWarehouse {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStores) Upsert(ctx context.Context, s *domain.Store) error {
	for i, existing := range m.rows {
		if existing.StoreCode == s.StoreCode {
			cp := *s
			m.rows[i] = &cp
			return nil
		}
	}
	m.add(s)
	return nil
}

// ERP mirror

type memErpItems struct {
	rows map[domain.ErpItemKey]*domain.ErpItem
	// sizes of every UpsertBatch call, including failed ones
	batches []int
	// failBatch makes the n-th UpsertBatch call (1-based) fail
	failBatch int
}

func (m *memErpItems) seed(items ...*domain.ErpItem) {
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		cp := *it
		m.rows[it.Key()] = &cp
	}
}

func (m *memErpItems) get(itemID int64, outlet int) *domain.ErpItem {
	return m.rows[domain.ErpItemKey{ItemID: itemID, OutletID: outlet}]
}

func (m *memErpItems) LatestTimestamp(ctx context.Context, outletID int) (int64, error) {
	var ts int64
	for k, it := range m.rows {
		if k.OutletID == outletID && it.ItemTimeStamp > ts {
			ts = it.ItemTimeStamp
		}
	}
	return ts, nil
}

func (m *memErpItems) GetByKeys(ctx context.Context, keys []domain.ErpItemKey) (map[domain.ErpItemKey]*domain.ErpItem, error) {
	out := make(map[domain.ErpItemKey]*domain.ErpItem, len(keys))
	for _, k := range keys {
		if it, ok := m.rows[k]; ok {
			cp := *it
			out[k] = &cp
		}
	}
	return out, nil
}

func (m *memErpItems) UpsertBatch(ctx context.Context, items []*domain.ErpItem) error {
	if len(items) == 0 {
		return nil
	}
	m.batches = append(m.batches, len(items))
	if m.failBatch == len(m.batches) {
		return errors.New("connection reset")
	}
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		cp := *it
		m.rows[it.Key()] = &cp
	}
	return nil
}

func (m *memErpItems) ListByItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.ErpItem, error) {
	wanted := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}
	var out []*domain.ErpItem
	for _, it := range m.rows {
		if _, ok := wanted[it.ItemID]; ok {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

// hybrid stock

type memHybridStock struct {
	rows []*domain.HybridStockRecord
}

func (m *memHybridStock) UpsertBatch(ctx context.Context, records []*domain.HybridStockRecord) error {
	for _, rec := range records {
		cp := *rec
		replaced := false
		for i, existing := range m.rows {
			if existing.SKU == rec.SKU && existing.OutletID == rec.OutletID {
				cp.ID = existing.ID
				m.rows[i] = &cp
				replaced = true
				break
			}
		}
		if !replaced {
			if cp.ID == uuid.Nil {
				cp.ID = uuid.New()
			}
			m.rows = append(m.rows, &cp)
		}
	}
	return nil
}

func (m *memHybridStock) FindCandidates(ctx context.Context, sku string, productID int64, minPrimary int) ([]*domain.HybridStockRecord, error) {
	var out []*domain.HybridStockRecord
	for _, r := range m.rows {
		if r.SKU != sku || r.PrimaryStock < minPrimary {
			continue
		}
		if productID != 0 && r.ProductID != productID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PrimaryStock != out[j].PrimaryStock {
			return out[i].PrimaryStock > out[j].PrimaryStock
		}
		return out[i].OutletID < out[j].OutletID
	})
	return out, nil
}

func (m *memHybridStock) List(ctx context.Context, f repository.HybridStockFilter) ([]*domain.HybridStockRecord, int, error) {
	var out []*domain.HybridStockRecord
	for _, r := range m.rows {
		if (f.SKU == "" || r.SKU == f.SKU) && (f.OutletID == 0 || r.OutletID == f.OutletID) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memHybridStock) GetBySKUAndOutlets(ctx context.Context, sku string, outletIDs []int) ([]*domain.HybridStockRecord, error) {
	var out []*domain.HybridStockRecord
	for _, r := range m.rows {
		if r.SKU != sku {
			continue
		}
		for _, id := range outletIDs {
			if r.OutletID == id {
				cp := *r
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

// storefront variants

type memVariants struct {
	rows []*domain.StorefrontVariant
}

func (m *memVariants) filter(keep func(*domain.StorefrontVariant) bool) []*domain.StorefrontVariant {
	var out []*domain.StorefrontVariant
	for _, v := range m.rows {
		if keep(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out
}

func linked(v *domain.StorefrontVariant) bool { return v.ErpItemID != 0 && v.OutletID != 0 }

func (m *memVariants) ListNewProducts(ctx context.Context) ([]*domain.StorefrontVariant, error) {
	return m.filter(func(v *domain.StorefrontVariant) bool { return v.IsNewProduct && linked(v) }), nil
}

func (m *memVariants) ListLinked(ctx context.Context) ([]*domain.StorefrontVariant, error) {
	return m.filter(linked), nil
}

func (m *memVariants) ListByErpItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.StorefrontVariant, error) {
	return m.filter(func(v *domain.StorefrontVariant) bool {
		for _, id := range itemIDs {
			if v.ErpItemID == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *memVariants) ListByVariantIDs(ctx context.Context, variantIDs []int64) ([]*domain.StorefrontVariant, error) {
	return m.filter(func(v *domain.StorefrontVariant) bool {
		for _, id := range variantIDs {
			if v.VariantID == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *memVariants) MarkPriceSynced(ctx context.Context, variantIDs []int64) error {
	for _, v := range m.rows {
		for _, id := range variantIDs {
			if v.VariantID == id {
				v.IsNewProduct = false
			}
		}
	}
	return nil
}

func (m *memVariants) Upsert(ctx context.Context, v *domain.StorefrontVariant) error {
	cp := *v
	for i, existing := range m.rows {
		if existing.VariantID == v.VariantID {
			m.rows[i] = &cp
			return nil
		}
	}
	m.rows = append(m.rows, &cp)
	return nil
}

// orders

type memOrders struct {
	rows map[uuid.UUID]*domain.Order
}

func (m *memOrders) add(o *domain.Order) *domain.Order {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	cp := *o
	m.rows[o.ID] = &cp
	return o
}

func (m *memOrders) Upsert(ctx context.Context, o *domain.Order) (bool, error) {
	for id, existing := range m.rows {
		if existing.ShopifyOrderID == o.ShopifyOrderID {
			o.ID = id
			o.CreatedAt = existing.CreatedAt
			cp := *o
			m.rows[id] = &cp
			return false, nil
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.CreatedAt = time.Now()
	cp := *o
	m.rows[o.ID] = &cp
	return true, nil
}

func (m *memOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.rows[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	for _, o := range m.rows {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "order", ID: orderNumber}
}

func (m *memOrders) UpdateShippingCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	o, ok := m.rows[id]
	if !ok {
		return &apperrors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	o.ShippingAddress.Latitude = &lat
	o.ShippingAddress.Longitude = &lng
	return nil
}

// order splits

type memSplits struct {
	rows map[uuid.UUID]*domain.OrderSplit
	seq  int
}

func cloneSplit(s *domain.OrderSplit) *domain.OrderSplit {
	cp := *s
	cp.LineItems = append([]domain.SplitLineItem(nil), s.LineItems...)
	if s.TimeStamp != nil {
		cp.TimeStamp = make(map[domain.SplitStatus]time.Time, len(s.TimeStamp))
		for k, v := range s.TimeStamp {
			cp.TimeStamp[k] = v
		}
	}
	return &cp
}

func (m *memSplits) create(s *domain.OrderSplit) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		// strictly increasing so ListByOrder keeps insertion order
		m.seq++
		s.CreatedAt = time.Date(2024, 3, 1, 0, 0, m.seq, 0, time.UTC)
	}
	m.rows[s.ID] = cloneSplit(s)
}

func (m *memSplits) Create(ctx context.Context, s *domain.OrderSplit) error {
	m.create(s)
	return nil
}

func (m *memSplits) Update(ctx context.Context, s *domain.OrderSplit) error {
	if _, ok := m.rows[s.ID]; !ok {
		return &apperrors.ErrNotFound{Resource: "order_split", ID: s.ID.String()}
	}
	m.rows[s.ID] = cloneSplit(s)
	return nil
}

func (m *memSplits) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderSplit, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "order_split", ID: id.String()}
	}
	return cloneSplit(s), nil
}

func (m *memSplits) ListByOrder(ctx context.Context, orderReferenceID uuid.UUID) ([]*domain.OrderSplit, error) {
	var out []*domain.OrderSplit
	for _, s := range m.rows {
		if s.OrderReferenceID == orderReferenceID {
			out = append(out, cloneSplit(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memSplits) ApplyReassignment(ctx context.Context, creates, updates []*domain.OrderSplit, deletes []uuid.UUID) error {
	for _, id := range deletes {
		delete(m.rows, id)
	}
	for _, s := range updates {
		if err := m.Update(ctx, s); err != nil {
			return err
		}
	}
	for _, s := range creates {
		m.create(s)
	}
	return nil
}

func (m *memSplits) byStore(orderID uuid.UUID, storeCode string) *domain.OrderSplit {
	for _, s := range m.rows {
		if s.OrderReferenceID == orderID && s.StoreCode == storeCode {
			return s
		}
	}
	return nil
}

// sync status

type memSyncStatus struct {
	rows    map[uuid.UUID]*domain.SyncStatus
	updates int
}

func (m *memSyncStatus) Create(ctx context.Context, s *domain.SyncStatus) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSyncStatus) Update(ctx context.Context, s *domain.SyncStatus) error {
	if _, ok := m.rows[s.ID]; !ok {
		return &apperrors.ErrNotFound{Resource: "sync_status", ID: s.ID.String()}
	}
	m.updates++
	cp := *s
	m.rows[s.ID] = &cp
	return nil
}

func (m *memSyncStatus) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error) {
	s, ok := m.rows[id]
	if !ok {
		return nil, &apperrors.ErrNotFound{Resource: "sync_status", ID: id.String()}
	}
	cp := *s
	return &cp, nil
}

func (m *memSyncStatus) sorted() []*domain.SyncStatus {
	out := make([]*domain.SyncStatus, 0, len(m.rows))
	for _, s := range m.rows {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSyncStartedAt.After(out[j].LastSyncStartedAt) })
	return out
}

func (m *memSyncStatus) Latest(ctx context.Context) (*domain.SyncStatus, error) {
	all := m.sorted()
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (m *memSyncStatus) ListRecent(ctx context.Context, limit int) ([]*domain.SyncStatus, error) {
	all := m.sorted()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memSyncStatus) ListStale(ctx context.Context, startedBefore time.Time) ([]*domain.SyncStatus, error) {
	var out []*domain.SyncStatus
	for _, s := range m.sorted() {
		if s.IsSyncing && s.LastSyncStartedAt.Before(startedBefore) {
			out = append(out, s)
		}
	}
	return out, nil
}

// notification log

type memNotifications struct {
	mu      sync.Mutex
	entries []*domain.NotificationLogEntry
}

func (m *memNotifications) Create(ctx context.Context, e *domain.NotificationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memNotifications) List(ctx context.Context, limit, offset int) ([]*domain.NotificationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*domain.NotificationLogEntry(nil), m.entries...)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.NotificationViewStatus == domain.ViewStatusUnread {
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.NotificationViewStatus = domain.ViewStatusRead
			return nil
		}
	}
	return &apperrors.ErrNotFound{Resource: "notification", ID: id.String()}
}

func (m *memNotifications) MarkAllRead(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.entries {
		if e.NotificationViewStatus == domain.ViewStatusUnread {
			e.NotificationViewStatus = domain.ViewStatusRead
			n++
		}
	}
	return n, nil
}

func (m *memNotifications) ofType(t domain.LogType) []*domain.NotificationLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.NotificationLogEntry
	for _, e := range m.entries {
		if e.LogType == t {
			out = append(out, e)
		}
	}
	return out
}

type memIdempotencyKeys struct {
	rows map[string]*domain.IdempotencyKey
}

func (m *memIdempotencyKeys) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	// a missing key is (nil, nil), like the postgres repository
	return m.rows[key], nil
}

func (m *memIdempotencyKeys) Create(ctx context.Context, k *domain.IdempotencyKey) error {
	m.rows[k.Key] = k
	return nil
}

// leases

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	// every key ever acquired, in order
	acquired []string
	// keys whose lease is handed out already lost
	lose map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
}

func (l *fakeLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (lock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, lock.ErrLeaseHeld
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	lease := &fakeLease{locker: l, key: key, lost: make(chan struct{})}
	if l.lose[key] {
		close(lease.lost)
	}
	return lease, nil
}

type fakeLease struct {
	locker *fakeLocker
	key    string
	lost   chan struct{}
}

func (f *fakeLease) Key() string           { return f.key }
func (f *fakeLease) Lost() <-chan struct{} { return f.lost }

func (f *fakeLease) Release(ctx context.Context) error {
	f.locker.mu.Lock()
	defer f.locker.mu.Unlock()
	delete(f.locker.held, f.key)
	return nil
}

// ERP

type erpQuery struct {
	filter string
	page   int
	limit  int
}

type fakeERP struct {
	// pages per filter string, indexed by page-1
	pages   map[string][]*erp.ItemsPage
	errs    map[string]error
	queries []erpQuery

	pushed  []*erp.SalesOrder
	pushErr error
}

func newFakeERP() *fakeERP {
	return &fakeERP{pages: map[string][]*erp.ItemsPage{}, errs: map[string]error{}}
}

func (f *fakeERP) QueryItems(ctx context.Context, filter *erp.Filter, page, limit int) (*erp.ItemsPage, error) {
	key := filter.String()
	f.queries = append(f.queries, erpQuery{filter: key, page: page, limit: limit})
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	pages := f.pages[key]
	if page-1 >= len(pages) {
		return &erp.ItemsPage{TotalPages: len(pages)}, nil
	}
	return pages[page-1], nil
}

func (f *fakeERP) PushSalesOrder(ctx context.Context, order *erp.SalesOrder) (*erp.SalesOrderResponse, error) {
	f.pushed = append(f.pushed, order)
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return &erp.SalesOrderResponse{OrderID: "SO-" + order.OnlineReferenceNo, Status: "ok"}, nil
}

// storefront

type fakeStorefront struct {
	priceBatches    [][]shopify.VariantPriceUpdate
	quantityBatches [][]shopify.OnHandQuantity
	rejected        map[int64]string
	priceErr        error
	quantityErr     error
	locations       map[int64][]int64
}

func (f *fakeStorefront) BulkUpdatePrices(ctx context.Context, updates []shopify.VariantPriceUpdate) (*shopify.BulkPriceResult, error) {
	f.priceBatches = append(f.priceBatches, updates)
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	res := &shopify.BulkPriceResult{Failed: map[int64]string{}}
	for _, u := range updates {
		if msg, ok := f.rejected[u.VariantID]; ok {
			res.Failed[u.VariantID] = msg
			continue
		}
		res.Updated = append(res.Updated, u.VariantID)
	}
	return res, nil
}

func (f *fakeStorefront) SetOnHandQuantities(ctx context.Context, quantities []shopify.OnHandQuantity) error {
	f.quantityBatches = append(f.quantityBatches, quantities)
	return f.quantityErr
}

func (f *fakeStorefront) InventoryItemLocationIDs(ctx context.Context, inventoryItemID int64) ([]int64, error) {
	return f.locations[inventoryItemID], nil
}

// delivery

type fakeRider struct {
	serviceable bool
	svcErr      error
	taskErr     error
	requests    []*delivery.TaskRequest
	tasks       int
}

func (f *fakeRider) GetServiceability(ctx context.Context, req *delivery.TaskRequest) (*delivery.Serviceability, error) {
	f.requests = append(f.requests, req)
	if f.svcErr != nil {
		return nil, f.svcErr
	}
	if !f.serviceable {
		return &delivery.Serviceability{Serviceable: false, Message: "drop location out of range"}, nil
	}
	return &delivery.Serviceability{Serviceable: true}, nil
}

func (f *fakeRider) CreateTask(ctx context.Context, req *delivery.TaskRequest) (*delivery.Task, error) {
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	f.tasks++
	return &delivery.Task{TaskID: "T-100", RiderName: "Ravi", RiderContact: "9000000001", Message: "rider assigned"}, nil
}

type fakeGeocoder struct {
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	f.calls++
	return 12.97, 77.59, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []*notify.CustomerNotification
	err  error
}

func (f *fakeQueue) EnqueueNotification(ctx context.Context, n *notify.CustomerNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}
