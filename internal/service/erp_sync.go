package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/config"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/erp"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/lock"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
	apperrors "github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

const (
	maxERPPageSize     = 10000
	defaultUpsertChunk = 250
	// incremental queries walk pages of this size until total_pages is reached
	incrementalPageSize = 1000
)

var errLeaseLost = errors.New("lease lost during sync")

// ErpSyncResult is the outcome of an incremental mirror sync.
type ErpSyncResult struct {
	Created        int   `json:"created"`
	Updated        int   `json:"updated"`
	Invalid        int   `json:"invalid"`
	SkippedOutlets []int `json:"skippedOutlets,omitempty"`
	FailedOutlets  []int `json:"failedOutlets,omitempty"`
}

// FullSyncResult is the outcome of a full sweep.
type FullSyncResult struct {
	Success        bool  `json:"success"`
	Created        int   `json:"created"`
	Updated        int   `json:"updated"`
	Pages          int   `json:"pages"`
	SkippedOutlets []int `json:"skippedOutlets,omitempty"`
}

// ErpSyncService mirrors ERP stock rows into erp_items.
type ErpSyncService struct {
	repos         *repository.Repositories
	client        ERPClient
	locker        lock.Locker
	hybrid        *HybridStockService
	notifications *NotificationLogService
	validate      *validator.Validate
	cfg           config.ERPConfig
	logger        *zap.Logger
}

// NewErpSyncService creates a new ERP mirror sync service
func NewErpSyncService(
	cfg config.ERPConfig,
	repos *repository.Repositories,
	client ERPClient,
	locker lock.Locker,
	hybrid *HybridStockService,
	notifications *NotificationLogService,
	logger *zap.Logger,
) *ErpSyncService {
	if cfg.UpsertChunk <= 0 {
		cfg.UpsertChunk = defaultUpsertChunk
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxERPPageSize {
		cfg.PageSize = maxERPPageSize
	}
	return &ErpSyncService{
		repos:         repos,
		client:        client,
		locker:        locker,
		hybrid:        hybrid,
		notifications: notifications,
		validate:      validator.New(),
		cfg:           cfg,
		logger:        logger,
	}
}

// SyncIncremental pulls rows changed since each outlet's watermark. With
// outletID 0 every active store is swept in ascending erpStoreId order; a
// failing outlet is reported and the sweep moves on.
func (s *ErpSyncService) SyncIncremental(ctx context.Context, outletID int) (*ErpSyncResult, error) {
	global, err := s.acquire(ctx, lock.Key(lock.SyncTypeERP, 0))
	if err != nil {
		return nil, err
	}
	defer s.release(global)

	outlets, err := s.incrementalOutlets(ctx, outletID)
	if err != nil {
		return nil, err
	}

	result := &ErpSyncResult{}
	for _, outlet := range outlets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		select {
		case <-global.Lost():
			return result, errLeaseLost
		default:
		}

		lease, err := s.acquire(ctx, lock.Key(lock.SyncTypeERP, outlet))
		if err != nil {
			var inProgress *apperrors.ErrSyncInProgress
			if errors.As(err, &inProgress) {
				s.logger.Warn("ERP sync: outlet already processing, skipping", zap.Int("outlet_id", outlet))
				result.SkippedOutlets = append(result.SkippedOutlets, outlet)
				continue
			}
			return result, err
		}

		stats, err := s.syncOutlet(ctx, lease, outlet)
		s.release(lease)

		result.Created += stats.created
		result.Updated += stats.updated
		result.Invalid += stats.invalid
		if err != nil {
			s.logger.Error("ERP sync: outlet failed", zap.Int("outlet_id", outlet), zap.Error(err))
			s.notifications.Error(ctx, fmt.Sprintf("ERP sync failed for outlet %d", outlet), err)
			result.FailedOutlets = append(result.FailedOutlets, outlet)
			continue
		}
		s.notifications.Info(ctx,
			fmt.Sprintf("ERP sync completed for outlet %d", outlet),
			fmt.Sprintf("**Created:** %d\n\n**Updated:** %d\n\n**Invalid rows:** %d", stats.created, stats.updated, stats.invalid),
		)
		s.refreshHybrid(ctx, stats.changedItems)
	}

	s.logger.Info("ERP incremental sync finished",
		zap.Int("outlets", len(outlets)),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Ints("failed_outlets", result.FailedOutlets),
	)
	return result, nil
}

func (s *ErpSyncService) incrementalOutlets(ctx context.Context, outletID int) ([]int, error) {
	if outletID != 0 {
		store, err := s.repos.Store.GetByErpStoreID(ctx, outletID)
		if err != nil {
			return nil, err
		}
		if !store.IsActive() {
			return nil, &apperrors.ErrValidation{Message: fmt.Sprintf("store for outlet %d is inactive", outletID)}
		}
		return []int{outletID}, nil
	}

	stores, err := s.repos.Store.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	outlets := make([]int, 0, len(stores))
	for _, st := range stores {
		outlets = append(outlets, st.ErpStoreID)
	}
	sort.Ints(outlets)
	return outlets, nil
}

type outletStats struct {
	created      int
	updated      int
	invalid      int
	pages        int
	changedItems []int64
}

func (s *ErpSyncService) syncOutlet(ctx context.Context, lease lock.Lease, outlet int) (outletStats, error) {
	var stats outletStats

	watermark, err := s.repos.ErpItem.LatestTimestamp(ctx, outlet)
	if err != nil {
		return stats, fmt.Errorf("read watermark: %w", err)
	}
	filter := erp.OutletSince(outlet, watermark)
	s.logger.Debug("ERP sync: querying outlet",
		zap.Int("outlet_id", outlet),
		zap.Int64("watermark", watermark),
		zap.String("filter", filter.String()),
	)

	for page := 1; ; page++ {
		select {
		case <-lease.Lost():
			return stats, errLeaseLost
		default:
		}

		resp, err := s.client.QueryItems(ctx, filter, page, incrementalPageSize)
		if err != nil {
			return stats, fmt.Errorf("query page %d: %w", page, err)
		}
		stats.pages++

		rows, invalid := s.toMirrorRows(resp.Items)
		stats.invalid += invalid

		// chunks already written stay written; the first chunk error is reported
		created, updated, changed, upsertErr := s.upsertRows(ctx, rows)
		stats.created += created
		stats.updated += updated
		stats.changedItems = append(stats.changedItems, changed...)
		if upsertErr != nil {
			return stats, upsertErr
		}

		if page >= resp.TotalPages || len(resp.Items) == 0 {
			break
		}
	}
	return stats, nil
}

// SyncFull sweeps the configured outlet universe page by page. The watermark
// is lowered by one to pick up rows sharing the boundary timestamp. The first
// error aborts the whole sweep.
func (s *ErpSyncService) SyncFull(ctx context.Context) (*FullSyncResult, error) {
	global, err := s.acquire(ctx, lock.Key(lock.SyncTypeERP, 0))
	if err != nil {
		return nil, err
	}
	defer s.release(global)

	outlets := append([]int(nil), s.cfg.OutletUniverse...)
	if len(outlets) == 0 {
		if outlets, err = s.incrementalOutlets(ctx, 0); err != nil {
			return nil, err
		}
	}
	sort.Ints(outlets)

	result := &FullSyncResult{Success: true}
	var changed []int64
	var sweepErr error

sweep:
	for _, outlet := range outlets {
		select {
		case <-global.Lost():
			s.logger.Error("ERP full sync: global lease lost, stopping", zap.Int("next_outlet_id", outlet))
			s.notifications.Error(ctx, "ERP full sync aborted", errLeaseLost)
			result.Success = false
			sweepErr = errLeaseLost
			break sweep
		default:
		}

		lease, err := s.acquire(ctx, lock.Key(lock.SyncTypeERP, outlet))
		if err != nil {
			var inProgress *apperrors.ErrSyncInProgress
			if errors.As(err, &inProgress) {
				s.logger.Warn("ERP full sync: outlet already processing, skipping", zap.Int("outlet_id", outlet))
				result.SkippedOutlets = append(result.SkippedOutlets, outlet)
				continue
			}
			result.Success = false
			s.notifications.Error(ctx, "ERP full sync aborted", err)
			break
		}

		stats, err := s.sweepOutlet(ctx, lease, outlet)
		s.release(lease)

		result.Created += stats.created
		result.Updated += stats.updated
		result.Pages += stats.pages
		changed = append(changed, stats.changedItems...)

		if err != nil {
			s.logger.Error("ERP full sync: aborting on outlet failure", zap.Int("outlet_id", outlet), zap.Error(err))
			s.notifications.Error(ctx, fmt.Sprintf("ERP full sync aborted at outlet %d", outlet), err)
			result.Success = false
			break sweep
		}
	}

	if result.Success {
		s.notifications.Info(ctx, "ERP full sync completed",
			fmt.Sprintf("**Outlets:** %d\n\n**Pages:** %d\n\n**Created:** %d\n\n**Updated:** %d",
				len(outlets), result.Pages, result.Created, result.Updated))
	}
	s.refreshHybrid(ctx, changed)
	return result, sweepErr
}

func (s *ErpSyncService) sweepOutlet(ctx context.Context, lease lock.Lease, outlet int) (outletStats, error) {
	var stats outletStats

	latest, err := s.repos.ErpItem.LatestTimestamp(ctx, outlet)
	if err != nil {
		return stats, fmt.Errorf("read watermark: %w", err)
	}
	watermark := latest - 1
	if watermark < 0 {
		watermark = 0
	}
	filter := erp.OutletSince(outlet, watermark)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		select {
		case <-lease.Lost():
			return stats, errLeaseLost
		default:
		}

		resp, err := s.client.QueryItems(ctx, filter, page, s.cfg.PageSize)
		if err != nil {
			return stats, fmt.Errorf("query page %d: %w", page, err)
		}
		stats.pages++

		rows, invalid := s.toMirrorRows(resp.Items)
		stats.invalid += invalid
		created, updated, changed, err := s.upsertRows(ctx, rows)
		stats.created += created
		stats.updated += updated
		stats.changedItems = append(stats.changedItems, changed...)
		if err != nil {
			return stats, err
		}

		s.notifications.Info(ctx,
			fmt.Sprintf("ERP full sync outlet %d page %d/%d", outlet, page, resp.TotalPages),
			fmt.Sprintf("**Rows:** %d\n\n**Created:** %d\n\n**Updated:** %d", len(resp.Items), created, updated),
		)

		if page >= resp.TotalPages || len(resp.Items) == 0 {
			break
		}
	}
	return stats, nil
}

// toMirrorRows converts and validates ERP rows. Duplicate keys in one
// response keep the last occurrence.
func (s *ErpSyncService) toMirrorRows(items []erp.Item) ([]*domain.ErpItem, int) {
	invalid := 0
	index := make(map[domain.ErpItemKey]int, len(items))
	rows := make([]*domain.ErpItem, 0, len(items))
	for _, it := range items {
		row := &domain.ErpItem{
			ItemID:        it.ItemID,
			ItemName:      it.ItemName,
			OutletID:      it.OutletID,
			MRP:           it.MRP,
			Stock:         int(it.Stock.IntPart()),
			ItemTimeStamp: int64(it.ItemTimeStamp),
		}
		if err := s.validate.Struct(row); err != nil {
			invalid++
			s.logger.Warn("ERP sync: skipping invalid row",
				zap.Int64("item_id", it.ItemID),
				zap.Int("outlet_id", it.OutletID),
				zap.Error(err),
			)
			continue
		}
		if i, ok := index[row.Key()]; ok {
			rows[i] = row
			continue
		}
		index[row.Key()] = len(rows)
		rows = append(rows, row)
	}
	return rows, invalid
}

// upsertRows writes rows in chunks keyed on (itemId, outletId). Rows whose
// content already matches the mirror are not written. Every chunk is
// attempted; the first chunk error is returned.
func (s *ErpSyncService) upsertRows(ctx context.Context, rows []*domain.ErpItem) (created, updated int, changedItems []int64, firstErr error) {
	for start := 0; start < len(rows); start += s.cfg.UpsertChunk {
		end := start + s.cfg.UpsertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		c, u, changed, err := s.upsertChunk(ctx, chunk)
		if err != nil {
			s.logger.Error("ERP sync: chunk upsert failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created += c
		updated += u
		changedItems = append(changedItems, changed...)
	}
	return created, updated, changedItems, firstErr
}

func (s *ErpSyncService) upsertChunk(ctx context.Context, chunk []*domain.ErpItem) (created, updated int, changedItems []int64, err error) {
	keys := make([]domain.ErpItemKey, 0, len(chunk))
	for _, row := range chunk {
		keys = append(keys, row.Key())
	}
	existing, err := s.repos.ErpItem.GetByKeys(ctx, keys)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("load existing rows: %w", err)
	}

	var write []*domain.ErpItem
	for _, row := range chunk {
		prev, ok := existing[row.Key()]
		switch {
		case !ok:
			created++
		case prev.SameContent(row):
			continue
		default:
			row.ID = prev.ID
			row.CreatedAt = prev.CreatedAt
			updated++
		}
		write = append(write, row)
		changedItems = append(changedItems, row.ItemID)
	}

	if err := s.repos.ErpItem.UpsertBatch(ctx, write); err != nil {
		return 0, 0, nil, err
	}
	return created, updated, changedItems, nil
}

func (s *ErpSyncService) refreshHybrid(ctx context.Context, itemIDs []int64) {
	if s.hybrid == nil || len(itemIDs) == 0 {
		return
	}
	if _, err := s.hybrid.RecomputeForItems(ctx, uniqueInt64(itemIDs)); err != nil {
		s.logger.Error("ERP sync: hybrid stock refresh failed", zap.Error(err))
		s.notifications.Error(ctx, "Hybrid stock refresh failed", err)
	}
}

func (s *ErpSyncService) acquire(ctx context.Context, key string) (lock.Lease, error) {
	lease, err := s.locker.Acquire(ctx, key)
	if errors.Is(err, lock.ErrLeaseHeld) {
		return nil, &apperrors.ErrSyncInProgress{Scope: key}
	}
	return lease, err
}

func (s *ErpSyncService) release(lease lock.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(ctx); err != nil {
		s.logger.Warn("ERP sync: lease release failed", zap.String("key", lease.Key()), zap.Error(err))
	}
}

func uniqueInt64(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
