package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

type erpItemRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewErpItemRepository creates a new ERP item mirror repository
func NewErpItemRepository(db *sqlx.DB, logger *zap.Logger) *erpItemRepository {
	return &erpItemRepository{
		db:     db,
		logger: logger,
	}
}

type erpItemRow struct {
	ID            uuid.UUID       `db:"id"`
	ItemID        int64           `db:"item_id"`
	ItemName      string          `db:"item_name"`
	OutletID      int             `db:"outlet_id"`
	MRP           decimal.Decimal `db:"mrp"`
	Stock         int             `db:"stock"`
	ItemTimeStamp int64           `db:"item_time_stamp"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r erpItemRow) toDomain() *domain.ErpItem {
	return &domain.ErpItem{
		ID:            r.ID,
		ItemID:        r.ItemID,
		ItemName:      r.ItemName,
		OutletID:      r.OutletID,
		MRP:           r.MRP,
		Stock:         r.Stock,
		ItemTimeStamp: r.ItemTimeStamp,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

const erpItemSelect = `SELECT id, item_id, COALESCE(item_name, '') AS item_name, outlet_id, mrp, stock,
	item_time_stamp, created_at, updated_at FROM erp_items`

func (r *erpItemRepository) LatestTimestamp(ctx context.Context, outletID int) (int64, error) {
	var ts int64
	err := r.db.GetContext(ctx, &ts,
		`SELECT COALESCE(MAX(item_time_stamp), 0) FROM erp_items WHERE outlet_id = $1`, outletID)
	if err != nil {
		r.logger.Error("Failed to read ERP watermark", zap.Int("outlet_id", outletID), zap.Error(err))
		return 0, err
	}
	return ts, nil
}

func (r *erpItemRepository) GetByKeys(ctx context.Context, keys []domain.ErpItemKey) (map[domain.ErpItemKey]*domain.ErpItem, error) {
	out := make(map[domain.ErpItemKey]*domain.ErpItem, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	// (item_id, outlet_id) IN ((?, ?), ...) is not expressible with sqlx.In,
	// so filter on both id sets and match exact pairs in memory.
	itemSet := make(map[int64]struct{})
	outletSet := make(map[int]struct{})
	for _, k := range keys {
		itemSet[k.ItemID] = struct{}{}
		outletSet[k.OutletID] = struct{}{}
	}
	itemIDs := make([]int64, 0, len(itemSet))
	for id := range itemSet {
		itemIDs = append(itemIDs, id)
	}
	outletIDs := make([]int, 0, len(outletSet))
	for id := range outletSet {
		outletIDs = append(outletIDs, id)
	}

	query, args, err := sqlx.In(erpItemSelect+` WHERE item_id IN (?) AND outlet_id IN (?)`, itemIDs, outletIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []erpItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to load ERP items by key", zap.Error(err))
		return nil, err
	}

	wanted := make(map[domain.ErpItemKey]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	for _, row := range rows {
		item := row.toDomain()
		if _, ok := wanted[item.Key()]; ok {
			out[item.Key()] = item
		}
	}
	return out, nil
}

func (r *erpItemRepository) UpsertBatch(ctx context.Context, items []*domain.ErpItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO erp_items (id, item_id, item_name, outlet_id, mrp, stock, item_time_stamp, created_at, updated_at)
		VALUES (:id, :item_id, :item_name, :outlet_id, :mrp, :stock, :item_time_stamp, :created_at, :updated_at)
		ON CONFLICT (item_id, outlet_id) DO UPDATE SET
			item_name = EXCLUDED.item_name,
			mrp = EXCLUDED.mrp,
			stock = EXCLUDED.stock,
			item_time_stamp = EXCLUDED.item_time_stamp,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now

		if _, err := stmt.ExecContext(ctx, erpItemRow{
			ID:            item.ID,
			ItemID:        item.ItemID,
			ItemName:      item.ItemName,
			OutletID:      item.OutletID,
			MRP:           item.MRP,
			Stock:         item.Stock,
			ItemTimeStamp: item.ItemTimeStamp,
			CreatedAt:     item.CreatedAt,
			UpdatedAt:     item.UpdatedAt,
		}); err != nil {
			r.logger.Error("Failed to upsert ERP item",
				zap.Int64("item_id", item.ItemID),
				zap.Int("outlet_id", item.OutletID),
				zap.Error(err),
			)
			return fmt.Errorf("upsert erp item (%d,%d): %w", item.ItemID, item.OutletID, err)
		}
	}

	return tx.Commit()
}

func (r *erpItemRepository) ListByItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.ErpItem, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(erpItemSelect+` WHERE item_id IN (?)`, itemIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var rows []erpItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list ERP items", zap.Error(err))
		return nil, err
	}
	out := make([]*domain.ErpItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
