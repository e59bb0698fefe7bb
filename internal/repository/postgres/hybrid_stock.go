package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

type hybridStockRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewHybridStockRepository creates a new hybrid stock repository
func NewHybridStockRepository(db *sqlx.DB, logger *zap.Logger) *hybridStockRepository {
	return &hybridStockRepository{
		db:     db,
		logger: logger,
	}
}

type hybridStockRow struct {
	ID           uuid.UUID `db:"id"`
	SKU          string    `db:"sku"`
	OutletID     int       `db:"outlet_id"`
	ProductID    int64     `db:"product_id"`
	VariantID    int64     `db:"variant_id"`
	PrimaryStock int       `db:"primary_stock"`
	BackUpStock  int       `db:"back_up_stock"`
	HybridStock  int       `db:"hybrid_stock"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r hybridStockRow) toDomain() *domain.HybridStockRecord {
	return &domain.HybridStockRecord{
		ID:           r.ID,
		SKU:          r.SKU,
		OutletID:     r.OutletID,
		ProductID:    r.ProductID,
		VariantID:    r.VariantID,
		PrimaryStock: r.PrimaryStock,
		BackUpStock:  r.BackUpStock,
		HybridStock:  r.HybridStock,
		UpdatedAt:    r.UpdatedAt,
	}
}

const hybridStockSelect = `SELECT id, sku, outlet_id, product_id, variant_id, primary_stock,
	back_up_stock, hybrid_stock, updated_at FROM hybrid_stock`

func (r *hybridStockRepository) UpsertBatch(ctx context.Context, records []*domain.HybridStockRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO hybrid_stock (id, sku, outlet_id, product_id, variant_id, primary_stock, back_up_stock, hybrid_stock, updated_at)
		VALUES (:id, :sku, :outlet_id, :product_id, :variant_id, :primary_stock, :back_up_stock, :hybrid_stock, :updated_at)
		ON CONFLICT (sku, outlet_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			variant_id = EXCLUDED.variant_id,
			primary_stock = EXCLUDED.primary_stock,
			back_up_stock = EXCLUDED.back_up_stock,
			hybrid_stock = EXCLUDED.hybrid_stock,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, hybridStockRow{
			ID:           rec.ID,
			SKU:          rec.SKU,
			OutletID:     rec.OutletID,
			ProductID:    rec.ProductID,
			VariantID:    rec.VariantID,
			PrimaryStock: rec.PrimaryStock,
			BackUpStock:  rec.BackUpStock,
			HybridStock:  rec.HybridStock,
			UpdatedAt:    rec.UpdatedAt,
		}); err != nil {
			r.logger.Error("Failed to upsert hybrid stock",
				zap.String("sku", rec.SKU),
				zap.Int("outlet_id", rec.OutletID),
				zap.Error(err),
			)
			return fmt.Errorf("upsert hybrid stock (%s,%d): %w", rec.SKU, rec.OutletID, err)
		}
	}
	return tx.Commit()
}

func (r *hybridStockRepository) FindCandidates(ctx context.Context, sku string, productID int64, minPrimary int) ([]*domain.HybridStockRecord, error) {
	query := hybridStockSelect + ` WHERE sku = $1 AND primary_stock >= $2`
	args := []interface{}{sku, minPrimary}
	if productID != 0 {
		query += ` AND product_id = $3`
		args = append(args, productID)
	}
	query += ` ORDER BY primary_stock DESC, outlet_id ASC`

	var rows []hybridStockRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to find reassignment candidates", zap.String("sku", sku), zap.Error(err))
		return nil, err
	}
	return toHybridRecords(rows), nil
}

func (r *hybridStockRepository) List(ctx context.Context, f repository.HybridStockFilter) ([]*domain.HybridStockRecord, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}
	if f.SKU != "" {
		conditions = append(conditions, "sku = :sku")
		args["sku"] = f.SKU
	}
	if f.OutletID != 0 {
		conditions = append(conditions, "outlet_id = :outlet_id")
		args["outlet_id"] = f.OutletID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM hybrid_stock"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := hybridStockSelect + whereClause + " ORDER BY sku ASC, outlet_id ASC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}

	var rows []hybridStockRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(listQuery), listArgs...); err != nil {
		r.logger.Error("Failed to list hybrid stock", zap.Error(err))
		return nil, 0, err
	}
	return toHybridRecords(rows), count, nil
}

func (r *hybridStockRepository) GetBySKUAndOutlets(ctx context.Context, sku string, outletIDs []int) ([]*domain.HybridStockRecord, error) {
	if len(outletIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(hybridStockSelect+` WHERE sku = ? AND outlet_id IN (?)`, sku, outletIDs)
	if err != nil {
		return nil, err
	}
	var rows []hybridStockRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return toHybridRecords(rows), nil
}

func toHybridRecords(rows []hybridStockRow) []*domain.HybridStockRecord {
	out := make([]*domain.HybridStockRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
