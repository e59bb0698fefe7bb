package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

type storefrontVariantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStorefrontVariantRepository creates a new storefront variant repository
func NewStorefrontVariantRepository(db *sql.DB, logger *zap.Logger) *storefrontVariantRepository {
	return &storefrontVariantRepository{
		db:     db,
		logger: logger,
	}
}

const variantColumns = `id, product_id, variant_id, inventory_item_id, sku, erp_item_id, outlet_id,
	tags, is_new_product, created_at, updated_at`

func (r *storefrontVariantRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.StorefrontVariant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list storefront variants", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*domain.StorefrontVariant
	for rows.Next() {
		var v domain.StorefrontVariant
		var erpItemID sql.NullInt64
		var outletID sql.NullInt64
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.VariantID,
			&v.InventoryItemID,
			&v.SKU,
			&erpItemID,
			&outletID,
			pq.Array(&v.Tags),
			&v.IsNewProduct,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, err
		}
		v.ErpItemID = erpItemID.Int64
		v.OutletID = int(outletID.Int64)
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (r *storefrontVariantRepository) ListNewProducts(ctx context.Context) ([]*domain.StorefrontVariant, error) {
	return r.list(ctx, `SELECT `+variantColumns+` FROM storefront_variants
		WHERE is_new_product AND erp_item_id IS NOT NULL AND outlet_id IS NOT NULL
		ORDER BY outlet_id, variant_id`)
}

func (r *storefrontVariantRepository) ListLinked(ctx context.Context) ([]*domain.StorefrontVariant, error) {
	return r.list(ctx, `SELECT `+variantColumns+` FROM storefront_variants
		WHERE erp_item_id IS NOT NULL AND outlet_id IS NOT NULL
		ORDER BY outlet_id, variant_id`)
}

func (r *storefrontVariantRepository) ListByErpItemIDs(ctx context.Context, itemIDs []int64) ([]*domain.StorefrontVariant, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+variantColumns+` FROM storefront_variants
		WHERE erp_item_id = ANY($1) ORDER BY variant_id`, pq.Array(itemIDs))
}

func (r *storefrontVariantRepository) ListByVariantIDs(ctx context.Context, variantIDs []int64) ([]*domain.StorefrontVariant, error) {
	if len(variantIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+variantColumns+` FROM storefront_variants
		WHERE variant_id = ANY($1) ORDER BY variant_id`, pq.Array(variantIDs))
}

func (r *storefrontVariantRepository) MarkPriceSynced(ctx context.Context, variantIDs []int64) error {
	if len(variantIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE storefront_variants SET is_new_product = FALSE, updated_at = $2
		WHERE variant_id = ANY($1)
	`, pq.Array(variantIDs), time.Now())
	if err != nil {
		r.logger.Error("Failed to mark variants price-synced", zap.Int("count", len(variantIDs)), zap.Error(err))
		return err
	}
	return nil
}

func (r *storefrontVariantRepository) Upsert(ctx context.Context, v *domain.StorefrontVariant) error {
	query := `
		INSERT INTO storefront_variants (` + variantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (variant_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			inventory_item_id = EXCLUDED.inventory_item_id,
			sku = EXCLUDED.sku,
			erp_item_id = EXCLUDED.erp_item_id,
			outlet_id = EXCLUDED.outlet_id,
			tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	var erpItemID, outletID sql.NullInt64
	if v.ErpItemID != 0 {
		erpItemID = sql.NullInt64{Int64: v.ErpItemID, Valid: true}
	}
	if v.OutletID != 0 {
		outletID = sql.NullInt64{Int64: int64(v.OutletID), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.ProductID,
		v.VariantID,
		v.InventoryItemID,
		v.SKU,
		erpItemID,
		outletID,
		pq.Array(v.Tags),
		v.IsNewProduct,
		v.CreatedAt,
		v.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert storefront variant", zap.Int64("variant_id", v.VariantID), zap.Error(err))
		return err
	}
	return nil
}
