package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

type storeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *sql.DB, logger *zap.Logger) *storeRepository {
	return &storeRepository{
		db:     db,
		logger: logger,
	}
}

const storeColumns = `
	id, erp_store_id, store_code, store_name, status, is_backup_warehouse,
	select_backup_warehouse, store_cluster, shopify_location_id, latitude, longitude,
	address, phone, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStore(row rowScanner) (*domain.Store, error) {
	var s domain.Store
	var selectBackup sql.NullInt64
	var cluster, address, phone sql.NullString
	var locationID sql.NullInt64
	var lat, lng sql.NullFloat64

	if err := row.Scan(
		&s.ID,
		&s.ErpStoreID,
		&s.StoreCode,
		&s.StoreName,
		&s.Status,
		&s.IsBackupWarehouse,
		&selectBackup,
		&cluster,
		&locationID,
		&lat,
		&lng,
		&address,
		&phone,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if selectBackup.Valid {
		v := int(selectBackup.Int64)
		s.SelectBackupWarehouse = &v
	}
	if locationID.Valid {
		s.ShopifyLocationID = &locationID.Int64
	}
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}
	s.StoreCluster = cluster.String
	s.Address = address.String
	s.Phone = phone.String
	return &s, nil
}

func (r *storeRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list stores", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var stores []*domain.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

func (r *storeRepository) ListActive(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores WHERE status = $1 ORDER BY erp_store_id ASC`, domain.StoreStatusActive)
}

func (r *storeRepository) List(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY erp_store_id ASC`)
}

func (r *storeRepository) ListActiveBackupWarehouses(ctx context.Context) ([]*domain.Store, error) {
	return r.list(ctx, `SELECT `+storeColumns+` FROM stores WHERE status = $1 AND is_backup_warehouse ORDER BY erp_store_id ASC`, domain.StoreStatusActive)
}

func (r *storeRepository) GetByCode(ctx context.Context, storeCode string) (*domain.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE store_code = $1`, storeCode))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "store", ID: storeCode}
	}
	if err != nil {
		r.logger.Error("Failed to get store by code", zap.String("store_code", storeCode), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (r *storeRepository) GetByErpStoreID(ctx context.Context, erpStoreID int) (*domain.Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE erp_store_id = $1`, erpStoreID))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "store", ID: strconv.Itoa(erpStoreID)}
	}
	if err != nil {
		r.logger.Error("Failed to get store by erp id", zap.Int("erp_store_id", erpStoreID), zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (r *storeRepository) Upsert(ctx context.Context, s *domain.Store) error {
	query := `
		INSERT INTO stores (` + storeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (erp_store_id) DO UPDATE SET
			store_code = EXCLUDED.store_code,
			store_name = EXCLUDED.store_name,
			status = EXCLUDED.status,
			is_backup_warehouse = EXCLUDED.is_backup_warehouse,
			select_backup_warehouse = EXCLUDED.select_backup_warehouse,
			store_cluster = EXCLUDED.store_cluster,
			shopify_location_id = EXCLUDED.shopify_location_id,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	now := time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.ErpStoreID,
		s.StoreCode,
		s.StoreName,
		s.Status,
		s.IsBackupWarehouse,
		s.SelectBackupWarehouse,
		nullString(s.StoreCluster),
		s.ShopifyLocationID,
		s.Latitude,
		s.Longitude,
		nullString(s.Address),
		nullString(s.Phone),
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		r.logger.Error("Failed to upsert store", zap.String("store_code", s.StoreCode), zap.Error(err))
		return fmt.Errorf("upsert store %s: %w", s.StoreCode, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
