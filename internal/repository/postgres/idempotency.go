package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

type idempotencyKeyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIdempotencyKeyRepository creates a new idempotency key repository
func NewIdempotencyKeyRepository(db *sql.DB, logger *zap.Logger) *idempotencyKeyRepository {
	return &idempotencyKeyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByKey returns nil, nil when the delivery has not been seen.
func (r *idempotencyKeyRepository) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	var k domain.IdempotencyKey
	var orderRef uuid.NullUUID

	err := r.db.QueryRowContext(ctx, `
		SELECT key, order_reference_id, request_hash, created_at
		FROM idempotency_keys
		WHERE key = $1
	`, key).Scan(
		&k.Key,
		&orderRef,
		&k.RequestHash,
		&k.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get idempotency key", zap.Error(err))
		return nil, err
	}
	if orderRef.Valid {
		k.OrderReferenceID = orderRef.UUID
	}
	return &k, nil
}

// Create ignores a concurrent duplicate delivery of the same key.
func (r *idempotencyKeyRepository) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	orderRef := uuid.NullUUID{UUID: key.OrderReferenceID, Valid: key.OrderReferenceID != uuid.Nil}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, order_reference_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`,
		key.Key,
		orderRef,
		key.RequestHash,
		key.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create idempotency key", zap.Error(err))
		return err
	}
	return nil
}
