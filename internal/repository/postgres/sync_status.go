package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

type syncStatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(db *sql.DB, logger *zap.Logger) *syncStatusRepository {
	return &syncStatusRepository{
		db:     db,
		logger: logger,
	}
}

const syncStatusColumns = `id, is_syncing, last_sync_started_at, last_sync_completed_at, sync_types,
	overall_status, user_dismissed_at, created_at, updated_at`

func scanSyncStatus(row rowScanner) (*domain.SyncStatus, error) {
	var s domain.SyncStatus
	var completedAt, dismissedAt sql.NullTime
	var typesJSON []byte

	if err := row.Scan(
		&s.ID,
		&s.IsSyncing,
		&s.LastSyncStartedAt,
		&completedAt,
		&typesJSON,
		&s.OverallStatus,
		&dismissedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		s.LastSyncCompletedAt = &completedAt.Time
	}
	if dismissedAt.Valid {
		s.UserDismissedAt = &dismissedAt.Time
	}
	if len(typesJSON) > 0 {
		if err := json.Unmarshal(typesJSON, &s.SyncTypes); err != nil {
			return nil, fmt.Errorf("decode sync types: %w", err)
		}
	}
	return &s, nil
}

func (r *syncStatusRepository) Create(ctx context.Context, s *domain.SyncStatus) error {
	now := time.Now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	typesJSON, err := json.Marshal(s.SyncTypes)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_status (`+syncStatusColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		s.ID,
		s.IsSyncing,
		s.LastSyncStartedAt,
		s.LastSyncCompletedAt,
		typesJSON,
		s.OverallStatus,
		s.UserDismissedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create sync status", zap.Error(err))
		return err
	}
	return nil
}

func (r *syncStatusRepository) Update(ctx context.Context, s *domain.SyncStatus) error {
	s.UpdatedAt = time.Now()
	typesJSON, err := json.Marshal(s.SyncTypes)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sync_status SET
			is_syncing = $2,
			last_sync_started_at = $3,
			last_sync_completed_at = $4,
			sync_types = $5,
			overall_status = $6,
			user_dismissed_at = $7,
			updated_at = $8
		WHERE id = $1
	`,
		s.ID,
		s.IsSyncing,
		s.LastSyncStartedAt,
		s.LastSyncCompletedAt,
		typesJSON,
		s.OverallStatus,
		s.UserDismissedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update sync status", zap.String("id", s.ID.String()), zap.Error(err))
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "sync_status", ID: s.ID.String()}
	}
	return nil
}

func (r *syncStatusRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncStatus, error) {
	s, err := scanSyncStatus(r.db.QueryRowContext(ctx,
		`SELECT `+syncStatusColumns+` FROM sync_status WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "sync_status", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get sync status", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return s, nil
}

// Latest returns nil without error when no run has been recorded yet.
func (r *syncStatusRepository) Latest(ctx context.Context) (*domain.SyncStatus, error) {
	s, err := scanSyncStatus(r.db.QueryRowContext(ctx,
		`SELECT `+syncStatusColumns+` FROM sync_status ORDER BY last_sync_started_at DESC LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get latest sync status", zap.Error(err))
		return nil, err
	}
	return s, nil
}

func (r *syncStatusRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.SyncStatus, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list sync status", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*domain.SyncStatus
	for rows.Next() {
		s, err := scanSyncStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *syncStatusRepository) ListRecent(ctx context.Context, limit int) ([]*domain.SyncStatus, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.list(ctx,
		`SELECT `+syncStatusColumns+` FROM sync_status ORDER BY last_sync_started_at DESC LIMIT $1`, limit)
}

func (r *syncStatusRepository) ListStale(ctx context.Context, startedBefore time.Time) ([]*domain.SyncStatus, error) {
	return r.list(ctx,
		`SELECT `+syncStatusColumns+` FROM sync_status
		WHERE is_syncing AND last_sync_started_at < $1
		ORDER BY last_sync_started_at ASC`, startedBefore)
}
