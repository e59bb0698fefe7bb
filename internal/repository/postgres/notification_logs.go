package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/pkg/errors"
)

type notificationLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationLogRepository creates a new notification log repository
func NewNotificationLogRepository(db *sql.DB, logger *zap.Logger) *notificationLogRepository {
	return &notificationLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *notificationLogRepository) Create(ctx context.Context, e *domain.NotificationLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.NotificationViewStatus == "" {
		e.NotificationViewStatus = domain.ViewStatusUnread
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, notification_info, notification_details, log_type, notification_view_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		e.ID,
		e.NotificationInfo,
		e.NotificationDetails,
		e.LogType,
		e.NotificationViewStatus,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification log", zap.String("info", e.NotificationInfo), zap.Error(err))
		return err
	}
	return nil
}

func (r *notificationLogRepository) List(ctx context.Context, limit, offset int) ([]*domain.NotificationLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, notification_info, notification_details, log_type, notification_view_status, created_at
		FROM notification_logs
		ORDER BY (notification_view_status = 'unread') DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list notification logs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []*domain.NotificationLogEntry
	for rows.Next() {
		var e domain.NotificationLogEntry
		if err := rows.Scan(
			&e.ID,
			&e.NotificationInfo,
			&e.NotificationDetails,
			&e.LogType,
			&e.NotificationViewStatus,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *notificationLogRepository) CountUnread(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notification_logs WHERE notification_view_status = 'unread'`).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count unread notifications", zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (r *notificationLogRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notification_logs SET notification_view_status = 'read' WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.String("id", id.String()), zap.Error(err))
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return &errors.ErrNotFound{Resource: "notification", ID: id.String()}
	}
	return nil
}

func (r *notificationLogRepository) MarkAllRead(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notification_logs SET notification_view_status = 'read' WHERE notification_view_status = 'unread'`)
	if err != nil {
		r.logger.Error("Failed to mark all notifications read", zap.Error(err))
		return 0, err
	}
	return result.RowsAffected()
}
