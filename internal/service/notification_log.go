package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/repository"
)

// NotificationLogService writes and serves the admin notification log.
type NotificationLogService struct {
	repo   repository.NotificationLogRepository
	logger *zap.Logger
}

// NewNotificationLogService creates a new notification log service
func NewNotificationLogService(repo repository.NotificationLogRepository, logger *zap.Logger) *NotificationLogService {
	return &NotificationLogService{
		repo:   repo,
		logger: logger,
	}
}

// Info records an info entry. Write failures are logged, never returned:
// the log must not fail the batch it describes.
func (s *NotificationLogService) Info(ctx context.Context, title, markdown string) {
	s.record(ctx, domain.LogTypeInfo, title, markdown)
}

// Error records an error entry.
func (s *NotificationLogService) Error(ctx context.Context, title string, cause error) {
	details := ""
	if cause != nil {
		details = fmt.Sprintf("**Error:** %s", cause.Error())
	}
	s.record(ctx, domain.LogTypeError, title, details)
}

func (s *NotificationLogService) record(ctx context.Context, logType domain.LogType, title, markdown string) {
	entry := &domain.NotificationLogEntry{
		NotificationInfo:       title,
		NotificationDetails:    markdown,
		LogType:                logType,
		NotificationViewStatus: domain.ViewStatusUnread,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("Notification log: failed to write entry",
			zap.String("info", title),
			zap.String("log_type", string(logType)),
			zap.Error(err),
		)
	}
}

// NotificationPage is one page of the notification log.
type NotificationPage struct {
	Entries     []*domain.NotificationLogEntry
	UnreadCount int
}

func (s *NotificationLogService) List(ctx context.Context, limit, offset int) (*NotificationPage, error) {
	entries, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Entries: entries, UnreadCount: unread}, nil
}

func (s *NotificationLogService) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *NotificationLogService) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx)
}

// markdownTable renders rows as a markdown table for notification details.
func markdownTable(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}
