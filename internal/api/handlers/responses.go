package handlers

import (
	"time"

	"github.com/global-partner-dev/kagati-shopify-app-sub001/internal/domain"
)

// SyncStatusResponse represents a storefront sync run in API responses
type SyncStatusResponse struct {
	ID                  string                   `json:"id"`
	IsSyncing           bool                     `json:"isSyncing"`
	LastSyncStartedAt   string                   `json:"lastSyncStartedAt"`
	LastSyncCompletedAt *string                  `json:"lastSyncCompletedAt,omitempty"`
	SyncTypes           domain.SyncTypes         `json:"syncTypes"`
	OverallStatus       domain.SyncOverallStatus `json:"overallStatus"`
	UserDismissedAt     *string                  `json:"userDismissedAt,omitempty"`
}

// NotificationResponse represents a notification log entry in API responses
type NotificationResponse struct {
	ID                     string            `json:"id"`
	NotificationInfo       string            `json:"notificationInfo"`
	NotificationDetails    string            `json:"notificationDetails"`
	LogType                domain.LogType    `json:"logType"`
	NotificationViewStatus domain.ViewStatus `json:"notificationViewStatus"`
	CreatedAt              string            `json:"createdAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toSyncStatusResponse(s *domain.SyncStatus) SyncStatusResponse {
	return SyncStatusResponse{
		ID:                  s.ID.String(),
		IsSyncing:           s.IsSyncing,
		LastSyncStartedAt:   s.LastSyncStartedAt.Format(time.RFC3339),
		LastSyncCompletedAt: formatTimePtr(s.LastSyncCompletedAt),
		SyncTypes:           s.SyncTypes,
		OverallStatus:       s.OverallStatus,
		UserDismissedAt:     formatTimePtr(s.UserDismissedAt),
	}
}

func toSyncStatusResponses(runs []*domain.SyncStatus) []SyncStatusResponse {
	out := make([]SyncStatusResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toSyncStatusResponse(r))
	}
	return out
}

func toNotificationResponses(entries []*domain.NotificationLogEntry) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NotificationResponse{
			ID:                     e.ID.String(),
			NotificationInfo:       e.NotificationInfo,
			NotificationDetails:    e.NotificationDetails,
			LogType:                e.LogType,
			NotificationViewStatus: e.NotificationViewStatus,
			CreatedAt:              e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
