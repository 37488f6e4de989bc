package notification

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CreateNotificationRequest is the payload for creating a notification. The
// target user is explicit because notifications are raised on behalf of a
// recipient by admin or system actors, not by the recipient themselves.
type CreateNotificationRequest struct {
	UserID    uuid.UUID       `json:"user_id" binding:"required"`
	Title     string          `json:"title" binding:"required,max=255"`
	Message   string          `json:"message" binding:"required"`
	Type      string          `json:"type" binding:"omitempty,oneof=info success warning error"`
	ActionURL *string         `json:"action_url" binding:"omitempty,max=2048"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// ListData is the data block of the paginated list response. UnreadCount is
// the user's unfiltered unread total, not the count within the current page
// or filter.
type ListData struct {
	Items       []Notification `json:"items"`
	UnreadCount int64          `json:"unread_count"`
}

// UnreadCountResponse is the data block of the unread-count endpoint.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse reports how many notifications were transitioned.
type MarkAllReadResponse struct {
	MarkedRead int64 `json:"marked_read"`
}

// ListQuery holds the sanitized list parameters. Filters apply before
// pagination.
type ListQuery struct {
	Page     int
	PageSize int
	IsRead   *bool
	Type     *NotificationType
}
