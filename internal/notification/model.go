package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationType is the severity/category of a notification.
type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
)

// IsValid reports whether t is one of the known types.
func (t NotificationType) IsValid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

// Notification represents a user notification. Content is immutable after
// creation; only the IsRead/ReadAt pair ever changes, and ReadAt is set
// exactly once on the false→true transition.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_read" json:"user_id"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Type      NotificationType `gorm:"type:varchar(32);not null;default:'info'" json:"type"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notification_user_read" json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	ActionURL *string          `gorm:"type:text" json:"action_url,omitempty"`
	// Metadata is caller-supplied opaque context (e.g. correlation to a
	// background job). The core never parses or validates it.
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_notification_user_read" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
