package device

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies the device family a push token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (p Platform) IsValid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// DeviceToken is a registered FCM token for one of a user's devices. A token
// is globally unique; re-registering it moves it to the registering user.
type DeviceToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_device_tokens_user_id" json:"user_id"`
	Token      string    `gorm:"type:text;not null;uniqueIndex:idx_device_tokens_token" json:"token"`
	Platform   Platform  `gorm:"type:varchar(20);not null" json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}

// RegisterDeviceRequest is the payload for registering a device token.
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=ios android web"`
}

// UnregisterDeviceRequest is the payload for removing a device token.
type UnregisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}
