package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"workhub_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByUserID(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, *common.Pagination, error)
	FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) // userID for ownership check
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	// MarkAsRead returns true when the notification transitioned from unread
	// to read, false when it was already read (a no-op, not an error).
	MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID, readAt time.Time) (bool, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error)
	// Delete removes the notification and returns it, so callers can tell
	// whether an unread item disappeared.
	Delete(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	SearchByText(ctx context.Context, userID uuid.UUID, term string, page, pageSize int) ([]Notification, *common.Pagination, error)
	// FindByIDs resolves a set of IDs back to owned notifications, preserving
	// the order of ids. IDs that no longer exist are silently skipped.
	FindByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Notification, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM notification repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

// Create inserts a new notification into the database.
func (r *GORMRepository) Create(ctx context.Context, notification *Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// GetByUserID retrieves a filtered, paginated list of notifications for a
// user, newest first. Filters apply before pagination.
func (r *GORMRepository) GetByUserID(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, *common.Pagination, error) {
	var notifications []Notification
	var total int64

	base := r.db.WithContext(ctx).Model(&Notification{}).Where("user_id = ?", userID)
	if query.IsRead != nil {
		base = base.Where("is_read = ?", *query.IsRead)
	}
	if query.Type != nil {
		base = base.Where("type = ?", *query.Type)
	}

	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting notifications for user %s failed: %w", userID, err)
	}

	pagination := common.NewPagination(total, query.Page, query.PageSize)

	offset := (query.Page - 1) * query.PageSize
	if query.Page <= 0 {
		offset = 0
	}

	err := base.Order("created_at DESC").Order("id DESC").
		Limit(query.PageSize).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching notifications for user %s failed: %w", userID, err)
	}
	return notifications, pagination, nil
}

// FindByID retrieves a specific notification by its ID, ensuring it belongs
// to the provided userID. A notification owned by someone else surfaces as
// NotFound, never as Forbidden, so existence is not leaked.
func (r *GORMRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	var notification Notification
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Notification not found.")
		}
		return nil, fmt.Errorf("failed to find notification %s for user %s: %w", notificationID, userID, err)
	}
	return &notification, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *GORMRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for user %s failed: %w", userID, err)
	}
	return count, nil
}

// MarkAsRead marks a specific notification as read for a user. The update is
// conditional on is_read = false so ReadAt is written at most once even under
// concurrent requests.
func (r *GORMRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID, readAt time.Time) (bool, error) {
	existing, err := r.FindByID(ctx, notificationID, userID)
	if err != nil {
		return false, err
	}
	if existing.IsRead {
		return false, nil
	}

	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark notification %s as read for user %s: %w", notificationID, userID, result.Error)
	}
	// Zero rows means another request won the transition; still a success.
	return result.RowsAffected > 0, nil
}

// MarkAllAsRead marks all unread notifications for a user as read and
// returns how many transitioned.
func (r *GORMRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected, nil
}

// Delete performs an ownership-checked hard delete and returns the removed
// notification.
func (r *GORMRepository) Delete(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	existing, err := r.FindByID(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&Notification{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to delete notification %s for user %s: %w", notificationID, userID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, common.ErrNotFound.WithDetails("Notification not found.")
	}
	return existing, nil
}

// DeleteOlderThan removes notifications created before the cutoff, across all
// users. Used by the retention job.
func (r *GORMRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete notifications older than %s: %w", cutoff, result.Error)
	}
	return result.RowsAffected, nil
}

// FindByIDs fetches the given notifications for a user and returns them in
// the order of ids. Used to hydrate search hits from the authoritative store.
func (r *GORMRepository) FindByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Notification, error) {
	if len(ids) == 0 {
		return []Notification{}, nil
	}

	var fetched []Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&fetched).Error
	if err != nil {
		return nil, fmt.Errorf("fetching notifications by ids for user %s failed: %w", userID, err)
	}

	byID := make(map[uuid.UUID]Notification, len(fetched))
	for _, n := range fetched {
		byID[n.ID] = n
	}

	ordered := make([]Notification, 0, len(ids))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}

// SearchByText is the SQL fallback for notification search when
// Elasticsearch is not configured.
func (r *GORMRepository) SearchByText(ctx context.Context, userID uuid.UUID, term string, page, pageSize int) ([]Notification, *common.Pagination, error) {
	var notifications []Notification
	var total int64

	pattern := "%" + strings.ToLower(term) + "%"
	base := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ?", userID).
		Where("LOWER(title) LIKE ? OR LOWER(message) LIKE ?", pattern, pattern)

	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting search results for user %s failed: %w", userID, err)
	}

	pagination := common.NewPagination(total, page, pageSize)

	offset := (page - 1) * pageSize
	if page <= 0 {
		offset = 0
	}

	err := base.Order("created_at DESC").Order("id DESC").
		Limit(pageSize).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, nil, fmt.Errorf("searching notifications for user %s failed: %w", userID, err)
	}
	return notifications, pagination, nil
}
