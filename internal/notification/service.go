package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"workhub_backend/internal/common"
	"workhub_backend/internal/hub"
	"workhub_backend/internal/metrics"
	platformES "workhub_backend/internal/platform/elasticsearch"
)

// Broadcaster fans an event out to a user's active sessions. The hub
// satisfies this; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(userID uuid.UUID, event hub.Event)
}

// DevicePusher delivers a newly created notification to a user's registered
// devices. Implementations are best-effort; errors are logged here and never
// surfaced to the command caller.
type DevicePusher interface {
	PushCreated(ctx context.Context, n *Notification) error
}

// Service defines the notification business logic: durable store operations
// plus unread-count reconciliation over the push channel.
type Service interface {
	CreateNotification(ctx context.Context, req CreateNotificationRequest) (*Notification, error)
	GetNotificationsForUser(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, *common.Pagination, int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	SearchNotifications(ctx context.Context, userID uuid.UUID, term string, page, pageSize int) ([]Notification, *common.Pagination, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo        Repository
	broadcaster Broadcaster
	devicePush  DevicePusher
	esClient    *platformES.ESClientWrapper
	logger      *zap.Logger
}

// NewService creates a new notification service. devicePush and esClient are
// optional subsystems and may be nil.
func NewService(
	repo Repository,
	broadcaster Broadcaster,
	devicePush DevicePusher,
	esClient *platformES.ESClientWrapper,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:        repo,
		broadcaster: broadcaster,
		devicePush:  devicePush,
		esClient:    esClient,
		logger:      logger.Named("NotificationService"),
	}
}

var _ Service = (*ServiceImplementation)(nil)

// asyncTimeout bounds background delivery work (device push, search
// indexing) kicked off after a command has committed.
const asyncTimeout = 15 * time.Second

// CreateNotification persists a notification and then pushes the created
// event and the recomputed unread count to the recipient's sessions. The
// store write is the only step that can fail the command; everything after
// it is best-effort.
func (s *ServiceImplementation) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*Notification, error) {
	// Commands also arrive from Kafka, where the HTTP binding layer never
	// ran, so the required fields are checked here too.
	if req.UserID == uuid.Nil || req.Title == "" || req.Message == "" {
		return nil, common.ErrBadRequest.WithDetails("user_id, title and message are required.")
	}

	nType := TypeInfo
	if req.Type != "" {
		nType = NotificationType(req.Type)
		if !nType.IsValid() {
			return nil, common.ErrBadRequest.WithDetails("Unknown notification type.")
		}
	}

	n := &Notification{
		UserID:    req.UserID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      nType,
		ActionURL: req.ActionURL,
		CreatedAt: time.Now().UTC(),
	}
	if len(req.Metadata) > 0 {
		n.Metadata = datatypes.JSON(req.Metadata)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification",
			zap.String("user_id", req.UserID.String()),
			zap.Error(err),
		)
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}
	metrics.NotificationsCreated.Inc()

	s.broadcaster.Broadcast(n.UserID, hub.Event{Name: hub.EventNotificationCreated, Payload: n})
	s.pushUnreadCount(ctx, n.UserID)

	// The request context may be cancelled as soon as the response is
	// written; detached contexts keep background delivery alive.
	if s.devicePush != nil {
		go s.pushToDevices(n)
	}
	if s.esClient != nil {
		go s.indexForSearch(n)
	}

	return n, nil
}

// GetNotificationsForUser returns one page of (optionally filtered)
// notifications plus the user's unfiltered unread count.
func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, query ListQuery) ([]Notification, *common.Pagination, int64, error) {
	notifications, pagination, err := s.repo.GetByUserID(ctx, userID, query)
	if err != nil {
		s.logger.Error("Failed to get notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, nil, 0, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, nil, 0, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}

	return notifications, pagination, unread, nil
}

// UnreadCount returns the authoritative unread count from the store.
func (s *ServiceImplementation) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not retrieve unread count.")
	}
	return count, nil
}

// MarkNotificationAsRead marks one notification as read. Marking an
// already-read notification is an idempotent no-op; a notification that does
// not exist or belongs to another user surfaces as NotFound.
func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	transitioned, err := s.repo.MarkAsRead(ctx, notificationID, userID, time.Now().UTC())
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to mark notification as read",
			zap.String("notification_id", notificationID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return common.ErrInternalServer.WithDetails("Could not mark notification as read.")
	}

	if transitioned {
		s.pushUnreadCount(ctx, userID)
	}
	return nil
}

// MarkAllUserNotificationsAsRead transitions every unread notification for a
// user and returns how many transitioned.
func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID, time.Now().UTC())
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.String("user_id", userID.String()), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not mark all notifications as read.")
	}

	if count > 0 {
		s.pushUnreadCount(ctx, userID)
	}
	return count, nil
}

// DeleteNotification removes a notification owned by the caller. Deleting an
// unread notification changes the unread count, so the new count is pushed.
func (s *ServiceImplementation) DeleteNotification(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, notificationID, userID)
	if err != nil {
		if _, ok := common.IsAPIError(err); ok {
			return err
		}
		s.logger.Error("Failed to delete notification",
			zap.String("notification_id", notificationID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return common.ErrInternalServer.WithDetails("Could not delete notification.")
	}

	if !deleted.IsRead {
		s.pushUnreadCount(ctx, userID)
	}
	if s.esClient != nil {
		go s.deleteFromSearch(deleted.ID)
	}
	return nil
}

// SearchNotifications performs a full-text search over the caller's
// notifications. Uses Elasticsearch when configured, otherwise the SQL
// fallback; an Elasticsearch failure also falls back rather than failing the
// request.
func (s *ServiceImplementation) SearchNotifications(ctx context.Context, userID uuid.UUID, term string, page, pageSize int) ([]Notification, *common.Pagination, error) {
	if s.esClient != nil {
		notifications, pagination, err := s.searchWithES(ctx, userID, term, page, pageSize)
		if err == nil {
			return notifications, pagination, nil
		}
		s.logger.Warn("Elasticsearch search failed, falling back to SQL",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	notifications, pagination, err := s.repo.SearchByText(ctx, userID, term, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to search notifications", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not search notifications.")
	}
	return notifications, pagination, nil
}

// PurgeOlderThan removes notifications past the retention window. Called by
// the retention job.
func (s *ServiceImplementation) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to purge old notifications", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// pushUnreadCount recomputes the authoritative unread count from the store
// and broadcasts the absolute value. Each push carries the full current
// value, never a delta, so receivers overwrite rather than accumulate and
// missed or reordered pushes cannot cause drift. Failures here are logged
// only: the mutation already committed and must not appear failed.
func (s *ServiceImplementation) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn("Skipping unread-count push, count query failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return
	}

	s.broadcaster.Broadcast(userID, hub.Event{
		Name:    hub.EventUnreadCountChanged,
		Payload: hub.UnreadCountPayload{Count: count},
	})
}

func (s *ServiceImplementation) pushToDevices(n *Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncTimeout)
	defer cancel()

	if err := s.devicePush.PushCreated(ctx, n); err != nil {
		s.logger.Warn("Device push failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err),
		)
	}
}
