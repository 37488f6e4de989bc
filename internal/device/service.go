package device

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workhub_backend/internal/common"
	"workhub_backend/internal/firebase"
	"workhub_backend/internal/notification"
)

// Service manages device token registration and implements the notification
// package's DevicePusher by fanning created notifications out over FCM.
type Service interface {
	RegisterDevice(ctx context.Context, userID uuid.UUID, req RegisterDeviceRequest) (*DeviceToken, error)
	UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error
	PushCreated(ctx context.Context, n *notification.Notification) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo      Repository
	messaging *firebase.MessagingService
	logger    *zap.Logger
}

// NewService creates a new device service. messaging may be nil, in which
// case PushCreated is a no-op.
func NewService(repo Repository, messaging *firebase.MessagingService, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		messaging: messaging,
		logger:    logger.Named("DeviceService"),
	}
}

var (
	_ Service                   = (*ServiceImplementation)(nil)
	_ notification.DevicePusher = (*ServiceImplementation)(nil)
)

// RegisterDevice stores a push token for the caller's device.
func (s *ServiceImplementation) RegisterDevice(ctx context.Context, userID uuid.UUID, req RegisterDeviceRequest) (*DeviceToken, error) {
	dt, err := s.repo.Upsert(ctx, userID, req.Token, Platform(req.Platform))
	if err != nil {
		s.logger.Error("Failed to register device token", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not register device.")
	}
	return dt, nil
}

// UnregisterDevice removes a push token owned by the caller.
func (s *ServiceImplementation) UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	removed, err := s.repo.DeleteByToken(ctx, userID, token)
	if err != nil {
		s.logger.Error("Failed to unregister device token", zap.String("user_id", userID.String()), zap.Error(err))
		return common.ErrInternalServer.WithDetails("Could not unregister device.")
	}
	if !removed {
		return common.ErrNotFound.WithDetails("Device token not found.")
	}
	return nil
}

// PushCreated delivers a created notification to every registered device of
// its recipient, pruning tokens FCM reports as stale.
func (s *ServiceImplementation) PushCreated(ctx context.Context, n *notification.Notification) error {
	if s.messaging == nil {
		return nil
	}

	tokens, err := s.repo.GetTokensForUser(ctx, n.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	data := map[string]string{
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	}
	if n.ActionURL != nil {
		data["action_url"] = *n.ActionURL
	}

	stale, err := s.messaging.SendToTokens(ctx, tokens, n.Title, n.Message, data)
	if err != nil {
		return err
	}

	if len(stale) > 0 {
		pruned, pruneErr := s.repo.DeleteTokens(ctx, stale)
		if pruneErr != nil {
			s.logger.Warn("Failed to prune stale device tokens", zap.Error(pruneErr))
		} else {
			s.logger.Info("Pruned stale device tokens",
				zap.String("user_id", n.UserID.String()),
				zap.Int64("count", pruned),
			)
		}
	}
	return nil
}
