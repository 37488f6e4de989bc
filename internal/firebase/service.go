package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"workhub_backend/internal/config"
)

// MessagingService wraps the Firebase Cloud Messaging client. Device push is
// an optional subsystem: NewMessagingService returns (nil, nil) when no
// service account key is configured and callers treat a nil service as
// "push disabled".
type MessagingService struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewMessagingService initializes the Firebase Admin SDK and returns a
// messaging service.
func NewMessagingService(cfg *config.Config, logger *zap.Logger) (*MessagingService, error) {
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Info("Firebase service account key not configured; device push is disabled.")
		return nil, nil
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var app *firebase.App
	var err error
	if cfg.FirebaseProjectID != "" {
		conf := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
		app, err = firebase.NewApp(context.Background(), conf, opt)
	} else {
		// Let the SDK infer the project from the credentials file.
		app, err = firebase.NewApp(context.Background(), nil, opt)
	}
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Messaging client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Messaging client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &MessagingService{
		client: client,
		logger: logger.Named("FirebaseMessaging"),
	}, nil
}

// SendToTokens sends one message to a batch of device tokens and returns the
// tokens Firebase reported as no longer registered, so callers can prune them.
func (s *MessagingService) SendToTokens(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send multicast message: %w", err)
	}

	var stale []string
	for i, result := range response.Responses {
		if result.Error == nil {
			continue
		}
		if messaging.IsUnregistered(result.Error) || messaging.IsInvalidArgument(result.Error) {
			stale = append(stale, tokens[i])
			continue
		}
		s.logger.Warn("FCM send failed for token", zap.Error(result.Error))
	}

	s.logger.Debug("Multicast message sent",
		zap.Int("success_count", response.SuccessCount),
		zap.Int("failure_count", response.FailureCount),
	)
	return stale, nil
}
