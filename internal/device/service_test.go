package device

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"workhub_backend/internal/common"
	"workhub_backend/internal/notification"
)

// MockRepository is a mock type for device.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, userID uuid.UUID, token string, platform Platform) (*DeviceToken, error) {
	args := m.Called(ctx, userID, token, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DeviceToken), args.Error(1)
}

func (m *MockRepository) DeleteByToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	args := m.Called(ctx, userID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetTokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	args := m.Called(ctx, tokens)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_RegisterDevice(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	expected := &DeviceToken{
		ID:         uuid.New(),
		UserID:     userID,
		Token:      "fcm-token-abc",
		Platform:   PlatformAndroid,
		CreatedAt:  time.Now().UTC(),
		LastSeenAt: time.Now().UTC(),
	}
	mockRepo.On("Upsert", ctx, userID, "fcm-token-abc", PlatformAndroid).Return(expected, nil)

	dt, err := svc.RegisterDevice(ctx, userID, RegisterDeviceRequest{Token: "fcm-token-abc", Platform: "android"})
	require.NoError(t, err)
	assert.Equal(t, expected, dt)
	mockRepo.AssertExpectations(t)
}

func TestService_UnregisterDevice_UnknownTokenIsNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()
	userID := uuid.New()

	mockRepo.On("DeleteByToken", ctx, userID, "missing").Return(false, nil)

	err := svc.UnregisterDevice(ctx, userID, "missing")
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrNotFound.Code, apiErr.Code)
}

func TestService_PushCreated_NoOpWithoutMessaging(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := NewService(mockRepo, nil, zap.NewNop())

	n := &notification.Notification{ID: uuid.New(), UserID: uuid.New(), Title: "Hi", Message: "There"}
	err := svc.PushCreated(context.Background(), n)

	require.NoError(t, err)
	mockRepo.AssertNotCalled(t, "GetTokensForUser", mock.Anything, mock.Anything)
}
