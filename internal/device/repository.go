package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Upsert registers a token, reassigning it to the given user if another
	// user previously held it.
	Upsert(ctx context.Context, userID uuid.UUID, token string, platform Platform) (*DeviceToken, error)
	DeleteByToken(ctx context.Context, userID uuid.UUID, token string) (bool, error)
	GetTokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	// DeleteTokens prunes tokens the push provider reported as stale.
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}

// GORMRepository implements the Repository interface using GORM.
type GORMRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM device token repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &GORMRepository{db: db}
}

func (r *GORMRepository) Upsert(ctx context.Context, userID uuid.UUID, token string, platform Platform) (*DeviceToken, error) {
	now := time.Now().UTC()
	dt := &DeviceToken{
		ID:         uuid.New(),
		UserID:     userID,
		Token:      token,
		Platform:   platform,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_seen_at"}),
	}).Create(dt).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token for user %s: %w", userID, err)
	}
	return dt, nil
}

func (r *GORMRepository) DeleteByToken(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&DeviceToken{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete device token for user %s: %w", userID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *GORMRepository) GetTokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&DeviceToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens for user %s: %w", userID, err)
	}
	return tokens, nil
}

func (r *GORMRepository) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("token IN ?", tokens).
		Delete(&DeviceToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete stale device tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
