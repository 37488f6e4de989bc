package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workhub_backend/internal/common"
)

func setupRepositoryTest(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open in-memory database")

	err = db.AutoMigrate(&Notification{})
	require.NoError(t, err, "Failed to migrate notifications table")

	return NewGORMRepository(db), db
}

func seedNotification(t *testing.T, repo Repository, userID uuid.UUID, title string, isRead bool, createdAt time.Time) *Notification {
	t.Helper()

	n := &Notification{
		UserID:    userID,
		Title:     title,
		Message:   "message for " + title,
		Type:      TypeInfo,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), n))

	if isRead {
		_, err := repo.MarkAsRead(context.Background(), n.ID, userID, time.Now().UTC())
		require.NoError(t, err)
		n.IsRead = true
	}
	return n
}

func TestRepository_CreateAssignsID(t *testing.T) {
	repo, _ := setupRepositoryTest(t)

	n := &Notification{
		UserID:  uuid.New(),
		Title:   "Build finished",
		Message: "Your build completed successfully.",
		Type:    TypeSuccess,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	assert.NotEqual(t, uuid.Nil, n.ID)
}

func TestRepository_GetByUserID_NewestFirstAndScoped(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedNotification(t, repo, alice, "oldest", false, base)
	seedNotification(t, repo, alice, "middle", false, base.Add(time.Hour))
	seedNotification(t, repo, alice, "newest", false, base.Add(2*time.Hour))
	seedNotification(t, repo, bob, "bobs", false, base.Add(3*time.Hour))

	items, pagination, err := repo.GetByUserID(ctx, alice, ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)

	require.Len(t, items, 3)
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "middle", items[1].Title)
	assert.Equal(t, "oldest", items[2].Title)
	assert.Equal(t, int64(3), pagination.TotalItems)
}

func TestRepository_GetByUserID_FiltersApplyBeforePagination(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedNotification(t, repo, userID, "read", true, base.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 5; i++ {
		seedNotification(t, repo, userID, "unread", false, base.Add(time.Duration(10+i)*time.Minute))
	}

	isRead := false
	items, pagination, err := repo.GetByUserID(ctx, userID, ListQuery{Page: 1, PageSize: 2, IsRead: &isRead})
	require.NoError(t, err)

	assert.Len(t, items, 2)
	assert.Equal(t, int64(5), pagination.TotalItems, "total must count the filtered set, not the whole inbox")
	assert.Equal(t, 3, pagination.TotalPages)
	for _, n := range items {
		assert.False(t, n.IsRead)
	}
}

func TestRepository_GetByUserID_PagesConcatenateToFullSet(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	// Several notifications share a timestamp so the id tiebreak is exercised.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seeded := make(map[uuid.UUID]struct{})
	for i := 0; i < 7; i++ {
		n := seedNotification(t, repo, userID, "page-walk", false, base.Add(time.Duration(i/3)*time.Minute))
		seeded[n.ID] = struct{}{}
	}

	const pageSize = 2
	var collected []Notification
	for page := 1; ; page++ {
		items, pagination, err := repo.GetByUserID(ctx, userID, ListQuery{Page: page, PageSize: pageSize})
		require.NoError(t, err)
		assert.Equal(t, int64(7), pagination.TotalItems)
		collected = append(collected, items...)
		if !pagination.HasNext {
			break
		}
		require.Less(t, page, 10, "pagination never terminated")
	}

	// Every notification appears exactly once across the concatenated pages.
	require.Len(t, collected, len(seeded))
	seen := make(map[uuid.UUID]struct{}, len(collected))
	for _, n := range collected {
		_, duplicate := seen[n.ID]
		assert.False(t, duplicate, "notification %s returned on more than one page", n.ID)
		seen[n.ID] = struct{}{}
		_, known := seeded[n.ID]
		assert.True(t, known, "notification %s was never seeded", n.ID)
	}

	// Global order holds across page boundaries: created_at descending, with
	// descending id breaking timestamp ties.
	for i := 1; i < len(collected); i++ {
		prev, curr := collected[i-1], collected[i]
		assert.False(t, curr.CreatedAt.After(prev.CreatedAt),
			"created_at must never increase across pages")
		if curr.CreatedAt.Equal(prev.CreatedAt) {
			assert.True(t, curr.ID.String() < prev.ID.String(),
				"equal timestamps must fall back to descending id")
		}
	}
}

func TestRepository_CountUnread(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC()
	seedNotification(t, repo, userID, "a", false, base)
	seedNotification(t, repo, userID, "b", true, base)
	seedNotification(t, repo, uuid.New(), "other-user", false, base)

	count, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_MarkAsRead_TransitionAndIdempotency(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	n := seedNotification(t, repo, userID, "transition", false, time.Now().UTC())

	transitioned, err := repo.MarkAsRead(ctx, n.ID, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, transitioned)

	stored, err := repo.FindByID(ctx, n.ID, userID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
	require.NotNil(t, stored.ReadAt)
	firstReadAt := *stored.ReadAt

	// Second mark-read is a no-op and must not rewrite ReadAt.
	transitioned, err = repo.MarkAsRead(ctx, n.ID, userID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, transitioned)

	stored, err = repo.FindByID(ctx, n.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReadAt)
	assert.WithinDuration(t, firstReadAt, *stored.ReadAt, time.Second)
}

func TestRepository_MarkAsRead_OtherUsersNotificationIsNotFound(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()

	owner := uuid.New()
	n := seedNotification(t, repo, owner, "private", false, time.Now().UTC())

	_, err := repo.MarkAsRead(ctx, n.ID, uuid.New(), time.Now().UTC())
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrNotFound.Code, apiErr.Code, "ownership failures must look like missing resources")
}

func TestRepository_MarkAllAsRead_ReturnsTransitionCount(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC()
	seedNotification(t, repo, userID, "unread-1", false, base)
	seedNotification(t, repo, userID, "unread-2", false, base)
	seedNotification(t, repo, userID, "already-read", true, base)

	count, err := repo.MarkAllAsRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	// Running it again transitions nothing.
	count, err = repo.MarkAllAsRead(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepository_Delete_ReturnsRemovedNotification(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	n := seedNotification(t, repo, userID, "to-delete", false, time.Now().UTC())

	deleted, err := repo.Delete(ctx, n.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, deleted.ID)
	assert.False(t, deleted.IsRead)

	_, err = repo.FindByID(ctx, n.ID, userID)
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrNotFound.Code, apiErr.Code)
}

func TestRepository_Delete_OtherUsersNotificationIsNotFound(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()

	owner := uuid.New()
	n := seedNotification(t, repo, owner, "private", false, time.Now().UTC())

	_, err := repo.Delete(ctx, n.ID, uuid.New())
	require.Error(t, err)
	apiErr, ok := common.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, common.ErrNotFound.Code, apiErr.Code)

	// Still present for the real owner.
	_, err = repo.FindByID(ctx, n.ID, owner)
	assert.NoError(t, err)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	seedNotification(t, repo, userID, "ancient", true, cutoff.AddDate(0, -2, 0))
	seedNotification(t, repo, userID, "old-unread", false, cutoff.AddDate(0, -1, 0))
	recent := seedNotification(t, repo, userID, "recent", false, cutoff.AddDate(0, 1, 0))

	purged, err := repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged, "retention ignores read state")

	items, _, err := repo.GetByUserID(ctx, userID, ListQuery{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, recent.ID, items[0].ID)
}

func TestRepository_SearchByText_MatchesTitleAndMessage(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC()
	deploy := seedNotification(t, repo, userID, "Deploy finished", false, base)
	n2 := &Notification{
		UserID:    userID,
		Title:     "Weekly digest",
		Message:   "Your deploy pipeline ran 14 times this week.",
		Type:      TypeInfo,
		CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, n2))
	seedNotification(t, repo, userID, "Unrelated", false, base)
	seedNotification(t, repo, uuid.New(), "Deploy for someone else", false, base)

	items, pagination, err := repo.SearchByText(ctx, userID, "deploy", 1, 10)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, int64(2), pagination.TotalItems)
	ids := []uuid.UUID{items[0].ID, items[1].ID}
	assert.Contains(t, ids, deploy.ID)
	assert.Contains(t, ids, n2.ID)
}

func TestRepository_FindByIDs_PreservesOrderAndSkipsMissing(t *testing.T) {
	repo, _ := setupRepositoryTest(t)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC()
	a := seedNotification(t, repo, userID, "a", false, base)
	b := seedNotification(t, repo, userID, "b", false, base)
	c := seedNotification(t, repo, userID, "c", false, base)

	_, err := repo.Delete(ctx, b.ID, userID)
	require.NoError(t, err)

	got, err := repo.FindByIDs(ctx, userID, []uuid.UUID{c.ID, b.ID, a.ID})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, c.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)
}
