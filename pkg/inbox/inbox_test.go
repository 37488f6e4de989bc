package inbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification(title string, isRead bool) Notification {
	return Notification{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Title:     title,
		Message:   "message for " + title,
		Type:      "info",
		IsRead:    isRead,
		CreatedAt: time.Now().UTC(),
	}
}

func marshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// newListServer serves the list endpoint with a fixed page.
func newListServer(t *testing.T, items []Notification, unread int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"items":        items,
				"unread_count": unread,
			},
			"pagination": Pagination{TotalItems: int64(len(items)), TotalPages: 1, CurrentPage: 1, PageSize: 20},
		})
	}))
}

func TestInbox_RefreshReplacesState(t *testing.T) {
	items := []Notification{testNotification("b", false), testNotification("a", true)}
	server := newListServer(t, items, 1)
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)

	var changes int32
	in.OnChange(func(Snapshot) { atomic.AddInt32(&changes, 1) })

	require.NoError(t, in.Refresh(context.Background()))

	snap := in.Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, int64(1), snap.UnreadCount)
	assert.False(t, snap.IsLoading)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&changes), int32(2), "loading and loaded notifications")
}

func TestInbox_CreatedEventPrependsAndDeduplicates(t *testing.T) {
	in := New(NewClient("http://unused", "test-token", nil), 20)

	existing := testNotification("existing", false)
	in.items = []Notification{existing}

	fresh := testNotification("fresh", false)
	in.HandleEvent(EventNotificationCreated, marshal(t, fresh))

	snap := in.Snapshot()
	require.Len(t, snap.Items, 2)
	assert.Equal(t, fresh.ID, snap.Items[0].ID, "new notification goes to the front")

	// A replayed event must not duplicate the item.
	in.HandleEvent(EventNotificationCreated, marshal(t, fresh))
	assert.Len(t, in.Snapshot().Items, 2)
}

func TestInbox_CreatedEventDoesNotTouchUnreadCount(t *testing.T) {
	in := New(NewClient("http://unused", "test-token", nil), 20)
	in.unread = 3

	in.HandleEvent(EventNotificationCreated, marshal(t, testNotification("fresh", false)))

	assert.Equal(t, int64(3), in.Snapshot().UnreadCount,
		"only unread-count-changed may move the count")
}

func TestInbox_UnreadCountChangedOverwritesCount(t *testing.T) {
	in := New(NewClient("http://unused", "test-token", nil), 20)
	in.unread = 1

	in.HandleEvent(EventUnreadCountChanged, json.RawMessage(`{"count":9}`))
	assert.Equal(t, int64(9), in.Snapshot().UnreadCount)

	// Absolute values, so a lower count simply replaces a higher one.
	in.HandleEvent(EventUnreadCountChanged, json.RawMessage(`{"count":0}`))
	assert.Equal(t, int64(0), in.Snapshot().UnreadCount)
}

func TestInbox_MarkReadOptimisticThenConfirmed(t *testing.T) {
	var markCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&markCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	n := testNotification("target", false)
	in.items = []Notification{n}
	in.unread = 1

	require.NoError(t, in.MarkRead(context.Background(), n.ID))

	snap := in.Snapshot()
	assert.True(t, snap.Items[0].IsRead)
	assert.Equal(t, int64(0), snap.UnreadCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&markCalls))
}

func TestInbox_MarkReadRollsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "INTERNAL_SERVER_ERROR", "message": "boom"})
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	n := testNotification("target", false)
	in.items = []Notification{n}
	in.unread = 1

	err := in.MarkRead(context.Background(), n.ID)
	require.Error(t, err)

	snap := in.Snapshot()
	assert.False(t, snap.Items[0].IsRead, "optimistic flag rolled back")
	assert.Equal(t, int64(1), snap.UnreadCount, "optimistic decrement rolled back")
}

func TestInbox_MarkReadNotFoundRemovesStaleItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "message": "Notification not found."})
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	stale := testNotification("stale", false)
	keep := testNotification("keep", false)
	in.items = []Notification{stale, keep}

	err := in.MarkRead(context.Background(), stale.ID)
	require.ErrorIs(t, err, ErrNotFound)

	snap := in.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, keep.ID, snap.Items[0].ID)
}

func TestInbox_MarkAllReadRollsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	in.items = []Notification{testNotification("a", false), testNotification("b", false)}
	in.unread = 2

	err := in.MarkAllRead(context.Background())
	require.Error(t, err)

	snap := in.Snapshot()
	assert.False(t, snap.Items[0].IsRead)
	assert.False(t, snap.Items[1].IsRead)
	assert.Equal(t, int64(2), snap.UnreadCount)
}

func TestInbox_DeleteNotFoundIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "NOT_FOUND", "message": "Notification not found."})
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	n := testNotification("gone", false)
	in.items = []Notification{n}
	in.unread = 1

	require.NoError(t, in.Delete(context.Background(), n.ID), "deleting an already-deleted item is success")
	assert.Empty(t, in.Snapshot().Items)
}

func TestInbox_DeleteRollsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	n := testNotification("target", false)
	in.items = []Notification{n}
	in.unread = 1

	err := in.Delete(context.Background(), n.ID)
	require.Error(t, err)

	snap := in.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, n.ID, snap.Items[0].ID)
	assert.Equal(t, int64(1), snap.UnreadCount)
}

func TestStream_DispatchesEventsAndRefreshesOnConnect(t *testing.T) {
	created := testNotification("pushed", false)

	// The list endpoint reflects the post-push server state, so the cache
	// converges to the same snapshot whether the connect-triggered refresh
	// lands before or after the pushed events.
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"items":        []Notification{created},
				"unread_count": int64(5),
			},
			"pagination": Pagination{TotalItems: 1, TotalPages: 1, CurrentPage: 1, PageSize: 20},
		})
	})
	mux.HandleFunc("/notifications/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		payload, _ := json.Marshal(created)
		_, _ = w.Write([]byte("event: connected\ndata: {}\n\n"))
		_, _ = w.Write([]byte("event: notification-created\ndata: " + string(payload) + "\n\n"))
		_, _ = w.Write([]byte("event: unread-count-changed\ndata: {\"count\":5}\n\n"))
		flusher.Flush()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	in := New(NewClient(server.URL, "test-token", nil), 20)
	stream := NewStream(server.URL, "test-token", in)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = stream.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		snap := in.Snapshot()
		return len(snap.Items) == 1 && snap.UnreadCount == 5
	}, 3*time.Second, 10*time.Millisecond, "pushed events should land in the cache")

	snap := in.Snapshot()
	assert.Equal(t, created.ID, snap.Items[0].ID)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop after context cancellation")
	}
}
