package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Event names pushed by the server.
const (
	EventNotificationCreated = "notification-created"
	EventUnreadCountChanged  = "unread-count-changed"
)

// Snapshot is an immutable view of the inbox state handed to observers.
type Snapshot struct {
	Items       []Notification
	UnreadCount int64
	IsLoading   bool
}

// Inbox is the reactive local cache. All state changes flow through it:
// fetched pages replace the item list, pushed events merge into it, and
// user actions apply optimistically before the server confirms them.
//
// The unread count is only ever overwritten wholesale: by a fetch, by an
// optimistic local adjustment, or by an unread-count-changed push carrying
// the server's absolute value. It is never derived by counting items, since
// the cache usually holds only the first page.
type Inbox struct {
	client   *Client
	pageSize int

	mu       sync.Mutex
	items    []Notification
	unread   int64
	loading  bool
	onChange func(Snapshot)
}

// New creates an empty inbox backed by the given API client.
func New(client *Client, pageSize int) *Inbox {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Inbox{
		client:   client,
		pageSize: pageSize,
	}
}

// OnChange registers the observer invoked after every state change. The
// callback runs with internal locks released and must not call back into the
// inbox synchronously from another goroutine it spawns without expecting
// interleaving.
func (in *Inbox) OnChange(fn func(Snapshot)) {
	in.mu.Lock()
	in.onChange = fn
	in.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (in *Inbox) Snapshot() Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snapshotLocked()
}

func (in *Inbox) snapshotLocked() Snapshot {
	items := make([]Notification, len(in.items))
	copy(items, in.items)
	return Snapshot{
		Items:       items,
		UnreadCount: in.unread,
		IsLoading:   in.loading,
	}
}

func (in *Inbox) notifyLocked() {
	if in.onChange == nil {
		return
	}
	fn := in.onChange
	snap := in.snapshotLocked()
	in.mu.Unlock()
	fn(snap)
	in.mu.Lock()
}

// Refresh replaces the cache with the first page from the server. Called
// after connect and reconnect, since the push channel does not replay events
// missed while disconnected.
func (in *Inbox) Refresh(ctx context.Context) error {
	in.mu.Lock()
	in.loading = true
	in.notifyLocked()
	in.mu.Unlock()

	page, err := in.client.ListPage(ctx, 1, in.pageSize)

	in.mu.Lock()
	defer in.mu.Unlock()
	in.loading = false
	if err != nil {
		in.notifyLocked()
		return err
	}

	in.items = page.Items
	in.unread = page.UnreadCount
	in.notifyLocked()
	return nil
}

// HandleEvent merges one pushed event into the cache. Unknown event names
// are ignored so server-side additions do not break older clients.
func (in *Inbox) HandleEvent(name string, data json.RawMessage) {
	switch name {
	case EventNotificationCreated:
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return
		}
		in.mu.Lock()
		defer in.mu.Unlock()
		// The same event can arrive more than once around a reconnect.
		for _, existing := range in.items {
			if existing.ID == n.ID {
				return
			}
		}
		in.items = append([]Notification{n}, in.items...)
		in.notifyLocked()

	case EventUnreadCountChanged:
		var payload struct {
			Count int64 `json:"count"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		in.mu.Lock()
		defer in.mu.Unlock()
		in.unread = payload.Count
		in.notifyLocked()
	}
}

// MarkRead optimistically marks an item read, then confirms with the server.
// A rejected update rolls the cache back; a NotFound answer instead drops the
// stale item, because the notification no longer exists server-side.
func (in *Inbox) MarkRead(ctx context.Context, id uuid.UUID) error {
	in.mu.Lock()
	prevItems, prevUnread := in.stateLocked()

	applied := false
	for i := range in.items {
		if in.items[i].ID == id && !in.items[i].IsRead {
			in.items[i].IsRead = true
			applied = true
			break
		}
	}
	if applied {
		if in.unread > 0 {
			in.unread--
		}
		in.notifyLocked()
	}
	in.mu.Unlock()

	err := in.client.MarkRead(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		in.removeItem(id)
		return err
	}

	in.restore(prevItems, prevUnread)
	return err
}

// MarkAllRead optimistically clears the unread state of every cached item
// and zeroes the count, rolling back if the server rejects the command.
func (in *Inbox) MarkAllRead(ctx context.Context) error {
	in.mu.Lock()
	prevItems, prevUnread := in.stateLocked()
	for i := range in.items {
		in.items[i].IsRead = true
	}
	in.unread = 0
	in.notifyLocked()
	in.mu.Unlock()

	if err := in.client.MarkAllRead(ctx); err != nil {
		in.restore(prevItems, prevUnread)
		return err
	}
	return nil
}

// Delete optimistically removes an item. NotFound is treated as success:
// the item is gone either way.
func (in *Inbox) Delete(ctx context.Context, id uuid.UUID) error {
	in.mu.Lock()
	prevItems, prevUnread := in.stateLocked()

	removed := false
	wasUnread := false
	kept := in.items[:0:0]
	for _, n := range in.items {
		if n.ID == id {
			removed = true
			wasUnread = !n.IsRead
			continue
		}
		kept = append(kept, n)
	}
	if removed {
		in.items = kept
		if wasUnread && in.unread > 0 {
			in.unread--
		}
		in.notifyLocked()
	}
	in.mu.Unlock()

	err := in.client.Delete(ctx, id)
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}

	in.restore(prevItems, prevUnread)
	return err
}

func (in *Inbox) stateLocked() ([]Notification, int64) {
	items := make([]Notification, len(in.items))
	copy(items, in.items)
	return items, in.unread
}

func (in *Inbox) restore(items []Notification, unread int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.items = items
	in.unread = unread
	in.notifyLocked()
}

func (in *Inbox) removeItem(id uuid.UUID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	kept := in.items[:0:0]
	for _, n := range in.items {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	if len(kept) != len(in.items) {
		in.items = kept
		in.notifyLocked()
	}
}
