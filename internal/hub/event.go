package hub

// Event names pushed to connected sessions. The payloads are JSON-serialized
// by the SSE writer.
const (
	EventNotificationCreated = "notification-created"
	EventUnreadCountChanged  = "unread-count-changed"
)

// Event is a named payload fanned out to every active session of one user.
type Event struct {
	Name    string
	Payload interface{}
}

// UnreadCountPayload is the payload for EventUnreadCountChanged. It always
// carries the absolute count recomputed from the store, never a delta, so
// receivers can overwrite their local counter regardless of event ordering.
type UnreadCountPayload struct {
	Count int64 `json:"count"`
}
