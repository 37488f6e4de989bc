package hub

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workhub_backend/internal/config"
	"workhub_backend/internal/metrics"
)

// Hub is the in-process broadcast registry: a concurrent map from user id to
// the set of that user's live subscriptions. Connections register on connect
// with the id taken from the authenticated principal and are removed on
// disconnect; nothing is persisted across process restarts.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*Subscription]struct{}
	bufferSize  int
	logger      *zap.Logger
}

// Subscription is one live push channel belonging to a single user.
type Subscription struct {
	userID uuid.UUID
	events chan Event
}

// Events returns the receive side of the subscription's event channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// UserID returns the owning user of this subscription.
func (s *Subscription) UserID() uuid.UUID {
	return s.userID
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, logger *zap.Logger) *Hub {
	bufferSize := cfg.HubSubscriberBuffer
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*Subscription]struct{}),
		bufferSize:  bufferSize,
		logger:      logger.Named("Hub"),
	}
}

// Subscribe registers a new subscription for the given user.
func (h *Hub) Subscribe(userID uuid.UUID) *Subscription {
	sub := &Subscription{
		userID: userID,
		events: make(chan Event, h.bufferSize),
	}

	h.mu.Lock()
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[*Subscription]struct{})
	}
	h.subscribers[userID][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Subscription added", zap.String("user_id", userID.String()))
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// once per subscription; further Broadcast calls simply no longer see it.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	subs, ok := h.subscribers[sub.userID]
	if ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.events)
		}
		if len(subs) == 0 {
			delete(h.subscribers, sub.userID)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("Subscription removed", zap.String("user_id", sub.userID.String()))
}

// Broadcast delivers an event to every active subscription of the given user.
// Delivery is best-effort and at-most-once per subscription: a subscriber
// whose buffer is full has the event dropped so a slow or dead connection
// never blocks the rest of the group or the originating command. Broadcasting
// to a user with no subscriptions is a no-op.
func (h *Hub) Broadcast(userID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}

	for sub := range subs {
		select {
		case sub.events <- event:
			metrics.EventsBroadcast.WithLabelValues(event.Name).Inc()
		default:
			metrics.EventsDropped.Inc()
			h.logger.Warn("Dropping event for slow subscriber",
				zap.String("user_id", userID.String()),
				zap.String("event", event.Name),
			)
		}
	}
}

// ConnectionCount reports the number of active subscriptions for a user.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
