package hub

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workhub_backend/internal/common"
)

const heartbeatInterval = 30 * time.Second

// Handler exposes the push channel over Server-Sent Events.
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler creates a new hub Handler.
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, logger: logger.Named("HubHandler")}
}

// RegisterRoutes sets up the stream route. The group must be authenticated:
// the subscription is keyed by the user id from the verified token.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stream", h.stream)
}

func (h *Handler) stream(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	h.logger.Info("Push stream opened", zap.String("user_id", userID.String()))

	// The Broadcaster does not replay missed events; the client is expected
	// to re-fetch its unread count and first page after connecting. The
	// "connected" event tells it the gap-recovery fetch can start.
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	first := true
	c.Stream(func(w io.Writer) bool {
		if first {
			first = false
			c.SSEvent("connected", gin.H{"connected_at": time.Now().UTC()})
			return true
		}
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(event.Name, event.Payload)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", nil)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Info("Push stream closed", zap.String("user_id", userID.String()))
}
