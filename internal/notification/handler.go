package notification

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"workhub_backend/internal/common"
	"workhub_backend/internal/middleware"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for notification operations. The group is
// expected to already carry the auth middleware; creation is additionally
// restricted to admins because notifications are raised for users, not by them.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.getNotifications)
	router.GET("/unread-count", h.getUnreadCount)
	router.GET("/search", h.searchNotifications)
	router.POST("", middleware.RoleAuthMiddleware(common.RoleAdmin), h.createNotification)
	router.POST("/:notification_id/mark-read", h.markNotificationAsRead)
	router.POST("/mark-all-read", h.markAllNotificationsAsRead)
	router.DELETE("/:notification_id", h.deleteNotification)
}

func (h *Handler) createNotification(c *gin.Context) {
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(validationErrs)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.service.CreateNotification(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Notification created successfully.", created)
}

func (h *Handler) getNotifications(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	query, err := parseListQuery(c)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	notifications, pagination, unreadCount, err := h.service.GetNotificationsForUser(c.Request.Context(), userID, query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondPaginated(c, "Notifications retrieved successfully.", ListData{
		Items:       notifications,
		UnreadCount: unreadCount,
	}, pagination)
}

func (h *Handler) getUnreadCount(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Unread count retrieved successfully.", UnreadCountResponse{Count: count})
}

func (h *Handler) searchNotifications(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Query parameter 'q' is required."))
		return
	}

	page, pageSize := common.GetPaginationParams(c)
	notifications, pagination, err := h.service.SearchNotifications(c.Request.Context(), userID, term, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Search results retrieved successfully.", notifications, pagination)
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid notification ID format."))
		return
	}

	if err := h.service.MarkNotificationAsRead(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification marked as read successfully.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	count, err := h.service.MarkAllUserNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read.", MarkAllReadResponse{MarkedRead: count})
}

func (h *Handler) deleteNotification(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized.WithDetails("User ID not found in token."))
		return
	}

	notificationID, err := uuid.Parse(c.Param("notification_id"))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid notification ID format."))
		return
	}

	if err := h.service.DeleteNotification(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

// parseListQuery sanitizes the list endpoint's query parameters.
func parseListQuery(c *gin.Context) (ListQuery, error) {
	page, pageSize := common.GetPaginationParams(c)
	query := ListQuery{Page: page, PageSize: pageSize}

	if raw, ok := c.GetQuery("is_read"); ok {
		switch raw {
		case "true":
			v := true
			query.IsRead = &v
		case "false":
			v := false
			query.IsRead = &v
		default:
			return ListQuery{}, common.ErrBadRequest.WithDetails("Query parameter 'is_read' must be 'true' or 'false'.")
		}
	}

	if raw, ok := c.GetQuery("type"); ok {
		t := NotificationType(raw)
		if !t.IsValid() {
			return ListQuery{}, common.ErrBadRequest.WithDetails("Unknown notification type filter.")
		}
		query.Type = &t
	}

	return query, nil
}
