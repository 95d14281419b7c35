package api

import (
	"net/http"

	"github.com/gatherly/gatherly-api/internal/api/shared"
	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/store"
)

// NotificationHandler handles the authenticated user's notification
// endpoints.
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// ListNotifications handles GET /notifications. Supported query
// parameters: type, is_read (true/false), and limit/offset.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := store.NotificationFilter{}
	query := r.URL.Query()

	if raw := query.Get("type"); raw != "" {
		typ := domain.NotificationType(raw)
		filter.Type = &typ
	}
	switch query.Get("is_read") {
	case "true":
		isRead := true
		filter.IsRead = &isRead
	case "false":
		isRead := false
		filter.IsRead = &isRead
	}

	limit, offset := getPagination(r)

	notifications, total, err := h.notificationService.ListNotifications(
		r.Context(), userID, filter, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	unread, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	response := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(notifications)),
		Total:         total,
		UnreadCount:   unread,
		Limit:         limit,
		Offset:        offset,
	}
	for _, n := range notifications {
		response.Notifications = append(response.Notifications, notificationToResponse(n))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UnreadCountResponse{UnreadCount: count})
}

// Recent handles GET /notifications/recent: the caller's newest
// notifications without pagination, for a dropdown-style feed.
func (h *NotificationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	notifications, err := h.notificationService.Recent(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	response := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, notificationToResponse(n))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// MarkRead handles POST /notifications/{notificationID}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	notificationID, ok := getPathUUID(w, r, "notificationID")
	if !ok {
		return
	}

	notification, err := h.notificationService.MarkRead(r.Context(), userID, notificationID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, notificationToResponse(notification))
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MarkAllReadResponse{Updated: updated})
}
