package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification.
type NotificationType string

// Possible notification types
const (
	NotificationTypeEventUpdate       NotificationType = "event_update"
	NotificationTypeEventCancellation NotificationType = "event_cancellation"
	NotificationTypeRegistration      NotificationType = "registration_confirmation"
	NotificationTypeReminder          NotificationType = "reminder"
)

// Common validation errors for Notification
var (
	ErrEmptyNotificationID     = errors.New("notification ID cannot be empty")
	ErrEmptyNotificationUser   = errors.New("notification user ID cannot be empty")
	ErrEmptyNotificationTitle  = errors.New("notification title cannot be empty")
	ErrInvalidNotificationType = errors.New("invalid notification type")
)

// Notification is an in-app message for a single user. EventID and
// EventTitle are a denormalized snapshot taken at creation time, not a
// live reference: a notification stays readable after its source event
// has been deleted.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`

	// Snapshot of the originating event, if any.
	EventID    *uuid.UUID `json:"event_id,omitempty"`
	EventTitle *string    `json:"event_title,omitempty"`

	// DedupeKey, when non-empty, makes creation idempotent: inserting a
	// second notification with the same key is a no-op. Used by the
	// reminder sweep so a same-day re-run cannot duplicate reminders.
	DedupeKey string `json:"-"`
}

// NewNotification creates a new unread Notification for the given user.
// Returns an error if validation fails.
func NewNotification(
	userID uuid.UUID,
	typ NotificationType,
	title, message string,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// WithEvent attaches an event snapshot to the notification and returns it.
func (n *Notification) WithEvent(eventID uuid.UUID, eventTitle string) *Notification {
	n.EventID = &eventID
	n.EventTitle = &eventTitle
	return n
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrEmptyNotificationID
	}

	if n.UserID == uuid.Nil {
		return ErrEmptyNotificationUser
	}

	if n.Title == "" {
		return ErrEmptyNotificationTitle
	}

	if !isValidNotificationType(n.Type) {
		return ErrInvalidNotificationType
	}

	return nil
}

// MarkRead marks the notification as read, stamping ReadAt on the first
// call. Calling it again is a no-op and leaves ReadAt unchanged.
func (n *Notification) MarkRead() {
	if n.IsRead {
		return
	}

	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
}

// ReminderDedupeKey builds the idempotency key for a reminder notification:
// one reminder per (event, user, calendar day).
func ReminderDedupeKey(eventID, userID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("reminder:%s:%s:%s", eventID, userID, day.UTC().Format("2006-01-02"))
}

// isValidNotificationType checks if the given type is a valid NotificationType.
func isValidNotificationType(typ NotificationType) bool {
	switch typ {
	case NotificationTypeEventUpdate, NotificationTypeEventCancellation,
		NotificationTypeRegistration, NotificationTypeReminder:
		return true
	default:
		return false
	}
}
