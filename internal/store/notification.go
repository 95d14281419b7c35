package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/google/uuid"
)

// NotificationFilter narrows ListByUser results. Nil fields are ignored.
type NotificationFilter struct {
	Type   *domain.NotificationType
	IsRead *bool
}

// NotificationStore defines the interface for notification data persistence.
type NotificationStore interface {
	// Create saves a new notification to the store. When the notification
	// carries a dedupe key and a row with that key already exists, nothing
	// is inserted and ErrDuplicateNotification is returned; reminder sweeps
	// rely on this to stay idempotent across restarts.
	Create(ctx context.Context, notification *domain.Notification) error

	// GetByID retrieves a notification by its unique ID.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListByUser retrieves a user's notifications matching the filter,
	// newest first, with limit/offset pagination.
	ListByUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter, limit, offset int) ([]*domain.Notification, error)

	// CountByUser returns the number of a user's notifications matching
	// the filter.
	CountByUser(ctx context.Context, userID uuid.UUID, filter NotificationFilter) (int, error)

	// CountUnread returns the number of unread notifications for a user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)

	// Update persists changes to a notification's read state.
	// Returns ErrNotificationNotFound if the row does not exist.
	Update(ctx context.Context, notification *domain.Notification) error

	// MarkAllRead marks all of a user's unread notifications as read and
	// returns the number of rows affected.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// PurgeRead deletes read notifications older than the cutoff and
	// returns the number of rows deleted.
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)

	// WithTx returns a new NotificationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
