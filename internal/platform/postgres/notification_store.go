package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
	"github.com/gatherly/gatherly-api/internal/store"
	"github.com/google/uuid"
)

const notificationColumns = `id, user_id, type, title, message, is_read,
		created_at, read_at, event_id, event_title, dedupe_key`

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// NewPostgresNotificationStore creates a new PostgreSQL implementation of
// the NotificationStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If log is nil, the default logger is used.
func NewPostgresNotificationStore(db store.DBTX, log *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: log.With(slog.String("component", "notification_store")),
	}
}

// WithTx implements store.NotificationStore.WithTx
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.NotificationStore.Create
// Rows carrying a dedupe key insert with ON CONFLICT DO NOTHING so repeated
// sweeps cannot produce duplicates.
// Returns store.ErrInvalidEntity if the recipient does not exist.
func (s *PostgresNotificationStore) Create(ctx context.Context, notification *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := notification.Validate(); err != nil {
		log.Warn("notification validation failed during create",
			slog.String("error", err.Error()),
			slog.String("notification_id", notification.ID.String()))
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, is_read,
			created_at, read_at, event_id, event_title, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedupe_key) DO NOTHING
	`

	var dedupeKey sql.NullString
	if notification.DedupeKey != "" {
		dedupeKey = sql.NullString{String: notification.DedupeKey, Valid: true}
	}

	result, err := s.db.ExecContext(
		ctx,
		query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		notification.IsRead,
		notification.CreatedAt,
		notification.ReadAt,
		notification.EventID,
		notification.EventTitle,
		dedupeKey,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during notification creation",
				slog.String("user_id", notification.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, notification.UserID)
		}

		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", notification.ID.String()))
		return MapError(err)
	}

	if rowsAffected, raErr := result.RowsAffected(); raErr == nil && rowsAffected == 0 {
		log.Debug("notification skipped by dedupe key",
			slog.String("dedupe_key", notification.DedupeKey))
		return store.ErrDuplicateNotification
	}

	log.Info("notification created successfully",
		slog.String("notification_id", notification.ID.String()),
		slog.String("user_id", notification.UserID.String()),
		slog.String("type", string(notification.Type)))
	return nil
}

// GetByID implements store.NotificationStore.GetByID
// Returns store.ErrNotificationNotFound if the row does not exist.
func (s *PostgresNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	notification, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("notification not found",
				slog.String("notification_id", id.String()))
			return nil, store.ErrNotificationNotFound
		}
		log.Error("failed to get notification by ID",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, MapError(err)
	}

	return notification, nil
}

// ListByUser implements store.NotificationStore.ListByUser
// Results are ordered newest first.
func (s *PostgresNotificationStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	filter store.NotificationFilter,
	limit, offset int,
) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := buildNotificationFilter(userID, filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, notificationColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	notifications := []*domain.Notification{}
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			log.Error("failed to scan notification row",
				slog.String("error", err.Error()))
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning notification rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return notifications, nil
}

// CountByUser implements store.NotificationStore.CountByUser
func (s *PostgresNotificationStore) CountByUser(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildNotificationFilter(userID, filter)

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications `+where, args...).Scan(&count)
	if err != nil {
		log.Error("failed to count notifications",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// CountUnread implements store.NotificationStore.CountUnread
func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	unread := false
	return s.CountByUser(ctx, userID, store.NotificationFilter{IsRead: &unread})
}

// Update implements store.NotificationStore.Update
// Returns store.ErrNotificationNotFound if the row does not exist.
func (s *PostgresNotificationStore) Update(ctx context.Context, notification *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notifications
		SET is_read = $1, read_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		notification.IsRead,
		notification.ReadAt,
		notification.ID,
	)

	if err != nil {
		log.Error("failed to update notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", notification.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrNotificationNotFound); err != nil {
		log.Debug("notification not found for update",
			slog.String("notification_id", notification.ID.String()))
		return err
	}

	return nil
}

// MarkAllRead implements store.NotificationStore.MarkAllRead
// It marks every unread notification for the user as read and returns the
// number of rows affected.
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $1
		WHERE user_id = $2 AND is_read = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		log.Error("failed to mark all notifications read",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("marked all notifications read",
		slog.String("user_id", userID.String()),
		slog.Int64("count", rowsAffected))
	return rowsAffected, nil
}

// PurgeRead implements store.NotificationStore.PurgeRead
// It deletes read notifications created before the cutoff and returns the
// number of rows deleted.
func (s *PostgresNotificationStore) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM notifications
		WHERE is_read = TRUE AND created_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		log.Error("failed to purge read notifications",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("purged read notifications",
		slog.Int64("count", rowsAffected),
		slog.Time("older_than", olderThan))
	return rowsAffected, nil
}

// buildNotificationFilter renders the WHERE clause for ListByUser and
// CountByUser.
func buildNotificationFilter(userID uuid.UUID, filter store.NotificationFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		clauses = append(clauses, fmt.Sprintf("is_read = $%d", len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// scanNotification scans a single notification row.
func scanNotification(row rowScanner) (*domain.Notification, error) {
	var notification domain.Notification
	var notificationType string
	var readAt sql.NullTime
	var eventID uuid.NullUUID
	var eventTitle sql.NullString
	var dedupeKey sql.NullString

	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notificationType,
		&notification.Title,
		&notification.Message,
		&notification.IsRead,
		&notification.CreatedAt,
		&readAt,
		&eventID,
		&eventTitle,
		&dedupeKey,
	)
	if err != nil {
		return nil, err
	}

	notification.Type = domain.NotificationType(notificationType)
	if readAt.Valid {
		t := readAt.Time.UTC()
		notification.ReadAt = &t
	}
	if eventID.Valid {
		id := eventID.UUID
		notification.EventID = &id
	}
	if eventTitle.Valid {
		title := eventTitle.String
		notification.EventTitle = &title
	}
	notification.DedupeKey = dedupeKey.String

	return &notification, nil
}
