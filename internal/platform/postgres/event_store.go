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

// startTimeLayout is the text form of the start_time TIME column. The column
// is selected and bound as text so the clock value round-trips without
// driver-specific TIME handling.
const startTimeLayout = "15:04:05"

const eventColumns = `id, title, description, date, start_time::text, location,
		max_participants, created_by, is_active, created_at, updated_at`

// PostgresEventStore implements the store.EventStore interface
// using a PostgreSQL database as the storage backend.
type PostgresEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresEventStore implements store.EventStore interface
var _ store.EventStore = (*PostgresEventStore)(nil)

// NewPostgresEventStore creates a new PostgreSQL implementation of the
// EventStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If log is nil, the default logger is used.
func NewPostgresEventStore(db store.DBTX, log *slog.Logger) *PostgresEventStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresEventStore{
		db:     db,
		logger: log.With(slog.String("component", "event_store")),
	}
}

// WithTx implements store.EventStore.WithTx
func (s *PostgresEventStore) WithTx(tx *sql.Tx) store.EventStore {
	return &PostgresEventStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.EventStore.Create
// Returns store.ErrInvalidEntity if the creator does not exist.
func (s *PostgresEventStore) Create(ctx context.Context, event *domain.Event) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("event validation failed during create",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return err
	}

	query := `
		INSERT INTO events (id, title, description, date, start_time, location,
			max_participants, created_by, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.Title,
		event.Description,
		event.Date,
		event.StartTime.Format(startTimeLayout),
		event.Location,
		event.MaxParticipants,
		event.CreatedBy,
		event.IsActive,
		event.CreatedAt,
		event.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during event creation",
				slog.String("event_id", event.ID.String()),
				slog.String("created_by", event.CreatedBy.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, event.CreatedBy)
		}

		log.Error("failed to create event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return MapError(err)
	}

	log.Info("event created successfully",
		slog.String("event_id", event.ID.String()),
		slog.String("created_by", event.CreatedBy.String()))
	return nil
}

// GetByID implements store.EventStore.GetByID
// Returns store.ErrEventNotFound if the event does not exist.
func (s *PostgresEventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.getByID(ctx, id, false)
}

// GetByIDForUpdate implements store.EventStore.GetByIDForUpdate
// It locks the event row for the duration of the surrounding transaction so
// concurrent registrations serialize on the capacity check.
func (s *PostgresEventStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.getByID(ctx, id, true)
}

func (s *PostgresEventStore) getByID(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("event not found", slog.String("event_id", id.String()))
			return nil, store.ErrEventNotFound
		}
		log.Error("failed to get event by ID",
			slog.String("error", err.Error()),
			slog.String("event_id", id.String()))
		return nil, MapError(err)
	}

	return event, nil
}

// Update implements store.EventStore.Update
// Returns store.ErrEventNotFound if the event does not exist.
func (s *PostgresEventStore) Update(ctx context.Context, event *domain.Event) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		log.Warn("event validation failed during update",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return err
	}

	event.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE events
		SET title = $1, description = $2, date = $3, start_time = $4,
			location = $5, max_participants = $6, is_active = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		event.Title,
		event.Description,
		event.Date,
		event.StartTime.Format(startTimeLayout),
		event.Location,
		event.MaxParticipants,
		event.IsActive,
		event.UpdatedAt,
		event.ID,
	)

	if err != nil {
		log.Error("failed to update event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrEventNotFound); err != nil {
		log.Debug("event not found for update",
			slog.String("event_id", event.ID.String()))
		return err
	}

	log.Info("event updated successfully",
		slog.String("event_id", event.ID.String()))
	return nil
}

// Delete implements store.EventStore.Delete
// Returns store.ErrEventNotFound if the event does not exist.
func (s *PostgresEventStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM events WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete event",
			slog.String("error", err.Error()),
			slog.String("event_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrEventNotFound); err != nil {
		log.Debug("event not found for delete",
			slog.String("event_id", id.String()))
		return err
	}

	log.Info("event deleted successfully",
		slog.String("event_id", id.String()))
	return nil
}

// List implements store.EventStore.List
// Results are ordered by date then start time ascending.
func (s *PostgresEventStore) List(
	ctx context.Context,
	filter store.EventFilter,
	limit, offset int,
) ([]*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := buildEventFilter(filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		ORDER BY date ASC, start_time ASC
		LIMIT $%d OFFSET $%d
	`, eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list events", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	events := []*domain.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			log.Error("failed to scan event row", slog.String("error", err.Error()))
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning event rows", slog.String("error", err.Error()))
		return nil, err
	}

	return events, nil
}

// Count implements store.EventStore.Count
func (s *PostgresEventStore) Count(ctx context.Context, filter store.EventFilter) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildEventFilter(filter)

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events `+where, args...).Scan(&count)
	if err != nil {
		log.Error("failed to count events", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	return count, nil
}

// ListActiveOn implements store.EventStore.ListActiveOn
// It retrieves all active events dated on the given calendar day (UTC).
func (s *PostgresEventStore) ListActiveOn(ctx context.Context, day time.Time) ([]*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE is_active = TRUE AND date = $1
		ORDER BY start_time ASC
	`

	day = time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.db.QueryContext(ctx, query, day)
	if err != nil {
		log.Error("failed to list events by day",
			slog.String("error", err.Error()),
			slog.Time("day", day))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	events := []*domain.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			log.Error("failed to scan event row", slog.String("error", err.Error()))
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning event rows", slog.String("error", err.Error()))
		return nil, err
	}

	return events, nil
}

// buildEventFilter renders the WHERE clause for List and Count. When the
// filter does not mention the active flag, only active events are matched.
func buildEventFilter(filter store.EventFilter) (string, []any) {
	clauses := []string{}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.IsActive != nil {
		clauses = append(clauses, "is_active = "+arg(*filter.IsActive))
	} else {
		clauses = append(clauses, "is_active = TRUE")
	}
	if filter.CreatedBy != nil {
		clauses = append(clauses, "created_by = "+arg(*filter.CreatedBy))
	}
	if filter.DateFrom != nil {
		clauses = append(clauses, "date >= "+arg(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		clauses = append(clauses, "date <= "+arg(*filter.DateTo))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent scans a single event row. The date column arrives as a midnight
// timestamp and the start_time column as text in startTimeLayout form.
func scanEvent(row rowScanner) (*domain.Event, error) {
	var event domain.Event
	var startTime string
	var maxParticipants sql.NullInt64

	err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Date,
		&startTime,
		&event.Location,
		&maxParticipants,
		&event.CreatedBy,
		&event.IsActive,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := time.Parse(startTimeLayout, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_time %q: %w", startTime, err)
	}
	event.StartTime = parsed
	event.Date = event.Date.UTC()

	if maxParticipants.Valid {
		v := int(maxParticipants.Int64)
		event.MaxParticipants = &v
	}

	return &event, nil
}

// closeRows closes rows and logs the error if closing fails.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}
