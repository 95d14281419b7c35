package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
	"github.com/gatherly/gatherly-api/internal/store"
	"github.com/google/uuid"
)

// PostgresParticipationStore implements the store.ParticipationStore
// interface using a PostgreSQL database as the storage backend.
type PostgresParticipationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresParticipationStore implements store.ParticipationStore interface
var _ store.ParticipationStore = (*PostgresParticipationStore)(nil)

// NewPostgresParticipationStore creates a new PostgreSQL implementation of
// the ParticipationStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If log is nil, the default logger is used.
func NewPostgresParticipationStore(db store.DBTX, log *slog.Logger) *PostgresParticipationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresParticipationStore{
		db:     db,
		logger: log.With(slog.String("component", "participation_store")),
	}
}

// WithTx implements store.ParticipationStore.WithTx
func (s *PostgresParticipationStore) WithTx(tx *sql.Tx) store.ParticipationStore {
	return &PostgresParticipationStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ParticipationStore.Create
// Returns store.ErrParticipationExists if a row for the (event, user) pair
// already exists, and store.ErrInvalidEntity if the event or user is gone.
func (s *PostgresParticipationStore) Create(ctx context.Context, participation *domain.Participation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := participation.Validate(); err != nil {
		log.Warn("participation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("participation_id", participation.ID.String()))
		return err
	}

	query := `
		INSERT INTO event_participants (id, event_id, user_id, registered_at, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		participation.ID,
		participation.EventID,
		participation.UserID,
		participation.RegisteredAt,
		participation.IsActive,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("participation already exists",
				slog.String("event_id", participation.EventID.String()),
				slog.String("user_id", participation.UserID.String()))
			return fmt.Errorf("%w: %v", store.ErrParticipationExists, err)
		}
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during participation creation",
				slog.String("event_id", participation.EventID.String()),
				slog.String("user_id", participation.UserID.String()))
			return fmt.Errorf("%w: event or user not found", store.ErrInvalidEntity)
		}

		log.Error("failed to create participation",
			slog.String("error", err.Error()),
			slog.String("participation_id", participation.ID.String()))
		return MapError(err)
	}

	log.Info("participation created successfully",
		slog.String("participation_id", participation.ID.String()),
		slog.String("event_id", participation.EventID.String()),
		slog.String("user_id", participation.UserID.String()))
	return nil
}

// GetByID implements store.ParticipationStore.GetByID
// Returns store.ErrParticipationNotFound if the row does not exist.
func (s *PostgresParticipationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, event_id, user_id, registered_at, is_active
		FROM event_participants
		WHERE id = $1
	`

	participation, err := scanParticipation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("participation not found",
				slog.String("participation_id", id.String()))
			return nil, store.ErrParticipationNotFound
		}
		log.Error("failed to get participation by ID",
			slog.String("error", err.Error()),
			slog.String("participation_id", id.String()))
		return nil, MapError(err)
	}

	return participation, nil
}

// GetByPair implements store.ParticipationStore.GetByPair
// It fetches the row for the (event, user) pair regardless of its active flag.
// Returns store.ErrParticipationNotFound if no row exists.
func (s *PostgresParticipationStore) GetByPair(ctx context.Context, eventID, userID uuid.UUID) (*domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, event_id, user_id, registered_at, is_active
		FROM event_participants
		WHERE event_id = $1 AND user_id = $2
	`

	participation, err := scanParticipation(s.db.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("participation not found for pair",
				slog.String("event_id", eventID.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrParticipationNotFound
		}
		log.Error("failed to get participation by pair",
			slog.String("error", err.Error()),
			slog.String("event_id", eventID.String()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return participation, nil
}

// Update implements store.ParticipationStore.Update
// Returns store.ErrParticipationNotFound if the row does not exist.
func (s *PostgresParticipationStore) Update(ctx context.Context, participation *domain.Participation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := participation.Validate(); err != nil {
		log.Warn("participation validation failed during update",
			slog.String("error", err.Error()),
			slog.String("participation_id", participation.ID.String()))
		return err
	}

	query := `
		UPDATE event_participants
		SET registered_at = $1, is_active = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		participation.RegisteredAt,
		participation.IsActive,
		participation.ID,
	)

	if err != nil {
		log.Error("failed to update participation",
			slog.String("error", err.Error()),
			slog.String("participation_id", participation.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrParticipationNotFound); err != nil {
		log.Debug("participation not found for update",
			slog.String("participation_id", participation.ID.String()))
		return err
	}

	log.Info("participation updated successfully",
		slog.String("participation_id", participation.ID.String()),
		slog.Bool("is_active", participation.IsActive))
	return nil
}

// ListActiveByEvent implements store.ParticipationStore.ListActiveByEvent
// Results are ordered most recently registered first.
func (s *PostgresParticipationStore) ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Participation, error) {
	query := `
		SELECT id, event_id, user_id, registered_at, is_active
		FROM event_participants
		WHERE event_id = $1 AND is_active = TRUE
		ORDER BY registered_at DESC
	`
	return s.list(ctx, query, eventID)
}

// ListActiveByUser implements store.ParticipationStore.ListActiveByUser
// Results are ordered most recently registered first.
func (s *PostgresParticipationStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participation, error) {
	query := `
		SELECT id, event_id, user_id, registered_at, is_active
		FROM event_participants
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY registered_at DESC
	`
	return s.list(ctx, query, userID)
}

// CountActiveByEvent implements store.ParticipationStore.CountActiveByEvent
func (s *PostgresParticipationStore) CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM event_participants
		WHERE event_id = $1 AND is_active = TRUE
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&count); err != nil {
		log.Error("failed to count active participations",
			slog.String("error", err.Error()),
			slog.String("event_id", eventID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

func (s *PostgresParticipationStore) list(ctx context.Context, query string, arg any) ([]*domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		log.Error("failed to list participations", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	participations := []*domain.Participation{}
	for rows.Next() {
		participation, err := scanParticipation(rows)
		if err != nil {
			log.Error("failed to scan participation row",
				slog.String("error", err.Error()))
			return nil, err
		}
		participations = append(participations, participation)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning participation rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return participations, nil
}

// scanParticipation scans a single participation row.
func scanParticipation(row rowScanner) (*domain.Participation, error) {
	var participation domain.Participation

	err := row.Scan(
		&participation.ID,
		&participation.EventID,
		&participation.UserID,
		&participation.RegisteredAt,
		&participation.IsActive,
	)
	if err != nil {
		return nil, err
	}

	return &participation, nil
}
