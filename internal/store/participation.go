package store

import (
	"context"
	"database/sql"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/google/uuid"
)

// ParticipationStore defines the interface for participation data persistence.
//
// A participation row is unique per (event, user) pair for the lifetime of
// both; unregistering flips the active flag rather than deleting the row,
// and re-registering reactivates it.
type ParticipationStore interface {
	// Create saves a new participation to the store.
	// Returns ErrParticipationExists if a row for the (event, user) pair
	// already exists, active or not.
	Create(ctx context.Context, participation *domain.Participation) error

	// GetByID retrieves a participation by its unique ID.
	// Returns ErrParticipationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Participation, error)

	// GetByPair retrieves the participation row for the (event, user)
	// pair regardless of its active flag.
	// Returns ErrParticipationNotFound if no row exists.
	GetByPair(ctx context.Context, eventID, userID uuid.UUID) (*domain.Participation, error)

	// Update modifies an existing participation, in practice its active
	// flag and registration time. Returns ErrParticipationNotFound if the
	// row does not exist.
	Update(ctx context.Context, participation *domain.Participation) error

	// ListActiveByEvent retrieves the active participations for an event,
	// most recently registered first.
	ListActiveByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Participation, error)

	// ListActiveByUser retrieves the active participations for a user,
	// most recently registered first.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Participation, error)

	// CountActiveByEvent returns the number of active participations for
	// an event. Inside a transaction holding the event row lock this is
	// the authoritative count for the capacity check.
	CountActiveByEvent(ctx context.Context, eventID uuid.UUID) (int, error)

	// WithTx returns a new ParticipationStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ParticipationStore
}
