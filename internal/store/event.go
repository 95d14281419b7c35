package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/google/uuid"
)

// EventFilter narrows List results. Nil fields are ignored.
type EventFilter struct {
	// CreatedBy restricts results to events created by the given user.
	CreatedBy *uuid.UUID

	// IsActive restricts results by the active flag. When nil, only
	// active events are returned, which is what every listing surface
	// wants by default.
	IsActive *bool

	// DateFrom and DateTo bound the event date (inclusive).
	DateFrom *time.Time
	DateTo   *time.Time
}

// EventStore defines the interface for event data persistence.
type EventStore interface {
	// Create saves a new event to the store.
	// Returns a validation error from the domain Event if data is invalid.
	Create(ctx context.Context, event *domain.Event) error

	// GetByID retrieves an event by its unique ID.
	// Returns ErrEventNotFound if the event does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error)

	// GetByIDForUpdate retrieves an event and locks its row for the
	// duration of the surrounding transaction (SELECT ... FOR UPDATE).
	// Registration serializes on this lock so the capacity check and the
	// participant insert observe a consistent count. Only meaningful on a
	// store obtained from WithTx; returns ErrEventNotFound if the event
	// does not exist.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Event, error)

	// Update modifies an existing event's details.
	// Returns ErrEventNotFound if the event does not exist.
	Update(ctx context.Context, event *domain.Event) error

	// Delete removes an event from the store by its ID. Deletion cascades
	// to the event's participations; notifications keep their snapshot of
	// the event title. Returns ErrEventNotFound if the event does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves events matching the filter, ordered by date then
	// start time ascending, with limit/offset pagination.
	List(ctx context.Context, filter EventFilter, limit, offset int) ([]*domain.Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter EventFilter) (int, error)

	// ListActiveOn retrieves all active events whose date falls on the
	// given calendar day (UTC). Used by the day-before reminder sweep.
	ListActiveOn(ctx context.Context, day time.Time) ([]*domain.Event, error)

	// WithTx returns a new EventStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) EventStore
}
