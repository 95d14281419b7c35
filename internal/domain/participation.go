package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Participation
var (
	ErrEmptyParticipationID    = errors.New("participation ID cannot be empty")
	ErrEmptyParticipationEvent = errors.New("participation event ID cannot be empty")
	ErrEmptyParticipationUser  = errors.New("participation user ID cannot be empty")
)

// Participation records a user's registration for an event. Unregistering
// flips IsActive to false rather than deleting the row, so the pair
// (EventID, UserID) is unique regardless of the active flag and
// re-registration reactivates the existing record.
type Participation struct {
	ID           uuid.UUID `json:"id"`
	EventID      uuid.UUID `json:"event_id"`
	UserID       uuid.UUID `json:"user_id"`
	RegisteredAt time.Time `json:"registered_at"`
	IsActive     bool      `json:"is_active"`
}

// NewParticipation creates a new active Participation for the given event
// and user. It generates a new UUID and stamps the registration time.
// Returns an error if validation fails.
func NewParticipation(eventID, userID uuid.UUID) (*Participation, error) {
	p := &Participation{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: time.Now().UTC(),
		IsActive:     true,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks if the Participation has valid data.
func (p *Participation) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyParticipationID
	}

	if p.EventID == uuid.Nil {
		return ErrEmptyParticipationEvent
	}

	if p.UserID == uuid.Nil {
		return ErrEmptyParticipationUser
	}

	return nil
}
