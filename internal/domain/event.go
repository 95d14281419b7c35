package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Event
var (
	ErrEmptyEventID       = errors.New("event ID cannot be empty")
	ErrEmptyEventTitle    = errors.New("event title cannot be empty")
	ErrEmptyEventLocation = errors.New("event location cannot be empty")
	ErrEmptyEventCreator  = errors.New("event creator cannot be empty")
	ErrInvalidCapacity    = errors.New("maximum participants must be greater than zero")
)

// Event represents a scheduled gathering with an optional capacity limit.
// MaxParticipants of nil means unlimited capacity. The participant count is
// derived from active participations, never stored on the event itself.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	// Date is the calendar day of the event, normalized to midnight UTC.
	Date time.Time `json:"date"`
	// StartTime carries only the clock component; its date part is the
	// zero date used by time.Parse for time-only layouts.
	StartTime       time.Time `json:"start_time"`
	Location        string    `json:"location"`
	MaxParticipants *int      `json:"max_participants"`
	CreatedBy       uuid.UUID `json:"created_by"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewEvent creates a new Event owned by creatorID. It generates a new UUID,
// marks the event active, and sets the creation/update timestamps.
// Returns ErrDateInPast if the event date is before today (UTC).
func NewEvent(
	creatorID uuid.UUID,
	title, description string,
	date, startTime time.Time,
	location string,
	maxParticipants *int,
) (*Event, error) {
	now := time.Now().UTC()

	event := &Event{
		ID:              uuid.New(),
		Title:           title,
		Description:     description,
		Date:            normalizeDate(date),
		StartTime:       startTime,
		Location:        location,
		MaxParticipants: maxParticipants,
		CreatedBy:       creatorID,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.DateBeforeToday() {
		return nil, ErrDateInPast
	}

	return event, nil
}

// DateBeforeToday reports whether the event date falls before today (UTC).
// Creating or rescheduling an event to such a date is rejected with
// ErrDateInPast.
func (e *Event) DateBeforeToday() bool {
	return e.Date.Before(normalizeDate(time.Now().UTC()))
}

// Validate checks if the Event has valid data.
// Returns an error if any field fails validation.
func (e *Event) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEventID
	}

	if e.Title == "" {
		return ErrEmptyEventTitle
	}

	if e.Location == "" {
		return ErrEmptyEventLocation
	}

	if e.CreatedBy == uuid.Nil {
		return ErrEmptyEventCreator
	}

	if e.MaxParticipants != nil && *e.MaxParticipants <= 0 {
		return ErrInvalidCapacity
	}

	return nil
}

// StartsAt combines the event date and start time into a single UTC instant.
func (e *Event) StartsAt() time.Time {
	return time.Date(
		e.Date.Year(), e.Date.Month(), e.Date.Day(),
		e.StartTime.Hour(), e.StartTime.Minute(), e.StartTime.Second(), 0,
		time.UTC,
	)
}

// IsPast reports whether the event start instant is before now.
func (e *Event) IsPast() bool {
	return e.IsPastAt(time.Now().UTC())
}

// IsPastAt reports whether the event start instant is before the given time.
// The reference time is compared in UTC.
func (e *Event) IsPastAt(now time.Time) bool {
	return e.StartsAt().Before(now.UTC())
}

// IsFull reports whether the event has no remaining capacity given the
// current count of active participants. Unlimited events are never full.
func (e *Event) IsFull(activeParticipants int) bool {
	if e.MaxParticipants == nil {
		return false
	}
	return activeParticipants >= *e.MaxParticipants
}

// AvailableSpots returns the number of remaining seats given the current
// count of active participants, or nil for unlimited events. The result
// never goes below zero.
func (e *Event) AvailableSpots(activeParticipants int) *int {
	if e.MaxParticipants == nil {
		return nil
	}

	spots := *e.MaxParticipants - activeParticipants
	if spots < 0 {
		spots = 0
	}
	return &spots
}

// normalizeDate strips the clock component, keeping the calendar day in UTC.
func normalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
