package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
	"github.com/gatherly/gatherly-api/internal/store"
)

// CreateEventInput carries the fields for creating an event.
type CreateEventInput struct {
	Title       string
	Description string
	// Date is the calendar day of the event.
	Date time.Time
	// StartTime carries only the clock component.
	StartTime time.Time
	Location  string
	// MaxParticipants of nil means unlimited capacity.
	MaxParticipants *int
}

// UpdateEventInput carries the fields for updating an event. Nil pointers
// leave the corresponding field unchanged. ClearMaxParticipants removes the
// capacity limit and wins over MaxParticipants.
type UpdateEventInput struct {
	Title                *string
	Description          *string
	Date                 *time.Time
	StartTime            *time.Time
	Location             *string
	MaxParticipants      *int
	ClearMaxParticipants bool
	IsActive             *bool
}

// EventDetails is an event joined with its derived participation figures.
// AvailableSpots is nil for events without a capacity limit.
type EventDetails struct {
	Event            *domain.Event `json:"event"`
	ParticipantCount int           `json:"participant_count"`
	AvailableSpots   *int          `json:"available_spots"`
}

// EventService manages the event lifecycle.
type EventService interface {
	// CreateEvent creates an event owned by creatorID. The event date must
	// not be in the past.
	CreateEvent(ctx context.Context, creatorID uuid.UUID, input CreateEventInput) (*domain.Event, error)

	// GetEvent returns the event with its current participant count and
	// remaining capacity.
	GetEvent(ctx context.Context, id uuid.UUID) (*EventDetails, error)

	// ListEvents returns a page of events matching the filter, ordered by
	// date then start time, along with the total count.
	ListEvents(ctx context.Context, filter store.EventFilter, limit, offset int) ([]*domain.Event, int, error)

	// UpdateEvent applies the input to the event and notifies every active
	// participant of the change. Only the event's creator or a staff user
	// may update it; anyone else gets ErrNotEventOwner.
	UpdateEvent(ctx context.Context, actorID, eventID uuid.UUID, input UpdateEventInput) (*domain.Event, error)

	// CancelEvent deletes the event and its registrations, notifying every
	// active participant first. The notifications keep a snapshot of the
	// event title, so they outlive the event row. Only the event's creator
	// or a staff user may cancel it.
	CancelEvent(ctx context.Context, actorID, eventID uuid.UUID) error
}

// eventServiceImpl implements EventService.
type eventServiceImpl struct {
	txRunner       TxRunner
	events         store.EventStore
	participations store.ParticipationStore
	users          store.UserStore
	notifications  NotificationService
	logger         *slog.Logger
}

var _ EventService = (*eventServiceImpl)(nil)

// NewEventService creates an EventService.
func NewEventService(
	txRunner TxRunner,
	eventStore store.EventStore,
	participations store.ParticipationStore,
	users store.UserStore,
	notifications NotificationService,
	log *slog.Logger,
) EventService {
	if log == nil {
		log = slog.Default()
	}
	return &eventServiceImpl{
		txRunner:       txRunner,
		events:         eventStore,
		participations: participations,
		users:          users,
		notifications:  notifications,
		logger:         log.With(slog.String("component", "event_service")),
	}
}

// CreateEvent implements EventService.
func (s *eventServiceImpl) CreateEvent(
	ctx context.Context,
	creatorID uuid.UUID,
	input CreateEventInput,
) (*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := domain.NewEvent(
		creatorID,
		input.Title,
		input.Description,
		input.Date,
		input.StartTime,
		input.Location,
		input.MaxParticipants,
	)
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, wrapServiceError("CreateEvent", "failed to save event", err)
	}

	log.Info("event created",
		slog.String("event_id", event.ID.String()),
		slog.String("created_by", creatorID.String()))
	return event, nil
}

// GetEvent implements EventService.
func (s *eventServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*EventDetails, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, wrapServiceError("GetEvent", "failed to load event", err)
	}

	count, err := s.participations.CountActiveByEvent(ctx, id)
	if err != nil {
		return nil, wrapServiceError("GetEvent", "failed to count participants", err)
	}

	return &EventDetails{
		Event:            event,
		ParticipantCount: count,
		AvailableSpots:   event.AvailableSpots(count),
	}, nil
}

// ListEvents implements EventService.
func (s *eventServiceImpl) ListEvents(
	ctx context.Context,
	filter store.EventFilter,
	limit, offset int,
) ([]*domain.Event, int, error) {
	eventList, err := s.events.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, wrapServiceError("ListEvents", "failed to list events", err)
	}

	total, err := s.events.Count(ctx, filter)
	if err != nil {
		return nil, 0, wrapServiceError("ListEvents", "failed to count events", err)
	}

	return eventList, total, nil
}

// UpdateEvent implements EventService.
func (s *eventServiceImpl) UpdateEvent(
	ctx context.Context,
	actorID, eventID uuid.UUID,
	input UpdateEventInput,
) (*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, wrapServiceError("UpdateEvent", "failed to load acting user", err)
	}

	var (
		updated *domain.Event
		batch   *EmailBatch
	)

	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txEvents := s.events.WithTx(tx)

		event, err := txEvents.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatedBy != actorID && !actor.IsStaff {
			return ErrNotEventOwner
		}

		applyEventUpdate(event, input)
		event.UpdatedAt = time.Now().UTC()
		if err := event.Validate(); err != nil {
			return err
		}
		// Rescheduling gets the same past-date check as creation.
		if input.Date != nil && event.DateBeforeToday() {
			return domain.ErrDateInPast
		}

		if err := txEvents.Update(ctx, event); err != nil {
			return err
		}

		batch, err = s.notifications.NotifyEventUpdated(ctx, tx, event)
		updated = event
		return err
	})
	if err != nil {
		return nil, wrapServiceError("UpdateEvent", "failed to update event", err)
	}

	log.Info("event updated",
		slog.String("event_id", eventID.String()),
		slog.String("actor_id", actorID.String()))

	s.notifications.DispatchEmail(ctx, batch)
	return updated, nil
}

// CancelEvent implements EventService.
func (s *eventServiceImpl) CancelEvent(ctx context.Context, actorID, eventID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return wrapServiceError("CancelEvent", "failed to load acting user", err)
	}

	var batch *EmailBatch

	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txEvents := s.events.WithTx(tx)

		event, err := txEvents.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if event.CreatedBy != actorID && !actor.IsStaff {
			return ErrNotEventOwner
		}

		// Notifications first: they snapshot the title and survive the
		// cascade delete of the event and its participations.
		batch, err = s.notifications.NotifyEventCancelled(ctx, tx, event)
		if err != nil {
			return err
		}

		return txEvents.Delete(ctx, eventID)
	})
	if err != nil {
		return wrapServiceError("CancelEvent", "failed to cancel event", err)
	}

	log.Info("event cancelled",
		slog.String("event_id", eventID.String()),
		slog.String("actor_id", actorID.String()))

	s.notifications.DispatchEmail(ctx, batch)
	return nil
}

// applyEventUpdate copies the set fields of input onto event.
func applyEventUpdate(event *domain.Event, input UpdateEventInput) {
	if input.Title != nil {
		event.Title = *input.Title
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Date != nil {
		date := input.Date.UTC()
		event.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}
	if input.StartTime != nil {
		event.StartTime = *input.StartTime
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.ClearMaxParticipants {
		event.MaxParticipants = nil
	} else if input.MaxParticipants != nil {
		event.MaxParticipants = input.MaxParticipants
	}
	if input.IsActive != nil {
		event.IsActive = *input.IsActive
	}
}
