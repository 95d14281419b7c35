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

// Participant is a single entry on an event's participant list: the
// participation joined with a summary of the registered user.
type Participant struct {
	UserID       uuid.UUID `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	ImageURL     string    `json:"image_url,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// EventReport summarizes an event's registration state: the event itself,
// its derived capacity figures, and the active participant roster.
type EventReport struct {
	Event            *domain.Event  `json:"event"`
	ParticipantCount int            `json:"participant_count"`
	AvailableSpots   *int           `json:"available_spots"`
	Participants     []*Participant `json:"participants"`
}

// ParticipationService manages event registrations.
type ParticipationService interface {
	// Register registers the user for the event. The capacity check and
	// the insert happen atomically under a row lock on the event, so the
	// participant limit holds under concurrent registrations. Returns
	// ErrAlreadyRegistered, ErrEventFull, or ErrEventPast when the
	// registration is rejected. A previously cancelled registration is
	// reactivated rather than duplicated.
	Register(ctx context.Context, eventID, userID uuid.UUID) (*domain.Participation, error)

	// Unregister cancels the user's registration for the event, freeing a
	// spot. The participation row is kept, deactivated, so a later
	// re-registration reuses it. Returns ErrNotRegistered when there is no
	// active registration to cancel.
	Unregister(ctx context.Context, eventID, userID uuid.UUID) error

	// ListParticipants returns the event's active participants joined with
	// user details, newest registration first.
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*Participant, error)

	// ListUserEvents returns the events the user is actively registered
	// for, most recent registration first.
	ListUserEvents(ctx context.Context, userID uuid.UUID) ([]*domain.Event, error)

	// Report returns the event together with its participant count,
	// remaining capacity, and the active participant roster.
	Report(ctx context.Context, eventID uuid.UUID) (*EventReport, error)
}

// participationServiceImpl implements ParticipationService.
type participationServiceImpl struct {
	txRunner       TxRunner
	events         store.EventStore
	participations store.ParticipationStore
	users          store.UserStore
	notifications  NotificationService
	logger         *slog.Logger
}

var _ ParticipationService = (*participationServiceImpl)(nil)

// NewParticipationService creates a ParticipationService.
func NewParticipationService(
	txRunner TxRunner,
	eventStore store.EventStore,
	participations store.ParticipationStore,
	users store.UserStore,
	notifications NotificationService,
	log *slog.Logger,
) ParticipationService {
	if log == nil {
		log = slog.Default()
	}
	return &participationServiceImpl{
		txRunner:       txRunner,
		events:         eventStore,
		participations: participations,
		users:          users,
		notifications:  notifications,
		logger:         log.With(slog.String("component", "participation_service")),
	}
}

// Register implements ParticipationService.
//
// The whole check-then-insert sequence runs in one transaction with the
// event row locked, so two concurrent registrations for the last spot
// serialize: the second one re-counts after the first commits and is
// rejected with ErrEventFull.
func (s *participationServiceImpl) Register(
	ctx context.Context,
	eventID, userID uuid.UUID,
) (*domain.Participation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		participation *domain.Participation
		batch         *EmailBatch
	)

	err := s.txRunner.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txEvents := s.events.WithTx(tx)
		txParticipations := s.participations.WithTx(tx)

		event, err := txEvents.GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		if !event.IsActive {
			return store.ErrEventNotFound
		}

		existing, err := txParticipations.GetByPair(ctx, eventID, userID)
		if err != nil && !store.IsNotFoundError(err) {
			return err
		}
		if existing != nil && existing.IsActive {
			return ErrAlreadyRegistered
		}

		active, err := txParticipations.CountActiveByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.IsFull(active) {
			return ErrEventFull
		}
		if event.IsPast() {
			return ErrEventPast
		}

		if existing != nil {
			existing.IsActive = true
			existing.RegisteredAt = time.Now().UTC()
			if err := txParticipations.Update(ctx, existing); err != nil {
				return err
			}
			participation = existing
		} else {
			created, err := domain.NewParticipation(eventID, userID)
			if err != nil {
				return err
			}
			if err := txParticipations.Create(ctx, created); err != nil {
				return err
			}
			participation = created
		}

		user, err := s.users.WithTx(tx).GetByID(ctx, userID)
		if err != nil {
			return err
		}

		batch, err = s.notifications.NotifyRegistrationConfirmed(ctx, tx, event, user)
		return err
	})
	if err != nil {
		return nil, wrapServiceError("Register", "failed to register for event", err)
	}

	log.Debug("user registered for event",
		slog.String("event_id", eventID.String()),
		slog.String("user_id", userID.String()))

	s.notifications.DispatchEmail(ctx, batch)
	return participation, nil
}

// Unregister implements ParticipationService.
func (s *participationServiceImpl) Unregister(ctx context.Context, eventID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	participation, err := s.participations.GetByPair(ctx, eventID, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return ErrNotRegistered
		}
		return wrapServiceError("Unregister", "failed to load registration", err)
	}
	if !participation.IsActive {
		return ErrNotRegistered
	}

	participation.IsActive = false
	if err := s.participations.Update(ctx, participation); err != nil {
		return wrapServiceError("Unregister", "failed to cancel registration", err)
	}

	log.Debug("user unregistered from event",
		slog.String("event_id", eventID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ListParticipants implements ParticipationService.
func (s *participationServiceImpl) ListParticipants(
	ctx context.Context,
	eventID uuid.UUID,
) ([]*Participant, error) {
	// The event must exist even when nobody has registered.
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, wrapServiceError("ListParticipants", "failed to load event", err)
	}

	participations, err := s.participations.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, wrapServiceError("ListParticipants", "failed to list participants", err)
	}

	return s.joinParticipants(ctx, participations), nil
}

// Report implements ParticipationService.
func (s *participationServiceImpl) Report(
	ctx context.Context,
	eventID uuid.UUID,
) (*EventReport, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, wrapServiceError("Report", "failed to load event", err)
	}

	participations, err := s.participations.ListActiveByEvent(ctx, eventID)
	if err != nil {
		return nil, wrapServiceError("Report", "failed to list participants", err)
	}

	count := len(participations)
	return &EventReport{
		Event:            event,
		ParticipantCount: count,
		AvailableSpots:   event.AvailableSpots(count),
		Participants:     s.joinParticipants(ctx, participations),
	}, nil
}

// joinParticipants resolves participation rows into participant entries
// with user details. A user deleted mid-listing just drops off the list.
func (s *participationServiceImpl) joinParticipants(
	ctx context.Context,
	participations []*domain.Participation,
) []*Participant {
	log := logger.FromContextOrDefault(ctx, s.logger)

	participants := make([]*Participant, 0, len(participations))
	for _, p := range participations {
		user, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			log.Warn("skipping participant, user lookup failed",
				slog.String("user_id", p.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		participants = append(participants, &Participant{
			UserID:       user.ID,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			ImageURL:     user.ImageURL,
			RegisteredAt: p.RegisteredAt,
		})
	}

	return participants
}

// ListUserEvents implements ParticipationService.
func (s *participationServiceImpl) ListUserEvents(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Event, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	participations, err := s.participations.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, wrapServiceError("ListUserEvents", "failed to list registrations", err)
	}

	userEvents := make([]*domain.Event, 0, len(participations))
	for _, p := range participations {
		event, err := s.events.GetByID(ctx, p.EventID)
		if err != nil {
			if store.IsNotFoundError(err) {
				continue
			}
			log.Warn("skipping event, lookup failed",
				slog.String("event_id", p.EventID.String()),
				slog.String("error", err.Error()))
			continue
		}
		userEvents = append(userEvents, event)
	}

	return userEvents, nil
}
