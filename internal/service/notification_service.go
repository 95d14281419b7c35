package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/events"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
	"github.com/gatherly/gatherly-api/internal/store"
	"github.com/gatherly/gatherly-api/internal/task"
)

// EmailBatch is a rendered email with its recipient list. It is prepared
// while the surrounding transaction is still open (so the recipient set
// matches the committed state) and dispatched only after the commit, keeping
// email delivery out of the transaction.
type EmailBatch struct {
	Recipients []string
	Subject    string
	Body       string
}

// NotificationService manages in-app notifications and requests background
// email delivery for them. The Notify* methods run inside the caller's
// transaction and return an EmailBatch for the caller to dispatch after
// commit; passing a nil tx runs them against the base connection.
type NotificationService interface {
	// NotifyRegistrationConfirmed records a confirmation notification for
	// the newly registered user.
	NotifyRegistrationConfirmed(ctx context.Context, tx *sql.Tx, event *domain.Event, user *domain.User) (*EmailBatch, error)

	// NotifyEventUpdated fans an update notification out to every active
	// participant of the event.
	NotifyEventUpdated(ctx context.Context, tx *sql.Tx, event *domain.Event) (*EmailBatch, error)

	// NotifyEventCancelled fans a cancellation notification out to every
	// active participant. The notifications snapshot the event title, so
	// they survive the event row being deleted in the same transaction.
	NotifyEventCancelled(ctx context.Context, tx *sql.Tx, event *domain.Event) (*EmailBatch, error)

	// DispatchEmail requests background delivery of the batch. A nil or
	// empty batch is a no-op. Failures are logged, never returned: email
	// is best effort and must not fail the operation that produced it.
	DispatchEmail(ctx context.Context, batch *EmailBatch)

	// SendDayBeforeReminders creates reminder notifications for every
	// active participant of every event happening tomorrow (UTC), and
	// requests reminder emails. Reminders carry a dedupe key, so a re-run
	// on the same day cannot duplicate the in-app notifications. Returns
	// the number of reminders processed.
	SendDayBeforeReminders(ctx context.Context) (int, error)

	// PurgeOldRead deletes read notifications older than the retention
	// window, returning the number deleted.
	PurgeOldRead(ctx context.Context) (int64, error)

	// ListNotifications returns a page of the user's notifications, newest
	// first, along with the total count matching the filter.
	ListNotifications(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter, limit, offset int) ([]*domain.Notification, int, error)

	// UnreadCount returns the number of unread notifications for the user.
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkRead marks a single notification as read. A notification owned
	// by another user is reported as not found rather than forbidden.
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*domain.Notification, error)

	// MarkAllRead marks all of the user's unread notifications as read,
	// returning the number updated.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// Recent returns the user's newest notifications, read or not, capped
	// at recentNotificationLimit.
	Recent(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
}

// recentNotificationLimit caps the Recent feed.
const recentNotificationLimit = 10

// notificationServiceImpl implements NotificationService.
type notificationServiceImpl struct {
	notifications  store.NotificationStore
	participations store.ParticipationStore
	users          store.UserStore
	events         store.EventStore
	emitter        events.EventEmitter
	purgeReadAfter time.Duration
	logger         *slog.Logger
}

var _ NotificationService = (*notificationServiceImpl)(nil)
var _ task.ReminderSweeper = (*notificationServiceImpl)(nil)
var _ task.NotificationPurger = (*notificationServiceImpl)(nil)

// NewNotificationService creates a NotificationService. purgeReadAfter is
// the retention window for read notifications used by PurgeOldRead.
func NewNotificationService(
	notifications store.NotificationStore,
	participations store.ParticipationStore,
	users store.UserStore,
	eventStore store.EventStore,
	emitter events.EventEmitter,
	purgeReadAfter time.Duration,
	log *slog.Logger,
) NotificationService {
	if log == nil {
		log = slog.Default()
	}
	return &notificationServiceImpl{
		notifications:  notifications,
		participations: participations,
		users:          users,
		events:         eventStore,
		emitter:        emitter,
		purgeReadAfter: purgeReadAfter,
		logger:         log.With(slog.String("component", "notification_service")),
	}
}

// NotifyRegistrationConfirmed implements NotificationService.
func (s *notificationServiceImpl) NotifyRegistrationConfirmed(
	ctx context.Context,
	tx *sql.Tx,
	event *domain.Event,
	user *domain.User,
) (*EmailBatch, error) {
	message := fmt.Sprintf("You are registered for %q on %s.", event.Title, eventWhen(event))

	notification, err := domain.NewNotification(
		user.ID, domain.NotificationTypeRegistration, "Registration confirmed", message)
	if err != nil {
		return nil, wrapServiceError("NotifyRegistrationConfirmed", "invalid notification", err)
	}
	notification.WithEvent(event.ID, event.Title)

	if err := s.store(tx).Create(ctx, notification); err != nil {
		return nil, wrapServiceError("NotifyRegistrationConfirmed", "failed to save notification", err)
	}

	return &EmailBatch{
		Recipients: []string{user.Email},
		Subject:    fmt.Sprintf("Registration confirmed: %s", event.Title),
		Body:       message,
	}, nil
}

// NotifyEventUpdated implements NotificationService.
func (s *notificationServiceImpl) NotifyEventUpdated(
	ctx context.Context,
	tx *sql.Tx,
	event *domain.Event,
) (*EmailBatch, error) {
	message := fmt.Sprintf("%q has been updated. It now takes place on %s.", event.Title, eventWhen(event))
	return s.fanOut(ctx, tx, "NotifyEventUpdated", event, domain.NotificationTypeEventUpdate,
		"Event updated", message,
		fmt.Sprintf("Event updated: %s", event.Title))
}

// NotifyEventCancelled implements NotificationService.
func (s *notificationServiceImpl) NotifyEventCancelled(
	ctx context.Context,
	tx *sql.Tx,
	event *domain.Event,
) (*EmailBatch, error) {
	message := fmt.Sprintf("%q on %s has been cancelled.", event.Title, eventWhen(event))
	return s.fanOut(ctx, tx, "NotifyEventCancelled", event, domain.NotificationTypeEventCancellation,
		"Event cancelled", message,
		fmt.Sprintf("Event cancelled: %s", event.Title))
}

// fanOut creates one notification per active participant of the event and
// collects their email addresses into a batch. Returns nil when the event
// has no active participants.
func (s *notificationServiceImpl) fanOut(
	ctx context.Context,
	tx *sql.Tx,
	operation string,
	event *domain.Event,
	typ domain.NotificationType,
	title, message, subject string,
) (*EmailBatch, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	participations, err := s.participationStore(tx).ListActiveByEvent(ctx, event.ID)
	if err != nil {
		return nil, wrapServiceError(operation, "failed to list participants", err)
	}
	if len(participations) == 0 {
		return nil, nil
	}

	notificationStore := s.store(tx)
	userStore := s.userStore(tx)

	recipients := make([]string, 0, len(participations))
	for _, p := range participations {
		notification, err := domain.NewNotification(p.UserID, typ, title, message)
		if err != nil {
			return nil, wrapServiceError(operation, "invalid notification", err)
		}
		notification.WithEvent(event.ID, event.Title)

		if err := notificationStore.Create(ctx, notification); err != nil {
			return nil, wrapServiceError(operation, "failed to save notification", err)
		}

		user, err := userStore.GetByID(ctx, p.UserID)
		if err != nil {
			// The in-app notification is already queued in this tx;
			// losing the email address only loses the email.
			log.Warn("skipping email recipient, user lookup failed",
				slog.String("user_id", p.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		recipients = append(recipients, user.Email)
	}

	if len(recipients) == 0 {
		return nil, nil
	}
	return &EmailBatch{Recipients: recipients, Subject: subject, Body: message}, nil
}

// DispatchEmail implements NotificationService.
func (s *notificationServiceImpl) DispatchEmail(ctx context.Context, batch *EmailBatch) {
	if batch == nil || len(batch.Recipients) == 0 {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskRequestEvent(task.TaskTypeEmailDelivery, task.EmailDeliveryPayload{
		Recipients: batch.Recipients,
		Subject:    batch.Subject,
		Body:       batch.Body,
	})
	if err != nil {
		log.Error("failed to build email delivery event",
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("failed to request email delivery",
			slog.String("subject", batch.Subject),
			slog.Int("recipient_count", len(batch.Recipients)),
			slog.String("error", err.Error()))
	}
}

// SendDayBeforeReminders implements NotificationService and task.ReminderSweeper.
func (s *notificationServiceImpl) SendDayBeforeReminders(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)

	upcoming, err := s.events.ListActiveOn(ctx, tomorrow)
	if err != nil {
		return 0, wrapServiceError("SendDayBeforeReminders", "failed to list tomorrow's events", err)
	}

	processed := 0
	for _, event := range upcoming {
		participations, err := s.participations.ListActiveByEvent(ctx, event.ID)
		if err != nil {
			log.Error("reminder sweep: failed to list participants",
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		message := fmt.Sprintf("%q starts tomorrow, %s, at %s.",
			event.Title, event.Date.Format("Monday, 2 January 2006"), eventClock(event))

		recipients := make([]string, 0, len(participations))
		for _, p := range participations {
			notification, err := domain.NewNotification(
				p.UserID, domain.NotificationTypeReminder, "Event reminder", message)
			if err != nil {
				log.Error("reminder sweep: invalid notification",
					slog.String("user_id", p.UserID.String()),
					slog.String("error", err.Error()))
				continue
			}
			notification.WithEvent(event.ID, event.Title)
			notification.DedupeKey = domain.ReminderDedupeKey(event.ID, p.UserID, tomorrow)

			if err := s.notifications.Create(ctx, notification); err != nil {
				if errors.Is(err, store.ErrDuplicateNotification) {
					// Already reminded today; skip the email as well.
					continue
				}
				log.Error("reminder sweep: failed to save reminder",
					slog.String("user_id", p.UserID.String()),
					slog.String("event_id", event.ID.String()),
					slog.String("error", err.Error()))
				continue
			}
			processed++

			user, err := s.users.GetByID(ctx, p.UserID)
			if err != nil {
				log.Warn("reminder sweep: skipping email recipient",
					slog.String("user_id", p.UserID.String()),
					slog.String("error", err.Error()))
				continue
			}
			recipients = append(recipients, user.Email)
		}

		s.DispatchEmail(ctx, &EmailBatch{
			Recipients: recipients,
			Subject:    fmt.Sprintf("Reminder: %s is tomorrow", event.Title),
			Body:       message,
		})
	}

	return processed, nil
}

// PurgeOldRead implements NotificationService and task.NotificationPurger.
func (s *notificationServiceImpl) PurgeOldRead(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.purgeReadAfter)
	purged, err := s.notifications.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, wrapServiceError("PurgeOldRead", "failed to purge read notifications", err)
	}
	return purged, nil
}

// ListNotifications implements NotificationService.
func (s *notificationServiceImpl) ListNotifications(
	ctx context.Context,
	userID uuid.UUID,
	filter store.NotificationFilter,
	limit, offset int,
) ([]*domain.Notification, int, error) {
	notifications, err := s.notifications.ListByUser(ctx, userID, filter, limit, offset)
	if err != nil {
		return nil, 0, wrapServiceError("ListNotifications", "failed to list notifications", err)
	}

	total, err := s.notifications.CountByUser(ctx, userID, filter)
	if err != nil {
		return nil, 0, wrapServiceError("ListNotifications", "failed to count notifications", err)
	}

	return notifications, total, nil
}

// UnreadCount implements NotificationService.
func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, wrapServiceError("UnreadCount", "failed to count unread notifications", err)
	}
	return count, nil
}

// MarkRead implements NotificationService.
func (s *notificationServiceImpl) MarkRead(
	ctx context.Context,
	userID, notificationID uuid.UUID,
) (*domain.Notification, error) {
	notification, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, wrapServiceError("MarkRead", "failed to load notification", err)
	}

	// Another user's notification is indistinguishable from a missing one.
	if notification.UserID != userID {
		return nil, store.ErrNotificationNotFound
	}

	if notification.IsRead {
		return notification, nil
	}

	notification.MarkRead()
	if err := s.notifications.Update(ctx, notification); err != nil {
		return nil, wrapServiceError("MarkRead", "failed to update notification", err)
	}

	return notification, nil
}

// MarkAllRead implements NotificationService.
func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, wrapServiceError("MarkAllRead", "failed to mark notifications read", err)
	}
	return updated, nil
}

// Recent implements NotificationService.
func (s *notificationServiceImpl) Recent(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Notification, error) {
	notifications, err := s.notifications.ListByUser(
		ctx, userID, store.NotificationFilter{}, recentNotificationLimit, 0)
	if err != nil {
		return nil, wrapServiceError("Recent", "failed to list notifications", err)
	}
	return notifications, nil
}

// store returns the notification store bound to tx, or the base store when
// tx is nil.
func (s *notificationServiceImpl) store(tx *sql.Tx) store.NotificationStore {
	if tx == nil {
		return s.notifications
	}
	return s.notifications.WithTx(tx)
}

func (s *notificationServiceImpl) participationStore(tx *sql.Tx) store.ParticipationStore {
	if tx == nil {
		return s.participations
	}
	return s.participations.WithTx(tx)
}

func (s *notificationServiceImpl) userStore(tx *sql.Tx) store.UserStore {
	if tx == nil {
		return s.users
	}
	return s.users.WithTx(tx)
}

// eventWhen renders the event date and start time for notification text.
func eventWhen(event *domain.Event) string {
	return fmt.Sprintf("%s at %s",
		event.Date.Format("Monday, 2 January 2006"), eventClock(event))
}

// eventClock renders just the start time.
func eventClock(event *domain.Event) string {
	return event.StartTime.Format("15:04")
}
