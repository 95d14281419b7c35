package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/events"
	"github.com/gatherly/gatherly-api/internal/store"
)

// serialTxRunner runs transaction functions one at a time, standing in for
// the row lock the real registration path takes on the events table.
type serialTxRunner struct {
	mu sync.Mutex
}

func (r *serialTxRunner) RunInTransaction(ctx context.Context, fn store.TxFn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, nil)
}

// fakeEmitter records emitted task request events.
type fakeEmitter struct {
	mu      sync.Mutex
	emitted []*events.TaskRequestEvent
	err     error
}

func (e *fakeEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.emitted = append(e.emitted, event)
	return nil
}

func (e *fakeEmitter) events() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*events.TaskRequestEvent, len(e.emitted))
	copy(out, e.emitted)
	return out
}

// memoryUserStore is an in-memory store.UserStore.
type memoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[uuid.UUID]*domain.User)}
}

func (s *memoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return store.ErrEmailExists
		}
	}
	if user.Password != "" {
		user.HashedPassword = "hashed:" + user.Password
		user.Password = ""
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *memoryUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memoryUserStore) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	if user.Password != "" {
		user.HashedPassword = "hashed:" + user.Password
		user.Password = ""
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memoryUserStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memoryUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// memoryEventStore is an in-memory store.EventStore.
type memoryEventStore struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*domain.Event
}

func newMemoryEventStore() *memoryEventStore {
	return &memoryEventStore{events: make(map[uuid.UUID]*domain.Event)}
}

func (s *memoryEventStore) Create(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *event
	s.events[event.ID] = &clone
	return nil
}

func (s *memoryEventStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, store.ErrEventNotFound
	}
	clone := *event
	return &clone, nil
}

func (s *memoryEventStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.GetByID(ctx, id)
}

func (s *memoryEventStore) Update(_ context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return store.ErrEventNotFound
	}
	clone := *event
	s.events[event.ID] = &clone
	return nil
}

func (s *memoryEventStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return store.ErrEventNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *memoryEventStore) List(
	_ context.Context,
	filter store.EventFilter,
	limit, offset int,
) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].StartTime.Before(matched[j].StartTime)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *memoryEventStore) Count(_ context.Context, filter store.EventFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(filter)), nil
}

func (s *memoryEventStore) ListActiveOn(_ context.Context, day time.Time) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = day.UTC()
	target := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	var matched []*domain.Event
	for _, event := range s.events {
		if event.IsActive && event.Date.Equal(target) {
			clone := *event
			matched = append(matched, &clone)
		}
	}
	return matched, nil
}

func (s *memoryEventStore) WithTx(*sql.Tx) store.EventStore { return s }

// match applies filter the way the SQL store builds its WHERE clause: a nil
// IsActive means active-only.
func (s *memoryEventStore) match(filter store.EventFilter) []*domain.Event {
	var matched []*domain.Event
	for _, event := range s.events {
		if filter.IsActive == nil {
			if !event.IsActive {
				continue
			}
		} else if event.IsActive != *filter.IsActive {
			continue
		}
		if filter.CreatedBy != nil && event.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.DateFrom != nil && event.Date.Before(filter.DateFrom.UTC()) {
			continue
		}
		if filter.DateTo != nil && event.Date.After(filter.DateTo.UTC()) {
			continue
		}
		clone := *event
		matched = append(matched, &clone)
	}
	return matched
}

// memoryParticipationStore is an in-memory store.ParticipationStore.
type memoryParticipationStore struct {
	mu             sync.RWMutex
	participations map[uuid.UUID]*domain.Participation
}

func newMemoryParticipationStore() *memoryParticipationStore {
	return &memoryParticipationStore{participations: make(map[uuid.UUID]*domain.Participation)}
}

func (s *memoryParticipationStore) Create(_ context.Context, p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participations {
		if existing.EventID == p.EventID && existing.UserID == p.UserID {
			return store.ErrParticipationExists
		}
	}
	clone := *p
	s.participations[p.ID] = &clone
	return nil
}

func (s *memoryParticipationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participations[id]
	if !ok {
		return nil, store.ErrParticipationNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *memoryParticipationStore) GetByPair(
	_ context.Context,
	eventID, userID uuid.UUID,
) (*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participations {
		if p.EventID == eventID && p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, store.ErrParticipationNotFound
}

func (s *memoryParticipationStore) Update(_ context.Context, p *domain.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participations[p.ID]; !ok {
		return store.ErrParticipationNotFound
	}
	clone := *p
	s.participations[p.ID] = &clone
	return nil
}

func (s *memoryParticipationStore) ListActiveByEvent(
	_ context.Context,
	eventID uuid.UUID,
) ([]*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*domain.Participation
	for _, p := range s.participations {
		if p.EventID == eventID && p.IsActive {
			clone := *p
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RegisteredAt.After(matched[j].RegisteredAt)
	})
	return matched, nil
}

func (s *memoryParticipationStore) ListActiveByUser(
	_ context.Context,
	userID uuid.UUID,
) ([]*domain.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*domain.Participation
	for _, p := range s.participations {
		if p.UserID == userID && p.IsActive {
			clone := *p
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].RegisteredAt.After(matched[j].RegisteredAt)
	})
	return matched, nil
}

func (s *memoryParticipationStore) CountActiveByEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.participations {
		if p.EventID == eventID && p.IsActive {
			count++
		}
	}
	return count, nil
}

func (s *memoryParticipationStore) WithTx(*sql.Tx) store.ParticipationStore { return s }

// memoryNotificationStore is an in-memory store.NotificationStore.
type memoryNotificationStore struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]*domain.Notification
	dedupeKeys    map[string]bool
}

func newMemoryNotificationStore() *memoryNotificationStore {
	return &memoryNotificationStore{
		notifications: make(map[uuid.UUID]*domain.Notification),
		dedupeKeys:    make(map[string]bool),
	}
}

func (s *memoryNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupeKey != "" {
		if s.dedupeKeys[n.DedupeKey] {
			return store.ErrDuplicateNotification
		}
		s.dedupeKeys[n.DedupeKey] = true
	}
	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

func (s *memoryNotificationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, store.ErrNotificationNotFound
	}
	clone := *n
	return &clone, nil
}

func (s *memoryNotificationStore) ListByUser(
	_ context.Context,
	userID uuid.UUID,
	filter store.NotificationFilter,
	limit, offset int,
) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := s.match(userID, filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *memoryNotificationStore) CountByUser(
	_ context.Context,
	userID uuid.UUID,
	filter store.NotificationFilter,
) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.match(userID, filter)), nil
}

func (s *memoryNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	unread := false
	return s.CountByUser(ctx, userID, store.NotificationFilter{IsRead: &unread})
}

func (s *memoryNotificationStore) Update(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; !ok {
		return store.ErrNotificationNotFound
	}
	clone := *n
	s.notifications[n.ID] = &clone
	return nil
}

func (s *memoryNotificationStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	now := time.Now().UTC()
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			readAt := now
			n.ReadAt = &readAt
			updated++
		}
	}
	return updated, nil
}

func (s *memoryNotificationStore) PurgeRead(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, n := range s.notifications {
		if n.IsRead && n.CreatedAt.Before(olderThan) {
			delete(s.notifications, id)
			purged++
		}
	}
	return purged, nil
}

func (s *memoryNotificationStore) WithTx(*sql.Tx) store.NotificationStore { return s }

func (s *memoryNotificationStore) match(userID uuid.UUID, filter store.NotificationFilter) []*domain.Notification {
	var matched []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if filter.Type != nil && n.Type != *filter.Type {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	return matched
}

// fakeVerifier matches the fake hashing scheme used by memoryUserStore.
type fakeVerifier struct{}

func (fakeVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errInvalidFakeHash
	}
	return nil
}

var errInvalidFakeHash = errors.New("hash mismatch")

// testEnv wires all four services against the in-memory stores.
type testEnv struct {
	runner         *serialTxRunner
	users          *memoryUserStore
	events         *memoryEventStore
	participations *memoryParticipationStore
	notifications  *memoryNotificationStore
	emitter        *fakeEmitter

	notificationService  NotificationService
	eventService         EventService
	participationService ParticipationService
	userService          UserService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		runner:         &serialTxRunner{},
		users:          newMemoryUserStore(),
		events:         newMemoryEventStore(),
		participations: newMemoryParticipationStore(),
		notifications:  newMemoryNotificationStore(),
		emitter:        &fakeEmitter{},
	}

	log := slog.Default()
	env.notificationService = NewNotificationService(
		env.notifications, env.participations, env.users, env.events,
		env.emitter, 30*24*time.Hour, log)
	env.eventService = NewEventService(
		env.runner, env.events, env.participations, env.users,
		env.notificationService, log)
	env.participationService = NewParticipationService(
		env.runner, env.events, env.participations, env.users,
		env.notificationService, log)
	env.userService = NewUserService(env.users, fakeVerifier{}, log)

	return env
}

// seedUser creates and stores a user with the given email.
func (env *testEnv) seedUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email, "a-long-password!", "Ada", "Lovelace")
	require.NoError(t, err)
	require.NoError(t, env.users.Create(context.Background(), user))
	return user
}

// seedEvent creates and stores an active event daysAhead days from today.
func (env *testEnv) seedEvent(t *testing.T, creatorID uuid.UUID, maxParticipants *int, daysAhead int) *domain.Event {
	t.Helper()
	event, err := domain.NewEvent(
		creatorID,
		"Go Meetup",
		"Talks and pizza.",
		time.Now().UTC().AddDate(0, 0, daysAhead),
		time.Date(0, 1, 1, 18, 30, 0, 0, time.UTC),
		"Community Hall",
		maxParticipants,
	)
	require.NoError(t, err)
	require.NoError(t, env.events.Create(context.Background(), event))
	return event
}

// seedPastEvent stores an event whose start instant has already passed.
// Built by hand because the domain constructor rejects past dates.
func (env *testEnv) seedPastEvent(t *testing.T, creatorID uuid.UUID, maxParticipants *int) *domain.Event {
	t.Helper()
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	event := &domain.Event{
		ID:              uuid.New(),
		Title:           "Go Meetup",
		Description:     "Already happened.",
		Date:            time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC),
		StartTime:       time.Date(0, 1, 1, 18, 30, 0, 0, time.UTC),
		Location:        "Community Hall",
		MaxParticipants: maxParticipants,
		CreatedBy:       creatorID,
		IsActive:        true,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, env.events.Create(context.Background(), event))
	return event
}

func intPtr(v int) *int { return &v }
