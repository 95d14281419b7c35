package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/gatherly-api/internal/api/shared"
	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/service/auth"
	"github.com/gatherly/gatherly-api/internal/store"
)

// Function-field test doubles for the service interfaces. Tests set only
// the functions a handler is expected to call; an unexpected call panics
// on the nil function and fails the test loudly.

type mockUserService struct {
	registerFn       func(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error)
	authenticateFn   func(ctx context.Context, email, password string) (*domain.User, error)
	getUserFn        func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	updateProfileFn  func(ctx context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*domain.User, error)
	changePasswordFn func(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	deleteAccountFn  func(ctx context.Context, userID uuid.UUID) error
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	return m.registerFn(ctx, email, password, firstName, lastName)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	return m.authenticateFn(ctx, email, password)
}

func (m *mockUserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getUserFn(ctx, id)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*domain.User, error) {
	return m.updateProfileFn(ctx, userID, input)
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	return m.changePasswordFn(ctx, userID, currentPassword, newPassword)
}

func (m *mockUserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return m.deleteAccountFn(ctx, userID)
}

type mockEventService struct {
	createEventFn func(ctx context.Context, creatorID uuid.UUID, input service.CreateEventInput) (*domain.Event, error)
	getEventFn    func(ctx context.Context, id uuid.UUID) (*service.EventDetails, error)
	listEventsFn  func(ctx context.Context, filter store.EventFilter, limit, offset int) ([]*domain.Event, int, error)
	updateEventFn func(ctx context.Context, actorID, eventID uuid.UUID, input service.UpdateEventInput) (*domain.Event, error)
	cancelEventFn func(ctx context.Context, actorID, eventID uuid.UUID) error
}

var _ service.EventService = (*mockEventService)(nil)

func (m *mockEventService) CreateEvent(ctx context.Context, creatorID uuid.UUID, input service.CreateEventInput) (*domain.Event, error) {
	return m.createEventFn(ctx, creatorID, input)
}

func (m *mockEventService) GetEvent(ctx context.Context, id uuid.UUID) (*service.EventDetails, error) {
	return m.getEventFn(ctx, id)
}

func (m *mockEventService) ListEvents(ctx context.Context, filter store.EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	return m.listEventsFn(ctx, filter, limit, offset)
}

func (m *mockEventService) UpdateEvent(ctx context.Context, actorID, eventID uuid.UUID, input service.UpdateEventInput) (*domain.Event, error) {
	return m.updateEventFn(ctx, actorID, eventID, input)
}

func (m *mockEventService) CancelEvent(ctx context.Context, actorID, eventID uuid.UUID) error {
	return m.cancelEventFn(ctx, actorID, eventID)
}

type mockParticipationService struct {
	registerFn         func(ctx context.Context, eventID, userID uuid.UUID) (*domain.Participation, error)
	unregisterFn       func(ctx context.Context, eventID, userID uuid.UUID) error
	listParticipantsFn func(ctx context.Context, eventID uuid.UUID) ([]*service.Participant, error)
	listUserEventsFn   func(ctx context.Context, userID uuid.UUID) ([]*domain.Event, error)
	reportFn           func(ctx context.Context, eventID uuid.UUID) (*service.EventReport, error)
}

var _ service.ParticipationService = (*mockParticipationService)(nil)

func (m *mockParticipationService) Register(ctx context.Context, eventID, userID uuid.UUID) (*domain.Participation, error) {
	return m.registerFn(ctx, eventID, userID)
}

func (m *mockParticipationService) Unregister(ctx context.Context, eventID, userID uuid.UUID) error {
	return m.unregisterFn(ctx, eventID, userID)
}

func (m *mockParticipationService) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]*service.Participant, error) {
	return m.listParticipantsFn(ctx, eventID)
}

func (m *mockParticipationService) ListUserEvents(ctx context.Context, userID uuid.UUID) ([]*domain.Event, error) {
	return m.listUserEventsFn(ctx, userID)
}

func (m *mockParticipationService) Report(ctx context.Context, eventID uuid.UUID) (*service.EventReport, error) {
	return m.reportFn(ctx, eventID)
}

type mockNotificationService struct {
	listNotificationsFn func(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter, limit, offset int) ([]*domain.Notification, int, error)
	unreadCountFn       func(ctx context.Context, userID uuid.UUID) (int, error)
	markReadFn          func(ctx context.Context, userID, notificationID uuid.UUID) (*domain.Notification, error)
	markAllReadFn       func(ctx context.Context, userID uuid.UUID) (int64, error)
	recentFn            func(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
}

var _ service.NotificationService = (*mockNotificationService)(nil)

func (m *mockNotificationService) NotifyRegistrationConfirmed(context.Context, *sql.Tx, *domain.Event, *domain.User) (*service.EmailBatch, error) {
	return nil, nil
}

func (m *mockNotificationService) NotifyEventUpdated(context.Context, *sql.Tx, *domain.Event) (*service.EmailBatch, error) {
	return nil, nil
}

func (m *mockNotificationService) NotifyEventCancelled(context.Context, *sql.Tx, *domain.Event) (*service.EmailBatch, error) {
	return nil, nil
}

func (m *mockNotificationService) DispatchEmail(context.Context, *service.EmailBatch) {}

func (m *mockNotificationService) SendDayBeforeReminders(context.Context) (int, error) {
	return 0, nil
}

func (m *mockNotificationService) PurgeOldRead(context.Context) (int64, error) {
	return 0, nil
}

func (m *mockNotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter, limit, offset int) ([]*domain.Notification, int, error) {
	return m.listNotificationsFn(ctx, userID, filter, limit, offset)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.unreadCountFn(ctx, userID)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*domain.Notification, error) {
	return m.markReadFn(ctx, userID, notificationID)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.markAllReadFn(ctx, userID)
}

func (m *mockNotificationService) Recent(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return m.recentFn(ctx, userID)
}

// mockJWTService returns canned tokens and claims.
type mockJWTService struct {
	token        string
	refreshToken string
	claims       *auth.Claims
	err          error
}

var _ auth.JWTService = (*mockJWTService)(nil)

func (m *mockJWTService) GenerateToken(context.Context, uuid.UUID) (string, error) {
	return m.token, m.err
}

func (m *mockJWTService) ValidateToken(context.Context, string) (*auth.Claims, error) {
	return m.claims, m.err
}

func (m *mockJWTService) GenerateRefreshToken(context.Context, uuid.UUID) (string, error) {
	return m.refreshToken, m.err
}

func (m *mockJWTService) ValidateRefreshToken(context.Context, string) (*auth.Claims, error) {
	return m.claims, m.err
}

// Request helpers

func newJSONRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser adds the authenticated user ID to the request context the way the
// auth middleware does.
func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

// withURLParam adds a chi route parameter to the request context.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(out))
}

// Fixtures

func fixtureUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func fixtureEvent(createdBy uuid.UUID) *domain.Event {
	now := time.Now().UTC()
	capacity := 25
	return &domain.Event{
		ID:              uuid.New(),
		Title:           "Analytical Engines Meetup",
		Description:     "Monthly get-together.",
		Date:            now.AddDate(0, 0, 14).Truncate(24 * time.Hour),
		StartTime:       time.Date(0, time.January, 1, 18, 30, 0, 0, time.UTC),
		Location:        "12 Gower Street, London",
		MaxParticipants: &capacity,
		CreatedBy:       createdBy,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func fixtureNotification(userID uuid.UUID) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.NotificationTypeEventUpdate,
		Title:     "Event updated",
		Message:   "Details changed.",
		CreatedAt: time.Now().UTC(),
	}
}
