package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/store"
)

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	created := fixtureEvent(userID)
	eventService := &mockEventService{
		createEventFn: func(_ context.Context, creatorID uuid.UUID, input service.CreateEventInput) (*domain.Event, error) {
			assert.Equal(t, userID, creatorID)
			assert.Equal(t, "Analytical Engines Meetup", input.Title)
			assert.Equal(t, time.Date(2027, time.March, 14, 0, 0, 0, 0, time.UTC), input.Date)
			assert.Equal(t, 18, input.StartTime.Hour())
			assert.Equal(t, 30, input.StartTime.Minute())
			require.NotNil(t, input.MaxParticipants)
			assert.Equal(t, 25, *input.MaxParticipants)
			return created, nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodPost, "/events", map[string]interface{}{
		"title":            "Analytical Engines Meetup",
		"description":      "Monthly get-together.",
		"date":             "2027-03-14",
		"start_time":       "18:30",
		"location":         "12 Gower Street, London",
		"max_participants": 25,
	}), userID)
	recorder := httptest.NewRecorder()

	handler.CreateEvent(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp EventResponse
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, created.Title, resp.Title)
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{
			name: "missing title",
			payload: map[string]interface{}{
				"date":       "2027-03-14",
				"start_time": "18:30",
				"location":   "Somewhere",
			},
		},
		{
			name: "malformed date",
			payload: map[string]interface{}{
				"title":      "Meetup",
				"date":       "14/03/2027",
				"start_time": "18:30",
				"location":   "Somewhere",
			},
		},
		{
			name: "malformed start time",
			payload: map[string]interface{}{
				"title":      "Meetup",
				"date":       "2027-03-14",
				"start_time": "6.30pm",
				"location":   "Somewhere",
			},
		},
		{
			name: "zero capacity",
			payload: map[string]interface{}{
				"title":            "Meetup",
				"date":             "2027-03-14",
				"start_time":       "18:30",
				"location":         "Somewhere",
				"max_participants": 0,
			},
		},
	}

	handler := NewEventHandler(&mockEventService{}, &mockParticipationService{})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asUser(newJSONRequest(t, http.MethodPost, "/events", tt.payload), uuid.New())
			recorder := httptest.NewRecorder()

			handler.CreateEvent(recorder, req)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestCreateEventRequiresAuth(t *testing.T) {
	t.Parallel()

	handler := NewEventHandler(&mockEventService{}, &mockParticipationService{})

	req := newJSONRequest(t, http.MethodPost, "/events", map[string]interface{}{})
	recorder := httptest.NewRecorder()

	handler.CreateEvent(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	first := fixtureEvent(userID)
	second := fixtureEvent(uuid.New())

	var gotFilter store.EventFilter
	var gotLimit, gotOffset int
	eventService := &mockEventService{
		listEventsFn: func(_ context.Context, filter store.EventFilter, limit, offset int) ([]*domain.Event, int, error) {
			gotFilter = filter
			gotLimit = limit
			gotOffset = offset
			return []*domain.Event{first, second}, 7, nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodGet,
		"/events?date_from=2027-01-01&mine=true&limit=2&offset=4", nil), userID)
	recorder := httptest.NewRecorder()

	handler.ListEvents(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, gotFilter.DateFrom)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), *gotFilter.DateFrom)
	require.NotNil(t, gotFilter.CreatedBy)
	assert.Equal(t, userID, *gotFilter.CreatedBy)
	assert.Equal(t, 2, gotLimit)
	assert.Equal(t, 4, gotOffset)

	var resp EventListResponse
	decodeResponse(t, recorder, &resp)
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, 7, resp.Total)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 4, resp.Offset)
}

func TestGetEvent(t *testing.T) {
	t.Parallel()

	event := fixtureEvent(uuid.New())
	spots := 20
	eventService := &mockEventService{
		getEventFn: func(_ context.Context, id uuid.UUID) (*service.EventDetails, error) {
			assert.Equal(t, event.ID, id)
			return &service.EventDetails{Event: event, ParticipantCount: 5, AvailableSpots: &spots}, nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodGet, "/events/"+event.ID.String(), nil), uuid.New())
	req = withURLParam(req, "eventID", event.ID.String())
	recorder := httptest.NewRecorder()

	handler.GetEvent(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp EventDetailsResponse
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, event.ID, resp.ID)
	assert.Equal(t, 5, resp.ParticipantCount)
	require.NotNil(t, resp.AvailableSpots)
	assert.Equal(t, 20, *resp.AvailableSpots)
}

func TestGetEventNotFound(t *testing.T) {
	t.Parallel()

	eventService := &mockEventService{
		getEventFn: func(context.Context, uuid.UUID) (*service.EventDetails, error) {
			return nil, store.ErrEventNotFound
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	eventID := uuid.New().String()
	req := asUser(newJSONRequest(t, http.MethodGet, "/events/"+eventID, nil), uuid.New())
	req = withURLParam(req, "eventID", eventID)
	recorder := httptest.NewRecorder()

	handler.GetEvent(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetEventInvalidID(t *testing.T) {
	t.Parallel()

	handler := NewEventHandler(&mockEventService{}, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodGet, "/events/not-a-uuid", nil), uuid.New())
	req = withURLParam(req, "eventID", "not-a-uuid")
	recorder := httptest.NewRecorder()

	handler.GetEvent(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	event := fixtureEvent(userID)
	eventService := &mockEventService{
		updateEventFn: func(_ context.Context, actorID, eventID uuid.UUID, input service.UpdateEventInput) (*domain.Event, error) {
			assert.Equal(t, userID, actorID)
			assert.Equal(t, event.ID, eventID)
			require.NotNil(t, input.Title)
			assert.Equal(t, "Rescheduled Meetup", *input.Title)
			require.NotNil(t, input.Date)
			assert.Equal(t, time.Date(2027, time.April, 2, 0, 0, 0, 0, time.UTC), *input.Date)
			assert.Nil(t, input.Location)
			return event, nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodPatch, "/events/"+event.ID.String(), map[string]interface{}{
		"title": "Rescheduled Meetup",
		"date":  "2027-04-02",
	}), userID)
	req = withURLParam(req, "eventID", event.ID.String())
	recorder := httptest.NewRecorder()

	handler.UpdateEvent(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateEventZeroCapacityClearsLimit(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	event := fixtureEvent(userID)
	eventService := &mockEventService{
		updateEventFn: func(_ context.Context, _, _ uuid.UUID, input service.UpdateEventInput) (*domain.Event, error) {
			assert.True(t, input.ClearMaxParticipants)
			assert.Nil(t, input.MaxParticipants)
			return event, nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodPatch, "/events/"+event.ID.String(), map[string]interface{}{
		"max_participants": 0,
	}), userID)
	req = withURLParam(req, "eventID", event.ID.String())
	recorder := httptest.NewRecorder()

	handler.UpdateEvent(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestUpdateEventForbiddenForNonOwner(t *testing.T) {
	t.Parallel()

	eventService := &mockEventService{
		updateEventFn: func(context.Context, uuid.UUID, uuid.UUID, service.UpdateEventInput) (*domain.Event, error) {
			return nil, service.ErrNotEventOwner
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	eventID := uuid.New().String()
	req := asUser(newJSONRequest(t, http.MethodPatch, "/events/"+eventID, map[string]interface{}{
		"title": "Hijacked",
	}), uuid.New())
	req = withURLParam(req, "eventID", eventID)
	recorder := httptest.NewRecorder()

	handler.UpdateEvent(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCancelEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	eventID := uuid.New()
	cancelled := false
	eventService := &mockEventService{
		cancelEventFn: func(_ context.Context, actorID, id uuid.UUID) error {
			assert.Equal(t, userID, actorID)
			assert.Equal(t, eventID, id)
			cancelled = true
			return nil
		},
	}
	handler := NewEventHandler(eventService, &mockParticipationService{})

	req := asUser(newJSONRequest(t, http.MethodDelete, "/events/"+eventID.String(), nil), userID)
	req = withURLParam(req, "eventID", eventID.String())
	recorder := httptest.NewRecorder()

	handler.CancelEvent(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, cancelled)
}

func TestRegisterForEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	eventID := uuid.New()
	participation := &domain.Participation{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: time.Now().UTC(),
		IsActive:     true,
	}
	participationService := &mockParticipationService{
		registerFn: func(_ context.Context, gotEventID, gotUserID uuid.UUID) (*domain.Participation, error) {
			assert.Equal(t, eventID, gotEventID)
			assert.Equal(t, userID, gotUserID)
			return participation, nil
		},
	}
	handler := NewEventHandler(&mockEventService{}, participationService)

	req := asUser(newJSONRequest(t, http.MethodPost, "/events/"+eventID.String()+"/register", nil), userID)
	req = withURLParam(req, "eventID", eventID.String())
	recorder := httptest.NewRecorder()

	handler.Register(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code)
	var resp domain.Participation
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, participation.ID, resp.ID)
}

func TestRegisterForEventRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"already registered", service.ErrAlreadyRegistered, http.StatusConflict},
		{"event full", service.ErrEventFull, http.StatusConflict},
		{"event past", service.ErrEventPast, http.StatusConflict},
		{"event not found", store.ErrEventNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participationService := &mockParticipationService{
				registerFn: func(context.Context, uuid.UUID, uuid.UUID) (*domain.Participation, error) {
					return nil, tt.err
				},
			}
			handler := NewEventHandler(&mockEventService{}, participationService)

			eventID := uuid.New().String()
			req := asUser(newJSONRequest(t, http.MethodPost, "/events/"+eventID+"/register", nil), uuid.New())
			req = withURLParam(req, "eventID", eventID)
			recorder := httptest.NewRecorder()

			handler.Register(recorder, req)

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

func TestUnregisterFromEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"registered", nil, http.StatusNoContent},
		{"not registered", service.ErrNotRegistered, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			participationService := &mockParticipationService{
				unregisterFn: func(context.Context, uuid.UUID, uuid.UUID) error {
					return tt.err
				},
			}
			handler := NewEventHandler(&mockEventService{}, participationService)

			eventID := uuid.New().String()
			req := asUser(newJSONRequest(t, http.MethodDelete, "/events/"+eventID+"/register", nil), uuid.New())
			req = withURLParam(req, "eventID", eventID)
			recorder := httptest.NewRecorder()

			handler.Unregister(recorder, req)

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

func TestEventReport(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	event := fixtureEvent(creatorID)
	spots := 23
	participationService := &mockParticipationService{
		reportFn: func(_ context.Context, id uuid.UUID) (*service.EventReport, error) {
			assert.Equal(t, event.ID, id)
			return &service.EventReport{
				Event:            event,
				ParticipantCount: 2,
				AvailableSpots:   &spots,
				Participants: []*service.Participant{
					{UserID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", RegisteredAt: time.Now().UTC()},
					{UserID: uuid.New(), FirstName: "Charles", LastName: "Babbage", RegisteredAt: time.Now().UTC()},
				},
			}, nil
		},
	}
	handler := NewEventHandler(&mockEventService{}, participationService)

	req := asUser(newJSONRequest(t, http.MethodGet, "/events/"+event.ID.String()+"/report", nil), creatorID)
	req = withURLParam(req, "eventID", event.ID.String())
	recorder := httptest.NewRecorder()

	handler.EventReport(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp EventReportResponse
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, event.ID, resp.ID)
	assert.Equal(t, 2, resp.ParticipantCount)
	require.NotNil(t, resp.AvailableSpots)
	assert.Equal(t, 23, *resp.AvailableSpots)
	require.Len(t, resp.Participants, 2)
	assert.Equal(t, "Babbage", resp.Participants[1].LastName)
}

func TestEventReportNotFound(t *testing.T) {
	t.Parallel()

	participationService := &mockParticipationService{
		reportFn: func(context.Context, uuid.UUID) (*service.EventReport, error) {
			return nil, store.ErrEventNotFound
		},
	}
	handler := NewEventHandler(&mockEventService{}, participationService)

	eventID := uuid.New()
	req := asUser(newJSONRequest(t, http.MethodGet, "/events/"+eventID.String()+"/report", nil), uuid.New())
	req = withURLParam(req, "eventID", eventID.String())
	recorder := httptest.NewRecorder()

	handler.EventReport(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListParticipants(t *testing.T) {
	t.Parallel()

	eventID := uuid.New()
	participationService := &mockParticipationService{
		listParticipantsFn: func(_ context.Context, id uuid.UUID) ([]*service.Participant, error) {
			assert.Equal(t, eventID, id)
			return []*service.Participant{
				{UserID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", RegisteredAt: time.Now().UTC()},
			}, nil
		},
	}
	handler := NewEventHandler(&mockEventService{}, participationService)

	req := asUser(newJSONRequest(t, http.MethodGet, "/events/"+eventID.String()+"/participants", nil), uuid.New())
	req = withURLParam(req, "eventID", eventID.String())
	recorder := httptest.NewRecorder()

	handler.ListParticipants(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp []service.Participant
	decodeResponse(t, recorder, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "Ada", resp[0].FirstName)
}

func TestListMyRegistrations(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	event := fixtureEvent(uuid.New())
	participationService := &mockParticipationService{
		listUserEventsFn: func(_ context.Context, id uuid.UUID) ([]*domain.Event, error) {
			assert.Equal(t, userID, id)
			return []*domain.Event{event}, nil
		},
	}
	handler := NewEventHandler(&mockEventService{}, participationService)

	req := asUser(newJSONRequest(t, http.MethodGet, "/users/me/events", nil), userID)
	recorder := httptest.NewRecorder()

	handler.ListMyRegistrations(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp []EventResponse
	decodeResponse(t, recorder, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, event.ID, resp[0].ID)
}
