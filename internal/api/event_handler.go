package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/gatherly/gatherly-api/internal/api/shared"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/store"
)

// EventHandler handles event and registration endpoints.
type EventHandler struct {
	eventService         service.EventService
	participationService service.ParticipationService
	validator            *validator.Validate
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(
	eventService service.EventService,
	participationService service.ParticipationService,
) *EventHandler {
	return &EventHandler{
		eventService:         eventService,
		participationService: participationService,
		validator:            validator.New(),
	}
}

// CreateEvent handles POST /events.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	date, err := parseEventDate(req.Date)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	startTime, err := parseEventTime(req.StartTime)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), userID, service.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		Date:            date,
		StartTime:       startTime,
		Location:        req.Location,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, eventToResponse(event))
}

// ListEvents handles GET /events. Supported query parameters: date_from,
// date_to (YYYY-MM-DD), mine=true for events the caller created, and
// limit/offset for pagination.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	filter := store.EventFilter{}
	query := r.URL.Query()

	if raw := query.Get("date_from"); raw != "" {
		from, err := parseEventDate(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		filter.DateFrom = &from
	}
	if raw := query.Get("date_to"); raw != "" {
		to, err := parseEventDate(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		filter.DateTo = &to
	}
	if query.Get("mine") == "true" {
		filter.CreatedBy = &userID
	}

	limit, offset := getPagination(r)

	eventList, total, err := h.eventService.ListEvents(r.Context(), filter, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	response := EventListResponse{
		Events: make([]EventResponse, 0, len(eventList)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, event := range eventList {
		response.Events = append(response.Events, eventToResponse(event))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// GetEvent handles GET /events/{eventID}.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	details, err := h.eventService.GetEvent(r.Context(), eventID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, eventDetailsToResponse(details))
}

// UpdateEvent handles PATCH /events/{eventID}.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	input := service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		IsActive:    req.IsActive,
	}

	if req.Date != nil {
		date, err := parseEventDate(*req.Date)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		input.Date = &date
	}
	if req.StartTime != nil {
		startTime, err := parseEventTime(*req.StartTime)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		input.StartTime = &startTime
	}
	if req.MaxParticipants != nil {
		if *req.MaxParticipants == 0 {
			input.ClearMaxParticipants = true
		} else {
			input.MaxParticipants = req.MaxParticipants
		}
	}

	event, err := h.eventService.UpdateEvent(r.Context(), userID, eventID, input)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, eventToResponse(event))
}

// CancelEvent handles DELETE /events/{eventID}.
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	if err := h.eventService.CancelEvent(r.Context(), userID, eventID); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListParticipants handles GET /events/{eventID}/participants.
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	participants, err := h.participationService.ListParticipants(r.Context(), eventID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, participants)
}

// EventReport handles GET /events/{eventID}/report: the event with its
// capacity figures and the full active participant roster.
func (h *EventHandler) EventReport(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	report, err := h.participationService.Report(r.Context(), eventID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, eventReportToResponse(report))
}

// Register handles POST /events/{eventID}/register.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	participation, err := h.participationService.Register(r.Context(), eventID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, participation)
}

// Unregister handles DELETE /events/{eventID}/register.
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := getPathUUID(w, r, "eventID")
	if !ok {
		return
	}

	if err := h.participationService.Unregister(r.Context(), eventID, userID); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyRegistrations handles GET /users/me/events: the events the caller
// is actively registered for.
func (h *EventHandler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	registered, err := h.participationService.ListUserEvents(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	response := make([]EventResponse, 0, len(registered))
	for _, event := range registered {
		response = append(response, eventToResponse(event))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, response)
}
