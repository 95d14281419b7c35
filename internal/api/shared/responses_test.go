package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	RespondWithJSON(recorder, req, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "abc", body["id"])
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/events", nil)
	req = req.WithContext(SetTraceID(req.Context()))
	wantTraceID := GetTraceID(req.Context())

	RespondWithError(recorder, req, http.StatusNotFound, "Event not found")

	assert.Equal(t, http.StatusNotFound, recorder.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "Event not found", body.Error)
	assert.Equal(t, wantTraceID, body.TraceID)
}

func TestRespondWithErrorWithoutTraceID(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)

	RespondWithError(recorder, req, http.StatusBadRequest, "Invalid request format")

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Equal(t, "Invalid request format", body.Error)
	assert.Empty(t, body.TraceID)
}

func TestRespondWithErrorAndLogHidesInternalError(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/events", nil)
	req = req.WithContext(context.WithValue(req.Context(), TraceIDKey, "trace-123"))

	internal := errors.New("pq: connection refused ada@example.com")
	RespondWithErrorAndLog(recorder, req, http.StatusInternalServerError,
		"An unexpected error occurred", internal)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)

	body := recorder.Body.String()
	assert.Contains(t, body, "An unexpected error occurred")
	assert.Contains(t, body, "trace-123")
	// The raw error must never reach the client.
	assert.NotContains(t, body, "connection refused")
	assert.NotContains(t, body, "ada@example.com")
}
