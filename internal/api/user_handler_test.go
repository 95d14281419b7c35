package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/store"
)

func TestGetProfile(t *testing.T) {
	t.Parallel()

	account := fixtureUser()
	userService := &mockUserService{
		getUserFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
			assert.Equal(t, account.ID, id)
			return account, nil
		},
	}
	handler := NewUserHandler(userService)

	req := asUser(newJSONRequest(t, http.MethodGet, "/users/me", nil), account.ID)
	recorder := httptest.NewRecorder()

	handler.GetProfile(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp UserResponse
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, account.ID, resp.ID)
	assert.Equal(t, account.Email, resp.Email)
	// Hash must never appear on the wire.
	assert.NotContains(t, recorder.Body.String(), "password")
}

func TestGetProfileRequiresAuth(t *testing.T) {
	t.Parallel()

	handler := NewUserHandler(&mockUserService{})

	req := newJSONRequest(t, http.MethodGet, "/users/me", nil)
	recorder := httptest.NewRecorder()

	handler.GetProfile(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	account := fixtureUser()
	userService := &mockUserService{
		updateProfileFn: func(_ context.Context, userID uuid.UUID, input service.UpdateProfileInput) (*domain.User, error) {
			assert.Equal(t, account.ID, userID)
			require.NotNil(t, input.FirstName)
			assert.Equal(t, "Augusta", *input.FirstName)
			assert.Nil(t, input.LastName)
			require.NotNil(t, input.ImageURL)
			assert.Equal(t, "https://example.com/ada.png", *input.ImageURL)
			account.FirstName = *input.FirstName
			return account, nil
		},
	}
	handler := NewUserHandler(userService)

	req := asUser(newJSONRequest(t, http.MethodPatch, "/users/me", map[string]interface{}{
		"first_name": "Augusta",
		"image_url":  "https://example.com/ada.png",
	}), account.ID)
	recorder := httptest.NewRecorder()

	handler.UpdateProfile(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	var resp UserResponse
	decodeResponse(t, recorder, &resp)
	assert.Equal(t, "Augusta", resp.FirstName)
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	t.Parallel()

	handler := NewUserHandler(&mockUserService{})

	req := asUser(newJSONRequest(t, http.MethodPatch, "/users/me", map[string]interface{}{
		"first_name": "",
	}), uuid.New())
	recorder := httptest.NewRecorder()

	handler.UpdateProfile(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	tests := []struct {
		name       string
		payload    map[string]interface{}
		serviceErr error
		wantStatus int
	}{
		{
			name: "success",
			payload: map[string]interface{}{
				"current_password": "a-long-password!",
				"new_password":     "another-long-password!",
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "wrong current password",
			payload: map[string]interface{}{
				"current_password": "wrong-password!!",
				"new_password":     "another-long-password!",
			},
			serviceErr: service.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "new password too short",
			payload: map[string]interface{}{
				"current_password": "a-long-password!",
				"new_password":     "short",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userService := &mockUserService{
				changePasswordFn: func(context.Context, uuid.UUID, string, string) error {
					return tt.serviceErr
				},
			}
			handler := NewUserHandler(userService)

			req := asUser(newJSONRequest(t, http.MethodPut, "/users/me/password", tt.payload), userID)
			recorder := httptest.NewRecorder()

			handler.ChangePassword(recorder, req)

			assert.Equal(t, tt.wantStatus, recorder.Code)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	deleted := false
	userService := &mockUserService{
		deleteAccountFn: func(_ context.Context, id uuid.UUID) error {
			assert.Equal(t, userID, id)
			deleted = true
			return nil
		},
	}
	handler := NewUserHandler(userService)

	req := asUser(newJSONRequest(t, http.MethodDelete, "/users/me", nil), userID)
	recorder := httptest.NewRecorder()

	handler.DeleteAccount(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.True(t, deleted)
}

func TestDeleteAccountNotFound(t *testing.T) {
	t.Parallel()

	userService := &mockUserService{
		deleteAccountFn: func(context.Context, uuid.UUID) error {
			return store.ErrUserNotFound
		},
	}
	handler := NewUserHandler(userService)

	req := asUser(newJSONRequest(t, http.MethodDelete, "/users/me", nil), uuid.New())
	recorder := httptest.NewRecorder()

	handler.DeleteAccount(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
