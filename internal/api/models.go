package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/service"
)

// Wire formats for event dates and start times.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=12,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"required,max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	ImageURL  string    `json:"image_url,omitempty"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileRequest defines the payload for profile updates. Absent
// fields stay unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name"  validate:"omitempty,min=1,max=100"`
	ImageURL  *string `json:"image_url"  validate:"omitempty,max=500"`
}

// ChangePasswordRequest defines the payload for the password change endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=12,max=72"`
}

// CreateEventRequest defines the payload for creating an event. Date uses
// the 2006-01-02 layout, start time 15:04.
type CreateEventRequest struct {
	Title           string `json:"title"       validate:"required,max=200"`
	Description     string `json:"description" validate:"max=2000"`
	Date            string `json:"date"        validate:"required"`
	StartTime       string `json:"start_time"  validate:"required"`
	Location        string `json:"location"    validate:"required,max=200"`
	MaxParticipants *int   `json:"max_participants" validate:"omitempty,gt=0"`
}

// UpdateEventRequest defines the payload for event updates. Absent fields
// stay unchanged; max_participants of 0 removes the capacity limit.
type UpdateEventRequest struct {
	Title           *string `json:"title"       validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	Date            *string `json:"date"`
	StartTime       *string `json:"start_time"`
	Location        *string `json:"location"    validate:"omitempty,min=1,max=200"`
	MaxParticipants *int    `json:"max_participants" validate:"omitempty,gte=0"`
	IsActive        *bool   `json:"is_active"`
}

// EventResponse represents an event in API responses.
type EventResponse struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	Location        string    `json:"location"`
	MaxParticipants *int      `json:"max_participants"`
	CreatedBy       uuid.UUID `json:"created_by"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventDetailsResponse is an event with its derived participation figures.
// AvailableSpots is null for events without a capacity limit.
type EventDetailsResponse struct {
	EventResponse
	ParticipantCount int  `json:"participant_count"`
	AvailableSpots   *int `json:"available_spots"`
}

// EventListResponse is a page of events with the total match count.
type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// EventReportResponse is an event with its derived participation figures
// and the full active participant roster.
type EventReportResponse struct {
	EventResponse
	ParticipantCount int                    `json:"participant_count"`
	AvailableSpots   *int                   `json:"available_spots"`
	Participants     []*service.Participant `json:"participants"`
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	IsRead     bool       `json:"is_read"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	EventID    *uuid.UUID `json:"event_id,omitempty"`
	EventTitle *string    `json:"event_title,omitempty"`
}

// NotificationListResponse is a page of notifications with the total match
// count and the user's unread count.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

// UnreadCountResponse carries just the unread notification count.
type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// parseEventDate parses a 2006-01-02 wire date.
func parseEventDate(value string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return date, nil
}

// parseEventTime parses a 15:04 wire start time.
func parseEventTime(value string) (time.Time, error) {
	clock, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time %q, expected HH:MM", value)
	}
	return clock, nil
}

// userToResponse converts a domain.User to its API representation.
func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		ImageURL:  user.ImageURL,
		IsStaff:   user.IsStaff,
		CreatedAt: user.CreatedAt,
	}
}

// eventToResponse converts a domain.Event to its API representation.
func eventToResponse(event *domain.Event) EventResponse {
	return EventResponse{
		ID:              event.ID,
		Title:           event.Title,
		Description:     event.Description,
		Date:            event.Date.Format(dateLayout),
		StartTime:       event.StartTime.Format(timeLayout),
		Location:        event.Location,
		MaxParticipants: event.MaxParticipants,
		CreatedBy:       event.CreatedBy,
		IsActive:        event.IsActive,
		CreatedAt:       event.CreatedAt,
		UpdatedAt:       event.UpdatedAt,
	}
}

// eventDetailsToResponse converts service.EventDetails to its API
// representation.
func eventDetailsToResponse(details *service.EventDetails) EventDetailsResponse {
	return EventDetailsResponse{
		EventResponse:    eventToResponse(details.Event),
		ParticipantCount: details.ParticipantCount,
		AvailableSpots:   details.AvailableSpots,
	}
}

// eventReportToResponse converts a service.EventReport to its API
// representation.
func eventReportToResponse(report *service.EventReport) EventReportResponse {
	return EventReportResponse{
		EventResponse:    eventToResponse(report.Event),
		ParticipantCount: report.ParticipantCount,
		AvailableSpots:   report.AvailableSpots,
		Participants:     report.Participants,
	}
}

// notificationToResponse converts a domain.Notification to its API
// representation.
func notificationToResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Type:       string(n.Type),
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
		ReadAt:     n.ReadAt,
		EventID:    n.EventID,
		EventTitle: n.EventTitle,
	}
}
