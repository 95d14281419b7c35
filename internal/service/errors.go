package service

import (
	"errors"
	"fmt"

	"github.com/gatherly/gatherly-api/internal/store"
)

// Service-level sentinel errors. These express business rule violations, as
// opposed to the storage-level sentinels in the store package. API handlers
// map both families to HTTP status codes.
var (
	// ErrAlreadyRegistered indicates the user already holds an active
	// registration for the event.
	ErrAlreadyRegistered = errors.New("already registered for this event")

	// ErrEventFull indicates the event has reached its participant limit.
	ErrEventFull = errors.New("event is full")

	// ErrEventPast indicates the event start time has already passed, so
	// registration is closed.
	ErrEventPast = errors.New("event has already taken place")

	// ErrNotRegistered indicates the user has no active registration for
	// the event to cancel.
	ErrNotRegistered = errors.New("not registered for this event")

	// ErrNotEventOwner indicates the acting user neither created the event
	// nor holds staff privileges.
	ErrNotEventOwner = errors.New("not the event owner")

	// ErrInvalidCredentials indicates an email/password pair that does not
	// match a stored account. Deliberately vague: it covers both an unknown
	// email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ServiceError wraps an underlying error with the operation that failed and
// a human-readable message. It is used for unexpected failures; business
// rule violations surface as the bare sentinels above so callers can match
// them with errors.Is.
type ServiceError struct {
	// Operation is the service method that failed, e.g. "RegisterForEvent".
	Operation string

	// Message is a human-readable description of the failure.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As chains.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// wrapServiceError wraps err in a ServiceError unless it is already a
// sentinel the API layer matches directly. Sentinels (service-level, store
// not-found/duplicate, and domain validation errors the caller passes
// through) must stay recognizable to errors.Is, so they are returned as-is.
func wrapServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrAlreadyRegistered,
		ErrEventFull,
		ErrEventPast,
		ErrNotRegistered,
		ErrNotEventOwner,
		ErrInvalidCredentials,
		store.ErrNotFound,
		store.ErrDuplicate,
		store.ErrInvalidEntity,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	return &ServiceError{Operation: operation, Message: message, Err: err}
}
