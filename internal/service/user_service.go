package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/gatherly-api/internal/domain"
	"github.com/gatherly/gatherly-api/internal/platform/logger"
	"github.com/gatherly/gatherly-api/internal/service/auth"
	"github.com/gatherly/gatherly-api/internal/store"
)

// UpdateProfileInput carries the profile fields a user may change. Nil
// pointers leave the corresponding field unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	ImageURL  *string
}

// UserService manages user accounts.
type UserService interface {
	// Register creates a new account. Returns store.ErrEmailExists when
	// the email is already taken, or a domain validation error for a weak
	// password or malformed email.
	Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error)

	// Authenticate verifies the email/password pair and returns the
	// account. Returns ErrInvalidCredentials for an unknown email or a
	// wrong password; the two cases are indistinguishable to the caller.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser returns the account with the given ID.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// UpdateProfile applies the input to the user's profile.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error)

	// ChangePassword replaces the user's password after verifying the
	// current one. Returns ErrInvalidCredentials when the current password
	// is wrong.
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error

	// DeleteAccount removes the account along with its events,
	// registrations, and notifications.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// userServiceImpl implements UserService.
type userServiceImpl struct {
	users    store.UserStore
	verifier auth.PasswordVerifier
	logger   *slog.Logger
}

var _ UserService = (*userServiceImpl)(nil)

// NewUserService creates a UserService.
func NewUserService(users store.UserStore, verifier auth.PasswordVerifier, log *slog.Logger) UserService {
	if log == nil {
		log = slog.Default()
	}
	return &userServiceImpl{
		users:    users,
		verifier: verifier,
		logger:   log.With(slog.String("component", "user_service")),
	}
}

// Register implements UserService.
func (s *userServiceImpl) Register(
	ctx context.Context,
	email, password, firstName, lastName string,
) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(email, password, firstName, lastName)
	if err != nil {
		return nil, err
	}

	// The store hashes the plaintext password before persisting.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, wrapServiceError("Register", "failed to create user", err)
	}

	log.Info("user registered",
		slog.String("user_id", user.ID.String()))
	return user, nil
}

// Authenticate implements UserService.
func (s *userServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, wrapServiceError("Authenticate", "failed to load user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("password mismatch",
			slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser implements UserService.
func (s *userServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, wrapServiceError("GetUser", "failed to load user", err)
	}
	return user, nil
}

// UpdateProfile implements UserService.
func (s *userServiceImpl) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	input UpdateProfileInput,
) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, wrapServiceError("UpdateProfile", "failed to load user", err)
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.ImageURL != nil {
		user.ImageURL = *input.ImageURL
	}
	user.UpdatedAt = time.Now().UTC()

	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, wrapServiceError("UpdateProfile", "failed to update user", err)
	}

	return user, nil
}

// ChangePassword implements UserService.
func (s *userServiceImpl) ChangePassword(
	ctx context.Context,
	userID uuid.UUID,
	currentPassword, newPassword string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return wrapServiceError("ChangePassword", "failed to load user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	// Setting the plaintext password triggers validation and a re-hash in
	// the store.
	user.Password = newPassword
	user.UpdatedAt = time.Now().UTC()

	if err := user.Validate(); err != nil {
		return err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return wrapServiceError("ChangePassword", "failed to update password", err)
	}

	log.Info("password changed",
		slog.String("user_id", userID.String()))
	return nil
}

// DeleteAccount implements UserService.
func (s *userServiceImpl) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.users.Delete(ctx, userID); err != nil {
		return wrapServiceError("DeleteAccount", "failed to delete user", err)
	}

	log.Info("account deleted",
		slog.String("user_id", userID.String()))
	return nil
}
