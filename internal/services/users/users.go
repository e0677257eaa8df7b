package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gamevault/internal/domain/models"
	"gamevault/internal/lib/sl"
	"gamevault/internal/storage"
)

// Users manages account listing and administration. Authorization
// decisions (who may patch whom) belong to the HTTP layer; this
// service only enforces input validity.
type Users struct {
	logger *slog.Logger
	store  UserStore
}

type UserStore interface {
	Users(ctx context.Context) ([]models.PublicUser, error)
	UserByID(ctx context.Context, userID int64) (*models.User, error)
	UpdateUser(ctx context.Context, userID int64, upd models.UserUpdate) error
	DeleteUser(ctx context.Context, userID int64) error
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// ValidationError reports malformed input before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func New(logger *slog.Logger, store UserStore) *Users {
	return &Users{logger: logger, store: store}
}

// List returns the public projection of every active account.
func (u *Users) List(ctx context.Context) ([]models.PublicUser, error) {
	const op = "users.List"

	list, err := u.store.Users(ctx)
	if err != nil {
		u.logger.Error("failed to list users", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get returns one account's public projection.
func (u *Users) Get(ctx context.Context, userID int64) (models.PublicUser, error) {
	const op = "users.Get"

	user, err := u.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		u.logger.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}
	return user.Public(), nil
}

// Update applies a partial update to an account's profile fields.
func (u *Users) Update(ctx context.Context, userID int64, upd models.UserUpdate) error {
	const op = "users.Update"
	log := u.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := validateUpdate(upd); err != nil {
		log.Warn("update rejected", sl.Err(err))
		return err
	}

	if err := u.store.UpdateUser(ctx, userID, upd); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrUserExists):
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		log.Error("failed to update user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user updated")

	return nil
}

// Deactivate soft-deletes an account. The row is kept; logins and
// refresh-digest lookups stop matching it.
func (u *Users) Deactivate(ctx context.Context, userID int64) error {
	const op = "users.Deactivate"
	log := u.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := u.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to deactivate user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user deactivated")

	return nil
}

func validateUpdate(upd models.UserUpdate) error {
	if upd.Username != nil && strings.TrimSpace(*upd.Username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be blank"}
	}
	if upd.Email != nil && (strings.TrimSpace(*upd.Email) == "" || !strings.Contains(*upd.Email, "@")) {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return &ValidationError{Field: "role", Reason: `must be "user" or "admin"`}
	}
	return nil
}
