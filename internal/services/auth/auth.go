package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gamevault/internal/domain/models"
	"gamevault/internal/lib/jwt"
	"gamevault/internal/lib/password"
	"gamevault/internal/lib/sl"
	"gamevault/internal/storage"
)

// Auth orchestrates register, login, refresh and logout over the
// credential store, the password hasher and the token manager.
type Auth struct {
	logger       *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	sessions     SessionUpdater
	tokens       *jwt.Manager
}

type UserSaver interface {
	SaveUser(
		ctx context.Context,
		username string,
		email string,
		passHash []byte,
		role models.Role,
	) (uid int64, err error)
}

type UserProvider interface {
	UserByID(ctx context.Context, userID int64) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByRefreshDigest(ctx context.Context, digest string) (*models.User, error)
}

type SessionUpdater interface {
	// UpdateRefreshDigest stores the digest of the account's current
	// refresh token, or clears it when digest is nil.
	UpdateRefreshDigest(ctx context.Context, userID int64, digest *string) error
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
}

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// ValidationError reports malformed input before the store is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const minPasswordLen = 6

// Session is the result of a successful register or login.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         models.PublicUser
}

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions SessionUpdater,
	tokens *jwt.Manager,
) *Auth {
	return &Auth{
		logger:       logger,
		userSaver:    userSaver,
		userProvider: userProvider,
		sessions:     sessions,
		tokens:       tokens,
	}
}

// Register creates a new account with role "user" and opens a session
// for it.
func (a *Auth) Register(
	ctx context.Context,
	username string,
	email string,
	pass string,
) (*Session, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	log.Info("register request")

	if err := validateRegistration(username, email, pass); err != nil {
		log.Warn("registration rejected", sl.Err(err))
		return nil, err
	}

	passHash, err := password.Hash(pass)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := a.userSaver.SaveUser(ctx, username, email, passHash, models.RoleUser)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load created user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := a.openSession(ctx, user)
	if err != nil {
		log.Error("failed to open session", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("userID", userID))

	return session, nil
}

// Login authenticates by email and password and opens a fresh session,
// invalidating any previously issued refresh token for the account.
// Not-found, inactive and wrong-password all fail identically.
func (a *Auth) Login(
	ctx context.Context,
	email string,
	pass string,
) (*Session, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op))
	log.Info("login request", slog.String("email", email))

	user, err := a.userProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		log.Warn("inactive account", slog.Int64("userID", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !password.Verify(pass, user.PassHash) {
		log.Warn("invalid password", slog.Int64("userID", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	session, err := a.openSession(ctx, user)
	if err != nil {
		log.Error("failed to open session", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	if err := a.sessions.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Error("failed to update last login", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session.User.LastLoginAt = &now

	log.Info("user logged in", slog.Int64("userID", user.ID))

	return session, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// token must verify, its digest must match the one stored for the
// account, and the account found by digest must be the token's
// subject; any mismatch means the token was rotated out or forged.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (accessToken string, err error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	claims, err := a.tokens.Verify(refreshToken, jwt.TypeRefresh)
	if err != nil {
		log.Warn("refresh token did not verify", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	subject, err := claims.UserID()
	if err != nil {
		log.Warn("refresh token has malformed subject")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	user, err := a.userProvider.UserByRefreshDigest(ctx, jwt.Digest(refreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("refresh digest not on file")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to look up refresh digest", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if user.ID != subject {
		log.Warn("refresh token subject mismatch",
			slog.Int64("subject", subject),
			slog.Int64("userID", user.ID),
		)
		return "", fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	accessToken, err = a.tokens.NewAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("access token refreshed", slog.Int64("userID", user.ID))

	return accessToken, nil
}

// Logout clears the account's stored refresh digest, making the
// outstanding refresh token unusable before its natural expiry.
// Idempotent.
func (a *Auth) Logout(ctx context.Context, userID int64) error {
	const op = "auth.Logout"
	log := a.logger.With(slog.String("op", op), slog.Int64("userID", userID))

	if err := a.sessions.UpdateRefreshDigest(ctx, userID, nil); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}
		log.Error("failed to clear refresh digest", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged out")

	return nil
}

// CurrentUser returns the public projection of an account.
func (a *Auth) CurrentUser(ctx context.Context, userID int64) (models.PublicUser, error) {
	const op = "auth.CurrentUser"

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		a.logger.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

// openSession issues an access/refresh pair and persists the digest of
// the refresh token, overwriting whatever digest was stored before.
func (a *Auth) openSession(ctx context.Context, user *models.User) (*Session, error) {
	accessToken, err := a.tokens.NewAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := a.tokens.NewRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	digest := jwt.Digest(refreshToken)
	if err := a.sessions.UpdateRefreshDigest(ctx, user.ID, &digest); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

func validateRegistration(username, email, pass string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be blank"}
	}
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(pass) < minPasswordLen {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	return nil
}
