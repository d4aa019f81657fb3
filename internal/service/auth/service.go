package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
	"taskboard/pkg/config"
	"taskboard/pkg/crypto"
	jwtpkg "taskboard/pkg/jwt"
)

// MinPasswordLength is the minimum accepted password size on signup.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

var (
	// ErrEmailTaken signals a signup against an already-registered email.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login failures do not reveal which accounts exist.
	ErrInvalidCredentials = errors.New("email id or password is incorrect")
	// ErrInvalidToken signals a token that fails signature or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized signals a missing token or a token whose account is gone.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes rejected signup input. It is produced before
// any store access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Service handles signup, login and bearer-token verification.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.APIConfig
}

// New constructs a Service. The JWT secret in cfg must be provisioned by
// the caller; the service never generates one on its own.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Signup validates input, checks for an existing account and stores the
// new credential with a bcrypt password hash. No token is issued.
func (s Service) Signup(ctx context.Context, username, email, password string) error {
	if err := validateSignup(username, email, password); err != nil {
		return err
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// The pre-check races with concurrent signups; the unique
		// constraint is the authority.
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrEmailTaken
		}
		return err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return nil
}

// Login verifies credentials and issues a time-limited bearer token.
// Nothing is persisted; validity is determined entirely by signature
// and expiry at verification time.
func (s Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	token, err := jwtpkg.GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Authorize validates a bearer token and resolves the bound identity to
// a live account. Deleting an account revokes its outstanding tokens.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrUnauthorized
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func validateSignup(username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Reason: "is required"}
	}
	if strings.TrimSpace(email) == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must contain at least %d characters", MinPasswordLength)}
	}
	return nil
}
