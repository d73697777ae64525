// ABOUTME: Credential registration and verification for tutormate accounts
// ABOUTME: Uses bcrypt verifiers with constant-timing lookups to avoid username enumeration

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tutormate/tutormate/internal/store"
)

// ErrInvalidCredentials is returned for both unknown usernames and wrong
// passwords. Callers must not distinguish the two cases.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidUsername is returned when a registration username fails validation.
var ErrInvalidUsername = errors.New("invalid username")

// ErrPasswordTooShort is returned when a registration password is too short.
var ErrPasswordTooShort = errors.New("password too short")

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Username validation regex: alphanumeric + underscores, 3-32 characters
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{2,31}$`)

// dummyHash is compared against when a user doesn't exist, keeping the
// login path constant-time so usernames can't be enumerated.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialStore defines what the service needs from storage.
type CredentialStore interface {
	CreateUser(ctx context.Context, user *store.User) error
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
}

// Service registers accounts and verifies submitted credentials.
type Service struct {
	store  CredentialStore
	logger *slog.Logger
}

// NewService creates a new credential service.
func NewService(credStore CredentialStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  credStore,
		logger: logger.With("component", "auth"),
	}
}

// Register validates the username and password, derives a bcrypt verifier
// and stores the new account. Returns store.ErrUsernameExists when the
// username is already taken. The plain password is never persisted.
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*store.User, error) {
	if !usernameRegex.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		// ErrUsernameExists passes through for the caller to surface
		return nil, err
	}

	s.logger.Info("user registered", "username", username)
	return user, nil
}

// Authenticate verifies a submitted password against the stored verifier.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials;
// a dummy bcrypt comparison keeps the missing-user path constant timing.
// Storage failures propagate unchanged.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.Debug("login successful", "username", username)
	return user, nil
}

// ValidateUsername checks if a username meets requirements.
// Returns an error message or empty string if valid.
func ValidateUsername(username string) string {
	if len(username) < 3 {
		return "Username must be at least 3 characters"
	}
	if len(username) > 32 {
		return "Username must be at most 32 characters"
	}
	if !usernameRegex.MatchString(username) {
		return "Username must start with a letter and contain only letters, numbers, and underscores"
	}
	return ""
}
