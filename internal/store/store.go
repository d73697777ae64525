// ABOUTME: Store interface and data types for tutormate persistence
// ABOUTME: Defines User, Message, Session structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUserNotFound is returned when a user doesn't exist.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists is returned when trying to create a user with an existing username.
var ErrUsernameExists = errors.New("username already exists")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// Role constants for message roles
const (
	RoleSystem    = "system"    // Fixed tutoring instruction
	RoleUser      = "user"      // Student input
	RoleAssistant = "assistant" // Model reply (or error placeholder)
)

// User represents a registered account.
// Usernames are unique and immutable; the password hash is a one-way
// bcrypt verifier, never the password itself.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Message represents a single transcript entry owned by a user.
// IDs are assigned monotonically at insert time, so ascending id order
// equals chronological order for any one user's transcript.
type Message struct {
	ID        int64
	Username  string
	Role      string // "system", "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Session represents an authenticated browser session.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store defines the interface for user, message and session persistence
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CountUsers(ctx context.Context) (int, error)

	// Messages (per-user transcript)
	AppendMessage(ctx context.Context, username, role, content string) (int64, error)
	ListMessages(ctx context.Context, username string) ([]*Message, error)
	DeleteMessage(ctx context.Context, id int64, username string) error
	ClearMessages(ctx context.Context, username string) error

	// Sessions (cookie-based)
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
