package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormate/tutormate/internal/store"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewService(st, nil)
}

func TestService_RegisterThenAuthenticate(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "password1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.NotEqual(t, "password1", user.PasswordHash, "password must never be stored in the clear")

	authed, err := svc.Authenticate(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestService_Register_Duplicate(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "password2", "")
	assert.ErrorIs(t, err, store.ErrUsernameExists)
}

func TestService_Register_DefaultsDisplayName(t *testing.T) {
	svc := setupService(t)

	user, err := svc.Register(context.Background(), "bob", "password1", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.DisplayName)
}

func TestService_Register_Invalid(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"short username", "ab", "password1", ErrInvalidUsername},
		{"leading digit", "1alice", "password1", ErrInvalidUsername},
		{"bad characters", "alice smith", "password1", ErrInvalidUsername},
		{"short password", "alice", "pw1", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.password, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Authenticate_WrongPassword(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "password1", "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_Authenticate_UnknownUser(t *testing.T) {
	svc := setupService(t)

	// Unknown user and wrong password must be indistinguishable.
	_, err := svc.Authenticate(context.Background(), "nobody", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateUsername(t *testing.T) {
	assert.Empty(t, ValidateUsername("alice"))
	assert.Empty(t, ValidateUsername("alice_2"))
	assert.NotEmpty(t, ValidateUsername("al"))
	assert.NotEmpty(t, ValidateUsername("9lives"))
	assert.NotEmpty(t, ValidateUsername("way_too_long_username_that_keeps_going_on"))
}
