package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// createTestUser inserts a user so messages and sessions can reference it.
func createTestUser(t *testing.T, store *SQLiteStore, username string) *User {
	t.Helper()
	user := &User{
		Username:     username,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
		DisplayName:  username,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := &User{
		Username:     "alice",
		PasswordHash: "hash",
		DisplayName:  "Alice",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}

	err := store.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.NotZero(t, user.ID, "id should be assigned on insert")

	retrieved, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.Equal(t, "alice", retrieved.Username)
	assert.Equal(t, "Alice", retrieved.DisplayName)
}

func TestStore_CreateUser_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")

	dup := &User{
		Username:     "alice",
		PasswordHash: "other-hash",
		CreatedAt:    time.Now().UTC(),
	}
	err := store.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestStore_GetUserByUsername_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUserByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_CountUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	count, err = store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_AppendMessage_MonotonicIDs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	id1, err := store.AppendMessage(ctx, "alice", RoleUser, "2+2?")
	require.NoError(t, err)

	id2, err := store.AppendMessage(ctx, "alice", RoleAssistant, "4")
	require.NoError(t, err)

	assert.Greater(t, id2, id1, "ids must increase monotonically")
}

func TestStore_ListMessages_Order(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	contents := []string{"first", "second", "third", "fourth"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		_, err := store.AppendMessage(ctx, "alice", role, c)
		require.NoError(t, err)
	}

	messages, err := store.ListMessages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, messages, len(contents))

	for i, msg := range messages {
		assert.Equal(t, contents[i], msg.Content, "append order must equal list order")
		if i > 0 {
			assert.Greater(t, msg.ID, messages[i-1].ID)
		}
	}
}

func TestStore_ListMessages_Empty(t *testing.T) {
	store := setupTestStore(t)
	createTestUser(t, store, "alice")

	messages, err := store.ListMessages(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NotNil(t, messages, "empty transcript should be a slice, not nil")
}

func TestStore_ListMessages_PerUserIsolation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	_, err := store.AppendMessage(ctx, "alice", RoleUser, "alice question")
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, "bob", RoleUser, "bob question")
	require.NoError(t, err)

	aliceMsgs, err := store.ListMessages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, aliceMsgs, 1)
	assert.Equal(t, "alice question", aliceMsgs[0].Content)
}

func TestStore_AppendMessage_UnknownUser(t *testing.T) {
	store := setupTestStore(t)

	// Foreign keys are on: a transcript entry needs an existing account.
	_, err := store.AppendMessage(context.Background(), "ghost", RoleUser, "hello?")
	assert.Error(t, err)
}

func TestStore_DeleteMessage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	id, err := store.AppendMessage(ctx, "alice", RoleUser, "delete me")
	require.NoError(t, err)

	require.NoError(t, store.DeleteMessage(ctx, id, "alice"))

	messages, err := store.ListMessages(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestStore_DeleteMessage_Nonexistent(t *testing.T) {
	store := setupTestStore(t)
	createTestUser(t, store, "alice")

	// Deleting an id that doesn't exist is a no-op, not an error.
	err := store.DeleteMessage(context.Background(), 9999, "alice")
	assert.NoError(t, err)
}

func TestStore_DeleteMessage_WrongUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	id, err := store.AppendMessage(ctx, "alice", RoleUser, "alice's message")
	require.NoError(t, err)

	// Bob cannot delete alice's message even with the right id.
	require.NoError(t, store.DeleteMessage(ctx, id, "bob"))

	messages, err := store.ListMessages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, id, messages[0].ID)
}

func TestStore_ClearMessages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")
	createTestUser(t, store, "bob")

	for i := 0; i < 3; i++ {
		_, err := store.AppendMessage(ctx, "alice", RoleUser, fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	bobID, err := store.AppendMessage(ctx, "bob", RoleUser, "bob's message")
	require.NoError(t, err)

	require.NoError(t, store.ClearMessages(ctx, "alice"))

	aliceMsgs, err := store.ListMessages(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, aliceMsgs)

	// Other users' transcripts are untouched.
	bobMsgs, err := store.ListMessages(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobMsgs, 1)
	assert.Equal(t, bobID, bobMsgs[0].ID)
}

func TestStore_ClearMessages_Empty(t *testing.T) {
	store := setupTestStore(t)
	createTestUser(t, store, "alice")

	err := store.ClearMessages(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestStore_Sessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	session := &Session{
		ID:        "session-123",
		Username:  "alice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, store.CreateSession(ctx, session))

	retrieved, err := store.GetSession(ctx, "session-123")
	require.NoError(t, err)
	assert.Equal(t, "alice", retrieved.Username)

	require.NoError(t, store.DeleteSession(ctx, "session-123"))

	_, err = store.GetSession(ctx, "session-123")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_GetSession_Expired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	session := &Session{
		ID:        "expired-session",
		Username:  "alice",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, session))

	_, err := store.GetSession(ctx, "expired-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_DeleteExpiredSessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	createTestUser(t, store, "alice")

	expired := &Session{
		ID:        "old",
		Username:  "alice",
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	valid := &Session{
		ID:        "fresh",
		Username:  "alice",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, expired))
	require.NoError(t, store.CreateSession(ctx, valid))

	require.NoError(t, store.DeleteExpiredSessions(ctx))

	_, err := store.GetSession(ctx, "fresh")
	assert.NoError(t, err)
}

func TestStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	createTestUser(t, store, "alice")

	id, err := store.AppendMessage(context.Background(), "alice", RoleUser, "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
