package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormate/tutormate/internal/completion"
	"github.com/tutormate/tutormate/internal/store"
)

// fakeCompleter records the payloads it receives and replies from a script.
type fakeCompleter struct {
	payloads [][]completion.ChatMessage
	reply    string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []completion.ChatMessage) (string, error) {
	f.payloads = append(f.payloads, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func setupChatService(t *testing.T, completer completion.Client, window int) (*Service, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.CreateUser(context.Background(), &store.User{
		Username:     "alice",
		PasswordHash: "x",
		DisplayName:  "Alice",
	}))

	return NewService(st, completer, window, nil), st
}

func TestProcessTurn_Success(t *testing.T) {
	fake := &fakeCompleter{reply: "2+2 is 4."}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	result, err := svc.ProcessTurn(ctx, "alice", "What is 2+2?")
	require.NoError(t, err)

	require.NotNil(t, result.UserMessage)
	require.NotNil(t, result.AssistantMessage)
	assert.Equal(t, store.RoleUser, result.UserMessage.Role)
	assert.Equal(t, "What is 2+2?", result.UserMessage.Content)
	assert.Equal(t, store.RoleAssistant, result.AssistantMessage.Role)
	assert.Equal(t, "2+2 is 4.", result.AssistantMessage.Content)
	assert.Greater(t, result.AssistantMessage.ID, result.UserMessage.ID)

	messages, err := st.ListMessages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestProcessTurn_PayloadShape(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, _ := setupChatService(t, fake, 0)
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, "alice", "first question")
	require.NoError(t, err)
	_, err = svc.ProcessTurn(ctx, "alice", "second question")
	require.NoError(t, err)

	require.Len(t, fake.payloads, 2)

	// Second call sees: system, then the full transcript so far
	// (user, assistant, user) in order.
	payload := fake.payloads[1]
	require.Len(t, payload, 4)
	assert.Equal(t, completion.RoleSystem, payload[0].Role)
	assert.Equal(t, SystemPrompt, payload[0].Content)
	assert.Equal(t, completion.RoleUser, payload[1].Role)
	assert.Equal(t, "first question", payload[1].Content)
	assert.Equal(t, completion.RoleAssistant, payload[2].Role)
	assert.Equal(t, completion.RoleUser, payload[3].Role)
	assert.Equal(t, "second question", payload[3].Content)
}

func TestProcessTurn_EmptyInput(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := svc.ProcessTurn(ctx, "alice", input)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}

	// Nothing was persisted and the API was never called.
	messages, err := st.ListMessages(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, fake.payloads)
}

func TestProcessTurn_TrimsInput(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, _ := setupChatService(t, fake, 0)

	result, err := svc.ProcessTurn(context.Background(), "alice", "  hello  \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", result.UserMessage.Content)
}

func TestProcessTurn_CompletionFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("rate limit exceeded")}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	result, err := svc.ProcessTurn(ctx, "alice", "help me")
	require.NoError(t, err, "a completion failure must not fail the turn")

	assert.Equal(t, store.RoleAssistant, result.AssistantMessage.Role)
	assert.Contains(t, result.AssistantMessage.Content, "rate limit exceeded")

	// Both sides of the turn are persisted.
	messages, err := st.ListMessages(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, store.RoleUser, messages[0].Role)
	assert.Equal(t, store.RoleAssistant, messages[1].Role)

	// Exactly one attempt.
	assert.Len(t, fake.payloads, 1)
}

func TestBuildRequest_HistoryWindow(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, st := setupChatService(t, fake, 4)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := st.AppendMessage(ctx, "alice", store.RoleUser, "q")
		require.NoError(t, err)
		_, err = st.AppendMessage(ctx, "alice", store.RoleAssistant, "a")
		require.NoError(t, err)
	}

	payload, err := svc.BuildRequest(ctx, "alice")
	require.NoError(t, err)

	// System entry plus the 4 most recent transcript messages.
	require.Len(t, payload, 5)
	assert.Equal(t, completion.RoleSystem, payload[0].Role)
	for _, m := range payload[1:] {
		assert.NotEqual(t, completion.RoleSystem, m.Role)
	}
}

func TestBuildRequest_UnboundedWindow(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := st.AppendMessage(ctx, "alice", store.RoleUser, "q")
		require.NoError(t, err)
	}

	payload, err := svc.BuildRequest(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, payload, 11)
}

func TestBuildRequest_EmptyTranscript(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, _ := setupChatService(t, fake, 0)

	payload, err := svc.BuildRequest(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, payload, 1)
	assert.Equal(t, completion.RoleSystem, payload[0].Role)
}

func TestDeleteMessage_Scoped(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	id, err := st.AppendMessage(ctx, "alice", store.RoleUser, "keep or delete")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMessage(ctx, id, "alice"))

	messages, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)

	// Deleting again is a no-op.
	require.NoError(t, svc.DeleteMessage(ctx, id, "alice"))
}

func TestClearHistory(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	svc, st := setupChatService(t, fake, 0)
	ctx := context.Background()

	_, err := st.AppendMessage(ctx, "alice", store.RoleUser, "one")
	require.NoError(t, err)
	_, err = st.AppendMessage(ctx, "alice", store.RoleAssistant, "two")
	require.NoError(t, err)

	require.NoError(t, svc.ClearHistory(ctx, "alice"))

	messages, err := svc.History(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
