// ABOUTME: Chat turn orchestration: assemble transcript, call completion, persist both sides
// ABOUTME: One synchronous turn at a time; completion failures become saved placeholder replies

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tutormate/tutormate/internal/completion"
	"github.com/tutormate/tutormate/internal/store"
)

// SystemPrompt is the fixed tutoring instruction sent as the first entry
// of every completion request. It is never persisted to the transcript.
const SystemPrompt = "You are AI TutorMate. You only provide educational answers " +
	"(math, science, coding, history, literature). If user asks non-educational " +
	"things, politely refuse."

// ErrEmptyMessage is returned when a turn is attempted with blank input.
var ErrEmptyMessage = errors.New("message is empty")

// MessageStore is the persistence surface the chat service needs.
type MessageStore interface {
	AppendMessage(ctx context.Context, username, role, content string) (int64, error)
	ListMessages(ctx context.Context, username string) ([]*store.Message, error)
	DeleteMessage(ctx context.Context, id int64, username string) error
	ClearMessages(ctx context.Context, username string) error
}

// Service runs tutoring turns for authenticated users.
type Service struct {
	store         MessageStore
	completer     completion.Client
	historyWindow int
	logger        *slog.Logger
}

// NewService creates a chat service. historyWindow bounds how many of the
// most recent transcript messages are forwarded to the completion API;
// zero forwards the full transcript.
func NewService(st MessageStore, completer completion.Client, historyWindow int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         st,
		completer:     completer,
		historyWindow: historyWindow,
		logger:        logger.With("component", "chat"),
	}
}

// TurnResult holds the two messages a completed turn persisted.
type TurnResult struct {
	UserMessage      *store.Message
	AssistantMessage *store.Message
}

// BuildRequest assembles the completion payload for a user: the system
// instruction first, then the stored transcript in ascending id order.
// When a history window is configured, only the most recent messages
// within it are forwarded; the store always keeps the full transcript.
func (s *Service) BuildRequest(ctx context.Context, username string) ([]completion.ChatMessage, error) {
	messages, err := s.store.ListMessages(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("listing transcript: %w", err)
	}

	if s.historyWindow > 0 && len(messages) > s.historyWindow {
		messages = messages[len(messages)-s.historyWindow:]
	}

	payload := make([]completion.ChatMessage, 0, len(messages)+1)
	payload = append(payload, completion.ChatMessage{
		Role:    completion.RoleSystem,
		Content: SystemPrompt,
	})
	for _, m := range messages {
		payload = append(payload, completion.ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return payload, nil
}

// ProcessTurn runs one full tutoring exchange: persist the user message,
// assemble the request, invoke the completion API once, and persist the
// reply. A completion failure does not fail the turn; a placeholder
// assistant message describing the error is saved instead so the
// transcript always records the attempt. Storage errors fail the turn.
func (s *Service) ProcessTurn(ctx context.Context, username, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyMessage
	}

	turnID := uuid.NewString()
	logger := s.logger.With("turn_id", turnID, "username", username)

	userID, err := s.store.AppendMessage(ctx, username, store.RoleUser, input)
	if err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	payload, err := s.BuildRequest(ctx, username)
	if err != nil {
		return nil, err
	}

	logger.Debug("invoking completion", "payload_messages", len(payload))

	reply, err := s.completer.Complete(ctx, payload)
	if err != nil {
		// The turn still completes; the failure is recorded in the
		// transcript so the user sees what happened.
		logger.Warn("completion failed", "error", err)
		reply = fmt.Sprintf("API error: %v", err)
	}

	assistantID, err := s.store.AppendMessage(ctx, username, store.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("saving assistant message: %w", err)
	}

	logger.Info("turn completed", "user_message_id", userID, "assistant_message_id", assistantID)

	result := &TurnResult{}
	messages, err := s.store.ListMessages(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("reloading transcript: %w", err)
	}
	for _, m := range messages {
		switch m.ID {
		case userID:
			result.UserMessage = m
		case assistantID:
			result.AssistantMessage = m
		}
	}
	return result, nil
}

// History returns the user's full transcript in ascending id order.
func (s *Service) History(ctx context.Context, username string) ([]*store.Message, error) {
	return s.store.ListMessages(ctx, username)
}

// DeleteMessage removes a single message if it belongs to the user.
// Deleting a message that does not exist is a no-op.
func (s *Service) DeleteMessage(ctx context.Context, id int64, username string) error {
	return s.store.DeleteMessage(ctx, id, username)
}

// ClearHistory removes the user's entire transcript.
func (s *Service) ClearHistory(ctx context.Context, username string) error {
	s.logger.Info("clearing history", "username", username)
	return s.store.ClearMessages(ctx, username)
}
