// ABOUTME: Completion collaborator contract for tutormate
// ABOUTME: Defines the chat payload types and the Client interface the chat service calls

package completion

import "context"

// Role constants mirror the transcript roles; the wire payload is an
// ordered sequence of role-tagged entries, system entry first.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a completion request payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client maps a conversation payload to a generated reply.
// Implementations make exactly one attempt; no retries or backoff.
// Model selection, temperature and transport are implementation
// configuration the caller does not interpret.
type Client interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}
