// ABOUTME: JSON API for non-browser clients: login, chat turn, history
// ABOUTME: Bearer JWT authentication; request/response bodies are plain JSON

package webui

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tutormate/tutormate/internal/auth"
	"github.com/tutormate/tutormate/internal/chat"
	"github.com/tutormate/tutormate/internal/store"
)

const apiTokenDuration = 24 * time.Hour

type apiLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type apiLoginResponse struct {
	Token string `json:"token"`
}

type apiChatRequest struct {
	Message string `json:"message"`
}

type apiMessage struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type apiChatResponse struct {
	UserMessage      apiMessage `json:"user_message"`
	AssistantMessage apiMessage `json:"assistant_message"`
}

type apiErrorResponse struct {
	Error string `json:"error"`
}

func toAPIMessage(m *store.Message) apiMessage {
	return apiMessage{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiErrorResponse{Error: msg})
}

// requireBearer wraps a handler to require a valid bearer token
func (h *Handler) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		username, err := h.verifier.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		user, err := h.store.GetUserByUsername(r.Context(), username)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// handleAPILogin exchanges credentials for a JWT
func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeJSONError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("api login failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := h.verifier.Generate(user.Username, apiTokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, apiLoginResponse{Token: token})
}

// handleAPIChat runs one tutoring turn and returns both persisted messages
func (h *Handler) handleAPIChat(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var req apiChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.chat.ProcessTurn(r.Context(), user.Username, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			writeJSONError(w, http.StatusBadRequest, "message is empty")
			return
		}
		h.logger.Error("api turn failed", "username", user.Username, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, apiChatResponse{
		UserMessage:      toAPIMessage(result.UserMessage),
		AssistantMessage: toAPIMessage(result.AssistantMessage),
	})
}

// handleAPIHistory returns the full transcript in ascending id order
func (h *Handler) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	messages, err := h.chat.History(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("api history failed", "username", user.Username, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]apiMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, toAPIMessage(m))
	}
	writeJSON(w, http.StatusOK, out)
}
