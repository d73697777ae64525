// ABOUTME: Chat page handlers: render transcript, send turn, delete message, clear history
// ABOUTME: Synchronous form posts with redirect-after-post, no client-side framework

package webui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tutormate/tutormate/internal/chat"
)

// handleChatPage renders the chat transcript and input form
func (h *Handler) handleChatPage(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	r, csrfToken := h.ensureCSRFToken(w, r)

	messages, err := h.chat.History(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("failed to load history", "username", user.Username, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	errorMsg := ""
	if r.URL.Query().Get("error") == "empty" {
		errorMsg = "Type a question before sending"
	}

	h.renderChatPage(w, user, messages, errorMsg, csrfToken)
}

// handleChatSend runs one tutoring turn and redirects back to the chat
func (h *Handler) handleChatSend(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !h.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	_, err := h.chat.ProcessTurn(r.Context(), user.Username, r.FormValue("message"))
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			http.Redirect(w, r, "/?error=empty", http.StatusSeeOther)
			return
		}
		h.logger.Error("turn failed", "username", user.Username, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleChatDelete removes a single message from the user's transcript
func (h *Handler) handleChatDelete(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !h.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	// Scoped to the user's own rows; deleting someone else's id is a no-op.
	if err := h.chat.DeleteMessage(r.Context(), id, user.Username); err != nil {
		h.logger.Error("failed to delete message", "id", id, "error", err)
		http.Error(w, "failed to delete message", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleChatClear wipes the user's entire transcript
func (h *Handler) handleChatClear(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if !h.validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	if err := h.chat.ClearHistory(r.Context(), user.Username); err != nil {
		h.logger.Error("failed to clear history", "username", user.Username, "error", err)
		http.Error(w, "failed to clear history", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
