// ABOUTME: Template rendering functions for the study chat UI
// ABOUTME: Loads templates from embedded filesystem and renders them

package webui

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/tutormate/tutormate/internal/store"
)

// Template data types
type loginData struct {
	Title     string
	Error     string
	CSRFToken string
}

type registerData struct {
	Title     string
	Error     string
	CSRFToken string
}

type chatMessageView struct {
	ID        int64
	IsUser    bool
	Content   template.HTML
	Timestamp string
}

type chatPageData struct {
	Title     string
	User      *store.User
	Messages  []chatMessageView
	Error     string
	CSRFToken string
}

// renderLoginPage renders the login page
func (h *Handler) renderLoginPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/login.html"))

	data := loginData{
		Title:     "Login",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render login page", "error", err)
	}
}

// renderRegisterPage renders the registration page
func (h *Handler) renderRegisterPage(w http.ResponseWriter, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/register.html"))

	data := registerData{
		Title:     "Register",
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render register page", "error", err)
	}
}

// renderChatPage renders the transcript and input form
func (h *Handler) renderChatPage(w http.ResponseWriter, user *store.User, messages []*store.Message, errorMsg, csrfToken string) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/chat.html"))

	views := make([]chatMessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, chatMessageView{
			ID:        m.ID,
			IsUser:    m.Role == store.RoleUser,
			Content:   h.renderContent(m),
			Timestamp: m.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	data := chatPageData{
		Title:     "Study Chat",
		User:      user,
		Messages:  views,
		Error:     errorMsg,
		CSRFToken: csrfToken,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render chat page", "error", err)
	}
}

// renderContent converts a message body for the chat bubble. Assistant
// replies are markdown-rendered; user messages are HTML-escaped verbatim.
func (h *Handler) renderContent(m *store.Message) template.HTML {
	if m.Role != store.RoleAssistant {
		return template.HTML(template.HTMLEscapeString(m.Content))
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(m.Content), &htmlBuf); err != nil {
		h.logger.Error("failed to convert markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(m.Content))
	}
	return template.HTML(htmlBuf.String())
}
