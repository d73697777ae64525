// ABOUTME: Browser UI package for tutormate study chat
// ABOUTME: Provides authentication, session management, and chat routes

package webui

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tutormate/tutormate/internal/auth"
	"github.com/tutormate/tutormate/internal/chat"
	"github.com/tutormate/tutormate/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "tutormate_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "tutormate_csrf"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const userContextKey contextKey = "user"
const csrfContextKey contextKey = "csrf_token"

// Config holds web UI configuration
type Config struct {
	// BaseURL is the external URL of the service (used in exported files)
	BaseURL string

	// SessionDuration is how long browser sessions last
	SessionDuration time.Duration
}

// SessionStore is the subset of the store the UI needs beyond chat.
type SessionStore interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	CreateSession(ctx context.Context, session *store.Session) error
	GetSession(ctx context.Context, id string) (*store.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Handler serves the browser UI and the JSON API.
type Handler struct {
	store    SessionStore
	auth     *auth.Service
	chat     *chat.Service
	verifier *auth.JWTVerifier
	config   Config
	logger   *slog.Logger
}

// New creates a new web UI handler
func New(sessions SessionStore, authSvc *auth.Service, chatSvc *chat.Service, verifier *auth.JWTVerifier, cfg Config) *Handler {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = 24 * time.Hour
	}
	return &Handler{
		store:    sessions,
		auth:     authSvc,
		chat:     chatSvc,
		verifier: verifier,
		config:   cfg,
		logger:   slog.Default().With("component", "webui"),
	}
}

// RegisterRoutes registers all UI and API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Public routes (no auth required)
	mux.HandleFunc("GET /login", h.handleLoginPage)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("GET /register", h.handleRegisterPage)
	mux.HandleFunc("POST /register", h.handleRegister)

	// Protected routes (auth required)
	mux.HandleFunc("GET /", h.requireAuth(h.handleChatPage))
	mux.HandleFunc("POST /chat/send", h.requireAuth(h.handleChatSend))
	mux.HandleFunc("POST /chat/delete/{id}", h.requireAuth(h.handleChatDelete))
	mux.HandleFunc("POST /chat/clear", h.requireAuth(h.handleChatClear))
	mux.HandleFunc("GET /export/txt", h.requireAuth(h.handleExportTXT))
	mux.HandleFunc("GET /export/pdf", h.requireAuth(h.handleExportPDF))
	mux.HandleFunc("POST /logout", h.requireAuth(h.handleLogout))

	// JSON API (bearer auth)
	mux.HandleFunc("POST /api/login", h.handleAPILogin)
	mux.HandleFunc("POST /api/chat", h.requireBearer(h.handleAPIChat))
	mux.HandleFunc("GET /api/history", h.requireBearer(h.handleAPIHistory))

	h.logger.Info("webui routes registered")
}

// requireAuth wraps a handler to require an authenticated browser session
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.getUserFromSession(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		// Add user to context
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// getUserFromSession retrieves the authenticated user from the session cookie
func (h *Handler) getUserFromSession(r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}

	session, err := h.store.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, err
	}

	user, err := h.store.GetUserByUsername(r.Context(), session.Username)
	if err != nil {
		return nil, err
	}

	return user, nil
}

// getUserFromContext retrieves the authenticated user from the request context
func getUserFromContext(r *http.Request) *store.User {
	user, _ := r.Context().Value(userContextKey).(*store.User)
	return user
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (h *Handler) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	// Try to get existing token from cookie
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	// Generate new token
	token, err := generateSecureToken(32)
	if err != nil {
		h.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	// Set cookie
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (h *Handler) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// createSession creates a new session for a user and sets the cookie
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, username string) error {
	sessionID, err := generateSecureToken(32)
	if err != nil {
		return err
	}

	session := &store.Session{
		ID:        sessionID,
		Username:  username,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(h.config.SessionDuration),
	}

	if err := h.store.CreateSession(r.Context(), session); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// handleLoginPage renders the login page
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the chat
	if _, err := h.getUserFromSession(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, csrfToken := h.ensureCSRFToken(w, r)
	h.renderLoginPage(w, "", csrfToken)
}

// handleLogin processes login form submission
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderLoginPage(w, "Invalid form data", csrfToken)
		return
	}

	if !h.validateCSRF(r) {
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderLoginPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderLoginPage(w, "Username and password required", csrfToken)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_, csrfToken := h.ensureCSRFToken(w, r)
			h.renderLoginPage(w, "Invalid username or password", csrfToken)
			return
		}
		h.logger.Error("login failed", "error", err)
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	if err := h.createSession(w, r, user.Username); err != nil {
		h.logger.Error("failed to create session", "error", err)
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderLoginPage(w, "An error occurred", csrfToken)
		return
	}

	h.logger.Info("login successful", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRegisterPage renders the registration page
func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, err := h.getUserFromSession(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	_, csrfToken := h.ensureCSRFToken(w, r)
	h.renderRegisterPage(w, "", csrfToken)
}

// handleRegister processes the registration form
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderRegisterPage(w, "Invalid form data", csrfToken)
		return
	}

	if !h.validateCSRF(r) {
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderRegisterPage(w, "Invalid request, please try again", csrfToken)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	displayName := r.FormValue("display_name")

	user, err := h.auth.Register(r.Context(), username, password, displayName)
	if err != nil {
		msg := "An error occurred"
		switch {
		case errors.Is(err, store.ErrUsernameExists):
			msg = "That username is already taken"
		case errors.Is(err, auth.ErrInvalidUsername):
			msg = auth.ValidateUsername(username)
		case errors.Is(err, auth.ErrPasswordTooShort):
			msg = "Password must be at least 8 characters"
		default:
			h.logger.Error("registration failed", "error", err)
		}
		_, csrfToken := h.ensureCSRFToken(w, r)
		h.renderRegisterPage(w, msg, csrfToken)
		return
	}

	if err := h.createSession(w, r, user.Username); err != nil {
		h.logger.Error("failed to create session", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	h.logger.Info("registration successful", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout logs out the current user
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err == nil {
		if !h.validateCSRF(r) {
			h.logger.Warn("logout request with invalid CSRF token")
		}
	}

	cookie, err := r.Cookie(SessionCookieName)
	if err == nil {
		_ = h.store.DeleteSession(r.Context(), cookie.Value)
	}

	// Clear session cookie
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	// Clear CSRF cookie
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
