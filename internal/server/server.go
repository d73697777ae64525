// ABOUTME: Server assembly: wires config, store, auth, completion, chat, and webui together
// ABOUTME: Owns the http.Server lifecycle including graceful shutdown

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/tutormate/tutormate/internal/auth"
	"github.com/tutormate/tutormate/internal/chat"
	"github.com/tutormate/tutormate/internal/completion"
	"github.com/tutormate/tutormate/internal/config"
	"github.com/tutormate/tutormate/internal/store"
	"github.com/tutormate/tutormate/internal/webui"
)

// Server holds the assembled service and its HTTP listener.
type Server struct {
	config     *config.Config
	store      store.Store
	httpServer *http.Server
	logger     *slog.Logger
}

// New assembles the full service from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	authSvc := auth.NewService(st, logger)
	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))

	completer, err := completion.NewOpenAIClient(completion.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
	}, logger)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	chatSvc := chat.NewService(st, completer, cfg.Chat.HistoryWindow, logger)

	ui := webui.New(st, authSvc, chatSvc, verifier, webui.Config{
		BaseURL:         cfg.WebUI.BaseURL,
		SessionDuration: cfg.Auth.SessionDuration,
	})

	mux := http.NewServeMux()
	ui.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", handleHealthz)

	s := &Server{
		config: cfg,
		store:  st,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "server"),
	}

	return s, nil
}

// handleHealthz reports liveness for the health subcommand and probes.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	go s.sessionJanitor(ctx)

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// sessionJanitor periodically removes expired browser sessions.
func (s *Server) sessionJanitor(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.DeleteExpiredSessions(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "error", err)
			}
		}
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	s.logger.Info("shutdown complete")
	return nil
}
