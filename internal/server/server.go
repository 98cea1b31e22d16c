// Package server exposes the assistant over HTTP: a streaming chat endpoint
// plus conversation management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cg-assist/backend/internal/auth"
)

// Server is the HTTP front end.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// New builds the server with its routes and middleware.
func New(addr string, h *Handlers, verifier auth.Verifier, log *slog.Logger) *Server {
	router := http.NewServeMux()

	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return withLogging(log, withCORS(withAuth(verifier, next)))
	}

	router.HandleFunc("GET /api/health", withLogging(log, h.Health))
	router.HandleFunc("POST /api/chat", protect(h.Chat))
	router.HandleFunc("OPTIONS /api/chat", withCORS(func(http.ResponseWriter, *http.Request) {}))
	router.HandleFunc("GET /api/conversations", protect(h.ListConversations))
	router.HandleFunc("GET /api/conversations/{id}", protect(h.GetConversation))
	router.HandleFunc("DELETE /api/conversations/{id}", protect(h.DeleteConversation))

	return &Server{
		srv: &http.Server{
			Addr:        addr,
			Handler:     router,
			ReadTimeout: 30 * time.Second,
			// No WriteTimeout: chat responses stream for as long as a run lasts.
			IdleTimeout: 120 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
