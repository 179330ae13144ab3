package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stepflow/stepflow/internal/engine"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout: SSE connections stay open
	}
}

// Server is the HTTP/SSE Transport: a thin chi router over a shared
// engine.Bootstrap, the same wiring internal/headless.Runner drives.
// Grounded on the teacher's internal/server.Server, trimmed to the fields
// spec.md §4.17's scoped endpoint set actually needs — the teacher's
// separately-held storage/session/provider/tool/event/mcp/command/
// formatter fields collapse into one *engine.Bootstrap here.
type Server struct {
	config  *Config
	boot    *engine.Bootstrap
	router  *chi.Mux
	httpSrv *http.Server

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates a new Server instance over boot.
func New(cfg *Config, boot *engine.Bootstrap) *Server {
	s := &Server{
		config:  cfg,
		boot:    boot,
		router:  chi.NewRouter(),
		cancels: make(map[string]context.CancelFunc),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Handler returns the server's routed http.Handler, for tests and for
// embedding behind additional middleware (e.g. httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server, blocking until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// registerCancel records cancel as the in-flight message for sessionID so
// a concurrent abort request can reach it, and returns a function that
// removes the registration once the message finishes.
func (s *Server) registerCancel(sessionID string, cancel context.CancelFunc) (release func()) {
	s.mu.Lock()
	s.cancels[sessionID] = cancel
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.cancels, sessionID)
		s.mu.Unlock()
	}
}

// abort cancels sessionID's in-flight message, if any, and reports whether
// one was found.
func (s *Server) abort(sessionID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[sessionID]
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}
