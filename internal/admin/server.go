// Package admin provides a loopback HTTP server for health, status,
// Prometheus metrics, and read-only inspection of conversations and
// transcripts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hostfolk/porter/internal/archive"
	"github.com/hostfolk/porter/internal/session"
)

const (
	defaultBind            = "127.0.0.1:8600"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the admin server configuration.
type Config struct {
	// Bind is the listen address. Loopback by default.
	Bind string `yaml:"bind"`

	// BearerToken protects the status and API routes. When empty, only
	// /health and /metrics are mounted.
	BearerToken string `yaml:"bearer_token"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = defaultBind
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
}

// Server is the admin HTTP server.
type Server struct {
	config  Config
	logger  *slog.Logger
	store   *session.Store
	archive *archive.Archive
	metrics *Metrics
	model   string

	startedAt time.Time
	server    *http.Server
	addr      net.Addr
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithArchive wires the transcript archive into the API routes.
func WithArchive(a *archive.Archive) Option {
	return func(s *Server) { s.archive = a }
}

// WithModelName reports the active model on /status.
func WithModelName(model string) Option {
	return func(s *Server) { s.model = model }
}

// WithLogger injects a structured logger. Nil or omitted discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates the admin server around the conversation store and
// metrics set.
func NewServer(cfg Config, store *session.Store, metrics *Metrics, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("admin: conversation store must not be nil")
	}
	if metrics == nil {
		return nil, errors.New("admin: metrics must not be nil")
	}
	cfg.defaults()

	s := &Server{
		config:  cfg,
		store:   store,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Handler builds the chi mux with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Public.
	r.Get("/health", s.handleHealth())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{},
	))

	// Inspection routes need auth. Not mounted without a token.
	if s.config.BearerToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.config.BearerToken))
			r.Get("/status", s.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/conversations", s.handleListConversations())
				r.Get("/conversations/{id}", s.handleGetConversation())
				r.Delete("/conversations/{id}", s.handleDeleteConversation())
				r.Get("/transcripts/{id}", s.handleGetTranscript())
			})
		})
	}

	return r
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Bind)
	if err != nil {
		return fmt.Errorf("admin: listen on %s: %w", s.config.Bind, err)
	}
	s.addr = ln.Addr()

	go func() {
		s.logger.Info("admin server listening", "addr", s.addr.String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address after Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("admin server shutting down")
	return s.server.Shutdown(shutdownCtx)
}
