// Package server exposes the honeypot engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/state"
)

type Config struct {
	Port            string        `split_words:"true" default:"8080"`
	APIKey          string        `envconfig:"API_KEY" split_words:"true"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"30s"`
	IdleTimeout     time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Engine is the message-handling surface the gateway needs. Implemented by
// the session manager.
type Engine interface {
	HandleMessage(ctx context.Context, req contract.EngageRequest) (contract.EngageResult, error)
}

type Server struct {
	cfg      Config
	engine   Engine
	sessions state.Snapshotter
	http     *http.Server
}

// New builds the gateway. sessions may be nil when the configured store has
// no read-only lookup; the session endpoint then returns 404 for everything.
func New(cfg Config, engine Engine, sessions state.Snapshotter) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: engine is required")
	}

	s := &Server{cfg: cfg, engine: engine, sessions: sessions}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(apiKeyAuth(cfg.APIKey))
		r.Post("/api/honeypot", s.handleHoneypot)
		r.Get("/sessions/{sessionID}", s.handleSessionLookup)
	})

	s.http = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("gateway listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("gateway shutting down")
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
