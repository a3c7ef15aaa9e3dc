// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api wires the boardcast HTTP surface: the PIN login, the viewer
// page, the multipart video feed and the command endpoint.
package api

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/boardcast/internal/command"
	"github.com/ManuGH/boardcast/internal/health"
	"github.com/ManuGH/boardcast/internal/middleware"
	"github.com/ManuGH/boardcast/internal/session"
	"github.com/ManuGH/boardcast/internal/stream"
	"github.com/ManuGH/boardcast/internal/web"
)

// Privacy reports the shared blackout flag.
type Privacy interface {
	PrivacyActive() bool
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Gate     *session.Gate
	Commands *command.Channel
	Pipeline *stream.Pipeline
	Registry *stream.Registry
	Privacy  Privacy
	Pages    *web.Pages
	Health   *health.Manager
}

// Validate reports the first missing dependency.
func (d Deps) Validate() error {
	switch {
	case d.Gate == nil:
		return errors.New("api: session gate is required")
	case d.Commands == nil:
		return errors.New("api: command channel is required")
	case d.Pipeline == nil:
		return errors.New("api: stream pipeline is required")
	case d.Registry == nil:
		return errors.New("api: viewer registry is required")
	case d.Privacy == nil:
		return errors.New("api: presentation state is required")
	case d.Pages == nil:
		return errors.New("api: page renderer is required")
	}
	return nil
}

// Options tunes the HTTP surface.
type Options struct {
	// LoginRateLimit caps PIN submissions per client IP per minute. 0 disables it.
	LoginRateLimit int
	// TracingService names the tracer of the middleware stack. Empty disables tracing.
	TracingService string
	// EnableMetrics records HTTP request metrics.
	EnableMetrics bool
	// TrustedProxies may set X-Forwarded-Proto and the forwarded client address.
	TrustedProxies []*net.IPNet
}

// Server serves the boardcast HTTP surface.
type Server struct {
	deps   Deps
	opts   Options
	router chi.Router
}

// New validates deps and builds the router.
func New(deps Deps, opts Options) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	s := &Server{deps: deps, opts: opts}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		TrustedProxies:        s.opts.TrustedProxies,
		EnableMetrics:         s.opts.EnableMetrics,
		TracingService:        s.opts.TracingService,
		EnableLogging:         true,
	})

	r.Get("/", s.handleIndex)
	r.With(middleware.LoginRateLimit(s.opts.LoginRateLimit, s.opts.TrustedProxies)).Post("/", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Get("/video_feed", s.handleVideoFeed)
	r.Get("/command/{action}", s.handleCommand)
	r.Get("/viewers", s.handleViewers)
	r.Handle("/static/*", http.StripPrefix("/static", web.StaticHandler()))

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	return r
}
