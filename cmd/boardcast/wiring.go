// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/boardcast/internal/api"
	"github.com/ManuGH/boardcast/internal/capture"
	"github.com/ManuGH/boardcast/internal/command"
	"github.com/ManuGH/boardcast/internal/config"
	"github.com/ManuGH/boardcast/internal/daemon"
	"github.com/ManuGH/boardcast/internal/encode"
	"github.com/ManuGH/boardcast/internal/health"
	"github.com/ManuGH/boardcast/internal/input"
	"github.com/ManuGH/boardcast/internal/log"
	"github.com/ManuGH/boardcast/internal/middleware"
	"github.com/ManuGH/boardcast/internal/presentation"
	"github.com/ManuGH/boardcast/internal/session"
	"github.com/ManuGH/boardcast/internal/stream"
	"github.com/ManuGH/boardcast/internal/telemetry"
	"github.com/ManuGH/boardcast/internal/web"
)

const (
	memorySweepInterval = time.Minute
	captureProbeTimeout = 2 * time.Second
	captureProbeEvery   = 5 * time.Second
	storePingTimeout    = time.Second
)

type namedHook struct {
	name string
	fn   daemon.ShutdownHook
}

// runtime is the wired object graph of one serve invocation.
type runtime struct {
	handler  http.Handler
	registry *stream.Registry
	hooks    []namedHook
}

func (rt *runtime) onShutdown(name string, fn daemon.ShutdownHook) {
	rt.hooks = append(rt.hooks, namedHook{name: name, fn: fn})
}

// closeAll runs the hooks in reverse order. Used when wiring fails before the
// daemon manager owns them.
func (rt *runtime) closeAll(ctx context.Context) error {
	var errs []error
	for i := len(rt.hooks) - 1; i >= 0; i-- {
		if err := rt.hooks[i].fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

func wire(ctx context.Context, cfg config.AppConfig) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			_ = rt.closeAll(context.WithoutCancel(ctx))
		}
	}()

	tracingEnabled := cfg.Tracing.Exporter != ""
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        tracingEnabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	rt.onShutdown("tracer", tp.Shutdown)

	store, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}
	rt.onShutdown("session_store", func(context.Context) error { return store.Close() })

	gate, err := session.NewGate(session.Options{
		PIN:           cfg.Auth.PIN,
		Secret:        cfg.Auth.SessionSecret,
		TTL:           cfg.Auth.SessionTTL,
		Store:         store,
		SecureRequest: middleware.IsHTTPS,
	})
	if err != nil {
		return nil, fmt.Errorf("session gate: %w", err)
	}

	src, err := capture.New(capture.Options{
		Kind:            cfg.Capture.Source,
		Region:          cfg.Capture.Region,
		MaxInFlight:     cfg.Capture.MaxInFlight,
		SyntheticWidth:  cfg.Capture.SyntheticWidth,
		SyntheticHeight: cfg.Capture.SyntheticHeight,
	})
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	rt.onShutdown("capture", func(context.Context) error { return src.Close() })

	enc, err := newEncoder(cfg.Encode)
	if err != nil {
		return nil, err
	}

	injector, err := input.New(input.Options{Backend: cfg.Input.Backend, XdotoolPath: cfg.Input.XdotoolPath})
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	dispatcher := input.NewDispatcher(injector, cfg.Input.QueueSize)
	rt.onShutdown("input_dispatcher", func(context.Context) error { return dispatcher.Close() })

	state := &presentation.State{}
	commands := command.New(dispatcher, state, command.Options{
		LegacyUnknownSuccess: cfg.Commands.LegacyUnknownSuccess,
	})
	pipeline := stream.NewPipeline(src, enc, state, stream.Options{
		MaxFPS:                 cfg.Stream.MaxFPS,
		PrivacyInterval:        cfg.Stream.PrivacyInterval,
		MaxConsecutiveFailures: cfg.Encode.MaxConsecutiveFailures,
	})
	registry := stream.NewRegistry()

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewCaptureChecker(src, captureProbeTimeout, captureProbeEvery))
	var ping health.PingFunc
	if p, ok := store.(session.Pinger); ok {
		ping = p.Ping
	}
	hm.RegisterChecker(health.NewPingChecker("session_store", ping, storePingTimeout))

	pages, err := web.NewPages(web.DefaultTitle, len(cfg.Auth.PIN))
	if err != nil {
		return nil, fmt.Errorf("pages: %w", err)
	}
	proxies, err := middleware.ParseCIDRs(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	tracingService := ""
	if tracingEnabled {
		tracingService = cfg.Log.Service
	}
	srv, err := api.New(api.Deps{
		Gate:     gate,
		Commands: commands,
		Pipeline: pipeline,
		Registry: registry,
		Privacy:  state,
		Pages:    pages,
		Health:   hm,
	}, api.Options{
		LoginRateLimit: cfg.Auth.LoginRateLimit,
		TracingService: tracingService,
		EnableMetrics:  true,
		TrustedProxies: proxies,
	})
	if err != nil {
		return nil, err
	}

	rt.handler = srv.Handler()
	rt.registry = registry
	return rt, nil
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, log.WithComponent("session"))
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		return store, nil
	default:
		return session.NewMemoryStore(memorySweepInterval), nil
	}
}

func newEncoder(cfg config.EncodeConfig) (*encode.Encoder, error) {
	format, err := encode.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	scaler, err := encode.ParseScaler(cfg.Scaler)
	if err != nil {
		return nil, err
	}
	fit, err := encode.ParseFit(cfg.Fit)
	if err != nil {
		return nil, err
	}
	enc, err := encode.New(encode.Options{
		Format:       format,
		Quality:      cfg.Quality,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Fit:          fit,
		Scaler:       scaler,
		PrivacyLabel: cfg.PrivacyLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	return enc, nil
}
