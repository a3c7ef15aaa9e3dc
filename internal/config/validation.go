// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Validate checks a resolved configuration. All problems are reported at once,
// joined and wrapped in ErrInvalidConfig.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, _, err := net.SplitHostPort(cfg.Server.Listen); err != nil {
		add("server.listen %q: %v", cfg.Server.Listen, err)
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		add("server.tls_cert and server.tls_key must be set together")
	}
	for _, p := range cfg.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			add("server.trusted_proxies: %q is neither an IP nor a CIDR", p)
		}
	}
	if cfg.Server.ShutdownTimeout < 0 || cfg.Server.ReadTimeout < 0 || cfg.Server.IdleTimeout < 0 {
		add("server timeouts must not be negative")
	}

	if strings.TrimSpace(cfg.Auth.SessionSecret) == "" {
		add("auth.session_secret must not be empty")
	}
	if cfg.Auth.SessionTTL <= 0 {
		add("auth.session_ttl must be positive, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.LoginRateLimit < 0 {
		add("auth.login_rate_limit must be >= 0, got %d", cfg.Auth.LoginRateLimit)
	}

	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if cfg.Session.RedisAddr == "" {
			add("session.redis_addr is required for the redis backend")
		}
	default:
		add("session.backend %q: want memory or redis", cfg.Session.Backend)
	}

	switch cfg.Capture.Source {
	case "screen", "synthetic":
	default:
		add("capture.source %q: want screen or synthetic", cfg.Capture.Source)
	}
	if err := validateRegion(cfg.Capture.Region); err != nil {
		errs = append(errs, err)
	}
	if cfg.Capture.MaxInFlight < 0 {
		add("capture.max_in_flight must be >= 0, got %d", cfg.Capture.MaxInFlight)
	}
	if cfg.Capture.Source == "synthetic" && (cfg.Capture.SyntheticWidth <= 0 || cfg.Capture.SyntheticHeight <= 0) {
		add("capture.synthetic_width/height must be positive")
	}

	switch cfg.Encode.Format {
	case "jpeg", "webp":
	default:
		add("encode.format %q: want jpeg or webp", cfg.Encode.Format)
	}
	if cfg.Encode.Quality < 1 || cfg.Encode.Quality > 100 {
		add("encode.quality must be in [1,100], got %d", cfg.Encode.Quality)
	}
	if cfg.Encode.Width < 0 || cfg.Encode.Height < 0 {
		add("encode.width/height must be >= 0 (0 keeps the native size), got %dx%d", cfg.Encode.Width, cfg.Encode.Height)
	}
	switch cfg.Encode.Fit {
	case "stretch", "letterbox", "contain":
	default:
		add("encode.fit %q: want stretch, letterbox or contain", cfg.Encode.Fit)
	}
	switch cfg.Encode.Scaler {
	case "bilinear", "nearest":
	default:
		add("encode.scaler %q: want bilinear or nearest", cfg.Encode.Scaler)
	}
	if cfg.Encode.MaxConsecutiveFailures < 1 {
		add("encode.max_consecutive_failures must be >= 1, got %d", cfg.Encode.MaxConsecutiveFailures)
	}

	if cfg.Stream.MaxFPS < 0 {
		add("stream.max_fps must be >= 0, got %g", cfg.Stream.MaxFPS)
	}
	if cfg.Stream.PrivacyInterval < 0 {
		add("stream.privacy_interval must be >= 0, got %s", cfg.Stream.PrivacyInterval)
	}

	switch cfg.Input.Backend {
	case "log", "xdotool":
	default:
		add("input.backend %q: want log or xdotool", cfg.Input.Backend)
	}
	if cfg.Input.QueueSize < 1 {
		add("input.queue_size must be >= 1, got %d", cfg.Input.QueueSize)
	}

	if cfg.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			add("metrics.listen %q: %v", cfg.Metrics.Listen, err)
		}
	}

	switch cfg.Tracing.Exporter {
	case "", "grpc", "http":
	default:
		add("tracing.exporter %q: want grpc, http or empty", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		add("tracing.sample_rate must be in [0,1], got %g", cfg.Tracing.SampleRate)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func validateRegion(region string) error {
	switch {
	case region == "primary", region == "virtual":
		return nil
	case strings.HasPrefix(region, "display:"):
		n, err := strconv.Atoi(strings.TrimPrefix(region, "display:"))
		if err != nil || n < 0 {
			return fmt.Errorf("capture.region %q: display index must be a non-negative integer", region)
		}
		return nil
	default:
		return fmt.Errorf("capture.region %q: want primary, virtual or display:N", region)
	}
}
