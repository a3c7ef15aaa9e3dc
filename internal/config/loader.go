// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. SCREEN_PIN and FLASK_SECRET_KEY are the names the
// launcher has always exported; they are kept verbatim.
const (
	EnvPIN                 = "SCREEN_PIN"
	EnvSessionSecret       = "SCREEN_SESSION_SECRET"
	EnvLegacySessionSecret = "FLASK_SECRET_KEY"
	EnvConfigPath          = "BOARDCAST_CONFIG"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are never overridden. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The returned config has been validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFile decodes a YAML file strictly on top of dst.
func (l *Loader) loadFile(path string, dst *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies environment overrides (highest priority).
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Server.Listen = ParseString("BOARDCAST_LISTEN", cfg.Server.Listen)
	cfg.Server.BindInterface = ParseString("BOARDCAST_BIND_INTERFACE", cfg.Server.BindInterface)
	cfg.Server.ReadTimeout = ParseDuration("BOARDCAST_SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.IdleTimeout = ParseDuration("BOARDCAST_SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.ShutdownTimeout = ParseDuration("BOARDCAST_SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.TLSCert = ParseString("BOARDCAST_TLS_CERT", cfg.Server.TLSCert)
	cfg.Server.TLSKey = ParseString("BOARDCAST_TLS_KEY", cfg.Server.TLSKey)
	cfg.Server.TLSAuto = ParseBool("BOARDCAST_TLS_AUTO", cfg.Server.TLSAuto)
	if hosts, ok := LookupString("BOARDCAST_TLS_HOSTS"); ok {
		cfg.Server.TLSHosts = splitCSV(hosts)
	}
	if proxies, ok := LookupString("BOARDCAST_TRUSTED_PROXIES"); ok {
		cfg.Server.TrustedProxies = splitCSV(proxies)
	}

	cfg.Auth.PIN = ParseString(EnvPIN, cfg.Auth.PIN)
	cfg.Auth.SessionSecret = ParseStringWithAlias(EnvSessionSecret, EnvLegacySessionSecret, cfg.Auth.SessionSecret)
	cfg.Auth.SessionTTL = ParseDuration("BOARDCAST_SESSION_TTL", cfg.Auth.SessionTTL)
	cfg.Auth.LoginRateLimit = ParseInt("BOARDCAST_LOGIN_RATE_LIMIT", cfg.Auth.LoginRateLimit)

	cfg.Session.Backend = ParseString("BOARDCAST_SESSION_BACKEND", cfg.Session.Backend)
	cfg.Session.RedisAddr = ParseString("BOARDCAST_REDIS_ADDR", cfg.Session.RedisAddr)
	cfg.Session.RedisPassword = ParseString("BOARDCAST_REDIS_PASSWORD", cfg.Session.RedisPassword)
	cfg.Session.RedisDB = ParseInt("BOARDCAST_REDIS_DB", cfg.Session.RedisDB)

	cfg.Capture.Source = ParseString("BOARDCAST_CAPTURE_SOURCE", cfg.Capture.Source)
	cfg.Capture.Region = ParseString("BOARDCAST_CAPTURE_REGION", cfg.Capture.Region)
	cfg.Capture.MaxInFlight = ParseInt("BOARDCAST_CAPTURE_MAX_IN_FLIGHT", cfg.Capture.MaxInFlight)

	cfg.Encode.Format = ParseString("BOARDCAST_ENCODE_FORMAT", cfg.Encode.Format)
	cfg.Encode.Quality = ParseInt("BOARDCAST_ENCODE_QUALITY", cfg.Encode.Quality)
	cfg.Encode.Width = ParseInt("BOARDCAST_ENCODE_WIDTH", cfg.Encode.Width)
	cfg.Encode.Height = ParseInt("BOARDCAST_ENCODE_HEIGHT", cfg.Encode.Height)
	cfg.Encode.Fit = ParseString("BOARDCAST_ENCODE_FIT", cfg.Encode.Fit)
	cfg.Encode.Scaler = ParseString("BOARDCAST_ENCODE_SCALER", cfg.Encode.Scaler)

	cfg.Stream.MaxFPS = ParseFloat("BOARDCAST_STREAM_MAX_FPS", cfg.Stream.MaxFPS)
	cfg.Stream.PrivacyInterval = ParseDuration("BOARDCAST_STREAM_PRIVACY_INTERVAL", cfg.Stream.PrivacyInterval)

	cfg.Input.Backend = ParseString("BOARDCAST_INPUT_BACKEND", cfg.Input.Backend)
	cfg.Input.XdotoolPath = ParseString("BOARDCAST_XDOTOOL_PATH", cfg.Input.XdotoolPath)

	cfg.Commands.LegacyUnknownSuccess = ParseBool("BOARDCAST_LEGACY_UNKNOWN_COMMANDS", cfg.Commands.LegacyUnknownSuccess)

	cfg.Log.Level = ParseString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = ParseString("LOG_SERVICE", cfg.Log.Service)

	cfg.Metrics.Listen = ParseString("BOARDCAST_METRICS_LISTEN", cfg.Metrics.Listen)

	cfg.Tracing.Exporter = ParseString("BOARDCAST_TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString("BOARDCAST_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = ParseFloat("BOARDCAST_TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)
}

// Warnings reports insecure-but-allowed settings. Each entry wraps ErrMisconfiguredSecret.
func Warnings(cfg AppConfig) []error {
	var out []error
	if cfg.Auth.PIN == DefaultPIN {
		out = append(out, fmt.Errorf("%w: %s not set, using default PIN", ErrMisconfiguredSecret, EnvPIN))
	}
	if cfg.Auth.SessionSecret == DefaultSessionSecret {
		out = append(out, fmt.Errorf("%w: %s not set, cookies are signed with a well-known secret", ErrMisconfiguredSecret, EnvSessionSecret))
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
