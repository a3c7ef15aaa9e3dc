// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the boardcast configuration with the precedence
// ENV > YAML file > defaults.
package config

import "time"

// Built-in fallbacks. The PIN and session secret defaults are insecure and only
// acceptable for a local, short-lived share; using them produces startup warnings.
const (
	DefaultPIN           = "1234"
	DefaultSessionSecret = "change-this-to-something-random"
	DefaultListenAddr    = "0.0.0.0:5000"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Server   ServerSection  `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Capture  CaptureConfig  `yaml:"capture"`
	Encode   EncodeConfig   `yaml:"encode"`
	Stream   StreamConfig   `yaml:"stream"`
	Input    InputConfig    `yaml:"input"`
	Commands CommandsConfig `yaml:"commands"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// ServerSection holds the HTTP listener settings as they appear in YAML.
type ServerSection struct {
	Listen          string        `yaml:"listen"`
	BindInterface   string        `yaml:"bind_interface,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	TLSCert         string        `yaml:"tls_cert,omitempty"`
	TLSKey          string        `yaml:"tls_key,omitempty"`
	// TLSAuto generates a self-signed pair at TLSCert/TLSKey (or the default
	// paths) when none exists yet.
	TLSAuto  bool     `yaml:"tls_auto,omitempty"`
	TLSHosts []string `yaml:"tls_hosts,omitempty"`
	// TrustedProxies may assert HTTPS via X-Forwarded-Proto (CIDRs or bare IPs).
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// AuthConfig configures the PIN gate.
type AuthConfig struct {
	PIN           string        `yaml:"pin,omitempty"`
	SessionSecret string        `yaml:"session_secret,omitempty"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	// LoginRateLimit caps PIN submissions per client IP per minute. 0 disables it.
	LoginRateLimit int `yaml:"login_rate_limit"`
}

// SessionConfig selects the session credential store.
type SessionConfig struct {
	Backend       string `yaml:"backend"` // memory | redis
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// CaptureConfig selects the frame source and capture region.
type CaptureConfig struct {
	Source      string `yaml:"source"` // screen | synthetic
	Region      string `yaml:"region"` // primary | virtual | display:N
	MaxInFlight int    `yaml:"max_in_flight"`
	// SyntheticWidth/Height size the synthetic test pattern.
	SyntheticWidth  int `yaml:"synthetic_width"`
	SyntheticHeight int `yaml:"synthetic_height"`
}

// EncodeConfig fixes the output codec for the whole process.
type EncodeConfig struct {
	Format                 string `yaml:"format"` // jpeg | webp
	Quality                int    `yaml:"quality"`
	Width                  int    `yaml:"width"`
	Height                 int    `yaml:"height"`
	Fit                    string `yaml:"fit"`    // stretch | letterbox | contain
	Scaler                 string `yaml:"scaler"` // bilinear | nearest
	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures"`
	PrivacyLabel           string `yaml:"privacy_label"`
}

// StreamConfig tunes the per-viewer streaming loop.
type StreamConfig struct {
	// MaxFPS limits frames per viewer. 0 leaves the loop unthrottled.
	MaxFPS float64 `yaml:"max_fps"`
	// PrivacyInterval paces placeholder frames while blackout is active.
	PrivacyInterval time.Duration `yaml:"privacy_interval"`
}

// InputConfig selects the host input-injection backend.
type InputConfig struct {
	Backend     string `yaml:"backend"` // log | xdotool
	XdotoolPath string `yaml:"xdotool_path"`
	QueueSize   int    `yaml:"queue_size"`
}

// CommandsConfig controls command channel compatibility behaviour.
type CommandsConfig struct {
	LegacyUnknownSuccess bool `yaml:"legacy_unknown_success"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"` // "" | grpc | http
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
	Environment string  `yaml:"environment"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerSection{
			Listen:          DefaultListenAddr,
			ReadTimeout:     defaultReadTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
			MaxHeaderBytes:  defaultMaxHeaderBytes,
		},
		Auth: AuthConfig{
			PIN:           DefaultPIN,
			SessionSecret: DefaultSessionSecret,
			SessionTTL:    12 * time.Hour,
		},
		Session: SessionConfig{
			Backend:   "memory",
			KeyPrefix: "boardcast:session:",
		},
		Capture: CaptureConfig{
			Source:          "screen",
			Region:          "virtual",
			SyntheticWidth:  1920,
			SyntheticHeight: 1080,
		},
		Encode: EncodeConfig{
			Format:                 "jpeg",
			Quality:                70,
			Width:                  1280,
			Height:                 720,
			Fit:                    "stretch",
			Scaler:                 "bilinear",
			MaxConsecutiveFailures: 5,
			PrivacyLabel:           "PRIVACY MODE",
		},
		Stream: StreamConfig{
			PrivacyInterval: 200 * time.Millisecond,
		},
		Input: InputConfig{
			Backend:     "log",
			XdotoolPath: "xdotool",
			QueueSize:   16,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "boardcast",
		},
		Tracing: TracingConfig{
			SampleRate:  1.0,
			Environment: "local",
		},
	}
}
