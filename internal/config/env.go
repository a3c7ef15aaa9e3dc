// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/boardcast/internal/log"
	"github.com/rs/zerolog"
)

// sensitiveMarkers are substrings of env keys whose values must never be logged.
var sensitiveMarkers = []string{"pin", "secret", "password", "token"}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// lookupEnv returns the raw value of key and whether it is set to a non-empty value.
// Empty variables are treated as unset and logged as such.
func lookupEnv(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}

func logEnvUsed(logger zerolog.Logger, key string, value any) {
	evt := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Interface("value", value)
	}
	evt.Msg("using environment variable")
}

func logEnvInvalid(logger zerolog.Logger, key, raw, kind string) {
	evt := logger.Warn().Str("key", key)
	if !isSensitiveKey(key) {
		evt = evt.Str("value", raw)
	}
	evt.Msgf("invalid %s in environment variable, using default", kind)
}

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if v, ok := lookupEnv(logger, key); ok {
		logEnvUsed(logger, key, v)
		return v
	}
	return defaultValue
}

// LookupString is like ParseString but reports whether the value came from the environment.
func LookupString(key string) (string, bool) {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if ok {
		logEnvUsed(logger, key, v)
	}
	return v, ok
}

// ParseStringWithAlias reads key, falling back to the legacy alias when key is unset.
// Using the alias logs a deprecation warning.
func ParseStringWithAlias(key, alias, defaultValue string) string {
	if v, ok := LookupString(key); ok {
		return v
	}
	if alias == "" {
		return defaultValue
	}
	if v, ok := LookupString(alias); ok {
		logger := log.WithComponent("config")
		logger.Warn().
			Str("key", alias).
			Str("replacement", key).
			Msg("deprecated environment variable in use")
		return v
	}
	return defaultValue
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logEnvInvalid(logger, key, v, "integer")
		return defaultValue
	}
	logEnvUsed(logger, key, i)
	return i
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logEnvInvalid(logger, key, v, "float")
		return defaultValue
	}
	logEnvUsed(logger, key, f)
	return f
}

// ParseDuration reads a duration from environment variable in Go duration format (e.g. "5s").
// It falls back to default on parse errors or empty variables and logs the choice.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logEnvInvalid(logger, key, v, "duration")
		return defaultValue
	}
	logEnvUsed(logger, key, d.String())
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := lookupEnv(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logEnvUsed(logger, key, true)
		return true
	case "false", "0", "no":
		logEnvUsed(logger, key, false)
		return false
	default:
		logEnvInvalid(logger, key, v, "boolean")
		return defaultValue
	}
}
