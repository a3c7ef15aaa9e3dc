// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when the target exists and force is false.
var ErrConfigExists = errors.New("config file already exists")

// MarshalDefault renders the default configuration as YAML.
// Secrets are left empty so that generated files never carry the insecure fallbacks.
func MarshalDefault() ([]byte, error) {
	cfg := Defaults()
	cfg.Auth.PIN = ""
	cfg.Auth.SessionSecret = ""

	var buf bytes.Buffer
	buf.WriteString("# boardcast configuration\n")
	buf.WriteString("# auth.pin and auth.session_secret are better supplied via SCREEN_PIN and SCREEN_SESSION_SECRET.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefault atomically writes the default configuration to path.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}
	data, err := MarshalDefault()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
