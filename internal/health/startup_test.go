// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/boardcast/internal/config"
)

func TestPerformStartupChecks_Defaults(t *testing.T) {
	require.NoError(t, PerformStartupChecks(context.Background(), config.Defaults()))
}

func TestPerformStartupChecks_InvalidListen(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.Listen = "nope"
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))

	cfg = config.Defaults()
	cfg.Metrics.Listen = "127.0.0.1:99999"
	assert.Error(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_TLS(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))

	cfg := config.Defaults()
	cfg.Server.TLSCert = cert
	assert.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "both cert and key")

	cfg.Server.TLSKey = key
	assert.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "TLS key error")

	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))
	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_Xdotool(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	cfg := config.Defaults()
	cfg.Input.Backend = "xdotool"

	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.ErrorContains(t, PerformStartupChecks(context.Background(), cfg), "xdotool binary not found")

	lookPath = func(p string) (string, error) { return "/usr/bin/" + p, nil }
	assert.NoError(t, PerformStartupChecks(context.Background(), cfg))
}

func TestPerformStartupChecks_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, PerformStartupChecks(ctx, config.Defaults()), context.Canceled)
}
