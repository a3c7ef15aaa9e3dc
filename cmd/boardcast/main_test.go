// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/boardcast/internal/config"
	"github.com/ManuGH/boardcast/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "boardcast "+version.String()+"\n", out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute(t, "config", "init", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	_, err = execute(t, "config", "init", "--file", path)
	require.ErrorIs(t, err, config.ErrConfigExists)

	_, err = execute(t, "config", "init", "--file", path, "--force")
	require.NoError(t, err)

	out, err = execute(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, config.EnvPIN, "default PIN is reported")

	t.Setenv(config.EnvPIN, "4821")
	t.Setenv(config.EnvSessionSecret, "a-real-secret")
	out, err = execute(t, "config", "validate", "--file", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "!")
}

func TestConfigValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("encode:\n  format: gif\n"), 0o600))

	_, err := execute(t, "config", "validate", "-f", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode.format")
}

func TestConfigDump_RedactsSecrets(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv(config.EnvPIN, "4821")
	t.Setenv(config.EnvSessionSecret, "top-secret")

	out, err := execute(t, "config", "dump", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "4821")
	assert.NotContains(t, out, "top-secret")

	var dumped config.AppConfig
	require.NoError(t, json.Unmarshal([]byte(out), &dumped))
	assert.Equal(t, redacted, dumped.Auth.PIN)

	out, err = execute(t, "config", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, "***")

	_, err = execute(t, "config", "dump", "--format", "toml")
	require.Error(t, err)
}

func TestHealthcheckCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/readyz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	out, err := execute(t, "healthcheck", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "healthcheck successful (ready)")

	_, err = execute(t, "healthcheck", "--url", srv.URL, "--mode", "live")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	_, err = execute(t, "healthcheck", "--url", srv.URL, "--mode", "sideways")
	require.Error(t, err)
}

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServe_SyntheticEndToEnd(t *testing.T) {
	addr := reserveListenAddr(t)
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("BOARDCAST_LISTEN", addr)
	t.Setenv("BOARDCAST_CAPTURE_SOURCE", "synthetic")
	t.Setenv(config.EnvPIN, "4821")
	t.Setenv(config.EnvSessionSecret, "serve-test-secret")

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"serve", "--env-file", filepath.Join(t.TempDir(), "missing.env")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	base := "http://" + addr
	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := client.PostForm(base+"/", url.Values{"pin": {"4821"}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Set-Cookie"), "boardcast_session="), resp.Header.Get("Set-Cookie"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not exit after cancellation")
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("BOARDCAST_CAPTURE_SOURCE", "camera")

	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"serve", "--env-file", filepath.Join(t.TempDir(), "missing.env")})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capture.source")
}
