// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/boardcast/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func reserveListenAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func waitForListen(t *testing.T, addr string) {
	t.Helper()
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 3*time.Second, 20*time.Millisecond, "server did not start listening on %s", addr)
}

func testServerConfig(addr string) config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     5 * time.Second,
		IdleTimeout:     5 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 3 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManager(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("valid", func(t *testing.T) {
		mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: logger, APIHandler: okHandler()})
		require.NoError(t, err)
		assert.NotNil(t, mgr)
	})

	t.Run("missing logger", func(t *testing.T) {
		_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{
			Logger:     zerolog.New(io.Discard).Level(zerolog.Disabled),
			APIHandler: okHandler(),
		})
		require.ErrorIs(t, err, ErrMissingLogger)
	})

	t.Run("missing handler", func(t *testing.T) {
		_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: logger})
		require.ErrorIs(t, err, ErrMissingAPIHandler)
	})

	t.Run("half TLS", func(t *testing.T) {
		_, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: logger, APIHandler: okHandler(), TLSCert: "cert.pem"})
		require.ErrorIs(t, err, ErrIncompleteTLS)
	})
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	mgr, err := NewManager(testServerConfig("127.0.0.1:0"), Deps{Logger: zerolog.New(io.Discard), APIHandler: okHandler()})
	require.NoError(t, err)
	require.ErrorIs(t, mgr.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	apiAddr := reserveListenAddr(t)
	metricsAddr := reserveListenAddr(t)

	mgr, err := NewManager(testServerConfig(apiAddr), Deps{
		Logger:         zerolog.New(io.Discard),
		APIHandler:     okHandler(),
		MetricsAddr:    metricsAddr,
		MetricsHandler: okHandler(),
	})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"first", "second", "third"} {
		mgr.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()

	waitForListen(t, apiAddr)
	waitForListen(t, metricsAddr)

	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + apiAddr + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	mgr, err := NewManager(testServerConfig(addr), Deps{Logger: zerolog.New(io.Discard), APIHandler: okHandler()})
	require.NoError(t, err)

	boom := errors.New("boom")
	ran := false
	mgr.RegisterShutdownHook("ok", func(context.Context) error { ran = true; return nil })
	mgr.RegisterShutdownHook("broken", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	waitForListen(t, addr)
	cancel()

	err = <-done
	require.ErrorIs(t, err, boom)
	assert.True(t, ran, "later hooks still run after a failure")
}

func TestManager_StartFailsOnBusyPort(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	mgr, err := NewManager(testServerConfig(ln.Addr().String()), Deps{Logger: zerolog.New(io.Discard), APIHandler: okHandler()})
	require.NoError(t, err)

	err = mgr.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server")
}

func TestManager_DrainsOpenStreams(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	addr := reserveListenAddr(t)
	drain := make(chan struct{})
	var drained atomic.Int32

	streaming := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "part\n")
		w.(http.Flusher).Flush()
		select {
		case <-drain:
		case <-r.Context().Done():
		}
	})

	mgr, err := NewManager(testServerConfig(addr), Deps{
		Logger:     zerolog.New(io.Discard),
		APIHandler: streaming,
		DrainStreams: func() int {
			drained.Add(1)
			close(drain)
			return 1
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Start(ctx) }()
	waitForListen(t, addr)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/video_feed")
	require.NoError(t, err)
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "part\n", line)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("open stream blocked shutdown")
	}
	_ = resp.Body.Close()
	client.CloseIdleConnections()

	assert.Equal(t, int32(1), drained.Load())
	assert.Less(t, time.Since(start), 3*time.Second, "shutdown should not wait for the timeout")
}
