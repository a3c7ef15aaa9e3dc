// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build unix

package input

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXdotool writes a shell script standing in for the real binary.
func fakeXdotool(t *testing.T, body string) (path, record string) {
	t.Helper()
	dir := t.TempDir()
	record = filepath.Join(dir, "calls")
	path = filepath.Join(dir, "xdotool")
	script := "#!/bin/sh\n" + strings.ReplaceAll(body, "$RECORD", record) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))
	return path, record
}

func TestXdotool_PressesMappedKeys(t *testing.T) {
	path, record := fakeXdotool(t, `echo "$@" >> $RECORD`)
	x, err := NewXdotool(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, x.Inject(ctx, SignalNext))
	require.NoError(t, x.Inject(ctx, SignalPrev))
	require.NoError(t, x.Inject(ctx, SignalPause))

	data, err := os.ReadFile(record)
	require.NoError(t, err)
	assert.Equal(t,
		"key --clearmodifiers Right\nkey --clearmodifiers Left\nkey --clearmodifiers space\n",
		string(data))
}

func TestXdotool_ReportsFailure(t *testing.T) {
	path, _ := fakeXdotool(t, `echo "Can't open display" >&2; exit 1`)
	x, err := NewXdotool(path)
	require.NoError(t, err)

	err = x.Inject(context.Background(), SignalNext)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't open display")
}

func TestXdotool_TimesOutHungHelper(t *testing.T) {
	path, _ := fakeXdotool(t, `sleep 10`)
	x, err := NewXdotool(path)
	require.NoError(t, err)
	x.timeout = 50 * time.Millisecond

	start := time.Now()
	err = x.Inject(context.Background(), SignalNext)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestXdotool_UnknownSignal(t *testing.T) {
	path, _ := fakeXdotool(t, `exit 0`)
	x, err := NewXdotool(path)
	require.NoError(t, err)
	assert.Error(t, x.Inject(context.Background(), Signal("shutdown")))
}
