// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ManuGH/boardcast/internal/procgroup"
)

const (
	defaultXdotoolTimeout = 2 * time.Second
	xdotoolKillGrace      = 250 * time.Millisecond
)

var xdotoolKeys = map[Signal]string{
	SignalNext:  "Right",
	SignalPrev:  "Left",
	SignalPause: "space",
}

// Xdotool presses keys on the X11 display via the xdotool binary.
type Xdotool struct {
	path    string
	timeout time.Duration
}

// NewXdotool resolves the binary on PATH.
func NewXdotool(path string) (*Xdotool, error) {
	if path == "" {
		path = "xdotool"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("xdotool not available: %w", err)
	}
	return &Xdotool{path: resolved, timeout: defaultXdotoolTimeout}, nil
}

func (x *Xdotool) Name() string { return "xdotool" }

// Inject runs "xdotool key <key>". A helper that outlives the timeout is
// terminated together with its process group.
func (x *Xdotool) Inject(ctx context.Context, sig Signal) error {
	key, ok := xdotoolKeys[sig]
	if !ok {
		return fmt.Errorf("no key mapping for signal %q", sig)
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	// #nosec G204 -- binary path comes from operator config, key from a fixed table
	cmd := exec.Command(x.path, "key", "--clearmodifiers", key)
	procgroup.Set(cmd)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start xdotool: %w", err)
	}
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case err := <-waitCh:
		if err != nil {
			return fmt.Errorf("xdotool key %s: %w: %s", key, err, strings.TrimSpace(stderr.String()))
		}
		return nil
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, xdotoolKillGrace)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("xdotool key %s: timed out after %s", key, x.timeout)
		}
		return ctx.Err()
	}
}
