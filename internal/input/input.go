// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package input forwards presentation key presses to the host.
package input

import (
	"context"
	"fmt"
)

// Signal is a single key press forwarded to the host.
type Signal string

const (
	SignalNext  Signal = "next"
	SignalPrev  Signal = "prev"
	SignalPause Signal = "pause"
)

// Injector delivers a signal to the host input system.
type Injector interface {
	Inject(ctx context.Context, sig Signal) error
	Name() string
}

// Options configures New.
type Options struct {
	Backend     string // log | xdotool
	XdotoolPath string
}

// New returns the configured injector.
func New(opts Options) (Injector, error) {
	switch opts.Backend {
	case "", "log":
		return NewLogInjector(), nil
	case "xdotool":
		return NewXdotool(opts.XdotoolPath)
	default:
		return nil, fmt.Errorf("unknown input backend %q", opts.Backend)
	}
}
