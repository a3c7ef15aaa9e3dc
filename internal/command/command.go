// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package command maps viewer remote-control actions onto presentation state
// and host input. Callers must have authorized the request beforehand.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/boardcast/internal/input"
	"github.com/ManuGH/boardcast/internal/log"
	"github.com/ManuGH/boardcast/internal/metrics"
)

// ErrUnknownAction is returned for actions outside the supported set.
var ErrUnknownAction = errors.New("unknown action")

// Action names accepted by Handle.
const (
	ActionNext     = "next"
	ActionPrev     = "prev"
	ActionPause    = "pause"
	ActionSpace    = "space"
	ActionBlackout = "blackout"
)

// StatusSuccess is the status reported for every handled action.
const StatusSuccess = "success"

// Result is the outcome reported back to the viewer. Blackout always carries
// the privacy flag as it is after the action.
type Result struct {
	Status   string `json:"status"`
	Blackout bool   `json:"blackout"`
}

// Sender accepts input signals without blocking.
type Sender interface {
	Send(sig input.Signal) bool
}

// Presentation is the shared privacy flag.
type Presentation interface {
	PrivacyActive() bool
	Toggle() bool
}

// Options configures a Channel.
type Options struct {
	// LegacyUnknownSuccess makes unknown actions succeed as no-ops.
	LegacyUnknownSuccess bool
}

// Channel dispatches actions.
type Channel struct {
	input        Sender
	presentation Presentation
	opts         Options
}

// New returns a Channel.
func New(sender Sender, presentation Presentation, opts Options) *Channel {
	return &Channel{input: sender, presentation: presentation, opts: opts}
}

var signals = map[string]input.Signal{
	ActionNext:  input.SignalNext,
	ActionPrev:  input.SignalPrev,
	ActionPause: input.SignalPause,
	ActionSpace: input.SignalPause,
}

// Handle performs action. Key presses are fire-and-forget: a dropped or failed
// injection still reports success to the viewer.
func (c *Channel) Handle(ctx context.Context, action string) (Result, error) {
	logger := log.WithComponentFromContext(ctx, "command")

	if action == ActionBlackout {
		active := c.presentation.Toggle()
		metrics.IncCommand(action, "success")
		logger.Info().
			Str(log.FieldEvent, "command.blackout").
			Bool(log.FieldBlackout, active).
			Msg("privacy mode toggled")
		return Result{Status: StatusSuccess, Blackout: active}, nil
	}

	if sig, ok := signals[action]; ok {
		queued := c.input.Send(sig)
		metrics.IncCommand(action, "success")
		logger.Debug().
			Str(log.FieldEvent, "command.input").
			Str(log.FieldAction, action).
			Bool("queued", queued).
			Msg("input signal forwarded")
		return Result{Status: StatusSuccess, Blackout: c.presentation.PrivacyActive()}, nil
	}

	if c.opts.LegacyUnknownSuccess {
		metrics.IncCommand(action, "ignored")
		return Result{Status: StatusSuccess, Blackout: c.presentation.PrivacyActive()}, nil
	}
	metrics.IncCommand(action, "error")
	logger.Warn().
		Str(log.FieldEvent, "command.unknown").
		Int("action_len", len(action)).
		Msg("rejected unknown action")
	return Result{Status: "error", Blackout: c.presentation.PrivacyActive()}, fmt.Errorf("%w: %q", ErrUnknownAction, truncate(action, 32))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
