// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"sync"

	"github.com/ManuGH/boardcast/internal/log"
)

// LogInjector only records signals. It is the default on headless hosts.
type LogInjector struct {
	mu   sync.Mutex
	sent []Signal
}

func NewLogInjector() *LogInjector { return &LogInjector{} }

func (l *LogInjector) Name() string { return "log" }

func (l *LogInjector) Inject(ctx context.Context, sig Signal) error {
	l.mu.Lock()
	l.sent = append(l.sent, sig)
	l.mu.Unlock()

	logger := log.WithComponentFromContext(ctx, "input")
	logger.Info().
		Str(log.FieldEvent, "input.injected").
		Str("signal", string(sig)).
		Msg("input signal recorded")
	return nil
}

// Sent returns a copy of every recorded signal in delivery order.
func (l *LogInjector) Sent() []Signal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Signal(nil), l.sent...)
}
