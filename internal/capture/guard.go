// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/boardcast/internal/log"
	"golang.org/x/sync/semaphore"
)

// Guard wraps a Source. It bounds the number of in-flight native captures,
// turns backend panics into ErrCaptureUnavailable and refuses calls after Close.
type Guard struct {
	src      Source
	sem      *semaphore.Weighted // nil = unlimited
	inFlight atomic.Int64
	closed   atomic.Bool
	once     sync.Once
	closeErr error
}

// NewGuard wraps src. maxInFlight <= 0 means unlimited.
func NewGuard(src Source, maxInFlight int) *Guard {
	g := &Guard{src: src}
	if maxInFlight > 0 {
		g.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	return g
}

func (g *Guard) Capture(ctx context.Context) (frame *Frame, err error) {
	if g.closed.Load() {
		return nil, fmt.Errorf("%w: source closed", ErrCaptureUnavailable)
	}
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer g.sem.Release(1)
	}

	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			logger := log.WithComponent("capture")
			logger.Error().
				Str("event", "capture.panic").
				Interface("panic", r).
				Msg("capture backend panicked")
			frame = nil
			err = fmt.Errorf("%w: backend panic: %v", ErrCaptureUnavailable, r)
		}
	}()

	return g.src.Capture(ctx)
}

// InFlight reports captures currently executing.
func (g *Guard) InFlight() int64 { return g.inFlight.Load() }

func (g *Guard) Bounds() image.Rectangle { return g.src.Bounds() }

// Close closes the wrapped source once. Later captures fail.
func (g *Guard) Close() error {
	g.once.Do(func() {
		g.closed.Store(true)
		g.closeErr = g.src.Close()
	})
	return g.closeErr
}
