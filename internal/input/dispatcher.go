// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package input

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/boardcast/internal/log"
	"github.com/ManuGH/boardcast/internal/metrics"
	"github.com/rs/zerolog"
)

const dropLogEvery = 100

// Dispatcher delivers signals to an Injector from a single worker goroutine,
// preserving arrival order. Send never blocks the caller.
type Dispatcher struct {
	injector Injector
	queue    chan Signal
	logger   zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Uint64
}

// NewDispatcher starts the worker. queueSize < 1 is treated as 1.
func NewDispatcher(injector Injector, queueSize int) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		injector: injector,
		queue:    make(chan Signal, queueSize),
		logger:   log.WithComponent("input"),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Send enqueues sig. It reports false when the signal was dropped because the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Send(sig Signal) bool {
	if d.closed.Load() {
		return false
	}
	select {
	case d.queue <- sig:
		return true
	default:
		metrics.IncInputDropped()
		if n := d.dropped.Add(1); n%dropLogEvery == 1 {
			d.logger.Warn().
				Str(log.FieldEvent, "input.dropped").
				Str("signal", string(sig)).
				Uint64("dropped", n).
				Msg("input queue full, dropping signal")
		}
		return false
	}
}

// Dropped returns the number of signals dropped on a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			return
		case sig := <-d.queue:
			if err := d.injector.Inject(d.ctx, sig); err != nil {
				metrics.IncInputInjected(string(sig), "error")
				d.logger.Warn().Err(err).
					Str(log.FieldEvent, "input.failed").
					Str("signal", string(sig)).
					Str("backend", d.injector.Name()).
					Msg("input injection failed")
				continue
			}
			metrics.IncInputInjected(string(sig), "success")
		}
	}
}

// Close stops the worker and waits for it to exit. Queued signals are discarded.
func (d *Dispatcher) Close() error {
	d.once.Do(func() {
		d.closed.Store(true)
		d.cancel()
	})
	<-d.done
	return nil
}
