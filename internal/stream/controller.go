// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stream runs the per-viewer capture, encode and write loop.
package stream

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ManuGH/boardcast/internal/capture"
	"github.com/ManuGH/boardcast/internal/encode"
	"github.com/ManuGH/boardcast/internal/metrics"
	"golang.org/x/time/rate"
)

var (
	// ErrNotAuthorized is returned by Run before Authorize succeeded.
	ErrNotAuthorized = errors.New("stream not authorized")
	// ErrWriteFailed wraps the error of the first failed write or flush.
	ErrWriteFailed = errors.New("stream write failed")
)

// State is the lifecycle of one viewer connection.
type State int32

const (
	StateAwaitingAuthorization State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingAuthorization:
		return "awaiting_authorization"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Close reasons reported in Stats and metrics.
const (
	ReasonClientGone    = "client_gone"
	ReasonWriteError    = "write_error"
	ReasonCaptureFailed = "capture_failed"
	ReasonEncodeFailed  = "encode_failed"
)

// FrameSource produces raw frames.
type FrameSource interface {
	Capture(ctx context.Context) (*capture.Frame, error)
	Bounds() image.Rectangle
}

// FrameEncoder turns raw frames into multipart payloads.
type FrameEncoder interface {
	Encode(ctx context.Context, f *capture.Frame) (*encode.Frame, error)
	PrivacyFrame(width, height int) (*encode.Frame, error)
	OutputSize(src image.Point) image.Point
	Format() encode.Format
}

// PrivacyFlag reports whether the placeholder replaces live frames.
type PrivacyFlag interface {
	PrivacyActive() bool
}

// Options tunes the loop.
type Options struct {
	// MaxFPS caps frames per viewer. 0 leaves the loop unthrottled.
	MaxFPS float64
	// PrivacyInterval paces placeholder frames. 0 sends them back to back.
	PrivacyInterval time.Duration
	// MaxConsecutiveFailures ends the loop after that many encode failures in a row.
	MaxConsecutiveFailures int
}

// Pipeline holds the collaborators shared by every viewer.
type Pipeline struct {
	source  FrameSource
	encoder FrameEncoder
	privacy PrivacyFlag
	opts    Options
}

// NewPipeline returns a Pipeline.
func NewPipeline(source FrameSource, encoder FrameEncoder, privacy PrivacyFlag, opts Options) *Pipeline {
	if opts.MaxConsecutiveFailures < 1 {
		opts.MaxConsecutiveFailures = encode.DefaultMaxConsecutiveFailures
	}
	return &Pipeline{source: source, encoder: encoder, privacy: privacy, opts: opts}
}

// Format is the codec of every live part.
func (p *Pipeline) Format() encode.Format { return p.encoder.Format() }

// NewController returns a controller for one connection, awaiting authorization.
func (p *Pipeline) NewController() *Controller {
	return &Controller{p: p}
}

// Stats summarizes a finished loop.
type Stats struct {
	Frames        int64
	PrivacyFrames int64
	Bytes         int64
	Reason        string
}

// Controller is the state machine of a single viewer connection.
// It is not safe for concurrent Run calls.
type Controller struct {
	p     *Pipeline
	state atomic.Int32
}

// State returns the current state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Authorize moves the controller from AwaitingAuthorization to Streaming.
func (c *Controller) Authorize() error {
	if !c.state.CompareAndSwap(int32(StateAwaitingAuthorization), int32(StateStreaming)) {
		return fmt.Errorf("authorize in state %s", c.State())
	}
	return nil
}

// Close moves the controller to Closed. It is idempotent.
func (c *Controller) Close() { c.state.Store(int32(StateClosed)) }

// Run writes parts to w until ctx ends or a write fails. flush, if set, is
// called after every part. A nil error means the viewer went away. Capture
// and repeated encode failures end only this viewer's loop.
func (c *Controller) Run(ctx context.Context, w io.Writer, flush func() error, onFrame func(bytes int)) (stats Stats, err error) {
	if c.State() != StateStreaming {
		return stats, ErrNotAuthorized
	}
	defer func() {
		c.Close()
		metrics.IncStreamClosed(stats.Reason)
	}()

	var limiter *rate.Limiter
	if c.p.opts.MaxFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.p.opts.MaxFPS), 1)
	}
	var privacyTicker *time.Ticker
	if c.p.opts.PrivacyInterval > 0 {
		privacyTicker = time.NewTicker(c.p.opts.PrivacyInterval)
		defer privacyTicker.Stop()
	}

	codec := string(c.p.encoder.Format())
	failures := 0
	for {
		if ctx.Err() != nil {
			stats.Reason = ReasonClientGone
			return stats, nil
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				stats.Reason = ReasonClientGone
				return stats, nil
			}
		}

		privacy := c.p.privacy.PrivacyActive()
		frame, err := c.nextFrame(ctx, privacy, codec)
		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			stats.Reason = ReasonClientGone
			return stats, nil
		case errors.Is(err, encode.ErrEncodeFailed):
			failures++
			if failures >= c.p.opts.MaxConsecutiveFailures {
				stats.Reason = ReasonEncodeFailed
				return stats, fmt.Errorf("%d consecutive encode failures: %w", failures, err)
			}
			continue
		default:
			stats.Reason = ReasonCaptureFailed
			return stats, err
		}

		n, err := WritePart(w, frame.ContentType, frame.Data)
		if err == nil && flush != nil {
			err = flush()
		}
		if err != nil {
			stats.Reason = ReasonWriteError
			if ctx.Err() != nil || IsExpectedWriteError(err) {
				stats.Reason = ReasonClientGone
			}
			return stats, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}

		stats.Frames++
		stats.Bytes += int64(n)
		kind := metrics.FrameLive
		if privacy {
			stats.PrivacyFrames++
			kind = metrics.FramePrivacy
		}
		metrics.ObserveFrame(kind, len(frame.Data))
		if onFrame != nil {
			onFrame(n)
		}

		if privacy && privacyTicker != nil {
			select {
			case <-ctx.Done():
			case <-privacyTicker.C:
			}
		}
	}
}

// nextFrame returns the placeholder or a fresh live frame. The raw capture is
// released before returning so nothing native is held across the write.
func (c *Controller) nextFrame(ctx context.Context, privacy bool, codec string) (*encode.Frame, error) {
	if privacy {
		size := c.p.encoder.OutputSize(c.p.source.Bounds().Size())
		return c.p.encoder.PrivacyFrame(size.X, size.Y)
	}

	start := time.Now()
	raw, err := c.p.source.Capture(ctx)
	metrics.ObserveCapture(time.Since(start), err)
	if err != nil {
		if !errors.Is(err, capture.ErrCaptureUnavailable) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", capture.ErrCaptureUnavailable, err)
		}
		return nil, err
	}

	start = time.Now()
	frame, err := c.p.encoder.Encode(ctx, raw)
	metrics.ObserveEncode(codec, time.Since(start), err)
	return frame, err
}

// IsExpectedWriteError reports errors caused by the viewer going away.
func IsExpectedWriteError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "write: connection timed out") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "client disconnected")
}
