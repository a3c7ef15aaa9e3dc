// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/kbinani/screenshot"
)

// Screen captures a rectangle of the local desktop.
type Screen struct {
	region RegionSpec
	rect   image.Rectangle
	grab   func(image.Rectangle) (*image.RGBA, error)
}

// NewScreen resolves the region against the currently active displays.
func NewScreen(spec RegionSpec) (*Screen, error) {
	n := screenshot.NumActiveDisplays()
	displays := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		displays = append(displays, screenshot.GetDisplayBounds(i))
	}
	rect, err := ResolveRegion(spec, displays)
	if err != nil {
		return nil, err
	}
	return &Screen{region: spec, rect: rect, grab: screenshot.CaptureRect}, nil
}

// Capture grabs the configured rectangle. The underlying connection and
// shared-memory segment are owned by the screenshot call and released before
// it returns.
func (s *Screen) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := s.grab(s.rect)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCaptureUnavailable, s.region, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: %s: empty image", ErrCaptureUnavailable, s.region)
	}
	return &Frame{Image: img, CapturedAt: time.Now()}, nil
}

func (s *Screen) Bounds() image.Rectangle { return s.rect }

func (s *Screen) Close() error { return nil }
