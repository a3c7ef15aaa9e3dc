// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capture produces raw desktop frames.
//
// A Source is safe for concurrent use: every viewer connection calls Capture
// from its own goroutine. Native handles acquired by an implementation are
// scoped to a single call and released on every return path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
	"time"
)

// ErrCaptureUnavailable is returned when the capture mechanism can no longer
// produce frames. Callers treat it as fatal for the current viewer only.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Frame is one raw capture. Ownership passes to the caller.
type Frame struct {
	Image      *image.RGBA
	CapturedAt time.Time
}

// Size returns the frame dimensions, or the zero point for an empty frame.
func (f *Frame) Size() image.Point {
	if f == nil || f.Image == nil {
		return image.Point{}
	}
	return f.Image.Bounds().Size()
}

// Source captures frames of a fixed region.
type Source interface {
	Capture(ctx context.Context) (*Frame, error)
	Bounds() image.Rectangle
	Close() error
}

// RegionKind selects which displays make up the capture region.
type RegionKind string

const (
	RegionPrimary RegionKind = "primary"
	RegionVirtual RegionKind = "virtual"
	RegionDisplay RegionKind = "display"
)

// RegionSpec is the configured, not yet resolved, capture region.
type RegionSpec struct {
	Kind    RegionKind
	Display int
}

func (r RegionSpec) String() string {
	if r.Kind == RegionDisplay {
		return "display:" + strconv.Itoa(r.Display)
	}
	return string(r.Kind)
}

// ParseRegion parses "primary", "virtual" or "display:N".
func ParseRegion(s string) (RegionSpec, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", string(RegionVirtual):
		return RegionSpec{Kind: RegionVirtual}, nil
	case string(RegionPrimary):
		return RegionSpec{Kind: RegionPrimary}, nil
	}
	if rest, ok := strings.CutPrefix(s, "display:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return RegionSpec{}, fmt.Errorf("invalid display index %q", rest)
		}
		return RegionSpec{Kind: RegionDisplay, Display: n}, nil
	}
	return RegionSpec{}, fmt.Errorf("invalid capture region %q", s)
}

// ResolveRegion maps a region spec onto concrete display bounds.
// displays[0] is the primary display.
func ResolveRegion(spec RegionSpec, displays []image.Rectangle) (image.Rectangle, error) {
	if len(displays) == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	switch spec.Kind {
	case RegionPrimary:
		return displays[0], nil
	case RegionDisplay:
		if spec.Display >= len(displays) {
			return image.Rectangle{}, fmt.Errorf("display %d not found (%d active)", spec.Display, len(displays))
		}
		return displays[spec.Display], nil
	default:
		union := displays[0]
		for _, d := range displays[1:] {
			union = union.Union(d)
		}
		return union, nil
	}
}

// Options configures New.
type Options struct {
	Kind            string // screen | synthetic
	Region          string
	MaxInFlight     int
	SyntheticWidth  int
	SyntheticHeight int
}

// New builds the configured source wrapped in a Guard.
func New(opts Options) (*Guard, error) {
	var (
		src Source
		err error
	)
	switch opts.Kind {
	case "", "screen":
		var spec RegionSpec
		spec, err = ParseRegion(opts.Region)
		if err != nil {
			return nil, err
		}
		src, err = NewScreen(spec)
	case "synthetic":
		src, err = NewSynthetic(opts.SyntheticWidth, opts.SyntheticHeight)
	default:
		err = fmt.Errorf("unknown capture source %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}
	return NewGuard(src, opts.MaxInFlight), nil
}
