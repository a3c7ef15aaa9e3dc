// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encode

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// Scaler selects the resampling kernel.
type Scaler string

const (
	ScalerNearest  Scaler = "nearest"
	ScalerBilinear Scaler = "bilinear"
)

// ParseScaler accepts "nearest" and "bilinear".
func ParseScaler(s string) (Scaler, error) {
	sc := Scaler(strings.ToLower(strings.TrimSpace(s)))
	if sc == "" {
		return ScalerBilinear, nil
	}
	if _, err := sc.interpolator(); err != nil {
		return "", err
	}
	return sc, nil
}

func (s Scaler) interpolator() (draw.Interpolator, error) {
	switch s {
	case ScalerNearest:
		return draw.NearestNeighbor, nil
	case ScalerBilinear:
		return draw.BiLinear, nil
	default:
		return nil, fmt.Errorf("unsupported scaler %q", s)
	}
}

// scale resamples src into dr of dst. Pixels of dst outside dr are painted
// black, since pooled buffers may hold an earlier frame.
func (s Scaler) scale(dst *image.RGBA, dr image.Rectangle, src image.Image) error {
	interp, err := s.interpolator()
	if err != nil {
		return err
	}
	if dr != dst.Bounds() {
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	}
	interp.Scale(dst, dr, src, src.Bounds(), draw.Src, nil)
	return nil
}

// Fit selects how a capture is mapped onto the configured output resolution.
type Fit string

const (
	// FitStretch scales to exactly the output resolution.
	FitStretch Fit = "stretch"
	// FitLetterbox keeps the aspect ratio and pads to the output resolution.
	FitLetterbox Fit = "letterbox"
	// FitContain keeps the aspect ratio and only ever scales down, so the
	// output resolution is an upper bound.
	FitContain Fit = "contain"
)

// ParseFit accepts "stretch", "letterbox" and "contain".
func ParseFit(s string) (Fit, error) {
	switch f := Fit(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FitStretch, nil
	case FitStretch, FitLetterbox, FitContain:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported fit %q", s)
	}
}

const defaultPoolSize = 8

// bufferPool is a bounded free list of scaling targets. Buffers of a size
// other than the requested one are dropped, so a resolution change drains
// the pool naturally.
type bufferPool struct {
	free chan *image.RGBA
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{free: make(chan *image.RGBA, size)}
}

func (p *bufferPool) get(size image.Point) *image.RGBA {
	for {
		select {
		case img := <-p.free:
			if img.Bounds().Size() == size {
				return img
			}
		default:
			return image.NewRGBA(image.Rectangle{Max: size})
		}
	}
}

func (p *bufferPool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	select {
	case p.free <- img:
	default:
	}
}
