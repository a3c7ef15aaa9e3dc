// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"
	"time"
)

// Synthetic renders a deterministic moving test pattern. It backs headless
// hosts and tests; the n-th call always yields the same image.
type Synthetic struct {
	rect  image.Rectangle
	calls atomic.Uint64
}

// NewSynthetic returns a pattern source of the given size.
func NewSynthetic(width, height int) (*Synthetic, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("synthetic source size must be positive, got %dx%d", width, height)
	}
	return &Synthetic{rect: image.Rect(0, 0, width, height)}, nil
}

var barColors = []color.RGBA{
	{0xc0, 0xc0, 0xc0, 0xff},
	{0xc0, 0xc0, 0x00, 0xff},
	{0x00, 0xc0, 0xc0, 0xff},
	{0x00, 0xc0, 0x00, 0xff},
	{0xc0, 0x00, 0xc0, 0xff},
	{0xc0, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xc0, 0xff},
}

func (s *Synthetic) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.calls.Add(1) - 1
	return &Frame{Image: s.render(n), CapturedAt: time.Now()}, nil
}

// render draws colour bars plus a white marker column that advances by
// eight pixels per frame.
func (s *Synthetic) render(n uint64) *image.RGBA {
	w, h := s.rect.Dx(), s.rect.Dy()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	barWidth := (w + len(barColors) - 1) / len(barColors)
	marker := int(n*8) % w
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			c := barColors[x/barWidth]
			if x >= marker && x < marker+8 {
				c = color.RGBA{0xff, 0xff, 0xff, 0xff}
			}
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return img
}

func (s *Synthetic) Bounds() image.Rectangle { return s.rect }

func (s *Synthetic) Close() error { return nil }
