// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package encode turns raw captures into still images for the multipart feed.
package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"
	"sync"

	"github.com/ManuGH/boardcast/internal/capture"
	"github.com/chai2010/webp"
	"golang.org/x/sync/singleflight"
)

// ErrEncodeFailed marks a frame that could not be encoded. The caller skips it.
var ErrEncodeFailed = errors.New("encode failed")

// DefaultMaxConsecutiveFailures is the number of back-to-back encode failures
// after which a viewer loop gives up.
const DefaultMaxConsecutiveFailures = 5

// Format is the output image codec. It is fixed for the process lifetime.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// ContentType returns the MIME type written into each multipart part.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/jpeg"
}

// ParseFormat accepts "jpeg" (or "jpg") and "webp".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported encode format %q", s)
	}
}

// Frame is one encoded image. It is immutable once produced.
type Frame struct {
	Data        []byte
	ContentType string
	Format      Format
	Width       int
	Height      int
}

// Options configures an Encoder.
type Options struct {
	Format  Format
	Quality int
	// Width and Height are the output resolution. Zero in both keeps the
	// capture size; zero in one follows the capture's aspect ratio.
	Width  int
	Height int
	// Fit maps the capture onto Width x Height. Defaults to FitStretch.
	Fit    Fit
	Scaler Scaler
	// PrivacyLabel is drawn onto the privacy placeholder.
	PrivacyLabel string
}

type codecFunc func(w io.Writer, img image.Image, quality int) error

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
}

// Encoder is safe for concurrent use.
type Encoder struct {
	opts  Options
	codec codecFunc
	pool  *bufferPool
	out   sync.Pool // *bytes.Buffer

	privacy      sync.Map // image.Point -> *Frame
	privacyGroup singleflight.Group
}

// New validates opts and returns an Encoder.
func New(opts Options) (*Encoder, error) {
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, fmt.Errorf("encode quality must be in [1,100], got %d", opts.Quality)
	}
	if opts.Width < 0 || opts.Height < 0 {
		return nil, fmt.Errorf("encode size must not be negative, got %dx%d", opts.Width, opts.Height)
	}
	if opts.Scaler == "" {
		opts.Scaler = ScalerBilinear
	}
	if opts.Fit == "" {
		opts.Fit = FitStretch
	}
	if _, err := ParseFit(string(opts.Fit)); err != nil {
		return nil, err
	}
	if _, err := opts.Scaler.interpolator(); err != nil {
		return nil, err
	}
	if opts.PrivacyLabel == "" {
		opts.PrivacyLabel = "PRIVACY MODE"
	}

	e := &Encoder{opts: opts, pool: newBufferPool(defaultPoolSize)}
	e.out.New = func() any { return new(bytes.Buffer) }
	switch opts.Format {
	case FormatJPEG, "":
		e.opts.Format = FormatJPEG
		e.codec = encodeJPEG
	case FormatWebP:
		e.codec = encodeWebP
	default:
		return nil, fmt.Errorf("unsupported encode format %q", opts.Format)
	}
	return e, nil
}

// Format returns the configured codec.
func (e *Encoder) Format() Format { return e.opts.Format }

// OutputSize returns the encoded size for a capture of size src.
func (e *Encoder) OutputSize(src image.Point) image.Point {
	return outputSize(src, e.opts.Width, e.opts.Height, e.opts.Fit)
}

// Encode scales and encodes a raw frame.
func (e *Encoder) Encode(ctx context.Context, f *capture.Frame) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f == nil || f.Image == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrEncodeFailed)
	}
	src := f.Image
	size := src.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 || len(src.Pix) < src.Stride*(size.Y-1)+size.X*4 {
		return nil, fmt.Errorf("%w: malformed buffer %dx%d", ErrEncodeFailed, size.X, size.Y)
	}

	target := e.OutputSize(size)
	var img image.Image = src
	if target != size {
		dst := e.pool.get(target)
		defer e.pool.put(dst)
		dr := dst.Bounds()
		if e.opts.Fit == FitLetterbox {
			dr = letterboxRect(size, target)
		}
		if err := e.opts.Scaler.scale(dst, dr, src); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
		}
		img = dst
	}

	data, err := e.encodeImage(img)
	if err != nil {
		return nil, err
	}
	return &Frame{
		Data:        data,
		ContentType: e.opts.Format.ContentType(),
		Format:      e.opts.Format,
		Width:       target.X,
		Height:      target.Y,
	}, nil
}

func (e *Encoder) encodeImage(img image.Image) ([]byte, error) {
	buf := e.out.Get().(*bytes.Buffer)
	buf.Reset()
	defer e.out.Put(buf)

	if err := e.codec(buf, img, e.opts.Quality); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, e.opts.Format, err)
	}
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())
	return data, nil
}

// outputSize applies fit to a capture of size src for a configured w x h.
func outputSize(src image.Point, w, h int, fit Fit) image.Point {
	if src.X <= 0 || src.Y <= 0 || (w <= 0 && h <= 0) {
		return src
	}
	if fit == FitContain {
		return fitWithin(src, w, h)
	}
	if w <= 0 {
		w = max(1, src.X*h/src.Y)
	}
	if h <= 0 {
		h = max(1, src.Y*w/src.X)
	}
	return image.Pt(w, h)
}

// letterboxRect centres src, scaled with its aspect ratio kept, inside canvas.
func letterboxRect(src, canvas image.Point) image.Rectangle {
	w := canvas.X
	h := src.Y * canvas.X / src.X
	if h > canvas.Y {
		h = canvas.Y
		w = src.X * canvas.Y / src.Y
	}
	w, h = max(1, w), max(1, h)
	x0 := (canvas.X - w) / 2
	y0 := (canvas.Y - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// fitWithin scales src down to fit maxW x maxH with its aspect ratio kept. It
// never upscales.
func fitWithin(src image.Point, maxW, maxH int) image.Point {
	if src.X <= 0 || src.Y <= 0 {
		return src
	}
	if maxW <= 0 && maxH <= 0 {
		return src
	}
	if maxW <= 0 {
		maxW = src.X
	}
	if maxH <= 0 {
		maxH = src.Y
	}
	if src.X <= maxW && src.Y <= maxH {
		return src
	}
	// integer math keeps the result identical across platforms
	w := maxW
	h := src.Y * maxW / src.X
	if h > maxH {
		h = maxH
		w = src.X * maxH / src.Y
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}
