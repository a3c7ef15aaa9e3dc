// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encode

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	privacyBackground = color.RGBA{0x00, 0x00, 0x00, 0xff}
	privacyForeground = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// PrivacyFrame returns the placeholder shown while blackout is active. It is
// rendered once per size and never touches the capture source. The returned
// frame is shared and must not be modified.
func (e *Encoder) PrivacyFrame(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: privacy frame size %dx%d", ErrEncodeFailed, width, height)
	}
	key := image.Pt(width, height)
	if f, ok := e.privacy.Load(key); ok {
		return f.(*Frame), nil
	}

	v, err, _ := e.privacyGroup.Do(key.String(), func() (any, error) {
		if f, ok := e.privacy.Load(key); ok {
			return f, nil
		}
		data, err := e.encodeImage(renderPrivacy(key, e.opts.PrivacyLabel))
		if err != nil {
			return nil, err
		}
		f := &Frame{
			Data:        data,
			ContentType: e.opts.Format.ContentType(),
			Format:      e.opts.Format,
			Width:       width,
			Height:      height,
		}
		e.privacy.Store(key, f)
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Frame), nil
}

// renderPrivacy draws a solid background with the label centred. The label is
// scaled up with nearest-neighbour so it stays legible on large boards.
func renderPrivacy(size image.Point, label string) *image.RGBA {
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(privacyBackground), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textW := font.MeasureString(face, label).Ceil()
	textH := face.Metrics().Height.Ceil()
	if textW == 0 || textH == 0 {
		return img
	}

	text := image.NewRGBA(image.Rect(0, 0, textW, textH))
	d := &font.Drawer{
		Dst:  text,
		Src:  image.NewUniform(privacyForeground),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)

	factor := size.X / 3 / textW
	if limit := size.Y / 4 / textH; limit < factor {
		factor = limit
	}
	if factor < 1 {
		factor = 1
	}
	w, h := textW*factor, textH*factor
	origin := image.Pt((size.X-w)/2, (size.Y-h)/2)
	dst := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
	draw.NearestNeighbor.Scale(img, dst, text, text.Bounds(), draw.Over, nil)
	return img
}
