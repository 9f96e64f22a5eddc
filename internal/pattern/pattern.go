// Package pattern provides the builtin procedural frame generators.
//
// Every pattern is an infinite sequence sized to the device canvas and
// driven by an internal phase counter, never by the wall clock; the
// visual rate is therefore governed purely by the pacing interval the
// controller applies between frames.
package pattern

import (
	"image"
	"image/color"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lumenloop/lumend/internal/frame"
	"github.com/lumenloop/lumend/internal/source"
)

// Params carries pattern parameters from the control surface, e.g.
// {"text": "HELLO"} for scrolling_text.
type Params map[string]any

// Text returns the string value of key, or def when absent.
func (p Params) Text(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// List enumerates the builtin pattern names.
func List() []string {
	return []string{"color_cycle", "moving_stripes", "scrolling_text"}
}

// Known reports whether name is a builtin pattern.
func Known(name string) bool {
	for _, n := range List() {
		if n == name {
			return true
		}
	}
	return false
}

// New returns an infinite frame sequence for the named pattern sized to
// w x h. An unknown name yields the solid-black fallback; New never
// fails. Restarting a pattern means calling New again, the returned
// sequence cannot be rewound.
func New(name string, params Params, w, h int) source.Sequence {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	switch name {
	case "color_cycle":
		return &sequence{render: colorCycle(w, h)}
	case "moving_stripes":
		return &sequence{render: movingStripes(w, h)}
	case "scrolling_text":
		return &sequence{render: scrollingText(w, h, params.Text("text", "HELLO"))}
	default:
		return &sequence{render: solidBlack(w, h)}
	}
}

type sequence struct {
	render func(phase int) frame.Frame
	phase  int
}

func (s *sequence) Next() (frame.Frame, error) {
	f := s.render(s.phase)
	s.phase++
	return f, nil
}

func (s *sequence) Close() error { return nil }

// colorCycle sweeps hue across the canvas, keyed to pixel position and
// phase. ~16ms per frame.
func colorCycle(w, h int) func(int) frame.Frame {
	return func(phase int) frame.Frame {
		t := (phase * 3) % 360
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				hue := float64((t + (x+y)*2) % 360)
				r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
				i := img.PixOffset(x, y)
				img.Pix[i+0] = r
				img.Pix[i+1] = g
				img.Pix[i+2] = b
				img.Pix[i+3] = 0xFF
			}
		}
		return frame.Frame{Img: img, Duration: 16 * time.Millisecond}
	}
}

// movingStripes scrolls red bands to the right. ~30ms per frame.
func movingStripes(w, h int) func(int) frame.Frame {
	stripeW := w / 8
	if stripeW < 2 {
		stripeW = 2
	}
	period := stripeW * 2
	return func(phase int) frame.Frame {
		offset := phase % period
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for x := -stripeW * 4; x < w+stripeW*4; x += period {
			fillRect(img, x+offset, 0, x+offset+stripeW, h, color.RGBA{R: 0xFF, A: 0xFF})
		}
		return frame.Frame{Img: img, Duration: 30 * time.Millisecond}
	}
}

// scrollingText scrolls a yellow label from right to left, looping once
// it has fully left the canvas. ~30ms per frame.
func scrollingText(w, h int, text string) func(int) frame.Frame {
	face := basicfont.Face7x13
	tw := font.MeasureString(face, text).Ceil()
	pad := w
	canvasW := tw + pad*2
	// x walks from canvasW down to pad-tw in steps of 2, then wraps.
	steps := (canvasW - (pad - tw)) / 2
	if steps < 1 {
		steps = 1
	}
	baseline := (h-face.Height)/2 + face.Ascent

	return func(phase int) frame.Frame {
		x := canvasW - 2*(phase%steps)
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.RGBA{R: 0xFF, G: 0xFF, A: 0xFF}),
			Face: face,
			Dot:  fixed.P(x-pad, baseline),
		}
		d.DrawString(text)
		return frame.Frame{Img: img, Duration: 30 * time.Millisecond}
	}
}

// solidBlack is the fallback for unknown pattern names: 100ms per frame.
func solidBlack(w, h int) func(int) frame.Frame {
	return func(int) frame.Frame {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xFF
		}
		return frame.Frame{Img: img, Duration: 100 * time.Millisecond}
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > img.Rect.Dx() {
		x1 = img.Rect.Dx()
	}
	if y1 > img.Rect.Dy() {
		y1 = img.Rect.Dy()
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}
