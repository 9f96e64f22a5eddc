package source

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"time"

	"github.com/lumenloop/lumend/internal/frame"
)

// GIF disposal values (GIF89a spec).
const (
	gifRestoreBackground = 2
	gifRestorePrevious   = 3
)

// gifSequence yields the frames of an animated GIF with their metadata
// durations. Frames are composited onto a persistent canvas honoring
// each frame's disposal method, so partial-update GIFs render correctly.
type gifSequence struct {
	path   string
	g      *gif.GIF
	canvas *image.RGBA
	idx    int
}

func newGIFSequence(path string) *gifSequence {
	return &gifSequence{path: path}
}

func (s *gifSequence) decode() error {
	f, err := os.Open(s.path)
	if err != nil {
		return &DecodeError{Path: s.path, Err: err}
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return &DecodeError{Path: s.path, Err: err}
	}
	if len(g.Image) == 0 {
		return &DecodeError{Path: s.path, Err: io.ErrUnexpectedEOF}
	}
	s.g = g

	// The canvas covers the logical screen; individual frames may be
	// offset sub-rects of it. Some encoders omit the screen descriptor,
	// then the first frame's extent is the best available answer.
	w, h := g.Config.Width, g.Config.Height
	if w <= 0 || h <= 0 {
		b := g.Image[0].Bounds()
		w, h = b.Max.X, b.Max.Y
	}
	s.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	return nil
}

func (s *gifSequence) Next() (frame.Frame, error) {
	if s.g == nil {
		if err := s.decode(); err != nil {
			return frame.Frame{}, err
		}
	}
	if s.idx >= len(s.g.Image) {
		return frame.Frame{}, io.EOF
	}

	pal := s.g.Image[s.idx]

	var restore *image.RGBA
	if s.disposal(s.idx) == gifRestorePrevious {
		restore = image.NewRGBA(s.canvas.Rect)
		copy(restore.Pix, s.canvas.Pix)
	}

	draw.Draw(s.canvas, pal.Bounds(), pal, pal.Bounds().Min, draw.Over)

	out := frame.FromImage(s.canvas, s.delay(s.idx))

	switch s.disposal(s.idx) {
	case gifRestoreBackground:
		bg := s.backgroundColor(pal)
		draw.Draw(s.canvas, pal.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	case gifRestorePrevious:
		copy(s.canvas.Pix, restore.Pix)
	}

	s.idx++
	return out, nil
}

func (s *gifSequence) Close() error { return nil }

// delay returns the frame's metadata duration; GIF delays are stored in
// hundredths of a second. Zero means "no intrinsic duration".
func (s *gifSequence) delay(i int) time.Duration {
	if s.g.Delay == nil || i >= len(s.g.Delay) || s.g.Delay[i] <= 0 {
		return 0
	}
	return time.Duration(s.g.Delay[i]) * 10 * time.Millisecond
}

func (s *gifSequence) disposal(i int) byte {
	if s.g.Disposal == nil || i >= len(s.g.Disposal) {
		return 0
	}
	return s.g.Disposal[i]
}

func (s *gifSequence) backgroundColor(pal *image.Paletted) color.Color {
	if p, ok := s.g.Config.ColorModel.(color.Palette); ok {
		if idx := int(s.g.BackgroundIndex); idx < len(p) {
			return p[idx]
		}
	}
	if idx := int(s.g.BackgroundIndex); idx < len(pal.Palette) {
		return pal.Palette[idx]
	}
	return color.Black
}
