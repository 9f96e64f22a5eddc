// Package frame defines the unit of work flowing through the render
// pipeline: one rectangular RGB raster plus an optional display duration.
package frame

import (
	"image"
	"image/draw"
	"time"
)

// Frame is a single raster to be shown on the output device.
// A zero Duration means "no intrinsic duration"; the render loop then
// paces the frame by the configured fps cap instead.
type Frame struct {
	Img      *image.RGBA
	Duration time.Duration
}

// FromImage converts any image into a Frame backed by an RGBA buffer.
// The pixels are always copied, so the caller keeps ownership of src.
func FromImage(src image.Image, d time.Duration) Frame {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return Frame{Img: dst, Duration: d}
}

// Clone returns a deep copy of f. Sharing pixel buffers across the
// controller lock boundary is what this exists to avoid.
func (f Frame) Clone() Frame {
	if f.Img == nil {
		return f
	}
	dst := image.NewRGBA(f.Img.Rect)
	copy(dst.Pix, f.Img.Pix)
	return Frame{Img: dst, Duration: f.Duration}
}

// Size returns the frame dimensions, or (0, 0) for an empty frame.
func (f Frame) Size() (w, h int) {
	if f.Img == nil {
		return 0, 0
	}
	return f.Img.Rect.Dx(), f.Img.Rect.Dy()
}
