package device

import (
	"image"
	"sync"
)

// Preview is the null sink: it keeps the most recent drawn frame in
// memory behind a mutex so an external layer can retrieve or broadcast
// it. It is also the fallback when hardware fails to open.
type Preview struct {
	mu         sync.Mutex
	open       bool
	w, h       int
	pix        []byte
	brightness float64

	// onFrame, when set, is invoked after every accepted draw with the
	// frame dimensions and a copy of the serialized pixels. Used by the
	// API layer to stream preview frames to connected viewers.
	onFrame func(w, h int, pix []byte)
}

func NewPreview(onFrame func(w, h int, pix []byte)) *Preview {
	return &Preview{brightness: 1, onFrame: onFrame}
}

// SetOnFrame installs the draw callback after construction; the API
// layer is built later in boot than the device.
func (p *Preview) SetOnFrame(fn func(w, h int, pix []byte)) {
	p.mu.Lock()
	p.onFrame = fn
	p.mu.Unlock()
}

func (p *Preview) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = true
	p.pix = nil
	return nil
}

func (p *Preview) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.pix = nil
	return nil
}

func (p *Preview) SetBrightness(v float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.brightness = clampBrightness(v)
	return nil
}

func (p *Preview) Draw(w, h int, pix []byte) error {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return nil
	}
	p.w, p.h = w, h
	p.pix = append(p.pix[:0], pix...)
	cb := p.onFrame
	var out []byte
	if cb != nil {
		out = append([]byte(nil), pix...)
	}
	p.mu.Unlock()

	if cb != nil {
		cb(w, h, out)
	}
	return nil
}

// Latest reconstructs the most recently drawn frame as an image, or nil
// when nothing has been drawn or the pixels are not in row-major order
// (a wiring map shorter than w*h cannot be unfolded back to a raster).
func (p *Preview) Latest() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pix == nil || len(p.pix) != p.w*p.h*3 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, p.w, p.h))
	for i := 0; i < p.w*p.h; i++ {
		img.Pix[i*4+0] = p.pix[i*3+0]
		img.Pix[i*4+1] = p.pix[i*3+1]
		img.Pix[i*4+2] = p.pix[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
