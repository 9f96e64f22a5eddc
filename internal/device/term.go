package device

import (
	"image"
	"sync"

	"periph.io/x/extra/devices/screen"

	"github.com/lumenloop/lumend/internal/config"
)

// Term renders the pixel chain as ANSI colors on the controlling
// terminal, one cell per pixel. Useful for eyeballing wiring order on a
// dev machine without hardware.
type Term struct {
	mu         sync.Mutex
	count      int
	dev        *screen.Dev
	brightness float64
}

func NewTerm(topo config.Topology) *Term {
	return &Term{
		count:      topo.Width * topo.Height,
		brightness: topo.Brightness,
	}
}

func (t *Term) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = screen.New(t.count)
	return nil
}

func (t *Term) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	return nil
}

func (t *Term) SetBrightness(v float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = clampBrightness(v)
	return nil
}

func (t *Term) Draw(w, h int, pix []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil
	}
	scaled := scaleBrightness(pix, t.brightness)
	n := len(scaled) / 3
	if n > t.count {
		n = t.count
	}
	img := image.NewNRGBA(image.Rect(0, 0, t.count, 1))
	for i := 0; i < n; i++ {
		img.Pix[i*4+0] = scaled[i*3+0]
		img.Pix[i*4+1] = scaled[i*3+1]
		img.Pix[i*4+2] = scaled[i*3+2]
		img.Pix[i*4+3] = 0xFF
	}
	return t.dev.Draw(t.dev.Bounds(), img, image.Point{})
}
