//go:build linux

package device

import (
	"fmt"
	"image/color"
	"sync"

	rgbmatrix "github.com/mcuadros/go-rpi-rgb-led-matrix"

	"github.com/lumenloop/lumend/internal/config"
)

// Matrix drives a HUB75 panel through the rpi-rgb-led-matrix binding.
// Frames are written to an offscreen canvas and swapped to the screen
// atomically on render, so a partially written frame is never visible.
type Matrix struct {
	mu         sync.Mutex
	topo       config.Topology
	cfg        config.Matrix
	matrix     rgbmatrix.Matrix
	canvas     *rgbmatrix.Canvas
	brightness float64
}

func NewMatrix(topo config.Topology, cfg config.Matrix) Device {
	return &Matrix{topo: topo, cfg: cfg, brightness: topo.Brightness}
}

func (m *Matrix) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hw := rgbmatrix.DefaultConfig
	hw.Rows = m.topo.Height
	hw.Cols = m.topo.Width
	// Brightness is applied in software on every draw; the binding has
	// no runtime setter, so baking it into the hardware config here
	// would double-apply and go stale after SetBrightness.
	hw.Brightness = 100
	if m.cfg.HardwareMapping != "" {
		hw.HardwareMapping = m.cfg.HardwareMapping
	}

	mx, err := rgbmatrix.NewRGBLedMatrix(&hw)
	if err != nil {
		return fmt.Errorf("matrix init: %w", err)
	}
	m.matrix = mx
	m.canvas = rgbmatrix.NewCanvas(mx)
	return nil
}

func (m *Matrix) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.canvas == nil {
		return nil
	}
	err := m.canvas.Close()
	m.canvas = nil
	m.matrix = nil
	return err
}

func (m *Matrix) SetBrightness(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brightness = clampBrightness(v)
	return nil
}

func (m *Matrix) Draw(w, h int, pix []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.canvas == nil {
		return nil
	}
	if len(pix) < w*h*3 {
		return fmt.Errorf("matrix: got %d pixel bytes, want %d", len(pix), w*h*3)
	}

	// Crop to the panel's reported size when the frame is larger.
	bounds := m.canvas.Bounds()
	cw, ch := bounds.Dx(), bounds.Dy()
	if w < cw {
		cw = w
	}
	if h < ch {
		ch = h
	}

	scaled := scaleBrightness(pix, m.brightness)
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			i := (y*w + x) * 3
			m.canvas.Set(x, y, color.RGBA{
				R: scaled[i+0],
				G: scaled[i+1],
				B: scaled[i+2],
				A: 0xFF,
			})
		}
	}
	if err := m.canvas.Render(); err != nil {
		return fmt.Errorf("matrix render: %w", err)
	}
	return nil
}
