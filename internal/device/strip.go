package device

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/lumenloop/lumend/internal/config"
)

// nrzBitRate is the encoded SPI clock for WS281x-over-SPI: 3 SPI bits
// per NRZ bit at the 800kHz LED rate, plus slack.
const nrzBitRate = ((800 * 3) + 100) * physic.KiloHertz

// Strip drives a chain of individually addressable pixels (WS281x
// class) over spidev using the periph.io NRZ encoder.
type Strip struct {
	mu         sync.Mutex
	topo       config.Topology
	cfg        config.SPI
	port       spi.PortCloser
	dev        *nrzled.Dev
	count      int
	brightness float64
}

func NewStrip(topo config.Topology, cfg config.SPI) *Strip {
	if cfg.Dev == "" {
		cfg.Dev = "/dev/spidev0.0"
	}
	return &Strip{
		topo:       topo,
		cfg:        cfg,
		count:      topo.Width * topo.Height,
		brightness: topo.Brightness,
	}
}

func (s *Strip) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	port, err := spireg.Open(s.cfg.Dev)
	if err != nil {
		return fmt.Errorf("open SPI %s: %w", s.cfg.Dev, err)
	}
	return s.attach(port)
}

// attach wires the NRZ encoder onto an already opened port.
func (s *Strip) attach(port spi.PortCloser) error {
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: s.count,
		Channels:  3,
		Freq:      nrzBitRate,
	})
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("nrzled init: %w", err)
	}
	s.port = port
	s.dev = dev
	return nil
}

func (s *Strip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev = nil
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		return err
	}
	return nil
}

func (s *Strip) SetBrightness(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brightness = clampBrightness(v)
	return nil
}

func (s *Strip) Draw(w, h int, pix []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dev == nil {
		return nil
	}
	want := s.count * 3
	if len(pix) != want {
		return fmt.Errorf("strip: got %d pixel bytes, want %d", len(pix), want)
	}
	if _, err := s.dev.Write(scaleBrightness(pix, s.brightness)); err != nil {
		return fmt.Errorf("strip write: %w", err)
	}
	return nil
}
