package device

import (
	"fmt"
	"sync"

	opc "github.com/kellydunn/go-opc"

	"github.com/lumenloop/lumend/internal/config"
)

// OPC drives a networked pixel string (Fadecandy, WLED, or any Open
// Pixel Control server) over TCP, channel 0.
type OPC struct {
	mu         sync.Mutex
	server     string
	count      int
	client     *opc.Client
	brightness float64
}

func NewOPC(topo config.Topology, cfg config.OPC) *OPC {
	server := cfg.Server
	if server == "" {
		server = "127.0.0.1:7890"
	}
	return &OPC{
		server:     server,
		count:      topo.Width * topo.Height,
		brightness: topo.Brightness,
	}
}

func (o *OPC) Open() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := opc.NewClient()
	if err := c.Connect("tcp", o.server); err != nil {
		return fmt.Errorf("opc connect %s: %w", o.server, err)
	}
	o.client = c
	return nil
}

func (o *OPC) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.client = nil
	return nil
}

func (o *OPC) SetBrightness(v float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.brightness = clampBrightness(v)
	return nil
}

func (o *OPC) Draw(w, h int, pix []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil {
		return nil
	}
	scaled := scaleBrightness(pix, o.brightness)
	n := len(scaled) / 3
	if n > o.count {
		n = o.count
	}
	m := opc.NewMessage(0)
	m.SetLength(uint16(o.count * 3))
	for i := 0; i < n; i++ {
		m.SetPixelColor(i, scaled[i*3+0], scaled[i*3+1], scaled[i*3+2])
	}
	if err := o.client.Send(m); err != nil {
		return fmt.Errorf("opc send: %w", err)
	}
	return nil
}
