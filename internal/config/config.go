package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scale algorithm names accepted by RenderConfig.Scale.
const (
	ScaleHighQuality = "high-quality"
	ScaleFast        = "fast"
)

// RenderConfig holds the live rendering parameters. All fields are
// clamped into their valid range by Clamp; out-of-range input is
// coerced, never rejected.
type RenderConfig struct {
	Gamma      float64    `yaml:"gamma"`
	RGBBalance [3]float64 `yaml:"rgb_balance"`
	Rotate     int        `yaml:"rotate"`
	MirrorX    bool       `yaml:"mirror_x"`
	MirrorY    bool       `yaml:"mirror_y"`
	FPSCap     float64    `yaml:"fps_cap"`
	Scale      string     `yaml:"scale"`
}

// Topology describes the physical output canvas: target dimensions,
// an optional wiring-order coordinate map, and the boot brightness.
type Topology struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	MapFile    string  `yaml:"map_file,omitempty"`
	Brightness float64 `yaml:"brightness"`
}

// Matrix holds HUB75 panel specifics (passed through to the matrix driver).
type Matrix struct {
	HardwareMapping string `yaml:"hardware_mapping,omitempty"`
	GPIOSlowdown    int    `yaml:"gpio_slowdown,omitempty"`
}

// SPI holds addressable-strip transport settings.
type SPI struct {
	Dev     string `yaml:"dev"`      // e.g. /dev/spidev0.0
	SpeedHz int    `yaml:"speed_hz"` // e.g. 2400000
}

// OPC holds the Open Pixel Control server address for the network sink.
type OPC struct {
	Server string `yaml:"server"` // host:port, e.g. 127.0.0.1:7890
}

type Config struct {
	Device   string       `yaml:"device"` // preview | matrix | strip | term | opc
	Render   RenderConfig `yaml:"render"`
	Topology Topology     `yaml:"topology"`
	Matrix   Matrix       `yaml:"matrix,omitempty"`
	SPI      SPI          `yaml:"spi,omitempty"`
	OPC      OPC          `yaml:"opc,omitempty"`

	HTTPAddr     string `yaml:"http_addr"`
	PlaylistPath string `yaml:"playlist_path,omitempty"`
}

// Default returns the configuration used when no file is available.
func Default() *Config {
	return &Config{
		Device: "preview",
		Render: RenderConfig{
			Gamma:      2.2,
			RGBBalance: [3]float64{1, 1, 1},
			FPSCap:     60,
			Scale:      ScaleHighQuality,
		},
		Topology: Topology{Width: 64, Height: 64, Brightness: 0.85},
		HTTPAddr: ":8080",
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	c.Clamp()
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Clamp coerces every field into its valid range.
func (c *Config) Clamp() {
	c.Render.Clamp()
	if c.Topology.Width < 1 {
		c.Topology.Width = 1
	}
	if c.Topology.Height < 1 {
		c.Topology.Height = 1
	}
	c.Topology.Brightness = clampF(c.Topology.Brightness, 0, 1)
}

// Clamp coerces the render parameters into their valid ranges:
// gamma [1,3], balance [0.5,1.5], rotate {0,90,180,270}, fps [1,240].
func (r *RenderConfig) Clamp() {
	r.Gamma = clampF(r.Gamma, 1.0, 3.0)
	for i := range r.RGBBalance {
		r.RGBBalance[i] = clampF(r.RGBBalance[i], 0.5, 1.5)
	}
	switch ((r.Rotate % 360) + 360) % 360 {
	case 90:
		r.Rotate = 90
	case 180:
		r.Rotate = 180
	case 270:
		r.Rotate = 270
	default:
		r.Rotate = 0
	}
	r.FPSCap = clampF(r.FPSCap, 1, 240)
	switch strings.ToLower(r.Scale) {
	case ScaleFast:
		r.Scale = ScaleFast
	default:
		r.Scale = ScaleHighQuality
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
