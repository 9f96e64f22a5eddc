// Package device abstracts the hardware sinks frames are drawn to.
package device

import (
	"github.com/rs/zerolog"

	"github.com/lumenloop/lumend/internal/config"
)

// Device is the fixed capability set every output sink implements.
// Draw takes the frame dimensions and a flat RGB byte sequence already
// serialized into the device's wiring order. Calling Draw before Open
// is a safe no-op. Open and Close must not be called concurrently with
// an in-flight Draw; the render controller guarantees this.
type Device interface {
	Open() error
	Close() error
	// SetBrightness sets output brightness in [0, 1]. Values outside
	// the range are clamped.
	SetBrightness(v float64) error
	Draw(w, h int, pix []byte) error
}

// New resolves a device-name tag to a sink. An unrecognized tag falls
// back to the preview sink with a warning; selection never fails.
func New(tag string, cfg *config.Config, log zerolog.Logger) Device {
	switch tag {
	case "preview", "":
		return NewPreview(nil)
	case "matrix":
		return NewMatrix(cfg.Topology, cfg.Matrix)
	case "strip":
		return NewStrip(cfg.Topology, cfg.SPI)
	case "term":
		return NewTerm(cfg.Topology)
	case "opc":
		return NewOPC(cfg.Topology, cfg.OPC)
	default:
		log.Warn().Str("device", tag).Msg("unknown device tag; using preview")
		return NewPreview(nil)
	}
}

// OpenOrFallback opens d; if the hardware refuses to initialize it
// closes d, logs the failure, and returns an opened preview sink so
// boot never fails on absent hardware.
func OpenOrFallback(d Device, log zerolog.Logger) Device {
	err := d.Open()
	if err == nil {
		return d
	}
	log.Warn().Err(err).Msg("device open failed; falling back to preview")
	_ = d.Close()
	p := NewPreview(nil)
	_ = p.Open()
	return p
}

// clampBrightness coerces v into [0, 1].
func clampBrightness(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// scaleBrightness returns pix scaled by b. Sinks without a hardware
// brightness control apply it in software before writing.
func scaleBrightness(pix []byte, b float64) []byte {
	if b >= 1 {
		return pix
	}
	out := make([]byte, len(pix))
	for i, p := range pix {
		out[i] = byte(float64(p) * b)
	}
	return out
}
