package render

import (
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/lumenloop/lumend/internal/config"
)

// MapEntry is one physical pixel position in wiring order.
type MapEntry struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Mapper serializes a 2-D frame into the linear pixel order the device
// topology expects. It caches the parsed coordinate map, so it must be
// rebuilt whenever the topology or target dimensions change; it is never
// rebuilt per frame.
type Mapper struct {
	width  int
	height int
	coords []MapEntry
}

// NewMapper builds a mapper for the given topology. A missing or
// unparseable map file is reported so the caller can log it, but the
// returned mapper is still usable in row-major mode.
func NewMapper(topo config.Topology) (*Mapper, error) {
	m := &Mapper{width: topo.Width, height: topo.Height}
	if topo.MapFile == "" {
		return m, nil
	}
	b, err := os.ReadFile(topo.MapFile)
	if err != nil {
		return m, fmt.Errorf("read pixel map %s: %w", topo.MapFile, err)
	}
	var coords []MapEntry
	if err := json.Unmarshal(b, &coords); err != nil {
		return m, fmt.Errorf("parse pixel map %s: %w", topo.MapFile, err)
	}
	m.coords = coords
	return m, nil
}

// HasMap reports whether a wiring-order coordinate map is loaded.
func (m *Mapper) HasMap() bool { return len(m.coords) > 0 }

// Serialize flattens img into wiring order, three bytes per pixel.
// With a coordinate map, entries are emitted in file order and
// out-of-bounds entries are silently dropped. Without one, pixels are
// emitted row-major, exactly width*height entries.
func (m *Mapper) Serialize(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if m.coords != nil {
		out := make([]byte, 0, len(m.coords)*3)
		for _, e := range m.coords {
			if e.X < 0 || e.X >= w || e.Y < 0 || e.Y >= h {
				continue
			}
			i := img.PixOffset(img.Rect.Min.X+e.X, img.Rect.Min.Y+e.Y)
			out = append(out, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
		return out
	}
	out := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			out = append(out, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
		}
	}
	return out
}
