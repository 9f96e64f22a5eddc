package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumenloop/lumend/internal/config"
)

func TestSerializeRowMajor(t *testing.T) {
	m, err := NewMapper(config.Topology{Width: 4, Height: 3})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	img := gradient(4, 3)
	out := m.Serialize(img)
	if len(out) != 4*3*3 {
		t.Fatalf("got %d bytes, want %d", len(out), 4*3*3)
	}
	// Row-major: entry k corresponds to (k%4, k/4).
	for k := 0; k < 12; k++ {
		c := img.RGBAAt(k%4, k/4)
		if out[k*3] != c.R || out[k*3+1] != c.G || out[k*3+2] != c.B {
			t.Fatalf("entry %d out of order", k)
		}
	}
}

func writeMapFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pixels.map.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write map: %v", err)
	}
	return path
}

func TestSerializeWithMapFollowsFileOrder(t *testing.T) {
	path := writeMapFile(t, `[{"x":1,"y":0},{"x":0,"y":1},{"x":0,"y":0}]`)
	m, err := NewMapper(config.Topology{Width: 2, Height: 2, MapFile: path})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	img := gradient(2, 2)
	out := m.Serialize(img)
	if len(out) != 9 {
		t.Fatalf("got %d bytes, want 9", len(out))
	}
	first := img.RGBAAt(1, 0)
	if out[0] != first.R || out[1] != first.G || out[2] != first.B {
		t.Fatal("first entry does not follow map order")
	}
}

// An out-of-bounds map entry is dropped silently: the output is exactly
// one entry shorter than the map, never an error.
func TestSerializeDropsOutOfBoundsEntries(t *testing.T) {
	path := writeMapFile(t, `[{"x":0,"y":0},{"x":5,"y":0},{"x":1,"y":1}]`)
	m, err := NewMapper(config.Topology{Width: 2, Height: 2, MapFile: path})
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	out := m.Serialize(gradient(2, 2))
	if len(out) != 2*3 {
		t.Fatalf("got %d entries, want %d", len(out)/3, 2)
	}
}

func TestNewMapperMissingFileStillUsable(t *testing.T) {
	m, err := NewMapper(config.Topology{Width: 2, Height: 2, MapFile: "/nonexistent/map.json"})
	if err == nil {
		t.Fatal("expected an error for a missing map file")
	}
	if m == nil || m.HasMap() {
		t.Fatal("mapper must fall back to row-major")
	}
	if got := len(m.Serialize(gradient(2, 2))); got != 12 {
		t.Fatalf("got %d bytes, want 12", got)
	}
}
