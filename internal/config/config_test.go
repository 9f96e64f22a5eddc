package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClamp(t *testing.T) {
	cases := []struct {
		name string
		in   RenderConfig
		want RenderConfig
	}{
		{
			name: "in range untouched",
			in:   RenderConfig{Gamma: 2.2, RGBBalance: [3]float64{1, 0.9, 1.1}, Rotate: 90, FPSCap: 60, Scale: ScaleFast},
			want: RenderConfig{Gamma: 2.2, RGBBalance: [3]float64{1, 0.9, 1.1}, Rotate: 90, FPSCap: 60, Scale: ScaleFast},
		},
		{
			name: "everything low",
			in:   RenderConfig{Gamma: 0, RGBBalance: [3]float64{0, -1, 0.2}, Rotate: -90, FPSCap: 0},
			want: RenderConfig{Gamma: 1, RGBBalance: [3]float64{0.5, 0.5, 0.5}, Rotate: 270, FPSCap: 1, Scale: ScaleHighQuality},
		},
		{
			name: "everything high",
			in:   RenderConfig{Gamma: 10, RGBBalance: [3]float64{2, 2, 2}, Rotate: 450, FPSCap: 1000},
			want: RenderConfig{Gamma: 3, RGBBalance: [3]float64{1.5, 1.5, 1.5}, Rotate: 90, FPSCap: 240, Scale: ScaleHighQuality},
		},
		{
			name: "off-grid rotation snaps to zero",
			in:   RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, Rotate: 45, FPSCap: 30},
			want: RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, Rotate: 0, FPSCap: 30, Scale: ScaleHighQuality},
		},
		{
			name: "scale name normalized",
			in:   RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, FPSCap: 30, Scale: "FAST"},
			want: RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, FPSCap: 30, Scale: ScaleFast},
		},
		{
			name: "unknown scale falls back",
			in:   RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, FPSCap: 30, Scale: "nearest"},
			want: RenderConfig{Gamma: 2, RGBBalance: [3]float64{1, 1, 1}, FPSCap: 30, Scale: ScaleHighQuality},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in
			got.Clamp()
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConfigClampTopology(t *testing.T) {
	c := Default()
	c.Topology.Width = 0
	c.Topology.Height = -4
	c.Topology.Brightness = 9
	c.Clamp()
	assert.Equal(t, 1, c.Topology.Width)
	assert.Equal(t, 1, c.Topology.Height)
	assert.Equal(t, 1.0, c.Topology.Brightness)
}

func TestDefaultIsAlreadyClamped(t *testing.T) {
	c := Default()
	want := *c
	c.Clamp()
	assert.Equal(t, want, *c)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumend.yaml")

	c := Default()
	c.Device = "strip"
	c.SPI = SPI{Dev: "/dev/spidev0.1", SpeedHz: 2400000}
	c.Render.Gamma = 1.8
	c.Render.Rotate = 180
	c.Render.MirrorX = true
	c.Topology = Topology{Width: 32, Height: 16, MapFile: "/etc/lumend/map.json", Brightness: 0.5}
	c.PlaylistPath = "/var/lib/lumend/playlist.json"

	require.NoError(t, Save(path, c))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: opc\nopc:\n  server: 10.0.0.5:7890\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "opc", c.Device)
	assert.Equal(t, "10.0.0.5:7890", c.OPC.Server)
	assert.Equal(t, 2.2, c.Render.Gamma, "unset fields keep defaults")
	assert.Equal(t, ":8080", c.HTTPAddr)
}

func TestLoadClampsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("render:\n  gamma: 50\n  fps_cap: -3\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.Render.Gamma)
	assert.Equal(t, 1.0, c.Render.FPSCap)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
