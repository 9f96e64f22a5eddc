//go:build !linux

package device

import (
	"errors"

	"github.com/lumenloop/lumend/internal/config"
)

// matrixStub stands in for the HUB75 driver on platforms without the
// rpi-rgb-led-matrix binding. Open always fails, which routes boot to
// the preview fallback.
type matrixStub struct{}

func NewMatrix(config.Topology, config.Matrix) Device { return matrixStub{} }

func (matrixStub) Open() error                   { return errors.New("matrix driver is linux-only") }
func (matrixStub) Close() error                  { return nil }
func (matrixStub) SetBrightness(float64) error   { return nil }
func (matrixStub) Draw(int, int, []byte) error   { return nil }
