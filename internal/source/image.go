package source

import (
	"image"
	"io"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/lumenloop/lumend/internal/frame"
)

// imageSequence yields exactly one frame, with no intrinsic duration,
// from a static raster file. Decoding happens on the first Next call.
type imageSequence struct {
	path string
	done bool
}

func newImageSequence(path string) *imageSequence {
	return &imageSequence{path: path}
}

func (s *imageSequence) Next() (frame.Frame, error) {
	if s.done {
		return frame.Frame{}, io.EOF
	}
	s.done = true

	f, err := os.Open(s.path)
	if err != nil {
		return frame.Frame{}, &DecodeError{Path: s.path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return frame.Frame{}, &DecodeError{Path: s.path, Err: err}
	}
	return frame.FromImage(img, 0), nil
}

func (s *imageSequence) Close() error { return nil }
