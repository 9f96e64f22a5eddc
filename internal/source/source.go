// Package source decodes stored assets into lazy frame sequences.
//
// A Sequence produces frames one at a time; nothing is materialized in
// bulk. Next returns io.EOF when a finite asset is exhausted. Decode
// problems surface as *DecodeError and are terminal for that Open call.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenloop/lumend/internal/frame"
)

// ErrAssetNotFound reports a path that does not resolve to a readable file.
var ErrAssetNotFound = errors.New("asset not found")

// DecodeError wraps a container or codec parse failure.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Sequence is a lazy stream of frames. Next returns io.EOF after the
// last frame of a finite asset; pattern sequences never do.
type Sequence interface {
	Next() (frame.Frame, error)
	Close() error
}

var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
}

// Open resolves path to an asset class by extension and returns its
// frame sequence. The file must exist and be a regular file; otherwise
// ErrAssetNotFound is returned and no sequence is created.
func Open(path string) (Sequence, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".gif":
		return newGIFSequence(path), nil
	case videoExts[ext]:
		return newVideoSequence(path), nil
	default:
		return newImageSequence(path), nil
	}
}
