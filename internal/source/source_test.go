package source

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, write func(f *os.File) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, write(f))
	require.NoError(t, f.Close())
	return path
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/does/not/exist.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}

func TestOpenDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetNotFound))
}

func TestStillImageYieldsOneFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 0xFF, A: 0xFF})
	img.SetRGBA(1, 1, color.RGBA{B: 0xFF, A: 0xFF})
	path := writeFile(t, "still.png", func(f *os.File) error {
		return png.Encode(f, img)
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	f, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, f.Img.Rect.Dx())
	assert.Equal(t, 2, f.Img.Rect.Dy())
	assert.Equal(t, time.Duration(0), f.Duration, "still images carry no intrinsic duration")
	assert.Equal(t, uint8(0xFF), f.Img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(0xFF), f.Img.RGBAAt(1, 1).B)

	_, err = seq.Next()
	assert.Equal(t, io.EOF, err)
}

func TestCorruptImageIsDecodeError(t *testing.T) {
	path := writeFile(t, "broken.png", func(f *os.File) error {
		_, err := f.Write([]byte("not a png at all"))
		return err
	})

	seq, err := Open(path)
	require.NoError(t, err, "Open only checks existence; decode is lazy")
	defer seq.Close()

	_, err = seq.Next()
	require.Error(t, err)
	var de *DecodeError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, path, de.Path)
}

func encodeGIF(t *testing.T, g *gif.GIF) string {
	t.Helper()
	return writeFile(t, "anim.gif", func(f *os.File) error {
		return gif.EncodeAll(f, g)
	})
}

func palettedFill(w, h int, pal color.Palette, idx uint8) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, w, h), pal)
	for i := range img.Pix {
		img.Pix[i] = idx
	}
	return img
}

func TestGIFFrameDelays(t *testing.T) {
	pal := color.Palette{color.Black, color.RGBA{R: 0xFF, A: 0xFF}}
	path := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			palettedFill(4, 4, pal, 0),
			palettedFill(4, 4, pal, 1),
		},
		Delay: []int{5, 10}, // hundredths of a second
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	f0, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, f0.Duration)
	assert.Equal(t, uint8(0), f0.Img.RGBAAt(1, 1).R)

	f1, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, f1.Duration)
	assert.Equal(t, uint8(0xFF), f1.Img.RGBAAt(1, 1).R)

	_, err = seq.Next()
	assert.Equal(t, io.EOF, err)
}

func TestGIFZeroDelayMeansNoDuration(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	path := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{palettedFill(2, 2, pal, 1)},
		Delay: []int{0},
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	f, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), f.Duration)
}

// A partial second frame with default disposal must composite over the
// first frame, not replace it.
func TestGIFPartialFrameComposites(t *testing.T) {
	pal := color.Palette{
		color.RGBA{B: 0xFF, A: 0xFF},
		color.RGBA{R: 0xFF, A: 0xFF},
	}
	full := palettedFill(4, 4, pal, 0)
	patch := image.NewPaletted(image.Rect(0, 0, 2, 2), pal)
	for i := range patch.Pix {
		patch.Pix[i] = 1
	}
	path := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{full, patch},
		Delay: []int{5, 5},
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	_, err = seq.Next()
	require.NoError(t, err)
	f, err := seq.Next()
	require.NoError(t, err)

	assert.Equal(t, uint8(0xFF), f.Img.RGBAAt(0, 0).R, "patched region is red")
	assert.Equal(t, uint8(0xFF), f.Img.RGBAAt(3, 3).B, "untouched region keeps frame one")
}

// A first frame that covers only a sub-rect of the logical screen must
// not shrink the canvas; later full-screen frames render at full size.
func TestGIFSubRectFirstFrame(t *testing.T) {
	pal := color.Palette{
		color.RGBA{B: 0xFF, A: 0xFF},
		color.RGBA{R: 0xFF, A: 0xFF},
	}
	patch := image.NewPaletted(image.Rect(1, 1, 3, 3), pal)
	for i := range patch.Pix {
		patch.Pix[i] = 1
	}
	path := encodeGIF(t, &gif.GIF{
		Config: image.Config{Width: 4, Height: 4},
		Image:  []*image.Paletted{patch, palettedFill(4, 4, pal, 0)},
		Delay:  []int{5, 5},
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	f0, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, f0.Img.Rect.Dx(), "canvas is the logical screen, not frame zero")
	assert.Equal(t, 4, f0.Img.Rect.Dy())
	assert.Equal(t, uint8(0xFF), f0.Img.RGBAAt(1, 1).R, "patch lands at its offset")

	f1, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), f1.Img.RGBAAt(0, 0).B, "full-screen frame reaches every corner")
	assert.Equal(t, uint8(0xFF), f1.Img.RGBAAt(3, 3).B)
}

// Frames are snapshots: advancing the sequence must not mutate a frame
// already handed out.
func TestGIFFramesAreIndependent(t *testing.T) {
	pal := color.Palette{color.Black, color.White}
	path := encodeGIF(t, &gif.GIF{
		Image: []*image.Paletted{
			palettedFill(2, 2, pal, 0),
			palettedFill(2, 2, pal, 1),
		},
		Delay: []int{5, 5},
	})

	seq, err := Open(path)
	require.NoError(t, err)
	defer seq.Close()

	f0, err := seq.Next()
	require.NoError(t, err)
	_, err = seq.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), f0.Img.RGBAAt(0, 0).R)
}
