package frame

import (
	"image"
	"image/color"
	"testing"
	"time"
)

func TestFromImageCopiesPixels(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 7, A: 0xFF})

	f := FromImage(src, 40*time.Millisecond)
	if f.Duration != 40*time.Millisecond {
		t.Fatalf("duration = %v", f.Duration)
	}
	src.SetRGBA(0, 0, color.RGBA{R: 99, A: 0xFF})
	if got := f.Img.RGBAAt(0, 0).R; got != 7 {
		t.Fatalf("frame shares pixels with source: R = %d", got)
	}
}

func TestFromImageNormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 8, 7))
	f := FromImage(src, 0)
	if f.Img.Rect.Min != (image.Point{}) {
		t.Fatalf("origin = %v", f.Img.Rect.Min)
	}
	if w, h := f.Size(); w != 3 || h != 2 {
		t.Fatalf("size = %dx%d", w, h)
	}
}

func TestCloneIsDeep(t *testing.T) {
	f := FromImage(image.NewRGBA(image.Rect(0, 0, 2, 2)), time.Second)
	g := f.Clone()
	g.Img.Pix[0] = 0xAB
	if f.Img.Pix[0] == 0xAB {
		t.Fatal("clone shares pixel buffer")
	}
	if g.Duration != f.Duration {
		t.Fatal("clone lost duration")
	}
}

func TestZeroFrame(t *testing.T) {
	var f Frame
	if w, h := f.Size(); w != 0 || h != 0 {
		t.Fatalf("size = %dx%d", w, h)
	}
	g := f.Clone()
	if g.Img != nil {
		t.Fatal("clone of empty frame grew an image")
	}
}
