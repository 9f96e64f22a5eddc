package render

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/lumenloop/lumend/internal/config"
)

// Transform applies the geometric stage to src: rotate (canvas expands,
// never crops), mirror horizontal, mirror vertical, then resample to the
// target canvas. Pure; no state survives between calls.
func Transform(src *image.RGBA, cfg config.RenderConfig, targetW, targetH int) *image.RGBA {
	out := src
	switch cfg.Rotate {
	case 90:
		out = rotate90(out)
	case 180:
		out = rotate180(out)
	case 270:
		out = rotate90(rotate180(out))
	}
	if cfg.MirrorX {
		out = mirrorX(out)
	}
	if cfg.MirrorY {
		out = mirrorY(out)
	}
	if targetW > 0 && targetH > 0 && (out.Rect.Dx() != targetW || out.Rect.Dy() != targetH) {
		out = resample(out, targetW, targetH, cfg.Scale)
	}
	return out
}

// rotate90 rotates counter-clockwise by 90 degrees; a WxH input becomes HxW.
func rotate90(src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(y, w-1-x, src.RGBAAt(src.Rect.Min.X+x, src.Rect.Min.Y+y))
		}
	}
	return dst
}

func rotate180(src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, h-1-y, src.RGBAAt(src.Rect.Min.X+x, src.Rect.Min.Y+y))
		}
	}
	return dst
}

func mirrorX(src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, y, src.RGBAAt(src.Rect.Min.X+x, src.Rect.Min.Y+y))
		}
	}
	return dst
}

func mirrorY(src *image.RGBA) *image.RGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(x, h-1-y, src.RGBAAt(src.Rect.Min.X+x, src.Rect.Min.Y+y))
		}
	}
	return dst
}

func resample(src *image.RGBA, w, h int, algo string) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	var scaler xdraw.Scaler
	switch algo {
	case config.ScaleFast:
		scaler = xdraw.ApproxBiLinear
	default:
		scaler = xdraw.CatmullRom
	}
	scaler.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	return dst
}
