package render

import (
	"image"
	"math"

	"github.com/lumenloop/lumend/internal/config"
)

// GammaLUT builds the 256-entry gamma correction table
// lut[i] = round(255 * (i/255)^(1/gamma)), clamped to [0, 255].
// The same table is applied to all three channels.
func GammaLUT(gamma float64) [256]uint8 {
	if gamma < 1.0 {
		gamma = 1.0
	} else if gamma > 3.0 {
		gamma = 3.0
	}
	inv := 1.0 / gamma
	var lut [256]uint8
	for i := 0; i < 256; i++ {
		v := math.Round(255.0 * math.Pow(float64(i)/255.0, inv))
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
	return lut
}

// Correct applies gamma correction followed by per-channel balance to
// src and returns a new image. The result is bit-exact for identical
// (gamma, balance) inputs: the LUT first, then each channel multiplied
// by its balance factor, rounded, and clamped to [0, 255].
func Correct(src *image.RGBA, cfg config.RenderConfig) *image.RGBA {
	lut := GammaLUT(cfg.Gamma)

	bal := cfg.RGBBalance
	for i := range bal {
		if bal[i] < 0.5 {
			bal[i] = 0.5
		} else if bal[i] > 1.5 {
			bal[i] = 1.5
		}
	}

	// Fold the balance multiply into three derived tables so the pixel
	// loop stays a plain lookup.
	var chans [3][256]uint8
	for c := 0; c < 3; c++ {
		for i := 0; i < 256; i++ {
			v := math.Round(float64(lut[i]) * bal[c])
			if v > 255 {
				v = 255
			} else if v < 0 {
				v = 0
			}
			chans[c][i] = uint8(v)
		}
	}

	dst := image.NewRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		dst.Pix[i+0] = chans[0][src.Pix[i+0]]
		dst.Pix[i+1] = chans[1][src.Pix[i+1]]
		dst.Pix[i+2] = chans[2][src.Pix[i+2]]
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}
