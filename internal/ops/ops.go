// Package ops implements the per-pixel adjustment operators.
//
// Every operator mutates the RGB channels of an *image.NRGBA in place and leaves alpha untouched.
// Results are rounded and clamped to [0, 255]. Operators do not detect their own identity value;
// callers skip them when the parameter is at identity.
package ops

import (
	"image"
	"math"

	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// eachPixel calls fn with the 4-byte RGBA slice of every pixel.
// x and y are relative to the image origin.
func eachPixel(img *image.NRGBA, fn func(x, y int, p []uint8)) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			fn(x, y, row[i:i+4:i+4])
		}
	}
}

// Exposure multiplies every channel by 2^(amount/100).
func Exposure(img *image.NRGBA, amount float64) {
	factor := math.Pow(2, amount/100)
	eachPixel(img, func(_, _ int, p []uint8) {
		p[0] = colorspace.ClampU8(float64(p[0]) * factor)
		p[1] = colorspace.ClampU8(float64(p[1]) * factor)
		p[2] = colorspace.ClampU8(float64(p[2]) * factor)
	})
}

// Temperature shifts red up and blue down by amount/2.
func Temperature(img *image.NRGBA, amount float64) {
	shift := amount / 2
	eachPixel(img, func(_, _ int, p []uint8) {
		p[0] = colorspace.ClampU8(float64(p[0]) + shift)
		p[2] = colorspace.ClampU8(float64(p[2]) - shift)
	})
}

// Vibrance pushes the non-dominant channels away from (amount > 0) or towards (amount < 0)
// the dominant one. The boost fades with existing saturation so vivid pixels do not clip;
// pixels whose boost sign disagrees with amount are left alone.
func Vibrance(img *image.NRGBA, amount float64) {
	a := amount / 100
	eachPixel(img, func(_, _ int, p []uint8) {
		maxc := colorspace.Max3(p[0], p[1], p[2])
		minc := colorspace.Min3(p[0], p[1], p[2])
		sat := float64(maxc) - float64(minc)
		boost := a * (1 - sat/128)
		if boost == 0 || (boost > 0) != (a > 0) {
			return
		}
		m := float64(maxc)
		for c := 0; c < 3; c++ {
			v := float64(p[c])
			p[c] = colorspace.ClampU8(v - (m-v)*boost)
		}
	})
}

// Airlight is the assumed atmospheric light color used by Dehaze.
var Airlight = [3]float64{220, 220, 230}

// minTransmission keeps the dehaze division bounded.
const minTransmission = 0.1

// Dehaze inverts a simple atmospheric scattering model.
// Negative amounts add haze instead of removing it.
func Dehaze(img *image.NRGBA, amount float64) {
	strength := amount / 100
	eachPixel(img, func(_, _ int, p []uint8) {
		darkest := math.Min(float64(p[0])/Airlight[0], math.Min(float64(p[1])/Airlight[1], float64(p[2])/Airlight[2]))
		t := 1 - strength*darkest
		if t < minTransmission {
			t = minTransmission
		}
		for c := 0; c < 3; c++ {
			v := (float64(p[c])-Airlight[c])/t + Airlight[c]
			p[c] = colorspace.ClampU8(v)
		}
	})
}

// HighlightsShadows shifts HSL lightness in the dark and bright halves with a squared-cosine falloff.
// shadows and highlights are in [-100, 100].
func HighlightsShadows(img *image.NRGBA, highlights, shadows float64) {
	hAdj := highlights / 100
	sAdj := shadows / 100
	eachPixel(img, func(_, _ int, p []uint8) {
		h, s, l := colorspace.RGBToHSL(p[0], p[1], p[2])
		var delta float64
		if l < 0.5 {
			c := math.Cos(l * math.Pi)
			delta = sAdj * c * c
		} else if l > 0.5 {
			c := math.Cos((1 - l) * math.Pi)
			delta = hAdj * c * c
		}
		if delta == 0 {
			return
		}
		p[0], p[1], p[2] = colorspace.HSLToRGB(h, s, colorspace.Clamp01(l+delta))
	})
}

// WhitesBlacks lifts or lowers the bright end (weighted by luma²) and the dark end
// (weighted by (1-luma)²). whites and blacks are in [-100, 100].
func WhitesBlacks(img *image.NRGBA, whites, blacks float64) {
	wAdj := whites / 100
	bAdj := blacks / 100
	eachPixel(img, func(_, _ int, p []uint8) {
		luma := colorspace.Luma(p[0], p[1], p[2]) / 255
		inv := 1 - luma
		shift := 255 * (wAdj*luma*luma + bAdj*inv*inv)
		if shift == 0 {
			return
		}
		p[0] = colorspace.ClampU8(float64(p[0]) + shift)
		p[1] = colorspace.ClampU8(float64(p[1]) + shift)
		p[2] = colorspace.ClampU8(float64(p[2]) + shift)
	})
}
