// Package colorspace holds the RGB/HSL conversions and channel helpers shared by every adjustment stage.
package colorspace

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Luma weights (Rec. 601).
const (
	LumaR = 0.299
	LumaG = 0.587
	LumaB = 0.114
)

// RGBToHSL converts 8-bit RGB to HSL.
// Hue is returned in degrees [0, 360), saturation and lightness in [0, 1].
// Hue is 0 for achromatic input.
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, l = c.Hsl()
	if s == 0 {
		h = 0
	}
	return WrapHue(h), s, l
}

// HSLToRGB converts HSL back to 8-bit RGB. Hue is wrapped, s and l are clamped to [0, 1].
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	c := colorful.Hsl(WrapHue(h), Clamp01(s), Clamp01(l))
	return ClampU8(c.R * 255.0), ClampU8(c.G * 255.0), ClampU8(c.B * 255.0)
}

// Luma returns the perceptual brightness 0.299R + 0.587G + 0.114B in [0, 255].
func Luma(r, g, b uint8) float64 {
	return LumaR*float64(r) + LumaG*float64(g) + LumaB*float64(b)
}

// WrapHue maps any angle into [0, 360).
func WrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// HueDistance returns the shortest angular distance between two hues in degrees.
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// ClampU8 rounds to nearest and clamps to the uint8 range [0, 255].
// NaN maps to 0.
func ClampU8(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Max3 returns the maximum of three uint8 values.
func Max3(a, b, c uint8) uint8 {
	if a < b {
		a = b
	}
	if a < c {
		a = c
	}
	return a
}

// Min3 returns the minimum of three uint8 values.
func Min3(a, b, c uint8) uint8 {
	if a > b {
		a = b
	}
	if a > c {
		a = c
	}
	return a
}
