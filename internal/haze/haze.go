// Package haze simulates atmospheric glow: a luminance-derived glow map is box-blurred and
// composited back over the image in a warmth-dependent tint.
package haze

import (
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// Tint returns the glow color for a warmth setting in [0, 100]; 50 is a neutral (230,230,230).
func Tint(spread float64) color.NRGBA {
	w := (spread - 50) / 50
	return color.NRGBA{
		R: colorspace.ClampU8(230 + 25*w),
		G: colorspace.ClampU8(230 + 10*w),
		B: colorspace.ClampU8(230 - 30*w),
		A: 255,
	}
}

// Radius is the blur radius for a haze amount on a w x h image.
func Radius(amount float64, w, h int) int {
	short := w
	if h < short {
		short = h
	}
	r := int(math.Floor(amount / 100 * float64(short) * 0.05))
	if r < 1 {
		r = 1
	}
	return r
}

// GlowMap returns the glow alpha per pixel, luma²/255, in row-major order.
func GlowMap(img *image.NRGBA) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			l := colorspace.Luma(p[0], p[1], p[2])
			out[y*w+x] = l * l / 255
		}
	}
	return out
}

// BoxBlur blurs a w x h field in place with a separable box of the given radius.
// Windows are clipped at the edges and averaged over the in-bounds samples only.
func BoxBlur(values []float64, w, h, radius int) {
	if radius <= 0 || w == 0 || h == 0 {
		return
	}
	line := make([]float64, max(w, h))
	prefix := make([]float64, max(w, h)+1)

	blurLine := func(get func(i int) float64, set func(i int, v float64), n int) {
		prefix[0] = 0
		for i := 0; i < n; i++ {
			line[i] = get(i)
			prefix[i+1] = prefix[i] + line[i]
		}
		for i := 0; i < n; i++ {
			lo := i - radius
			if lo < 0 {
				lo = 0
			}
			hi := i + radius + 1
			if hi > n {
				hi = n
			}
			set(i, (prefix[hi]-prefix[lo])/float64(hi-lo))
		}
	}

	for y := 0; y < h; y++ {
		off := y * w
		blurLine(
			func(i int) float64 { return values[off+i] },
			func(i int, v float64) { values[off+i] = v },
			w,
		)
	}
	for x := 0; x < w; x++ {
		col := x
		blurLine(
			func(i int) float64 { return values[i*w+col] },
			func(i int, v float64) { values[i*w+col] = v },
			h,
		)
	}
}

// Apply composites the blurred glow over img in place: dst = src*(1-blend) + tint*blend,
// blend = glowAlpha/255 * amount/100. amount is in [0, 100], spread in [0, 100].
func Apply(img *image.NRGBA, amount, spread float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || amount == 0 {
		return
	}

	glow := GlowMap(img)
	BoxBlur(glow, w, h, Radius(amount, w, h))

	tint := Tint(spread)
	tr, tg, tb := float64(tint.R), float64(tint.G), float64(tint.B)
	strength := amount / 100

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			blend := glow[y*w+x] / 255 * strength
			if blend == 0 {
				continue
			}
			p := row[x*4 : x*4+3 : x*4+3]
			p[0] = colorspace.ClampU8(float64(p[0])*(1-blend) + tr*blend)
			p[1] = colorspace.ClampU8(float64(p[1])*(1-blend) + tg*blend)
			p[2] = colorspace.ClampU8(float64(p[2])*(1-blend) + tb*blend)
		}
	}
}
