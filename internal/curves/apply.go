package curves

import (
	"image"
	"math"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// bayer8 is the 8x8 ordered dither matrix.
var bayer8 = [8][8]uint8{
	{0, 32, 8, 40, 2, 34, 10, 42},
	{48, 16, 56, 24, 50, 18, 58, 26},
	{12, 44, 4, 36, 14, 46, 6, 38},
	{60, 28, 52, 20, 62, 30, 54, 22},
	{3, 35, 11, 43, 1, 33, 9, 41},
	{51, 19, 59, 27, 49, 17, 57, 25},
	{15, 47, 7, 39, 13, 45, 5, 37},
	{63, 31, 55, 23, 61, 29, 53, 21},
}

// DitherOffset returns the ordered-dither offset for a pixel, in [-0.5, 0.5).
func DitherOffset(x, y int) float64 {
	return float64(bayer8[y&7][x&7])/64 - 0.5
}

func lutIndex(v, offset float64) uint8 {
	return colorspace.ClampU8(math.Round(v + offset))
}

const (
	// channelHueWidth is the half-width (degrees) of the hue window for channel curves.
	channelHueWidth = 45.0
	channelExponent = 1.5
	// minChannelSaturation keeps channel curves out of near-neutral pixels.
	minChannelSaturation = 0.05
)

// ChannelWeight is the raised-cosine hue weight for a channel curve centered at center.
func ChannelWeight(hue, center float64) float64 {
	dist := colorspace.HueDistance(hue, center)
	if dist >= channelHueWidth {
		return 0
	}
	return math.Pow((math.Cos(dist/channelHueWidth*math.Pi)+1)/2, channelExponent)
}

// Apply runs the tone curves over img in place. Channel curves only act on pixels whose hue is
// near that channel's primary; the rgb curve is applied last to every pixel.
func Apply(img *image.NRGBA, cs adjust.CurvesState, cache *Cache) {
	rgb := cache.LUT(cs.RGB)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if cs.ChannelsDefault() {
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 0; x < w; x++ {
				d := DitherOffset(x, y)
				p := row[x*4 : x*4+3 : x*4+3]
				p[0] = rgb[lutIndex(float64(p[0]), d)]
				p[1] = rgb[lutIndex(float64(p[1]), d)]
				p[2] = rgb[lutIndex(float64(p[2]), d)]
			}
		}
		return
	}

	type channelCurve struct {
		active bool
		lut    LUT
		center float64
	}
	channels := [3]channelCurve{
		{active: !cs.Red.IsDefault(), lut: cache.LUT(cs.Red), center: 0},
		{active: !cs.Green.IsDefault(), lut: cache.LUT(cs.Green), center: 120},
		{active: !cs.Blue.IsDefault(), lut: cache.LUT(cs.Blue), center: 240},
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			d := DitherOffset(x, y)
			p := row[x*4 : x*4+3 : x*4+3]
			v := [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}

			hue, sat, _ := colorspace.RGBToHSL(p[0], p[1], p[2])
			if sat > minChannelSaturation {
				for c, ch := range channels {
					if !ch.active {
						continue
					}
					wgt := ChannelWeight(hue, ch.center)
					if wgt == 0 {
						continue
					}
					mapped := float64(ch.lut[lutIndex(v[c], d)])
					v[c] += (mapped - v[c]) * wgt
				}
			}

			p[0] = rgb[lutIndex(v[0], d)]
			p[1] = rgb[lutIndex(v[1], d)]
			p[2] = rgb[lutIndex(v[2], d)]
		}
	}
}
