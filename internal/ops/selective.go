package ops

import (
	"image"
	"math"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

type activeBand struct {
	center float64
	half   float64
	dh     float64 // degrees
	ds     float64
	dl     float64
}

// BandInfluence is the squared raised-cosine weight of a hue inside a band window.
// It is 1 at the center and falls to 0 at half the band range.
func BandInfluence(hue, center, width float64) float64 {
	half := width / 2
	dist := colorspace.HueDistance(hue, center)
	if dist >= half {
		return 0
	}
	w := (math.Cos(dist/half*math.Pi) + 1) / 2
	return w * w
}

// SelectiveHSL shifts hue, saturation and lightness per hue band.
// Overlapping bands are normalized when their total influence exceeds 1.
// Achromatic pixels have no hue and are left untouched.
func SelectiveHSL(img *image.NRGBA, filters adjust.HSLFilters) {
	bands := make([]activeBand, 0, adjust.NumBands)
	for _, b := range adjust.Bands {
		a := filters[b]
		if a.IsZero() {
			continue
		}
		bands = append(bands, activeBand{
			center: b.Center(),
			half:   b.Range() / 2,
			dh:     a.H / 100 * 180,
			ds:     a.S / 100,
			dl:     a.L / 100,
		})
	}
	if len(bands) == 0 {
		return
	}

	eachPixel(img, func(_, _ int, p []uint8) {
		h, s, l := colorspace.RGBToHSL(p[0], p[1], p[2])
		if s == 0 {
			return
		}

		dh, ds, dl, ok := bandShift(h, bands)
		if !ok {
			return
		}
		p[0], p[1], p[2] = colorspace.HSLToRGB(
			colorspace.WrapHue(h+dh),
			colorspace.Clamp01(s+ds),
			colorspace.Clamp01(l+dl),
		)
	})
}

// bandShift sums the weighted shifts of every band covering hue. When the bands overlap with a
// total influence above 1 the sum is divided by that total, so the shift never exceeds the
// strongest band's. ok is false when no band covers hue.
func bandShift(hue float64, bands []activeBand) (dh, ds, dl float64, ok bool) {
	var total float64
	for _, b := range bands {
		inf := BandInfluence(hue, b.center, b.half*2)
		if inf == 0 {
			continue
		}
		dh += inf * b.dh
		ds += inf * b.ds
		dl += inf * b.dl
		total += inf
	}
	if total == 0 {
		return 0, 0, 0, false
	}
	if total > 1 {
		dh /= total
		ds /= total
		dl /= total
	}
	return dh, ds, dl, true
}
