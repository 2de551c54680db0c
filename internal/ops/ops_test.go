package ops

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// gradient fills an image with a deterministic spread of colors and alphas.
func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 37) % 256),
				G: uint8((y * 53) % 256),
				B: uint8(((x + y) * 29) % 256),
				A: uint8(255 - (x*y)%64),
			})
		}
	}
	return img
}

func assertAlphaUnchanged(t *testing.T, before, after *image.NRGBA) {
	t.Helper()
	for i := 3; i < len(before.Pix); i += 4 {
		if before.Pix[i] != after.Pix[i] {
			t.Fatalf("alpha changed at byte %d: %d -> %d", i, before.Pix[i], after.Pix[i])
		}
	}
}

func TestTemperatureOnWhite(t *testing.T) {
	img := solid(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	Temperature(img, 100)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 205, A: 255}, img.NRGBAAt(0, 0))
}

func TestTemperatureCool(t *testing.T) {
	img := solid(1, 1, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	Temperature(img, -40)
	assert.Equal(t, color.NRGBA{R: 80, G: 100, B: 120, A: 255}, img.NRGBAAt(0, 0))
}

func TestExposureStops(t *testing.T) {
	img := solid(1, 1, color.NRGBA{R: 60, G: 100, B: 200, A: 90})
	Exposure(img, 100)
	assert.Equal(t, color.NRGBA{R: 120, G: 200, B: 255, A: 90}, img.NRGBAAt(0, 0), "one stop doubles and clamps")

	img = solid(1, 1, color.NRGBA{R: 60, G: 100, B: 200, A: 90})
	Exposure(img, -100)
	assert.Equal(t, color.NRGBA{R: 30, G: 50, B: 100, A: 90}, img.NRGBAAt(0, 0))
}

func TestVibrance(t *testing.T) {
	t.Run("boosts muted color", func(t *testing.T) {
		img := solid(1, 1, color.NRGBA{R: 200, G: 100, B: 100, A: 255})
		Vibrance(img, 100)
		// boost = 1 - 100/128 = 0.21875; 100 - 100*0.21875 = 78.125
		assert.Equal(t, color.NRGBA{R: 200, G: 78, B: 78, A: 255}, img.NRGBAAt(0, 0))
	})

	t.Run("leaves saturated color", func(t *testing.T) {
		img := solid(1, 1, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
		Vibrance(img, 100)
		assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 255}, img.NRGBAAt(0, 0))
	})

	t.Run("gray has nothing to boost", func(t *testing.T) {
		img := solid(1, 1, color.NRGBA{R: 90, G: 90, B: 90, A: 255})
		Vibrance(img, 60)
		assert.Equal(t, color.NRGBA{R: 90, G: 90, B: 90, A: 255}, img.NRGBAAt(0, 0))
	})

	t.Run("negative desaturates", func(t *testing.T) {
		img := solid(1, 1, color.NRGBA{R: 200, G: 100, B: 100, A: 255})
		Vibrance(img, -100)
		got := img.NRGBAAt(0, 0)
		assert.Equal(t, uint8(200), got.R)
		assert.Greater(t, got.G, uint8(100))
	})
}

func TestDehaze(t *testing.T) {
	air := color.NRGBA{R: 220, G: 220, B: 230, A: 255}
	img := solid(1, 1, air)
	Dehaze(img, 80)
	assert.Equal(t, air, img.NRGBAAt(0, 0), "airlight is a fixed point")

	img = solid(1, 1, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	Dehaze(img, 50)
	got := img.NRGBAAt(0, 0)
	assert.Less(t, got.R, uint8(100), "dehaze deepens mid tones")

	img = solid(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	Dehaze(img, 100)
	got = img.NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), got.R, "transmission floor keeps the result bounded")
}

func TestHighlightsShadows(t *testing.T) {
	dark := solid(1, 1, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	HighlightsShadows(dark, 0, 50)
	assert.Greater(t, dark.NRGBAAt(0, 0).R, uint8(40))

	bright := solid(1, 1, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	HighlightsShadows(bright, -50, 0)
	assert.Less(t, bright.NRGBAAt(0, 0).R, uint8(230))

	// Shadows alone never move pixels in the bright half.
	bright = solid(1, 1, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
	HighlightsShadows(bright, 0, 100)
	assert.Equal(t, uint8(230), bright.NRGBAAt(0, 0).R)
}

func TestWhitesBlacks(t *testing.T) {
	black := solid(1, 1, color.NRGBA{A: 255})
	WhitesBlacks(black, 100, 0)
	assert.Equal(t, color.NRGBA{A: 255}, black.NRGBAAt(0, 0), "whites weight is luma², zero on black")

	WhitesBlacks(black, 0, 100)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, black.NRGBAAt(0, 0))

	white := solid(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	WhitesBlacks(white, -20, 0)
	assert.Equal(t, uint8(204), white.NRGBAAt(0, 0).R)
}

func TestSharpen(t *testing.T) {
	t.Run("flat image is a fixed point", func(t *testing.T) {
		img := solid(5, 5, color.NRGBA{R: 120, G: 33, B: 201, A: 255})
		Sharpen(img, 37)
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				require.Equal(t, color.NRGBA{R: 120, G: 33, B: 201, A: 255}, img.NRGBAAt(x, y))
			}
		}
	})

	t.Run("spike is amplified from a snapshot", func(t *testing.T) {
		img := solid(5, 5, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
		img.SetNRGBA(2, 2, color.NRGBA{R: 140, G: 140, B: 140, A: 255})
		Sharpen(img, 50)

		// center: 3*140 - 0.5*400 = 220
		assert.Equal(t, uint8(220), img.NRGBAAt(2, 2).R)
		// neighbour: 3*100 - 0.5*(140+300) = 80
		assert.Equal(t, uint8(80), img.NRGBAAt(2, 1).R)
		// diagonal neighbours see only flat gray
		assert.Equal(t, uint8(100), img.NRGBAAt(1, 1).R)
	})

	t.Run("border untouched", func(t *testing.T) {
		img := gradient(6, 6)
		before := image.NewNRGBA(img.Bounds())
		copy(before.Pix, img.Pix)
		Sharpen(img, 100)
		for x := 0; x < 6; x++ {
			assert.Equal(t, before.NRGBAAt(x, 0), img.NRGBAAt(x, 0))
			assert.Equal(t, before.NRGBAAt(x, 5), img.NRGBAAt(x, 5))
			assert.Equal(t, before.NRGBAAt(0, x), img.NRGBAAt(0, x))
			assert.Equal(t, before.NRGBAAt(5, x), img.NRGBAAt(5, x))
		}
		assertAlphaUnchanged(t, before, img)
	})

	t.Run("tiny images are skipped", func(t *testing.T) {
		img := solid(2, 2, color.NRGBA{R: 10, A: 255})
		Sharpen(img, 100)
		assert.Equal(t, uint8(10), img.NRGBAAt(1, 1).R)
	})
}

func TestGrainBoundedDeviation(t *testing.T) {
	const amount = 40.0
	limit := int(math.Ceil(amount * 2.55 / 2))

	base := solid(16, 16, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	img := image.NewNRGBA(base.Bounds())
	copy(img.Pix, base.Pix)

	Grain(img, amount, NewUniformNoise(7))

	varied := false
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			got := img.NRGBAAt(x, y)
			d := int(got.R) - 128
			require.LessOrEqual(t, d, limit)
			require.GreaterOrEqual(t, d, -limit)
			require.Equal(t, got.R, got.G, "noise is shared across channels")
			require.Equal(t, got.R, got.B, "noise is shared across channels")
			require.Equal(t, uint8(255), got.A)
			if d != 0 {
				varied = true
			}
		}
	}
	assert.True(t, varied, "grain should perturb at least one pixel")
}

func TestGrainSeedIsReproducible(t *testing.T) {
	a := gradient(8, 8)
	b := gradient(8, 8)
	Grain(a, 60, NewUniformNoise(99))
	Grain(b, 60, NewUniformNoise(99))
	assert.Equal(t, a.Pix, b.Pix)
}

func TestPerlinNoiseRange(t *testing.T) {
	n := NewPerlinNoise(2, 42)
	m := NewPerlinNoise(2, 42)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := n.Sample(x, y)
			require.GreaterOrEqual(t, v, 0.0)
			require.Less(t, v, 1.0)
			require.Equal(t, v, m.Sample(x, y), "perlin source is deterministic per seed")
		}
	}
}

func TestBandInfluence(t *testing.T) {
	assert.InDelta(t, 1.0, BandInfluence(0, 0, 60), 1e-12)
	assert.InDelta(t, 0.25, BandInfluence(15, 0, 60), 1e-12)
	assert.InDelta(t, 0.25, BandInfluence(345, 0, 60), 1e-12, "wraps around 360")
	assert.Equal(t, 0.0, BandInfluence(30, 0, 60))
	assert.Equal(t, 0.0, BandInfluence(180, 0, 60))
}

func TestSelectiveHSL(t *testing.T) {
	var filters adjust.HSLFilters
	filters[adjust.Red] = adjust.HSLAdjustment{S: -100}

	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 200})
	img.SetNRGBA(2, 0, color.NRGBA{R: 77, G: 77, B: 77, A: 255})

	SelectiveHSL(img, filters)

	red := img.NRGBAAt(0, 0)
	assert.Equal(t, red.R, red.G, "fully desaturated red is gray")
	assert.Equal(t, red.G, red.B, "fully desaturated red is gray")
	assert.Equal(t, color.NRGBA{B: 255, A: 200}, img.NRGBAAt(1, 0), "blue is outside the red band")
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, img.NRGBAAt(2, 0), "achromatic pixels are skipped")
}

func TestSelectiveHSLHueShift(t *testing.T) {
	var filters adjust.HSLFilters
	filters[adjust.Green] = adjust.HSLAdjustment{H: 100 * 120.0 / 180.0}

	img := solid(1, 1, color.NRGBA{G: 255, A: 255})
	SelectiveHSL(img, filters)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(0, 0), "green rotated by 120° is blue")
}

func TestBandShiftNormalizesOverlap(t *testing.T) {
	overlapping := []activeBand{
		{center: 100, half: 30, dh: 20, ds: 0.2, dl: -0.1},
		{center: 100, half: 30, dh: 40, ds: 0.4, dl: -0.3},
	}
	dh, ds, dl, ok := bandShift(100, overlapping)
	require.True(t, ok)
	assert.InDelta(t, 30.0, dh, 1e-12, "total influence 2 averages the shifts")
	assert.InDelta(t, 0.3, ds, 1e-12)
	assert.InDelta(t, -0.2, dl, 1e-12)

	single := []activeBand{{center: 0, half: 30, dh: 40}}
	dh, _, _, ok = bandShift(15, single)
	require.True(t, ok)
	assert.InDelta(t, 10.0, dh, 1e-12, "partial influence is not rescaled")

	_, _, _, ok = bandShift(180, single)
	assert.False(t, ok)
}

func TestSelectiveHSLIdentityNoop(t *testing.T) {
	img := gradient(8, 8)
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)
	SelectiveHSL(img, adjust.HSLFilters{})
	assert.Equal(t, before, img.Pix)
}

func TestCSSFilterChain(t *testing.T) {
	assert.Nil(t, CSSFilterChain(adjust.DefaultFilters()))

	f := adjust.DefaultFilters()
	f.Brightness = 150
	require.NotNil(t, CSSFilterChain(f))

	img := solid(2, 2, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	CSSFilters(img, f)
	assert.Greater(t, img.NRGBAAt(0, 0).R, uint8(100))
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).A)
}

func TestOperatorsPreserveAlpha(t *testing.T) {
	ops := map[string]func(*image.NRGBA){
		"exposure":    func(img *image.NRGBA) { Exposure(img, 70) },
		"temperature": func(img *image.NRGBA) { Temperature(img, -60) },
		"vibrance":    func(img *image.NRGBA) { Vibrance(img, 80) },
		"dehaze":      func(img *image.NRGBA) { Dehaze(img, -100) },
		"tone":        func(img *image.NRGBA) { HighlightsShadows(img, 100, -100) },
		"whites":      func(img *image.NRGBA) { WhitesBlacks(img, -100, 100) },
		"sharpen":     func(img *image.NRGBA) { Sharpen(img, 100) },
		"grain":       func(img *image.NRGBA) { Grain(img, 100, NewUniformNoise(1)) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			img := gradient(12, 9)
			before := image.NewNRGBA(img.Bounds())
			copy(before.Pix, img.Pix)
			op(img)
			assertAlphaUnchanged(t, before, img)
		})
	}
}
