package pipeline

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/mask"
	"github.com/MeKo-Tech/darkroom/internal/ops"
)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func randomImage(w, h int, seed uint64) *image.NRGBA {
	r := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.IntN(256))
	}
	return img
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func filledMask(w, h int, v uint8) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func with(t *testing.T, a adjust.Adjustments, field adjust.Field, v float64) adjust.Adjustments {
	t.Helper()
	out, err := a.WithFilter(field, v)
	require.NoError(t, err)
	return out
}

func TestRenderIdentityIsBitExact(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(17, 9, 42)

	out, err := e.Render(base, adjust.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)
	assert.NotSame(t, &base.Pix[0], &out.Pix[0], "output is a fresh buffer")
}

func TestRenderMidGrayPassesThrough(t *testing.T) {
	e := newEngine(t, Options{})
	base := solid(2, 2, color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	a := with(t, adjust.Default(), adjust.Exposure, 0)
	out, err := e.Render(base, a, nil)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 255}, out.NRGBAAt(x, y))
		}
	}
}

func TestRenderTemperatureOnWhite(t *testing.T) {
	e := newEngine(t, Options{})
	base := solid(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out, err := e.Render(base, with(t, adjust.Default(), adjust.Temperature, 100), nil)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 205, A: 255}, out.NRGBAAt(0, 0))
}

func TestRenderCurveHitsControlPoint(t *testing.T) {
	e := newEngine(t, Options{})
	base := solid(4, 4, color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	a, err := adjust.Default().WithCurve(adjust.ChannelRGB, adjust.Curve{{X: 0, Y: 0}, {X: 128, Y: 200}, {X: 255, Y: 255}})
	require.NoError(t, err)

	out, err := e.Render(base, a, nil)
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, out.NRGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestRenderWhiteAndBlackMasksEqualFullAdjustment(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(8, 8, 7)
	a := with(t, adjust.Default(), adjust.Exposure, 40)
	a = with(t, a, adjust.Temperature, -30)

	full, err := e.Render(base, a, nil)
	require.NoError(t, err)

	layers := []mask.Layer{
		mask.NewLayer("white", filledMask(8, 8, 255)),
		mask.NewLayer("black", filledMask(8, 8, 0)),
	}
	masked, err := e.Render(base, a, layers)
	require.NoError(t, err)
	assert.Equal(t, full.Pix, masked.Pix)
}

func TestRenderBlackMaskRestoresBase(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(6, 5, 3)
	a := with(t, adjust.Default(), adjust.Dehaze, 60)

	out, err := e.Render(base, a, []mask.Layer{mask.NewLayer("none", filledMask(6, 5, 0))})
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)

	inverted := mask.NewLayer("all", filledMask(6, 5, 0))
	inverted.Inverted = true
	full, err := e.Render(base, a, nil)
	require.NoError(t, err)
	out, err = e.Render(base, a, []mask.Layer{inverted})
	require.NoError(t, err)
	assert.Equal(t, full.Pix, out.Pix, "inverted black mask selects everything")
}

func TestRenderHiddenLayersAreIgnored(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(4, 4, 11)
	a := with(t, adjust.Default(), adjust.Vibrance, 50)

	hidden := mask.NewLayer("hidden", filledMask(4, 4, 0))
	hidden.Visible = false

	full, err := e.Render(base, a, nil)
	require.NoError(t, err)
	out, err := e.Render(base, a, []mask.Layer{hidden})
	require.NoError(t, err)
	assert.Equal(t, full.Pix, out.Pix)
}

func TestRenderMaskOrderIndependent(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(5, 5, 99)
	a := with(t, adjust.Default(), adjust.Exposure, -50)

	m1 := mask.FromImage(randomImage(5, 5, 1))
	m2 := mask.FromImage(randomImage(5, 5, 2))
	l1, l2 := mask.NewLayer("one", m1), mask.NewLayer("two", m2)
	l2.Inverted = true

	ab, err := e.Render(base, a, []mask.Layer{l1, l2})
	require.NoError(t, err)
	ba, err := e.Render(base, a, []mask.Layer{l2, l1})
	require.NoError(t, err)
	assert.Equal(t, ab.Pix, ba.Pix)
}

func TestRenderDimensionMismatch(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(4, 4, 5)

	_, err := e.Render(base, adjust.Default(), []mask.Layer{mask.NewLayer("small", filledMask(3, 4, 255))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	dst := solid(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	before := append([]uint8(nil), dst.Pix...)
	err = e.RenderInto(dst, base, adjust.Default(), []mask.Layer{mask.NewLayer("small", filledMask(4, 3, 255))})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, before, dst.Pix, "dst untouched on error")
}

func TestRenderDoesNotMutateBase(t *testing.T) {
	e := newEngine(t, Options{Noise: ops.NewUniformNoise(1)})
	base := randomImage(12, 12, 21)
	before := append([]uint8(nil), base.Pix...)

	a := adjust.Default()
	for _, kv := range []struct {
		f adjust.Field
		v float64
	}{
		{adjust.Brightness, 120}, {adjust.Sepia, 30}, {adjust.Exposure, 20}, {adjust.Highlights, -40},
		{adjust.Shadows, 30}, {adjust.Whites, 10}, {adjust.Blacks, -10}, {adjust.Dehaze, 25},
		{adjust.Haze, 40}, {adjust.Sharpen, 50}, {adjust.Grain, 20},
	} {
		a = with(t, a, kv.f, kv.v)
	}
	a, err := a.WithBand(adjust.Blue, adjust.HSLAdjustment{H: 20, S: -30, L: 10})
	require.NoError(t, err)

	_, err = e.Render(base, a, []mask.Layer{mask.NewLayer("m", mask.FromImage(randomImage(12, 12, 4)))})
	require.NoError(t, err)
	assert.Equal(t, before, base.Pix)
}

func TestRenderGrainIsReproducibleWithSeededSource(t *testing.T) {
	base := randomImage(10, 10, 8)
	a := with(t, adjust.Default(), adjust.Grain, 60)

	first, err := newEngine(t, Options{Noise: ops.NewUniformNoise(77)}).Render(base, a, nil)
	require.NoError(t, err)
	second, err := newEngine(t, Options{Noise: ops.NewUniformNoise(77)}).Render(base, a, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix)

	// grain offsets are bounded by amount*2.55/2
	for i := 0; i < len(base.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := int(first.Pix[i+c]) - int(base.Pix[i+c])
			require.LessOrEqual(t, d, 77)
			require.GreaterOrEqual(t, d, -77)
		}
		require.Equal(t, base.Pix[i+3], first.Pix[i+3])
	}
}

func TestRenderNoiseFactoryRepeatsAcrossRenders(t *testing.T) {
	base := randomImage(10, 10, 3)
	a := with(t, adjust.Default(), adjust.Grain, 80)

	e := newEngine(t, Options{NewNoise: func() ops.NoiseSource { return ops.NewUniformNoise(5) }})
	first, err := e.Render(base, a, nil)
	require.NoError(t, err)
	second, err := e.Render(base, a, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, second.Pix, "each render gets its own identically seeded source")

	shared := newEngine(t, Options{Noise: ops.NewUniformNoise(5)})
	third, err := shared.Render(base, a, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Pix, third.Pix)
	fourth, err := shared.Render(base, a, nil)
	require.NoError(t, err)
	assert.NotEqual(t, third.Pix, fourth.Pix, "a shared source keeps advancing")
}

func TestRenderRejectsInvalidAdjustments(t *testing.T) {
	e := newEngine(t, Options{})
	a := adjust.Default()
	a.Filters.Exposure = 500

	_, err := e.Render(randomImage(2, 2, 1), a, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adjust.ErrOutOfRange))

	_, err = e.Render(nil, adjust.Default(), nil)
	assert.Error(t, err)
}

func TestRenderIntoValidatesDestination(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(3, 3, 2)

	assert.Error(t, e.RenderInto(image.NewNRGBA(image.Rect(0, 0, 2, 3)), base, adjust.Default(), nil))
	assert.Error(t, e.RenderInto(base, base, adjust.Default(), nil), "aliasing base is rejected")

	dst := image.NewNRGBA(base.Bounds())
	require.NoError(t, e.RenderInto(dst, base, with(t, adjust.Default(), adjust.Exposure, 10), nil))
	assert.NotEqual(t, base.Pix, dst.Pix)
}

func TestRenderIntoRejectsOverlappingSubImage(t *testing.T) {
	e := newEngine(t, Options{})
	wide := randomImage(8, 4, 6)
	left := wide.SubImage(image.Rect(0, 0, 4, 4)).(*image.NRGBA)
	shifted := wide.SubImage(image.Rect(2, 0, 6, 4)).(*image.NRGBA)
	before := append([]uint8(nil), wide.Pix...)

	err := e.RenderInto(shifted, left, with(t, adjust.Default(), adjust.Exposure, 10), nil)
	require.Error(t, err)
	assert.Equal(t, before, wide.Pix, "nothing written on rejection")

	tall := randomImage(4, 8, 7)
	top := tall.SubImage(image.Rect(0, 0, 4, 4)).(*image.NRGBA)
	bottom := tall.SubImage(image.Rect(0, 4, 4, 8)).(*image.NRGBA)
	require.NoError(t, e.RenderInto(bottom, top, adjust.Default(), nil), "disjoint rows of one parent")
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.Equal(t, top.NRGBAAt(x, y), bottom.NRGBAAt(x, y+4))
		}
	}
}

func TestRenderDebugCapturesExecutedStages(t *testing.T) {
	e := newEngine(t, Options{})
	base := randomImage(6, 6, 13)
	a := with(t, adjust.Default(), adjust.Exposure, 30)
	a = with(t, a, adjust.Sharpen, 40)

	dbg := &DebugContext{}
	out, err := e.RenderDebug(base, a, []mask.Layer{mask.NewLayer("m", filledMask(6, 6, 200))}, dbg)
	require.NoError(t, err)

	stages := dbg.SortedStages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"00_base", "02_exposure", "11_sharpen", "13_masked"}, names)
	assert.Equal(t, base.Pix, stages[0].Image.Pix)
	assert.Equal(t, out.Pix, stages[3].Image.Pix)
}

func TestRenderLogsStages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEngine(t, Options{Logger: logger})

	_, err := e.Render(randomImage(2, 2, 1), with(t, adjust.Default(), adjust.Vibrance, 10), nil)
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "stage=vibrance skipped=false")
	assert.Contains(t, logs, "stage=grain skipped=true")
	assert.Equal(t, len(StageNames()), strings.Count(logs, "stage="))
}

func TestStageNamesOrder(t *testing.T) {
	assert.Equal(t, []string{
		"css", "exposure", "temperature", "vibrance", "dehaze", "highlights_shadows",
		"whites_blacks", "curves", "hsl", "haze", "sharpen", "grain",
	}, StageNames())
}

func TestHistogramOnDemand(t *testing.T) {
	e := newEngine(t, Options{})
	h := e.Histogram(solid(2, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255}))
	assert.Equal(t, 255.0, h.Red[10])
	assert.Equal(t, 255.0, h.Green[20])
	assert.Equal(t, 255.0, h.Blue[30])
}

func BenchmarkRender(b *testing.B) {
	e, err := NewEngine(Options{Noise: ops.NewUniformNoise(1)})
	require.NoError(b, err)
	base := randomImage(256, 256, 1)
	a := adjust.Default()
	a.Filters.Exposure = 20
	a.Filters.Vibrance = 30
	a.Filters.Sharpen = 40
	a.Filters.Haze = 20

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Render(base, a, nil); err != nil {
			b.Fatal(err)
		}
	}
}
