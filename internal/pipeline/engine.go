// Package pipeline runs the adjustment stages in their fixed order and composites layer masks.
//
// Rendering is synchronous and keeps no state between calls apart from the LUT cache, whose
// entries depend only on curve points. Identical inputs always give identical output,
// grain aside.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"
	"unsafe"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/composite"
	"github.com/MeKo-Tech/darkroom/internal/curves"
	"github.com/MeKo-Tech/darkroom/internal/histogram"
	"github.com/MeKo-Tech/darkroom/internal/mask"
	"github.com/MeKo-Tech/darkroom/internal/ops"
)

// ErrDimensionMismatch is returned when a layer mask does not match the base image.
var ErrDimensionMismatch = mask.ErrDimensionMismatch

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger
	// Noise feeds the grain stage. When nil every render draws from a freshly seeded source.
	// A non-nil source is shared across renders and must be safe for the caller's concurrency.
	Noise ops.NoiseSource
	// NewNoise, when set, builds a private grain source for every render and takes precedence
	// over Noise. A factory returning identically seeded sources makes grain reproducible per
	// render and safe under concurrent renders.
	NewNoise func() ops.NoiseSource
	// CacheSize bounds the LUT cache; zero picks curves.DefaultCacheSize.
	CacheSize int
}

// Engine renders Adjustments onto images.
type Engine struct {
	logger   *slog.Logger
	noise    ops.NoiseSource
	newNoise func() ops.NoiseSource
	cache    *curves.Cache
}

// NewEngine prepares an engine and its LUT cache.
func NewEngine(opts Options) (*Engine, error) {
	cache, err := curves.NewCache(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{
		logger:   opts.Logger,
		noise:    opts.Noise,
		newNoise: opts.NewNoise,
		cache:    cache,
	}, nil
}

// Render applies adj to a copy of base and composites it through the visible layer masks.
// base is only read. The result is freshly allocated with base's bounds.
func (e *Engine) Render(base *image.NRGBA, adj adjust.Adjustments, layers []mask.Layer) (*image.NRGBA, error) {
	return e.RenderDebug(base, adj, layers, nil)
}

// RenderDebug is Render that also records a snapshot after every executed stage in dbg.
// A nil dbg records nothing.
func (e *Engine) RenderDebug(base *image.NRGBA, adj adjust.Adjustments, layers []mask.Layer, dbg *DebugContext) (*image.NRGBA, error) {
	if base == nil {
		return nil, errors.New("render: nil base image")
	}
	dst := image.NewNRGBA(base.Bounds())
	if err := e.render(dst, base, adj, layers, dbg); err != nil {
		return nil, err
	}
	return dst, nil
}

// RenderInto is Render writing into a caller-owned buffer of the same size as base.
// dst must not overlap base's pixel memory, including through SubImage. On error dst is left untouched.
func (e *Engine) RenderInto(dst, base *image.NRGBA, adj adjust.Adjustments, layers []mask.Layer) error {
	if dst == nil || base == nil {
		return errors.New("render: nil buffer")
	}
	if dst.Bounds().Size() != base.Bounds().Size() {
		return fmt.Errorf("destination bounds %v do not match base %v", dst.Bounds(), base.Bounds())
	}
	if overlaps(dst, base) {
		return errors.New("render: destination overlaps base")
	}
	return e.render(dst, base, adj, layers, nil)
}

// Histogram computes the distribution of img on demand. It is never part of a render.
func (e *Engine) Histogram(img *image.NRGBA) histogram.Data {
	return histogram.Compute(img)
}

func (e *Engine) render(dst, base *image.NRGBA, adj adjust.Adjustments, layers []mask.Layer, dbg *DebugContext) error {
	if err := adj.Validate(); err != nil {
		return fmt.Errorf("invalid adjustments: %w", err)
	}
	combined, masked, err := mask.Combine(base.Bounds(), layers)
	if err != nil {
		return err
	}

	copyPixels(dst, base)
	dbg.capture("00_base", dst)

	rc := &renderContext{cache: e.cache, noise: e.noise, newNoise: e.newNoise}
	start := time.Now()
	ran := 0
	for i, s := range stages {
		if s.skip(adj) {
			e.log().Debug("Stage skipped", "stage", s.name, "skipped", true)
			continue
		}
		t := time.Now()
		s.run(dst, adj, rc)
		ran++
		e.log().Debug("Stage done", "stage", s.name, "skipped", false, "elapsed", time.Since(t))
		dbg.capture(fmt.Sprintf("%02d_%s", i+1, s.name), dst)
	}

	if masked {
		if err := blendMasked(dst, base, combined); err != nil {
			return err
		}
		dbg.capture(fmt.Sprintf("%02d_masked", len(stages)+1), dst)
	}

	e.log().Debug("Render complete",
		"bounds", base.Bounds().String(),
		"stages", ran,
		"masked", masked,
		"elapsed", time.Since(start))
	return nil
}

func blendMasked(dst, base *image.NRGBA, m *image.Gray) error {
	if err := composite.BlendInto(dst, base, dst, m); err != nil {
		return fmt.Errorf("failed to composite layer masks: %w", err)
	}
	return nil
}

// pixelSpan returns the address range covered by img's visible rows.
func pixelSpan(img *image.NRGBA) (lo, hi uintptr) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= 0 || h <= 0 || len(img.Pix) == 0 {
		return 0, 0
	}
	lo = uintptr(unsafe.Pointer(unsafe.SliceData(img.Pix)))
	return lo, lo + uintptr((h-1)*img.Stride+w*4)
}

// overlaps reports whether the pixel spans of a and b intersect. Side-by-side sub-images of one
// parent interleave by row and count as overlapping.
func overlaps(a, b *image.NRGBA) bool {
	alo, ahi := pixelSpan(a)
	blo, bhi := pixelSpan(b)
	if alo == ahi || blo == bhi {
		return false
	}
	return alo < bhi && blo < ahi
}

func copyPixels(dst, src *image.NRGBA) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
	}
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// renderContext carries per-render collaborators into the stages.
type renderContext struct {
	cache    *curves.Cache
	noise    ops.NoiseSource
	newNoise func() ops.NoiseSource
}

func (rc *renderContext) noiseSource() ops.NoiseSource {
	switch {
	case rc.newNoise != nil:
		rc.noise, rc.newNoise = rc.newNoise(), nil
	case rc.noise == nil:
		rc.noise = ops.NewRandomNoise()
	}
	return rc.noise
}
