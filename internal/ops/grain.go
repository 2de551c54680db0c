package ops

import (
	"image"
	"math/rand/v2"

	"github.com/MeKo-Tech/darkroom/internal/colorspace"
	"github.com/aquilax/go-perlin"
)

// NoiseSource yields a value in [0, 1) for a pixel position.
type NoiseSource interface {
	Sample(x, y int) float64
}

// UniformNoise draws independent uniform samples. It is not safe for concurrent use.
type UniformNoise struct {
	rng *rand.Rand
}

// NewUniformNoise returns a seeded uniform source. The same seed yields the same sequence.
func NewUniformNoise(seed uint64) *UniformNoise {
	return &UniformNoise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomNoise returns a uniform source seeded from the runtime's random state.
func NewRandomNoise() *UniformNoise {
	return NewUniformNoise(rand.Uint64())
}

// Sample ignores the position and returns the next uniform value.
func (u *UniformNoise) Sample(_, _ int) float64 {
	return u.rng.Float64()
}

// PerlinNoise is a spatially coherent source for clumpier, film-like grain.
type PerlinNoise struct {
	p     *perlin.Perlin
	scale float64
}

// NewPerlinNoise creates a Perlin source. scale is the feature size in pixels (smaller = finer grain).
func NewPerlinNoise(scale float64, seed int64) *PerlinNoise {
	if scale <= 0 {
		scale = 1.5
	}
	return &PerlinNoise{
		p:     perlin.NewPerlin(2.0, 2.0, 3, seed),
		scale: scale,
	}
}

// Sample maps the Perlin value (roughly -1..1) into [0, 1).
func (n *PerlinNoise) Sample(x, y int) float64 {
	v := (n.p.Noise2D(float64(x)/n.scale, float64(y)/n.scale) + 1) / 2
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return 0.999999
	}
	return v
}

// Grain adds the same noise offset to R, G and B of each pixel.
// Offsets lie in [-amount*2.55/2, +amount*2.55/2).
func Grain(img *image.NRGBA, amount float64, src NoiseSource) {
	span := amount * 2.55
	eachPixel(img, func(x, y int, p []uint8) {
		n := (src.Sample(x, y) - 0.5) * span
		p[0] = colorspace.ClampU8(float64(p[0]) + n)
		p[1] = colorspace.ClampU8(float64(p[1]) + n)
		p[2] = colorspace.ClampU8(float64(p[2]) + n)
	})
}
