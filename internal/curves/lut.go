// Package curves builds tone-curve lookup tables and applies them to pixel buffers.
package curves

import (
	"math"
	"sort"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// LUT maps an input channel value to an output value.
type LUT [256]uint8

// Identity returns the identity table.
func Identity() LUT {
	var l LUT
	for i := range l {
		l[i] = uint8(i)
	}
	return l
}

// dedupe keeps the last y for every x and sorts by x.
func dedupe(c adjust.Curve) (xs, ys []float64) {
	byX := make(map[float64]float64, len(c))
	order := make([]float64, 0, len(c))
	for _, p := range c {
		if _, seen := byX[p.X]; !seen {
			order = append(order, p.X)
		}
		byX[p.X] = p.Y
	}
	sort.Float64s(order)

	ys = make([]float64, len(order))
	for i, x := range order {
		ys[i] = byX[x]
	}
	return order, ys
}

// BuildLUT evaluates a monotone cubic Hermite spline (Fritsch–Carlson) through the curve's
// control points at every integer input. Inputs outside the first/last point hold the end values.
func BuildLUT(c adjust.Curve) LUT {
	xs, ys := dedupe(c)
	n := len(xs)

	switch n {
	case 0:
		return Identity()
	case 1:
		var l LUT
		v := colorspace.ClampU8(ys[0])
		for i := range l {
			l[i] = v
		}
		return l
	}

	m := tangents(xs, ys)

	var l LUT
	seg := 0
	for i := 0; i < 256; i++ {
		x := float64(i)
		switch {
		case x <= xs[0]:
			l[i] = colorspace.ClampU8(ys[0])
			continue
		case x >= xs[n-1]:
			l[i] = colorspace.ClampU8(ys[n-1])
			continue
		}
		for seg < n-2 && x > xs[seg+1] {
			seg++
		}
		l[i] = colorspace.ClampU8(hermite(xs[seg], xs[seg+1], ys[seg], ys[seg+1], m[seg], m[seg+1], x))
	}
	l[255] = colorspace.ClampU8(ys[n-1])
	return l
}

// tangents computes Fritsch–Carlson tangents so the spline does not overshoot monotone data.
func tangents(xs, ys []float64) []float64 {
	n := len(xs)
	delta := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx := xs[i+1] - xs[i]
		if dx != 0 {
			delta[i] = (ys[i+1] - ys[i]) / dx
		}
	}

	m := make([]float64, n)
	m[0] = delta[0]
	m[n-1] = delta[n-2]
	for i := 1; i < n-1; i++ {
		m[i] = (delta[i-1] + delta[i]) / 2
	}

	for i := 0; i < n-1; i++ {
		d := delta[i]
		if d == 0 {
			m[i] = 0
			m[i+1] = 0
			continue
		}
		if math.Signbit(m[i]) != math.Signbit(d) {
			m[i] = 0
		}
		if math.Signbit(m[i+1]) != math.Signbit(d) {
			m[i+1] = 0
		}
		a := m[i] / d
		b := m[i+1] / d
		if h := math.Hypot(a, b); h > 3 {
			tau := 3 / h
			m[i] = tau * a * d
			m[i+1] = tau * b * d
		}
	}
	return m
}

func hermite(x0, x1, y0, y1, m0, m1, x float64) float64 {
	h := x1 - x0
	t := (x - x0) / h
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*y0 + h10*h*m0 + h01*y1 + h11*h*m1
}
