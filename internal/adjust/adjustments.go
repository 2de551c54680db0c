package adjust

import "fmt"

// Adjustments aggregates every parameter consumed by the pipeline.
type Adjustments struct {
	Filters BasicFilters
	HSL     HSLFilters
	Curves  CurvesState
}

// Default returns Adjustments at identity.
func Default() Adjustments {
	return Adjustments{
		Filters: DefaultFilters(),
		Curves:  DefaultCurves(),
	}
}

// IsIdentity reports whether every stage would be skipped.
func (a Adjustments) IsIdentity() bool {
	for _, f := range Fields {
		if !a.Filters.IsIdentity(f) {
			return false
		}
	}
	return a.HSL.IsIdentity() && a.Curves.IsIdentity()
}

// WithFilter returns a copy with one slider changed.
func (a Adjustments) WithFilter(field Field, v float64) (Adjustments, error) {
	f, err := a.Filters.With(field, v)
	if err != nil {
		return a, err
	}
	out := a.clone()
	out.Filters = f
	return out, nil
}

// WithBand returns a copy with one hue band changed.
func (a Adjustments) WithBand(b Band, adj HSLAdjustment) (Adjustments, error) {
	if !b.valid() {
		return a, fmt.Errorf("%w: %v", ErrUnknownBand, b)
	}
	out := a.clone()
	out.HSL[b] = adj
	return out, nil
}

// WithCurve returns a copy with one curve replaced. The points are copied.
func (a Adjustments) WithCurve(ch Channel, c Curve) (Adjustments, error) {
	out := a.clone()
	switch ch {
	case ChannelRGB:
		out.Curves.RGB = c.Clone()
	case ChannelRed:
		out.Curves.Red = c.Clone()
	case ChannelGreen:
		out.Curves.Green = c.Clone()
	case ChannelBlue:
		out.Curves.Blue = c.Clone()
	default:
		return a, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	return out, nil
}

// clone deep-copies the curve slices; filters and hsl are plain values.
func (a Adjustments) clone() Adjustments {
	a.Curves = a.Curves.Clone()
	return a
}

// Validate checks every parameter against its domain.
func (a Adjustments) Validate() error {
	if err := a.Filters.Validate(); err != nil {
		return err
	}
	if err := a.HSL.Validate(); err != nil {
		return err
	}
	return a.Curves.Validate()
}
