package adjust

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownChannel is returned for curve channel names outside rgb/red/green/blue.
var ErrUnknownChannel = errors.New("unknown curve channel")

// Point is a curve control point; X and Y are in [0, 255].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a sequence of control points ordered by X. Duplicate X values are allowed in
// edited state; the LUT builder resolves them.
type Curve []Point

// DefaultCurve returns the identity curve (0,0)-(255,255).
func DefaultCurve() Curve {
	return Curve{{X: 0, Y: 0}, {X: 255, Y: 255}}
}

// IsDefault reports whether c is exactly the two-point identity curve.
// An empty curve also maps every input to itself and counts as default.
func (c Curve) IsDefault() bool {
	if len(c) == 0 {
		return true
	}
	return len(c) == 2 && c[0] == Point{X: 0, Y: 0} && c[1] == Point{X: 255, Y: 255}
}

// Clone returns an independent copy.
func (c Curve) Clone() Curve {
	if c == nil {
		return nil
	}
	out := make(Curve, len(c))
	copy(out, c)
	return out
}

// Fingerprint is a stable textual key for the control points, used for LUT memoization.
func (c Curve) Fingerprint() string {
	var sb strings.Builder
	for i, p := range c {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(p.X, 'g', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	return sb.String()
}

// Validate checks that every point lies within [0, 255]^2.
func (c Curve) Validate() error {
	for i, p := range c {
		if !(p.X >= 0 && p.X <= 255) || !(p.Y >= 0 && p.Y <= 255) {
			return fmt.Errorf("%w: point %d (%v,%v) outside [0,255]", ErrOutOfRange, i, p.X, p.Y)
		}
	}
	return nil
}

// Channel selects one of the four curves.
type Channel string

const (
	ChannelRGB   Channel = "rgb"
	ChannelRed   Channel = "red"
	ChannelGreen Channel = "green"
	ChannelBlue  Channel = "blue"
)

// Channels lists the curve channels.
var Channels = []Channel{ChannelRGB, ChannelRed, ChannelGreen, ChannelBlue}

// ParseChannel resolves a channel name.
func ParseChannel(name string) (Channel, error) {
	for _, ch := range Channels {
		if string(ch) == name {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}

// CurvesState holds the master curve and the three channel curves.
// RGB applies after the channel curves.
type CurvesState struct {
	RGB   Curve `json:"rgb"`
	Red   Curve `json:"red"`
	Green Curve `json:"green"`
	Blue  Curve `json:"blue"`
}

// DefaultCurves returns four identity curves.
func DefaultCurves() CurvesState {
	return CurvesState{
		RGB:   DefaultCurve(),
		Red:   DefaultCurve(),
		Green: DefaultCurve(),
		Blue:  DefaultCurve(),
	}
}

// Get returns the curve for a channel.
func (c CurvesState) Get(ch Channel) Curve {
	switch ch {
	case ChannelRed:
		return c.Red
	case ChannelGreen:
		return c.Green
	case ChannelBlue:
		return c.Blue
	default:
		return c.RGB
	}
}

// ChannelsDefault reports whether the red, green and blue curves are all identity.
func (c CurvesState) ChannelsDefault() bool {
	return c.Red.IsDefault() && c.Green.IsDefault() && c.Blue.IsDefault()
}

// IsIdentity reports whether all four curves are identity.
func (c CurvesState) IsIdentity() bool {
	return c.RGB.IsDefault() && c.ChannelsDefault()
}

// Clone deep-copies all four curves.
func (c CurvesState) Clone() CurvesState {
	return CurvesState{
		RGB:   c.RGB.Clone(),
		Red:   c.Red.Clone(),
		Green: c.Green.Clone(),
		Blue:  c.Blue.Clone(),
	}
}

// Validate checks all four curves.
func (c CurvesState) Validate() error {
	for _, ch := range Channels {
		if err := c.Get(ch).Validate(); err != nil {
			return fmt.Errorf("curves.%s: %w", ch, err)
		}
	}
	return nil
}
