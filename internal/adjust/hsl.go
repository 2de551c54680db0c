package adjust

import (
	"errors"
	"fmt"
)

// ErrUnknownBand is returned for hue band names outside the fixed set.
var ErrUnknownBand = errors.New("unknown hsl band")

// Band is one of the eight fixed hue bands used by the selective color operator.
type Band int

const (
	Red Band = iota
	Orange
	Yellow
	Green
	Aqua
	Blue
	Purple
	Magenta
)

// NumBands is the number of hue bands.
const NumBands = 8

// Bands lists the bands in hue order.
var Bands = [NumBands]Band{Red, Orange, Yellow, Green, Aqua, Blue, Purple, Magenta}

type bandGeometry struct {
	name   string
	center float64 // degrees
	width  float64 // degrees, full width of the falloff window
}

var bandTable = [NumBands]bandGeometry{
	Red:     {"red", 0, 60},
	Orange:  {"orange", 30, 60},
	Yellow:  {"yellow", 60, 60},
	Green:   {"green", 120, 90},
	Aqua:    {"aqua", 180, 60},
	Blue:    {"blue", 240, 90},
	Purple:  {"purple", 280, 60},
	Magenta: {"magenta", 320, 60},
}

// ParseBand resolves a band name.
func ParseBand(name string) (Band, error) {
	for _, b := range Bands {
		if bandTable[b].name == name {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBand, name)
}

func (b Band) valid() bool { return b >= 0 && int(b) < NumBands }

// String returns the band name.
func (b Band) String() string {
	if !b.valid() {
		return fmt.Sprintf("band(%d)", int(b))
	}
	return bandTable[b].name
}

// Center returns the band's hue center in degrees.
func (b Band) Center() float64 { return bandTable[b].center }

// Range returns the band's full hue width in degrees.
func (b Band) Range() float64 { return bandTable[b].width }

// HSLAdjustment shifts hue, saturation and lightness of one band. Each component is in [-100, 100].
type HSLAdjustment struct {
	H float64 `mapstructure:"h" json:"h"`
	S float64 `mapstructure:"s" json:"s"`
	L float64 `mapstructure:"l" json:"l"`
}

// IsZero reports whether the adjustment is the identity.
func (a HSLAdjustment) IsZero() bool { return a.H == 0 && a.S == 0 && a.L == 0 }

// HSLFilters holds one adjustment per band, indexed by Band.
type HSLFilters [NumBands]HSLAdjustment

// IsIdentity reports whether every band is zero.
func (f HSLFilters) IsIdentity() bool {
	for _, a := range f {
		if !a.IsZero() {
			return false
		}
	}
	return true
}

// Validate checks every component against [-100, 100].
func (f HSLFilters) Validate() error {
	for _, b := range Bands {
		a := f[b]
		for _, c := range []struct {
			name string
			v    float64
		}{{"h", a.H}, {"s", a.S}, {"l", a.L}} {
			if !(c.v >= -100 && c.v <= 100) {
				return fmt.Errorf("%w: hsl.%s.%s=%v not in [-100, 100]", ErrOutOfRange, b, c.name, c.v)
			}
		}
	}
	return nil
}
