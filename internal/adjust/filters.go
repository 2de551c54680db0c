// Package adjust defines the adjustment parameter model: basic sliders, per-band HSL and tone curves.
//
// Adjustments is a value type. Every editor returns a new value and curves are cloned on write,
// so a committed value and a transient (live) value never share mutable state.
package adjust

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a parameter lies outside its documented domain.
var ErrOutOfRange = errors.New("adjustment out of range")

// ErrUnknownField is returned for slider names outside Fields.
var ErrUnknownField = errors.New("unknown filter field")

// Field names a BasicFilters slider.
type Field string

const (
	Brightness  Field = "brightness"
	Contrast    Field = "contrast"
	Saturation  Field = "saturation"
	Sepia       Field = "sepia"
	Exposure    Field = "exposure"
	Highlights  Field = "highlights"
	Shadows     Field = "shadows"
	Whites      Field = "whites"
	Blacks      Field = "blacks"
	Temperature Field = "temperature"
	Vibrance    Field = "vibrance"
	Dehaze      Field = "dehaze"
	Sharpen     Field = "sharpen"
	Grain       Field = "grain"
	Haze        Field = "haze"
	HazeSpread  Field = "hazeSpread"
)

// Fields lists every slider in declaration order.
var Fields = []Field{
	Brightness, Contrast, Saturation, Sepia,
	Exposure, Highlights, Shadows, Whites, Blacks, Temperature, Vibrance, Dehaze,
	Sharpen, Grain, Haze, HazeSpread,
}

// Spec is the domain and identity value of a slider.
type Spec struct {
	Min      float64
	Max      float64
	Identity float64
}

var fieldSpecs = map[Field]Spec{
	Brightness:  {Min: 0, Max: 200, Identity: 100},
	Contrast:    {Min: 0, Max: 200, Identity: 100},
	Saturation:  {Min: 0, Max: 200, Identity: 100},
	Sepia:       {Min: 0, Max: 100, Identity: 0},
	Exposure:    {Min: -100, Max: 100, Identity: 0},
	Highlights:  {Min: -100, Max: 100, Identity: 0},
	Shadows:     {Min: -100, Max: 100, Identity: 0},
	Whites:      {Min: -100, Max: 100, Identity: 0},
	Blacks:      {Min: -100, Max: 100, Identity: 0},
	Temperature: {Min: -100, Max: 100, Identity: 0},
	Vibrance:    {Min: -100, Max: 100, Identity: 0},
	Dehaze:      {Min: -100, Max: 100, Identity: 0},
	Sharpen:     {Min: 0, Max: 100, Identity: 0},
	Grain:       {Min: 0, Max: 100, Identity: 0},
	Haze:        {Min: 0, Max: 100, Identity: 0},
	HazeSpread:  {Min: 0, Max: 100, Identity: 50},
}

// FieldSpec returns the domain of a slider.
func FieldSpec(f Field) (Spec, error) {
	s, ok := fieldSpecs[f]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return s, nil
}

// BasicFilters is the flat record of numeric sliders.
type BasicFilters struct {
	Brightness  float64 `mapstructure:"brightness" json:"brightness"`
	Contrast    float64 `mapstructure:"contrast" json:"contrast"`
	Saturation  float64 `mapstructure:"saturation" json:"saturation"`
	Sepia       float64 `mapstructure:"sepia" json:"sepia"`
	Exposure    float64 `mapstructure:"exposure" json:"exposure"`
	Highlights  float64 `mapstructure:"highlights" json:"highlights"`
	Shadows     float64 `mapstructure:"shadows" json:"shadows"`
	Whites      float64 `mapstructure:"whites" json:"whites"`
	Blacks      float64 `mapstructure:"blacks" json:"blacks"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	Vibrance    float64 `mapstructure:"vibrance" json:"vibrance"`
	Dehaze      float64 `mapstructure:"dehaze" json:"dehaze"`
	Sharpen     float64 `mapstructure:"sharpen" json:"sharpen"`
	Grain       float64 `mapstructure:"grain" json:"grain"`
	Haze        float64 `mapstructure:"haze" json:"haze"`
	HazeSpread  float64 `mapstructure:"hazeSpread" json:"hazeSpread"`
}

// DefaultFilters returns every slider at its identity value.
func DefaultFilters() BasicFilters {
	return BasicFilters{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
		HazeSpread: 50,
	}
}

func (f *BasicFilters) ref(field Field) *float64 {
	switch field {
	case Brightness:
		return &f.Brightness
	case Contrast:
		return &f.Contrast
	case Saturation:
		return &f.Saturation
	case Sepia:
		return &f.Sepia
	case Exposure:
		return &f.Exposure
	case Highlights:
		return &f.Highlights
	case Shadows:
		return &f.Shadows
	case Whites:
		return &f.Whites
	case Blacks:
		return &f.Blacks
	case Temperature:
		return &f.Temperature
	case Vibrance:
		return &f.Vibrance
	case Dehaze:
		return &f.Dehaze
	case Sharpen:
		return &f.Sharpen
	case Grain:
		return &f.Grain
	case Haze:
		return &f.Haze
	case HazeSpread:
		return &f.HazeSpread
	}
	return nil
}

// Value returns the current value of a slider. Unknown fields report NaN.
func (f BasicFilters) Value(field Field) float64 {
	p := f.ref(field)
	if p == nil {
		return math.NaN()
	}
	return *p
}

// With returns a copy with one slider changed.
func (f BasicFilters) With(field Field, v float64) (BasicFilters, error) {
	p := f.ref(field)
	if p == nil {
		return f, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	*p = v
	return f, nil
}

// IsIdentity reports whether a slider sits at its identity value.
func (f BasicFilters) IsIdentity(field Field) bool {
	s, ok := fieldSpecs[field]
	if !ok {
		return true
	}
	return f.Value(field) == s.Identity
}

// Validate checks every slider against its domain.
func (f BasicFilters) Validate() error {
	for _, field := range Fields {
		s := fieldSpecs[field]
		v := f.Value(field)
		if math.IsNaN(v) || v < s.Min || v > s.Max {
			return fmt.Errorf("%w: %s=%v not in [%v, %v]", ErrOutOfRange, field, v, s.Min, s.Max)
		}
	}
	return nil
}
