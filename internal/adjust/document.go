package adjust

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// LoadFile reads a preset document (yaml, json or toml, chosen by extension).
func LoadFile(path string) (Adjustments, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Adjustments{}, fmt.Errorf("failed to read preset %s: %w", path, err)
	}
	adj, err := fromViper(v)
	if err != nil {
		return Adjustments{}, fmt.Errorf("preset %s: %w", filepath.Base(path), err)
	}
	return adj, nil
}

// Decode reads a preset document from r. format is a viper config type such as "yaml" or "json".
func Decode(r io.Reader, format string) (Adjustments, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return Adjustments{}, fmt.Errorf("failed to parse preset: %w", err)
	}
	return fromViper(v)
}

// Decoding starts from Default(); keys absent from the document keep their identity value.
func fromViper(v *viper.Viper) (Adjustments, error) {
	adj := Default()

	// viper lowercases keys, so names are matched case-insensitively.
	for name := range v.GetStringMap("filters") {
		if !knownField(name) {
			return Adjustments{}, fmt.Errorf("%w: filters.%s", ErrUnknownField, name)
		}
	}

	for _, field := range Fields {
		key := "filters." + string(field)
		if !v.IsSet(key) {
			continue
		}
		val, err := cast.ToFloat64E(v.Get(key))
		if err != nil {
			return Adjustments{}, fmt.Errorf("%s: %w", key, err)
		}
		adj.Filters, _ = adj.Filters.With(field, val)
	}

	for name := range v.GetStringMap("hsl") {
		band, err := ParseBand(strings.ToLower(name))
		if err != nil {
			return Adjustments{}, err
		}
		prefix := "hsl." + name + "."
		var a HSLAdjustment
		for _, c := range []struct {
			key string
			dst *float64
		}{{"h", &a.H}, {"s", &a.S}, {"l", &a.L}} {
			if !v.IsSet(prefix + c.key) {
				continue
			}
			val, err := cast.ToFloat64E(v.Get(prefix + c.key))
			if err != nil {
				return Adjustments{}, fmt.Errorf("%s%s: %w", prefix, c.key, err)
			}
			*c.dst = val
		}
		adj.HSL[band] = a
	}

	for name := range v.GetStringMap("curves") {
		ch, err := ParseChannel(strings.ToLower(name))
		if err != nil {
			return Adjustments{}, err
		}
		curve, err := parseCurve(v.Get("curves." + name))
		if err != nil {
			return Adjustments{}, fmt.Errorf("curves.%s: %w", name, err)
		}
		adj, _ = adj.WithCurve(ch, curve)
	}

	if err := adj.Validate(); err != nil {
		return Adjustments{}, err
	}
	return adj, nil
}

func knownField(name string) bool {
	for _, f := range Fields {
		if strings.EqualFold(string(f), name) {
			return true
		}
	}
	return false
}

// parseCurve accepts either [[x,y],...] or [{x:..,y:..},...].
func parseCurve(raw any) (Curve, error) {
	items, err := cast.ToSliceE(raw)
	if err != nil {
		return nil, err
	}
	curve := make(Curve, 0, len(items))
	for i, item := range items {
		var p Point
		switch it := item.(type) {
		case []any:
			if len(it) != 2 {
				return nil, fmt.Errorf("point %d: expected [x, y], got %d values", i, len(it))
			}
			if p.X, err = cast.ToFloat64E(it[0]); err != nil {
				return nil, fmt.Errorf("point %d x: %w", i, err)
			}
			if p.Y, err = cast.ToFloat64E(it[1]); err != nil {
				return nil, fmt.Errorf("point %d y: %w", i, err)
			}
		default:
			m, err := cast.ToStringMapE(item)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			if p.X, err = cast.ToFloat64E(m["x"]); err != nil {
				return nil, fmt.Errorf("point %d x: %w", i, err)
			}
			if p.Y, err = cast.ToFloat64E(m["y"]); err != nil {
				return nil, fmt.Errorf("point %d y: %w", i, err)
			}
		}
		curve = append(curve, p)
	}
	return curve, nil
}

// Document returns the preset document form of a, listing only non-identity values.
func (a Adjustments) Document() map[string]any {
	doc := map[string]any{}

	filters := map[string]any{}
	for _, field := range Fields {
		if !a.Filters.IsIdentity(field) {
			filters[string(field)] = a.Filters.Value(field)
		}
	}
	if len(filters) > 0 {
		doc["filters"] = filters
	}

	hsl := map[string]any{}
	for _, b := range Bands {
		if h := a.HSL[b]; !h.IsZero() {
			hsl[b.String()] = map[string]any{"h": h.H, "s": h.S, "l": h.L}
		}
	}
	if len(hsl) > 0 {
		doc["hsl"] = hsl
	}

	curves := map[string]any{}
	for _, ch := range Channels {
		c := a.Curves.Get(ch)
		if c.IsDefault() {
			continue
		}
		points := make([][2]float64, len(c))
		for i, p := range c {
			points[i] = [2]float64{p.X, p.Y}
		}
		curves[string(ch)] = points
	}
	if len(curves) > 0 {
		doc["curves"] = curves
	}

	return doc
}

// MarshalJSON encodes the document form so stored presets decode through Decode.
func (a Adjustments) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Document())
}

// UnmarshalJSON decodes the document form.
func (a *Adjustments) UnmarshalJSON(data []byte) error {
	out, err := Decode(bytes.NewReader(data), "json")
	if err != nil {
		return err
	}
	*a = out
	return nil
}
