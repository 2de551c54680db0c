package cmd

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/imageio"
	"github.com/MeKo-Tech/darkroom/internal/mask"
	"github.com/MeKo-Tech/darkroom/internal/ops"
	"github.com/MeKo-Tech/darkroom/internal/pipeline"
	"github.com/MeKo-Tech/darkroom/internal/presets"
)

// addAdjustmentFlags registers the flags every rendering command shares and binds the
// scalar ones under prefix.
func addAdjustmentFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringP("preset", "p", "", "Preset document (yaml/json) to start from")
	cmd.Flags().String("preset-name", "", "Named preset from the presets database to start from")
	cmd.Flags().StringArray("set", nil, "Override a slider: field=value (repeatable), e.g. exposure=25")
	cmd.Flags().StringArray("hsl", nil, "Override an HSL band: band=h,s,l (repeatable), e.g. blue=10,-20,0")
	cmd.Flags().StringArray("curve", nil, "Override a curve: channel=x:y,x:y,... (repeatable), e.g. rgb=0:0,128:200,255:255")
	cmd.Flags().Uint64("seed", 0, "Seed for grain noise (0 draws a fresh random seed per image)")
	cmd.Flags().Float64("perlin-grain", 0, "Use Perlin grain with this feature size in pixels instead of white noise")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{prefix + ".preset", "preset"},
		{prefix + ".preset_name", "preset-name"},
		{prefix + ".seed", "seed"},
		{prefix + ".perlin_grain", "perlin-grain"},
	}
	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, cmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// addMaskFlags registers layer mask flags.
func addMaskFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().StringArray("mask", nil, "Layer mask image; white selects the adjusted result (repeatable)")
	cmd.Flags().StringArray("invert-mask", nil, "Layer mask image applied inverted (repeatable)")
	cmd.Flags().Float32("mask-feather", 0, "Gaussian sigma used to soften mask edges")

	if err := viper.BindPFlag(prefix+".mask_feather", cmd.Flags().Lookup("mask-feather")); err != nil {
		panic(fmt.Sprintf("failed to bind flag mask-feather: %v", err))
	}
}

// resolveAdjustments builds the Adjustments for a command: preset file or named preset first,
// then command-line overrides in the order given.
func resolveAdjustments(ctx context.Context, cmd *cobra.Command, prefix string) (adjust.Adjustments, error) {
	presetFile := viper.GetString(prefix + ".preset")
	presetName := viper.GetString(prefix + ".preset_name")
	if presetFile != "" && presetName != "" {
		return adjust.Adjustments{}, fmt.Errorf("--preset and --preset-name are mutually exclusive")
	}

	adj := adjust.Default()
	switch {
	case presetFile != "":
		a, err := adjust.LoadFile(presetFile)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		adj = a
	case presetName != "":
		store, err := presets.Open(viper.GetString("presets-db"), logger)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		defer store.Close()
		p, err := store.Get(ctx, presetName)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		adj = p.Adjustments
	}

	sets, _ := cmd.Flags().GetStringArray("set")
	hsls, _ := cmd.Flags().GetStringArray("hsl")
	curvesFlags, _ := cmd.Flags().GetStringArray("curve")
	return applyOverrides(adj, sets, hsls, curvesFlags)
}

func applyOverrides(adj adjust.Adjustments, sets, hsls, curveSpecs []string) (adjust.Adjustments, error) {
	for _, s := range sets {
		field, value, err := parseSet(s)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		if adj, err = adj.WithFilter(field, value); err != nil {
			return adjust.Adjustments{}, err
		}
	}
	for _, s := range hsls {
		band, h, err := parseHSL(s)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		if adj, err = adj.WithBand(band, h); err != nil {
			return adjust.Adjustments{}, err
		}
	}
	for _, s := range curveSpecs {
		ch, c, err := parseCurve(s)
		if err != nil {
			return adjust.Adjustments{}, err
		}
		if adj, err = adj.WithCurve(ch, c); err != nil {
			return adjust.Adjustments{}, err
		}
	}
	if err := adj.Validate(); err != nil {
		return adjust.Adjustments{}, err
	}
	return adj, nil
}

func splitAssignment(s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("invalid override %q: expected key=value", s)
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), nil
}

// parseSet parses "field=value".
func parseSet(s string) (adjust.Field, float64, error) {
	key, value, err := splitAssignment(s)
	if err != nil {
		return "", 0, err
	}
	field := adjust.Field(key)
	if _, err := adjust.FieldSpec(field); err != nil {
		return "", 0, err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return field, v, nil
}

// parseHSL parses "band=h,s,l".
func parseHSL(s string) (adjust.Band, adjust.HSLAdjustment, error) {
	key, value, err := splitAssignment(s)
	if err != nil {
		return 0, adjust.HSLAdjustment{}, err
	}
	band, err := adjust.ParseBand(strings.ToLower(key))
	if err != nil {
		return 0, adjust.HSLAdjustment{}, err
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return 0, adjust.HSLAdjustment{}, fmt.Errorf("invalid hsl %q: expected band=h,s,l", s)
	}
	var vals [3]float64
	for i, p := range parts {
		if vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return 0, adjust.HSLAdjustment{}, fmt.Errorf("invalid hsl %q: %w", s, err)
		}
	}
	return band, adjust.HSLAdjustment{H: vals[0], S: vals[1], L: vals[2]}, nil
}

// parseCurve parses "channel=x:y,x:y,...".
func parseCurve(s string) (adjust.Channel, adjust.Curve, error) {
	key, value, err := splitAssignment(s)
	if err != nil {
		return "", nil, err
	}
	ch, err := adjust.ParseChannel(strings.ToLower(key))
	if err != nil {
		return "", nil, err
	}
	var c adjust.Curve
	for _, pair := range strings.Split(value, ",") {
		xs, ys, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return "", nil, fmt.Errorf("invalid curve point %q: expected x:y", pair)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid curve point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid curve point %q: %w", pair, err)
		}
		c = append(c, adjust.Point{X: x, Y: y})
	}
	return ch, c, nil
}

// newEngine builds an engine with the grain source chosen by the command's flags.
func newEngine(prefix string) (*pipeline.Engine, error) {
	opts := pipeline.Options{Logger: logger}
	seed := viper.GetUint64(prefix + ".seed")
	if scale := viper.GetFloat64(prefix + ".perlin_grain"); scale > 0 {
		opts.Noise = ops.NewPerlinNoise(scale, int64(seed))
	} else if seed != 0 {
		opts.NewNoise = func() ops.NoiseSource { return ops.NewUniformNoise(seed) }
	}
	return pipeline.NewEngine(opts)
}

// loadLayers reads the mask flags into layers sized for an image of the given size.
// Masks must match sourceSize; they are then scaled to size when the two differ.
func loadLayers(cmd *cobra.Command, prefix string, sourceSize, size image.Point) ([]mask.Layer, error) {
	masks, _ := cmd.Flags().GetStringArray("mask")
	inverted, _ := cmd.Flags().GetStringArray("invert-mask")
	feather := float32(viper.GetFloat64(prefix + ".mask_feather"))

	var layers []mask.Layer
	add := func(path string, invert bool) error {
		m, err := imageio.LoadMask(path, sourceSize)
		if err != nil {
			return err
		}
		if size != sourceSize {
			m = imageio.ScaleMask(m, size)
		}
		if feather > 0 {
			m = mask.Feather(m, feather)
		}
		l := mask.NewLayer(path, m)
		l.Inverted = invert
		layers = append(layers, l)
		return nil
	}
	for _, p := range masks {
		if err := add(p, false); err != nil {
			return nil, err
		}
	}
	for _, p := range inverted {
		if err := add(p, true); err != nil {
			return nil, err
		}
	}
	return layers, nil
}
