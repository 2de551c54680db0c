package pipeline

import (
	"image"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/curves"
	"github.com/MeKo-Tech/darkroom/internal/haze"
	"github.com/MeKo-Tech/darkroom/internal/ops"
)

type stage struct {
	name string
	skip func(a adjust.Adjustments) bool
	run  func(img *image.NRGBA, a adjust.Adjustments, rc *renderContext)
}

// identity builds a skip predicate that holds when every listed slider is at identity.
func identity(fields ...adjust.Field) func(adjust.Adjustments) bool {
	return func(a adjust.Adjustments) bool {
		for _, f := range fields {
			if !a.Filters.IsIdentity(f) {
				return false
			}
		}
		return true
	}
}

// stages is the fixed application order. Reordering changes output.
var stages = []stage{
	{
		name: "css",
		skip: identity(adjust.Brightness, adjust.Contrast, adjust.Saturation, adjust.Sepia),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.CSSFilters(img, a.Filters)
		},
	},
	{
		name: "exposure",
		skip: identity(adjust.Exposure),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.Exposure(img, a.Filters.Exposure)
		},
	},
	{
		name: "temperature",
		skip: identity(adjust.Temperature),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.Temperature(img, a.Filters.Temperature)
		},
	},
	{
		name: "vibrance",
		skip: identity(adjust.Vibrance),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.Vibrance(img, a.Filters.Vibrance)
		},
	},
	{
		name: "dehaze",
		skip: identity(adjust.Dehaze),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.Dehaze(img, a.Filters.Dehaze)
		},
	},
	{
		name: "highlights_shadows",
		skip: identity(adjust.Highlights, adjust.Shadows),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.HighlightsShadows(img, a.Filters.Highlights, a.Filters.Shadows)
		},
	},
	{
		name: "whites_blacks",
		skip: identity(adjust.Whites, adjust.Blacks),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.WhitesBlacks(img, a.Filters.Whites, a.Filters.Blacks)
		},
	},
	{
		name: "curves",
		skip: func(a adjust.Adjustments) bool { return a.Curves.IsIdentity() },
		run: func(img *image.NRGBA, a adjust.Adjustments, rc *renderContext) {
			curves.Apply(img, a.Curves, rc.cache)
		},
	},
	{
		name: "hsl",
		skip: func(a adjust.Adjustments) bool { return a.HSL.IsIdentity() },
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.SelectiveHSL(img, a.HSL)
		},
	},
	{
		// hazeSpread only tints the glow, so haze alone gates the stage.
		name: "haze",
		skip: identity(adjust.Haze),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			haze.Apply(img, a.Filters.Haze, a.Filters.HazeSpread)
		},
	},
	{
		name: "sharpen",
		skip: identity(adjust.Sharpen),
		run: func(img *image.NRGBA, a adjust.Adjustments, _ *renderContext) {
			ops.Sharpen(img, a.Filters.Sharpen)
		},
	},
	{
		name: "grain",
		skip: identity(adjust.Grain),
		run: func(img *image.NRGBA, a adjust.Adjustments, rc *renderContext) {
			ops.Grain(img, a.Filters.Grain, rc.noiseSource())
		},
	},
}

// StageNames lists the stages in application order.
func StageNames() []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.name
	}
	return names
}
