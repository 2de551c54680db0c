package ops

import (
	"image"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/disintegration/gift"
)

// CSSFilters applies the brightness, contrast, saturation and sepia group.
// Only non-identity sliders become filters; with none, img is left as is.
func CSSFilters(img *image.NRGBA, f adjust.BasicFilters) {
	g := CSSFilterChain(f)
	if g == nil {
		return
	}
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)

	rowLen := img.Bounds().Dx() * 4
	for y := 0; y < img.Bounds().Dy(); y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+rowLen], dst.Pix[y*dst.Stride:y*dst.Stride+rowLen])
	}
}

// CSSFilterChain builds the gift chain for the stage, or nil when every slider is at identity.
func CSSFilterChain(f adjust.BasicFilters) *gift.GIFT {
	var filters []gift.Filter
	if !f.IsIdentity(adjust.Brightness) {
		filters = append(filters, gift.Brightness(float32(f.Brightness-100)))
	}
	if !f.IsIdentity(adjust.Contrast) {
		filters = append(filters, gift.Contrast(float32(f.Contrast-100)))
	}
	if !f.IsIdentity(adjust.Saturation) {
		filters = append(filters, gift.Saturation(float32(f.Saturation-100)))
	}
	if !f.IsIdentity(adjust.Sepia) {
		filters = append(filters, gift.Sepia(float32(f.Sepia)))
	}
	if len(filters) == 0 {
		return nil
	}
	return gift.New(filters...)
}
