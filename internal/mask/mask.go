// Package mask holds layer masks and combines them into a single composite mask.
package mask

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/gift"
	"github.com/google/uuid"
)

// ErrDimensionMismatch is returned when a mask does not match the size of the image it applies to.
var ErrDimensionMismatch = errors.New("mask dimensions do not match image")

// Layer is a named mask restricting where adjustments apply.
// A nil Mask means the layer contributes nothing to compositing.
type Layer struct {
	ID       string
	Name     string
	Visible  bool
	Mask     *image.Gray
	Inverted bool
}

// NewLayer returns a visible, non-inverted layer with a fresh id.
func NewLayer(name string, m *image.Gray) Layer {
	return Layer{
		ID:      uuid.NewString(),
		Name:    name,
		Visible: true,
		Mask:    m,
	}
}

// effective returns the mask as it takes part in compositing, inverted if requested.
func (l Layer) effective() *image.Gray {
	if l.Inverted {
		return InvertMask(l.Mask)
	}
	return l.Mask
}

// FromImage derives mask intensity from the luminance of the alpha-premultiplied colour,
// so opaque white reads as 255 and fully transparent pixels read as 0.
func FromImage(img image.Image) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(out, bounds, g, bounds.Min, draw.Src)
		return out
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return out
}

// InvertMask returns the complement 255-v of every mask value.
func InvertMask(m *image.Gray) *image.Gray {
	if m == nil {
		return nil
	}
	bounds := m.Bounds()
	out := image.NewGray(bounds)
	w := bounds.Dx()
	for y := 0; y < bounds.Dy(); y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			dst[x] = 255 - v
		}
	}
	return out
}

// MaxMask returns the per-pixel maximum (lighten) of two equally sized masks.
func MaxMask(a, b *image.Gray) (*image.Gray, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("max mask: nil input")
	}
	if a.Bounds().Size() != b.Bounds().Size() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, a.Bounds().Size(), b.Bounds().Size())
	}
	out := image.NewGray(a.Bounds())
	lighten(out, a)
	lighten(out, b)
	return out, nil
}

// lighten raises dst to src wherever src is brighter. Sizes must already match.
func lighten(dst, src *image.Gray) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := 0; y < h; y++ {
		d := dst.Pix[y*dst.Stride : y*dst.Stride+w]
		s := src.Pix[y*src.Stride : y*src.Stride+w]
		for x, v := range s {
			if v > d[x] {
				d[x] = v
			}
		}
	}
}

// Combine lightens every visible layer mask into one composite starting from black.
// It reports false when no visible layer carries a mask, in which case the composite is nil.
// Layer order does not affect the result.
func Combine(bounds image.Rectangle, layers []Layer) (*image.Gray, bool, error) {
	var out *image.Gray
	for _, l := range layers {
		if !l.Visible || l.Mask == nil {
			continue
		}
		if l.Mask.Bounds().Size() != bounds.Size() {
			return nil, false, fmt.Errorf("%w: layer %q is %v, image is %v",
				ErrDimensionMismatch, l.Name, l.Mask.Bounds().Size(), bounds.Size())
		}
		if out == nil {
			out = image.NewGray(bounds)
		}
		lighten(out, l.effective())
	}
	return out, out != nil, nil
}

// Feather softens mask edges with a Gaussian blur. sigma <= 0 returns a copy.
func Feather(m *image.Gray, sigma float32) *image.Gray {
	if sigma <= 0 {
		return FromImage(m)
	}
	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(m.Bounds()))
	g.Draw(dst, m)
	return dst
}
