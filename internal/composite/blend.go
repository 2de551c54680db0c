package composite

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/darkroom/internal/mask"
)

// BlendByMask returns original everywhere, with adjusted blended in proportionally to m.
// A mask value of 255 selects adjusted, 0 selects original. All three must share a size.
func BlendByMask(original, adjusted *image.NRGBA, m *image.Gray) (*image.NRGBA, error) {
	if original == nil {
		return nil, fmt.Errorf("blend: nil original")
	}
	dst := image.NewNRGBA(original.Bounds())
	if err := BlendInto(dst, original, adjusted, m); err != nil {
		return nil, err
	}
	return dst, nil
}

// BlendInto is BlendByMask writing into dst. Each pixel is read before it is written,
// so dst may alias either input.
func BlendInto(dst, original, adjusted *image.NRGBA, m *image.Gray) error {
	if dst == nil || original == nil || adjusted == nil || m == nil {
		return fmt.Errorf("blend: nil buffer")
	}
	size := original.Bounds().Size()
	if adjusted.Bounds().Size() != size {
		return fmt.Errorf("adjusted bounds %v do not match original %v", adjusted.Bounds(), original.Bounds())
	}
	if dst.Bounds().Size() != size {
		return fmt.Errorf("destination bounds %v do not match original %v", dst.Bounds(), original.Bounds())
	}
	if m.Bounds().Size() != size {
		return fmt.Errorf("%w: mask %v, image %v", mask.ErrDimensionMismatch, m.Bounds().Size(), size)
	}

	w, h := size.X, size.Y
	for y := 0; y < h; y++ {
		o := original.Pix[y*original.Stride : y*original.Stride+w*4]
		a := adjusted.Pix[y*adjusted.Stride : y*adjusted.Stride+w*4]
		d := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		mr := m.Pix[y*m.Stride : y*m.Stride+w]
		for x := 0; x < w; x++ {
			mv := uint32(mr[x])
			i := x * 4
			for c := 0; c < 4; c++ {
				d[i+c] = mix(o[i+c], a[i+c], mv)
			}
		}
	}
	return nil
}

// mix computes (o*(255-m) + a*m + 127) / 255, which is exact at m = 0 and m = 255.
func mix(o, a uint8, m uint32) uint8 {
	switch m {
	case 0:
		return o
	case 255:
		return a
	}
	return uint8((uint32(o)*(255-m) + uint32(a)*m + 127) / 255)
}
