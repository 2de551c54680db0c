package ops

import (
	"image"

	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// Sharpen applies a 3x3 unsharp kernel (center 1+4s, edge neighbours -s, corners 0) with s = amount/100.
// Neighbours are read from a snapshot of the input; the 1px border is left unprocessed.
func Sharpen(img *image.NRGBA, amount float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return
	}

	s := amount / 100
	center := 1 + 4*s
	src := make([]uint8, len(img.Pix))
	copy(src, img.Pix)
	stride := img.Stride

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*stride + x*4
			for c := 0; c < 3; c++ {
				j := i + c
				sum := center*float64(src[j]) -
					s*(float64(src[j-4])+float64(src[j+4])+float64(src[j-stride])+float64(src[j+stride]))
				img.Pix[j] = colorspace.ClampU8(sum)
			}
		}
	}
}
