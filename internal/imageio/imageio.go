// Package imageio loads and saves images as NRGBA buffers for the pipeline.
package imageio

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoder

	"github.com/MeKo-Tech/darkroom/internal/mask"
)

// Load decodes an image file, applies its EXIF orientation and returns it as NRGBA
// with a zero origin.
func Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// Save encodes img with the format implied by the path's extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}

// ToNRGBA returns img as an NRGBA buffer whose bounds start at (0,0). An NRGBA input that
// already starts at the origin is copied, so the result never aliases img.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}

// Preview downsizes img so neither side exceeds maxDim, keeping the aspect ratio.
// Images already within the limit are returned as a copy.
func Preview(img *image.NRGBA, maxDim int) *image.NRGBA {
	if maxDim <= 0 {
		return ToNRGBA(img)
	}
	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return ToNRGBA(img)
	}
	return ToNRGBA(resize.Thumbnail(uint(maxDim), uint(maxDim), img, resize.Lanczos3))
}

// LoadMask reads a mask image and checks it against the image size it will apply to.
func LoadMask(path string, size image.Point) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask %s: %w", path, err)
	}
	if img.Bounds().Size() != size {
		return nil, fmt.Errorf("%w: mask %s is %v, image is %v", mask.ErrDimensionMismatch, path, img.Bounds().Size(), size)
	}
	return mask.FromImage(ToNRGBA(img)), nil
}

// ScaleMask resamples m to exactly size, for masks that accompany a Preview.
func ScaleMask(m *image.Gray, size image.Point) *image.Gray {
	return mask.FromImage(resize.Resize(uint(size.X), uint(size.Y), m, resize.Bilinear))
}
