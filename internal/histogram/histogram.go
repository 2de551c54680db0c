// Package histogram computes normalized luma and per-channel frequency distributions.
package histogram

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/MeKo-Tech/darkroom/internal/colorspace"
)

// Data holds four 256-bin distributions, each scaled so its tallest bin is 255.
type Data struct {
	RGB   [256]float64 `json:"rgb"`
	Red   [256]float64 `json:"red"`
	Green [256]float64 `json:"green"`
	Blue  [256]float64 `json:"blue"`
}

// Compute counts every pixel of img and normalizes the result. img is never modified.
func Compute(img *image.NRGBA) Data {
	var d Data
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			l := int(math.Round(colorspace.Luma(p[0], p[1], p[2])))
			if l > 255 {
				l = 255
			}
			d.RGB[l]++
			d.Red[p[0]]++
			d.Green[p[1]]++
			d.Blue[p[2]]++
		}
	}
	d.Normalize()
	return d
}

// Normalize rescales each distribution independently so its maximum becomes 255.
// An all-zero distribution is left as is.
func (d *Data) Normalize() {
	normalize(&d.RGB)
	normalize(&d.Red)
	normalize(&d.Green)
	normalize(&d.Blue)
}

func normalize(bins *[256]float64) {
	peak := 0.0
	for _, v := range bins {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}
	scale := 255 / peak
	for i := range bins {
		bins[i] *= scale
	}
}

// WriteText writes one line per bin: index followed by the luma, red, green and blue values.
func (d *Data) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "bin\tluma\tred\tgreen\tblue"); err != nil {
		return err
	}
	for i := 0; i < 256; i++ {
		if _, err := fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.1f\t%.1f\n", i, d.RGB[i], d.Red[i], d.Green[i], d.Blue[i]); err != nil {
			return fmt.Errorf("write bin %d: %w", i, err)
		}
	}
	return nil
}
