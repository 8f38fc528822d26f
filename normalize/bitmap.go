package normalize

import (
	"image"
	"image/color"
)

// Bitmap is a raw pixel buffer. A non-zero Pix value is ink, zero is background.
// Pix is row-major: the pixel at (x, y) is Pix[y*Width+x].
type Bitmap struct {
	Width, Height int
	Pix           []uint8
}

// NewBitmap returns a blank w×h bitmap.
func NewBitmap(w, h int) *Bitmap {
	return &Bitmap{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At reports whether (x, y) is ink. Coordinates outside the bitmap are background.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return false
	}
	return b.Pix[y*b.Width+x] != 0
}

// Set marks (x, y) as ink.
func (b *Bitmap) Set(x, y int) { b.Pix[y*b.Width+x] = 1 }

// InkFunc decides whether a colour is ink.
type InkFunc func(c color.Color) bool

// Opaque treats every colour that is not fully transparent black as ink.
// This is what a drawing canvas that starts out as a zeroed ARGB buffer produces.
func Opaque(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r|g|b|a != 0
}

// Dark returns an InkFunc that treats visible pixels darker than the threshold (0-255) as ink.
// This suits scans and images saved on a white background.
func Dark(threshold uint8) InkFunc {
	t := uint32(threshold) * 0x101
	return func(c color.Color) bool {
		if _, _, _, a := c.RGBA(); a == 0 {
			return false
		}
		g := color.Gray16Model.Convert(c).(color.Gray16)
		return uint32(g.Y) < t
	}
}

// FromImage reads the whole image into a Bitmap, classifying each pixel with ink.
func FromImage(img image.Image, ink InkFunc) *Bitmap {
	r := img.Bounds()
	b := NewBitmap(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if ink(img.At(x, y)) {
				b.Set(x-r.Min.X, y-r.Min.Y)
			}
		}
	}
	return b
}

// FromGray builds a Bitmap from w×h row-major intensities where values above threshold are ink
// (light strokes on a dark background, as in the IDX digit records).
// Pixels missing from a short buffer are blank.
func FromGray(pix []uint8, w, h int, threshold uint8) *Bitmap {
	b := NewBitmap(w, h)
	if len(pix) > len(b.Pix) {
		pix = pix[:len(b.Pix)]
	}
	for i, v := range pix {
		if v > threshold {
			b.Pix[i] = 1
		}
	}
	return b
}

// FromGrid builds a Bitmap from a h×w row-major grid, where non-zero cells are ink.
// Cells missing from a short grid are blank.
func FromGrid(grid []float32, h, w int) *Bitmap {
	b := NewBitmap(w, h)
	if len(grid) > len(b.Pix) {
		grid = grid[:len(b.Pix)]
	}
	for i, v := range grid {
		if v != 0 {
			b.Pix[i] = 1
		}
	}
	return b
}
