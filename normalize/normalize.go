// Package normalize turns raw drawings into the fixed size binary grids the network reads.
//
// A drawing is cropped to the bounding box of its ink, padded to a centered square and
// resampled onto the target grid. A grid cell is ink if any source pixel that maps onto it is ink.
package normalize

import (
	"bytes"
	"image"

	"github.com/pkg/errors"
)

// ErrNoContent is returned for bitmaps without a single ink pixel.
var ErrNoContent = errors.New("image has no content")

// Bounds returns the bounding box of the ink in b. Max is exclusive.
func Bounds(b *Bitmap) (image.Rectangle, error) {
	rowHasInk := func(y int) bool {
		for x := 0; x < b.Width; x++ {
			if b.At(x, y) {
				return true
			}
		}
		return false
	}
	colHasInk := func(x int) bool {
		for y := 0; y < b.Height; y++ {
			if b.At(x, y) {
				return true
			}
		}
		return false
	}

	y1 := 0
	for ; y1 < b.Height && !rowHasInk(y1); y1++ {
	}
	if y1 == b.Height {
		return image.Rectangle{}, ErrNoContent
	}
	y2 := b.Height - 1
	for ; y2 > y1 && !rowHasInk(y2); y2-- {
	}
	x1 := 0
	for ; x1 < b.Width && !colHasInk(x1); x1++ {
	}
	x2 := b.Width - 1
	for ; x2 > x1 && !colHasInk(x2); x2-- {
	}
	return image.Rect(x1, y1, x2+1, y2+1), nil
}

// Square crops b to r, padding the shorter side on both ends so that the crop is a square
// with r in its center. Padding that falls outside of b is background.
func Square(b *Bitmap, r image.Rectangle) *Bitmap {
	dx, dy := r.Dx(), r.Dy()
	size := dx
	if dy > size {
		size = dy
	}
	offX := (size - dx) / 2
	offY := (size - dy) / 2

	sq := NewBitmap(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if b.At(r.Min.X-offX+x, r.Min.Y-offY+y) {
				sq.Set(x, y)
			}
		}
	}
	return sq
}

// Resample maps every pixel of src onto a h×w grid, scaling each axis proportionally.
// The returned grid is row-major and holds only 0s and 1s. Cells are never reset once set.
func Resample(src *Bitmap, h, w int) []float32 {
	grid := make([]float32, h*w)
	for y := 0; y < src.Height; y++ {
		dy := y * h / src.Height
		for x := 0; x < src.Width; x++ {
			if src.Pix[y*src.Width+x] != 0 {
				dx := x * w / src.Width
				grid[dy*w+dx] = 1
			}
		}
	}
	return grid
}

// Normalize crops b to its content, squares it and resamples it to a h×w binary grid.
// A blank bitmap returns ErrNoContent and a nil grid.
func Normalize(b *Bitmap, h, w int) ([]float32, error) {
	if h <= 0 || w <= 0 {
		return nil, errors.Errorf("Cannot normalize to a %d×%d grid", h, w)
	}
	if len(b.Pix) != b.Width*b.Height {
		return nil, errors.Errorf("Bitmap holds %d pixels, expected %d×%d", len(b.Pix), b.Width, b.Height)
	}
	r, err := Bounds(b)
	if err != nil {
		return nil, err
	}
	return Resample(Square(b, r), h, w), nil
}

// Render draws a h×w grid as text, '#' for ink and '.' for background.
func Render(grid []float32, h, w int) string {
	var buf bytes.Buffer
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grid[y*w+x] != 0 {
				buf.WriteByte('#')
			} else {
				buf.WriteByte('.')
			}
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
