// Package frame draws recognitions as images for the animated output encoders.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/gorgonia/digits"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"
)

var regular *truetype.Font

const (
	dpi             = 144.0
	fontsize        = 12.0
	lineheight      = 1.2
	dummyLongString = `digits #10000: unknown (blank)`
	captionLines    = 2
)

func init() {
	var err error
	if regular, err = truetype.Parse(gomono.TTF); err != nil {
		panic(err)
	}
}

// Palette holds the colours of a frame: ink, background and empty grid cells.
var Palette = color.Palette{
	color.Gray{0},
	color.Gray{253},
	color.Gray{160},
}

// Renderer draws the normalized grid of a recognition followed by a caption naming the digit.
// The frame size is fixed by the first recognition it draws.
type Renderer struct {
	H, W int
	font.Drawer

	face font.Face

	Cell        int // side of a grid cell in pixels
	maxH, maxW  int // maxHeight and maxWidth
	padH, padW  int // padding so everything don't start at the topleft
	initialized bool
}

// NewRenderer returns a Renderer whose frames are at most h×w pixels.
func NewRenderer(h, w int) *Renderer {
	return &Renderer{
		H:    -1,
		W:    -1,
		Cell: 16,
		maxH: h,
		maxW: w,
		padH: 10,
		padW: 10,

		Drawer: font.Drawer{
			Src: image.Black,
		},
	}
}

// Caption returns the two caption lines of a recognition.
func Caption(r digits.Recognition) (title, detail string) {
	var what string
	switch {
	case r.Blank():
		what = "unknown (blank)"
	case r.Digit == digits.Unknown:
		what = "unknown"
	default:
		what = fmt.Sprintf("%d", r.Digit)
	}
	title = fmt.Sprintf("%s #%d: %s", r.Name, r.Number, what)
	if r.Digit == digits.Unknown {
		return title, ""
	}
	return title, fmt.Sprintf("confidence %.2f", r.Confidence[r.Digit])
}

func (rd *Renderer) init(r digits.Recognition, title string, dy int) {
	rd.face = truetype.NewFace(regular, &truetype.Options{
		Size:    fontsize,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	rd.Drawer.Src = image.Black
	rd.Drawer.Face = rd.face

	// first calculate how long the max length will be
	maxW := maxInt(font.MeasureString(rd.Face, title).Ceil(), font.MeasureString(rd.Face, dummyLongString).Ceil())
	maxW = maxInt(maxW, r.Width*rd.Cell)
	w := maxW + 2*rd.padW
	h := r.Height*rd.Cell + (captionLines+1)*dy + 2*rd.padH

	w = minInt(w, rd.maxW)
	h = minInt(h, rd.maxH)

	if w == rd.maxW {
		rd.padW = 0
	}
	if h == rd.maxH {
		rd.padH = 0
	}

	rd.H = h
	rd.W = w
	rd.initialized = true
}

// Render draws a recognition.
func (rd *Renderer) Render(r digits.Recognition) *image.Paletted {
	title, detail := Caption(r)
	dy := int(math.Ceil(fontsize * lineheight * dpi / 72))
	if !rd.initialized {
		// lazy init of the frame size
		rd.init(r, title, dy)
	}

	im := image.NewPaletted(image.Rect(0, 0, rd.W, rd.H), Palette)
	draw.Draw(im, im.Bounds(), image.White, image.Point{}, draw.Src)

	empty := image.NewUniform(Palette[2])
	ink := image.NewUniform(Palette[0])
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			cell := image.Rect(x*rd.Cell, y*rd.Cell, (x+1)*rd.Cell, (y+1)*rd.Cell).
				Add(image.Pt(rd.padW, rd.padH)).
				Inset(1)
			src := empty
			if r.Grid != nil && r.Grid[y*r.Width+x] != 0 {
				src = ink
			}
			draw.Draw(im, cell, src, image.Point{}, draw.Src)
		}
	}

	y := rd.padH + r.Height*rd.Cell + dy
	rd.Dst = im
	for _, s := range []string{title, detail} {
		rd.Dot = fixed.P(rd.padW, y)
		rd.DrawString(s)
		y += dy
	}
	return im
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
