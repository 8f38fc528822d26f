package dataset

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorgonia/digits/normalize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Extensions are tried in order when looking up a numbered sample file.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff"}

// Dir is a Set of numbered image files, 0.png to (Count-1).png (or any of Extensions).
// The files are split into Classes contiguous blocks of equal size: block number is the label.
type Dir struct {
	Path          string
	Count         int
	Classes       int
	Height, Width int              // normalized grid size
	Ink           normalize.InkFunc // defaults to normalize.Opaque
}

// NewDir returns a Dir, checking that count splits evenly into classes.
func NewDir(path string, count, classes, h, w int) (*Dir, error) {
	if classes < 1 || count < classes || count%classes != 0 {
		return nil, errors.Errorf("Cannot split %d samples into %d equal label blocks", count, classes)
	}
	return &Dir{
		Path:    path,
		Count:   count,
		Classes: classes,
		Height:  h,
		Width:   w,
		Ink:     normalize.Opaque,
	}, nil
}

func (d *Dir) Len() int { return d.Count }

// File returns the path of the i-th sample.
func (d *Dir) File(i int) (string, error) {
	base := filepath.Join(d.Path, strconv.Itoa(i))
	for _, ext := range Extensions {
		name := base + ext
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", errors.Wrapf(os.ErrNotExist, "no image for sample %d in %s", i, d.Path)
}

// At loads, decodes and normalizes the i-th sample. Missing, undecodable or blank files are errors.
func (d *Dir) At(i int) (Sample, error) {
	if i < 0 || i >= d.Count {
		return Sample{}, errors.Errorf("sample %d out of range [0, %d)", i, d.Count)
	}
	name, err := d.File(i)
	if err != nil {
		return Sample{}, err
	}
	img, err := DecodeFile(name)
	if err != nil {
		return Sample{}, err
	}
	ink := d.Ink
	if ink == nil {
		ink = normalize.Opaque
	}
	pix, err := normalize.Normalize(normalize.FromImage(img, ink), d.Height, d.Width)
	if err != nil {
		return Sample{}, errors.WithMessage(err, name)
	}
	return Sample{Pixels: pix, Label: LabelOf(i, d.Count, d.Classes)}, nil
}

// DecodeFile decodes an image file in any of the registered formats.
func DecodeFile(name string) (image.Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to decode %s", name)
	}
	return img, nil
}
