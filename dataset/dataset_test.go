package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gorgonia/digits/normalize"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func TestLabelOf(t *testing.T) {
	tests := []struct {
		i, total, classes, want int
	}{
		{0, 100, 10, 0},
		{9, 100, 10, 0},
		{10, 100, 10, 1},
		{37, 100, 10, 3},
		{99, 100, 10, 9},
		{5, 10, 10, 5},
	}
	for _, tc := range tests {
		if got := LabelOf(tc.i, tc.total, tc.classes); got != tc.want {
			t.Errorf("LabelOf(%d, %d, %d) = %d, want %d", tc.i, tc.total, tc.classes, got, tc.want)
		}
	}
}

func TestTargetAndCheck(t *testing.T) {
	s := Sample{Pixels: []float32{0, 1, 1, 0}, Label: 2}
	assert.Equal(t, []float32{0, 0, 1, 0, 0}, s.Target(5))
	assert.NoError(t, Check(s, 4, 3))
	assert.Error(t, Check(s, 5, 3))
	assert.Error(t, Check(s, 4, 2))
	s.Pixels[0] = 0.5
	assert.Error(t, Check(s, 4, 3))
}

func TestMemory(t *testing.T) {
	m := Memory{{Label: 1}, {Label: 2}}
	assert.Equal(t, 2, m.Len())
	s, err := m.At(1)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Label)
	_, err = m.At(2)
	assert.Error(t, err)
}

func TestNewDir(t *testing.T) {
	_, err := NewDir("x", 95, 10, 10, 10)
	assert.Error(t, err)
	_, err = NewDir("x", 5, 10, 10, 10)
	assert.Error(t, err)
	d, err := NewDir("x", 100, 10, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, d.Len())
}

// dot draws an opaque square at (x, y) on an otherwise transparent canvas.
func dot(w, h, x, y, size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := y; j < y+size; j++ {
		for i := x; i < x+size; i++ {
			img.Set(i, j, color.NRGBA{A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, name string, img image.Image) {
	t.Helper()
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writePNG(t, filepath.Join(dir, strconv.Itoa(i)+".png"), dot(40, 40, 5+i, 7, 6))
	}
	f, err := os.Create(filepath.Join(dir, "4.bmp"))
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, dot(20, 20, 0, 0, 3)))
	require.NoError(t, f.Close())
	writePNG(t, filepath.Join(dir, "5.png"), image.NewNRGBA(image.Rect(0, 0, 8, 8)))

	d, err := NewDir(dir, 6, 3, 4, 4)
	require.NoError(t, err)

	for i, want := range []int{0, 0, 1, 1, 2} {
		s, err := d.At(i)
		require.NoError(t, err, "sample %d", i)
		assert.Equal(t, want, s.Label, "sample %d", i)
		// a filled square always normalizes to a full grid
		assert.Equal(t, "####\n####\n####\n####\n", normalize.Render(s.Pixels, 4, 4), "sample %d", i)
	}

	_, err = d.At(5)
	assert.True(t, errors.Is(err, normalize.ErrNoContent), "%v", err)
	_, err = d.At(6)
	assert.Error(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "2.png")))
	_, err = d.At(2)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%v", err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "3.png"), []byte("not an image"), 0644))
	_, err = d.At(3)
	assert.Error(t, err)
}

type idxRecord struct {
	pix   []uint8
	label uint8
}

func idxFiles(rows, cols int, recs []idxRecord) (images, labels []byte) {
	var ib, lb bytes.Buffer
	binary.Write(&ib, binary.BigEndian, []uint32{imagesMagic, uint32(len(recs)), uint32(rows), uint32(cols)})
	binary.Write(&lb, binary.BigEndian, []uint32{labelsMagic, uint32(len(recs))})
	for _, r := range recs {
		ib.Write(r.pix)
		lb.WriteByte(r.label)
	}
	return ib.Bytes(), lb.Bytes()
}

func gz(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

var testRecords = []idxRecord{
	{pix: []uint8{0, 0, 0, 0, 200, 0}, label: 7},
	{pix: []uint8{255, 255, 0, 0, 0, 90}, label: 3},
}

func TestIDXReader(t *testing.T) {
	images, labels := idxFiles(2, 3, testRecords)
	for _, compressed := range []bool{false, true} {
		imgs, lbls := images, labels
		if compressed {
			imgs, lbls = gz(images), gz(labels)
		}
		r, err := NewIDXReader(bytes.NewReader(imgs), bytes.NewReader(lbls))
		require.NoError(t, err)
		assert.Equal(t, 2, r.Count)
		assert.Equal(t, 2, r.Rows)
		assert.Equal(t, 3, r.Cols)

		rec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, 7, rec.Label)
		assert.Equal(t, [][]uint8{{0, 0, 0}, {0, 200, 0}}, rec.Pixels)

		rec, err = r.Next()
		require.NoError(t, err)
		assert.Equal(t, 3, rec.Label)
		assert.Equal(t, [][]uint8{{255, 255, 0}, {0, 0, 90}}, rec.Pixels)
		assert.Equal(t, []uint8{1, 1, 0, 0, 0, 0}, rec.Bitmap(127).Pix)

		_, err = r.Next()
		assert.Equal(t, io.EOF, err)
		assert.NoError(t, r.Close())
	}
}

func TestIDXReaderErrors(t *testing.T) {
	images, labels := idxFiles(2, 3, testRecords)

	bad := append([]byte(nil), images...)
	bad[3] = 0x01
	_, err := NewIDXReader(bytes.NewReader(bad), bytes.NewReader(labels))
	assert.True(t, errors.Is(err, ErrHeader), "%v", err)

	_, err = NewIDXReader(bytes.NewReader(images), bytes.NewReader(images))
	assert.True(t, errors.Is(err, ErrHeader), "%v", err)

	_, err = NewIDXReader(bytes.NewReader(images[:10]), bytes.NewReader(labels))
	assert.True(t, errors.Is(err, ErrTruncated), "%v", err)

	for _, dims := range [][2]uint32{{0, 3}, {0xFFFFFFFF, 0xFFFFFFFF}, {1 << 16, 1 << 16}} {
		huge, hugeLabels := idxFiles(int(dims[0]), int(dims[1]), nil)
		_, err = NewIDXReader(bytes.NewReader(huge), bytes.NewReader(hugeLabels))
		assert.True(t, errors.Is(err, ErrHeader), "%v: %v", dims, err)
	}

	_, otherLabels := idxFiles(2, 3, testRecords[:1])
	_, err = NewIDXReader(bytes.NewReader(images), bytes.NewReader(otherLabels))
	assert.True(t, errors.Is(err, ErrHeader), "%v", err)

	r, err := NewIDXReader(bytes.NewReader(images[:len(images)-2]), bytes.NewReader(labels))
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.True(t, errors.Is(err, ErrTruncated), "%v", err)

	r, err = NewIDXReader(bytes.NewReader(images), bytes.NewReader(labels[:len(labels)-1]))
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.True(t, errors.Is(err, ErrTruncated), "%v", err)
}

func TestOpenIDXAndCollect(t *testing.T) {
	dir := t.TempDir()
	images, labels := idxFiles(2, 3, testRecords)
	ip, lp := filepath.Join(dir, "images.idx.gz"), filepath.Join(dir, "labels.idx")
	require.NoError(t, os.WriteFile(ip, gz(images), 0644))
	require.NoError(t, os.WriteFile(lp, labels, 0644))

	r, err := OpenIDX(ip, lp)
	require.NoError(t, err)
	m, err := Collect(r, 2, 2, 127, 0)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Len(t, m, 2)
	assert.Equal(t, 7, m[0].Label)
	// a single pixel only reaches the top left cell
	assert.Equal(t, []float32{1, 0, 0, 0}, m[0].Pixels)
	assert.Equal(t, 3, m[1].Label)
	assert.Equal(t, []float32{1, 1, 0, 0}, m[1].Pixels)

	r, err = OpenIDX(ip, lp)
	require.NoError(t, err)
	defer r.Close()
	m, err = Collect(r, 2, 2, 127, 1)
	require.NoError(t, err)
	assert.Len(t, m, 1)

	_, err = OpenIDX(filepath.Join(dir, "nope"), lp)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCollectBlankRecord(t *testing.T) {
	images, labels := idxFiles(2, 3, []idxRecord{{pix: make([]uint8, 6), label: 1}})
	r, err := NewIDXReader(bytes.NewReader(images), bytes.NewReader(labels))
	require.NoError(t, err)
	_, err = Collect(r, 2, 2, 127, 0)
	assert.True(t, errors.Is(err, normalize.ErrNoContent), "%v", err)
}
