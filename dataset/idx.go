package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gorgonia/digits/normalize"
	"github.com/pkg/errors"
)

const (
	imagesMagic = 0x00000803
	labelsMagic = 0x00000801

	maxPixels = 1 << 24 // per record
)

var (
	// ErrHeader is returned when an IDX file does not start with the expected header.
	ErrHeader = errors.New("bad IDX header")
	// ErrTruncated is returned when an IDX file ends before its declared record count.
	ErrTruncated = errors.New("IDX data truncated")
)

// Record is one image of an IDX file with its label.
type Record struct {
	Pixels [][]uint8 // Rows x Cols, row-major
	Label  int

	pix        []uint8
	rows, cols int
}

// Bitmap converts the record to a bitmap, treating values above threshold as ink.
func (r Record) Bitmap(threshold uint8) *normalize.Bitmap {
	return normalize.FromGray(r.pix, r.cols, r.rows, threshold)
}

// Stream is a source of records read in order. Next returns io.EOF after the last record.
type Stream interface {
	Next() (Record, error)
}

// IDXReader reads paired IDX image and label files record by record.
type IDXReader struct {
	Count, Rows, Cols int

	images, labels *bufio.Reader
	read           int
	closers        []io.Closer
}

// NewIDXReader reads and checks both headers. Either stream may be gzip compressed.
func NewIDXReader(images, labels io.Reader) (*IDXReader, error) {
	retVal := new(IDXReader)
	var err error
	if retVal.images, err = retVal.maybeGzip(images); err != nil {
		return nil, err
	}
	if retVal.labels, err = retVal.maybeGzip(labels); err != nil {
		return nil, err
	}

	var ih struct{ Magic, Count, Rows, Cols uint32 }
	if err = binary.Read(retVal.images, binary.BigEndian, &ih); err != nil {
		return nil, headerErr("images", err)
	}
	if ih.Magic != imagesMagic {
		return nil, errors.Wrapf(ErrHeader, "images magic %#x, expected %#x", ih.Magic, imagesMagic)
	}
	var lh struct{ Magic, Count uint32 }
	if err = binary.Read(retVal.labels, binary.BigEndian, &lh); err != nil {
		return nil, headerErr("labels", err)
	}
	if lh.Magic != labelsMagic {
		return nil, errors.Wrapf(ErrHeader, "labels magic %#x, expected %#x", lh.Magic, labelsMagic)
	}
	if ih.Count != lh.Count {
		return nil, errors.Wrapf(ErrHeader, "%d images but %d labels", ih.Count, lh.Count)
	}
	if ih.Rows == 0 || ih.Cols == 0 {
		return nil, errors.Wrapf(ErrHeader, "empty %dx%d images", ih.Rows, ih.Cols)
	}
	if uint64(ih.Rows)*uint64(ih.Cols) > maxPixels {
		return nil, errors.Wrapf(ErrHeader, "%dx%d images exceed %d pixels", ih.Rows, ih.Cols, maxPixels)
	}
	retVal.Count, retVal.Rows, retVal.Cols = int(ih.Count), int(ih.Rows), int(ih.Cols)
	return retVal, nil
}

func headerErr(which string, err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncated, "%s header", which)
	}
	return errors.WithStack(err)
}

func (r *IDXReader) maybeGzip(in io.Reader) (*bufio.Reader, error) {
	br := bufio.NewReader(in)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return br, nil
	}
	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	r.closers = append(r.closers, gz)
	return bufio.NewReader(gz), nil
}

// OpenIDX opens an image file and a label file. Close the reader when done.
func OpenIDX(imagesPath, labelsPath string) (*IDXReader, error) {
	imgs, err := os.Open(imagesPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	lbls, err := os.Open(labelsPath)
	if err != nil {
		imgs.Close()
		return nil, errors.WithStack(err)
	}
	r, err := NewIDXReader(imgs, lbls)
	if err != nil {
		imgs.Close()
		lbls.Close()
		return nil, errors.WithMessagef(err, "%s, %s", imagesPath, labelsPath)
	}
	r.closers = append(r.closers, imgs, lbls)
	return r, nil
}

// Next reads the next record.
func (r *IDXReader) Next() (Record, error) {
	if r.read >= r.Count {
		return Record{}, io.EOF
	}
	pix := make([]uint8, r.Rows*r.Cols)
	if _, err := io.ReadFull(r.images, pix); err != nil {
		return Record{}, r.truncated(err)
	}
	label, err := r.labels.ReadByte()
	if err != nil {
		return Record{}, r.truncated(err)
	}
	rows := make([][]uint8, r.Rows)
	for i := range rows {
		rows[i] = pix[i*r.Cols : (i+1)*r.Cols]
	}
	r.read++
	return Record{
		Pixels: rows,
		Label:  int(label),
		pix:    pix,
		rows:   r.Rows,
		cols:   r.Cols,
	}, nil
}

func (r *IDXReader) truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncated, "record %d of %d", r.read, r.Count)
	}
	return errors.WithStack(err)
}

// Close closes any decompressors and files opened by the reader.
func (r *IDXReader) Close() error {
	var errs manyErr
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Collect reads up to limit records from s (all of them when limit <= 0), normalizing each to an
// h x w grid. Pixels above threshold are ink. A blank record is an error.
func Collect(s Stream, h, w int, threshold uint8, limit int) (Memory, error) {
	var retVal Memory
	for i := 0; limit <= 0 || i < limit; i++ {
		rec, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return retVal, err
		}
		pix, err := normalize.Normalize(rec.Bitmap(threshold), h, w)
		if err != nil {
			return retVal, errors.WithMessagef(err, "record %d", i)
		}
		retVal = append(retVal, Sample{Pixels: pix, Label: rec.Label})
	}
	return retVal, nil
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
