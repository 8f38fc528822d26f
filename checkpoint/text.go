// Package checkpoint persists network parameters as plain text, one decimal number per line.
//
// The layout is W row-major, then V row-major, then the hidden and output biases when the network
// has them. There is no header: reader and writer agree on the shape through nn.Config.
package checkpoint

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
)

var (
	// ErrTruncated is returned when a checkpoint holds fewer values than the network needs.
	ErrTruncated = errors.New("checkpoint truncated")
	// ErrFormat is returned when a line of a checkpoint is not a finite real number.
	ErrFormat = errors.New("malformed checkpoint")
)

// sections returns the parameter slices in their persisted order.
func sections(p *nn.Params) [][]float32 {
	retVal := [][]float32{p.WTensor().Float32s(), p.VTensor().Float32s()}
	if p.Bias {
		retVal = append(retVal, p.BiasH, p.BiasO)
	}
	return retVal
}

func writeValues(w io.Writer, sections ...[]float32) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)
	for _, s := range sections {
		for _, v := range s {
			buf = strconv.AppendFloat(buf[:0], float64(v), 'g', -1, 32)
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	return errors.WithStack(bw.Flush())
}

func parseValue(line string) (float32, error) {
	s := strings.TrimSpace(line)
	// checkpoints written under a comma-decimal locale
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	v := float32(f)
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return 0, errors.Errorf("%q is not finite", line)
	}
	return v, nil
}

// readValues fills dst with exactly len(dst) values read from r. Trailing lines are ignored.
// dst is only partially filled when an error is returned.
func readValues(r io.Reader, dst []float32) error {
	scanner := bufio.NewScanner(r)
	n := 0
	for n < len(dst) && scanner.Scan() {
		v, err := parseValue(scanner.Text())
		if err != nil {
			return errors.Wrapf(ErrFormat, "line %d: %v", n+1, err)
		}
		dst[n] = v
		n++
	}
	if err := scanner.Err(); err != nil {
		return errors.WithStack(err)
	}
	if n < len(dst) {
		return errors.Wrapf(ErrTruncated, "read %d of %d values", n, len(dst))
	}
	return nil
}

// Encode writes the parameters to w.
func Encode(w io.Writer, p *nn.Params) error {
	return writeValues(w, sections(p)...)
}

// Decode reads parameters written by Encode into p. p is left untouched if decoding fails.
func Decode(r io.Reader, p *nn.Params) error {
	buf := make([]float32, p.Count())
	if err := readValues(r, buf); err != nil {
		return err
	}
	scatter(buf, sections(p))
	return nil
}

func scatter(buf []float32, dst [][]float32) {
	for _, s := range dst {
		buf = buf[copy(s, buf):]
	}
}
