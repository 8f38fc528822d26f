package checkpoint

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
)

// Store is where parameters are loaded from and saved to.
//
// A Store that has nothing saved yet returns an error satisfying errors.Is(err, fs.ErrNotExist) on Load.
type Store interface {
	Load(p *nn.Params) error
	Save(p *nn.Params) error
}

// File stores all the parameters in a single text file.
type File string

// Load reads the file into p.
func (f File) Load(p *nn.Params) error {
	return readFile(string(f), func(r io.Reader) error { return Decode(r, p) })
}

// Save replaces the file with the parameters in p.
func (f File) Save(p *nn.Params) error {
	return writeFile(string(f), func(w io.Writer) error { return Encode(w, p) })
}

// Pair stores the parameters across two text files: W holds the input weights (followed by the
// hidden biases), V holds the output weights (followed by the output biases).
type Pair struct {
	W, V string
}

func (s Pair) split(p *nn.Params) (w, v [][]float32) {
	w = [][]float32{p.WTensor().Float32s()}
	v = [][]float32{p.VTensor().Float32s()}
	if p.Bias {
		w = append(w, p.BiasH)
		v = append(v, p.BiasO)
	}
	return w, v
}

// Load reads both files into p. p is left untouched if either file cannot be read.
func (s Pair) Load(p *nn.Params) error {
	w, v := s.split(p)
	wbuf := make([]float32, total(w))
	vbuf := make([]float32, total(v))
	if err := readFile(s.W, func(r io.Reader) error { return readValues(r, wbuf) }); err != nil {
		return err
	}
	if err := readFile(s.V, func(r io.Reader) error { return readValues(r, vbuf) }); err != nil {
		return err
	}
	scatter(wbuf, w)
	scatter(vbuf, v)
	return nil
}

// Save replaces both files. Both are written out in full before either is replaced, so a failed
// write leaves the previous pair in place.
func (s Pair) Save(p *nn.Params) error {
	w, v := s.split(p)
	wtmp, err := writeTemp(s.W, func(out io.Writer) error { return writeValues(out, w...) })
	if err != nil {
		return err
	}
	vtmp, err := writeTemp(s.V, func(out io.Writer) error { return writeValues(out, v...) })
	if err != nil {
		os.Remove(wtmp)
		return err
	}
	if err = os.Rename(wtmp, s.W); err != nil {
		os.Remove(wtmp)
		os.Remove(vtmp)
		return errors.WithStack(err)
	}
	if err = os.Rename(vtmp, s.V); err != nil {
		os.Remove(vtmp)
		return errors.WithStack(err)
	}
	return nil
}

// Memory keeps an encoded checkpoint in memory.
type Memory struct {
	bytes.Buffer
	saved bool
}

// Load decodes the last saved checkpoint into p.
func (m *Memory) Load(p *nn.Params) error {
	if !m.saved {
		return errors.Wrap(os.ErrNotExist, "nothing saved in memory")
	}
	return Decode(bytes.NewReader(m.Bytes()), p)
}

// Save encodes p, replacing any previous checkpoint.
func (m *Memory) Save(p *nn.Params) error {
	m.Reset()
	if err := Encode(&m.Buffer, p); err != nil {
		return err
	}
	m.saved = true
	return nil
}

func total(s [][]float32) (n int) {
	for _, a := range s {
		n += len(a)
	}
	return n
}

func readFile(name string, fn func(io.Reader) error) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	if err = fn(f); err != nil {
		return errors.WithMessage(err, name)
	}
	return nil
}

// writeFile writes to a temporary file next to name and renames it over name once complete.
func writeFile(name string, fn func(io.Writer) error) error {
	tmp, err := writeTemp(name, fn)
	if err != nil {
		return err
	}
	if err = os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

// writeTemp writes a complete temporary file next to name and returns its path.
// Nothing is left behind on error.
func writeTemp(name string, fn func(io.Writer) error) (tmp string, err error) {
	f, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".*.tmp")
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if err = fn(f); err != nil {
		f.Close()
		return "", errors.WithMessage(err, name)
	}
	if err = f.Close(); err != nil {
		return "", errors.WithStack(err)
	}
	return f.Name(), nil
}
