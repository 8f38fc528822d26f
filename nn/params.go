package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

var Float = tensor.Float32

// Params holds the weights of the two layer network.
//
// W is Inputs×Hidden, V is Hidden×Outputs. The shapes are fixed by the Config at construction.
// The matrices are backed by *tensor.Dense so that solvers can step them in place;
// W() and V() return row views sharing that memory.
type Params struct {
	Config

	w, v         *tensor.Dense
	wRows, vRows [][]float32

	BiasH []float32 // Hidden
	BiasO []float32 // Outputs
}

// New returns zeroed parameters for the given configuration. It panics if the configuration is invalid.
func New(conf Config) *Params {
	if !conf.IsValid() {
		panic(fmt.Sprintf("Invalid network config %+v. Unable to proceed", conf))
	}
	p := &Params{
		Config: conf,
		w:      tensor.New(tensor.WithShape(conf.Inputs, conf.Hidden), tensor.Of(Float)),
		v:      tensor.New(tensor.WithShape(conf.Hidden, conf.Outputs), tensor.Of(Float)),
		BiasH:  make([]float32, conf.Hidden),
		BiasO:  make([]float32, conf.Outputs),
	}
	if err := p.views(); err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return p
}

func (p *Params) views() (err error) {
	if p.wRows, err = native.MatrixF32(p.w); err != nil {
		return errors.Wrapf(err, "unable to view W")
	}
	if p.vRows, err = native.MatrixF32(p.v); err != nil {
		return errors.Wrapf(err, "unable to view V")
	}
	return nil
}

// Init draws every weight (and bias, if the network has them) uniformly from [-InitRange, InitRange].
func (p *Params) Init(r *rand.Rand) {
	uniform := func(a []float32) {
		for i := range a {
			a[i] = (2*r.Float32() - 1) * p.InitRange
		}
	}
	uniform(p.w.Float32s())
	uniform(p.v.Float32s())
	if p.Bias {
		uniform(p.BiasH)
		uniform(p.BiasO)
	}
}

// W returns the input to hidden weights, indexed [input][hidden].
func (p *Params) W() [][]float32 { return p.wRows }

// V returns the hidden to output weights, indexed [hidden][output].
func (p *Params) V() [][]float32 { return p.vRows }

// WTensor returns the tensor backing W.
func (p *Params) WTensor() *tensor.Dense { return p.w }

// VTensor returns the tensor backing V.
func (p *Params) VTensor() *tensor.Dense { return p.v }

// Clone returns a deep copy of the parameters.
func (p *Params) Clone() *Params {
	p2 := &Params{
		Config: p.Config,
		w:      p.w.Clone().(*tensor.Dense),
		v:      p.v.Clone().(*tensor.Dense),
		BiasH:  append([]float32(nil), p.BiasH...),
		BiasO:  append([]float32(nil), p.BiasO...),
	}
	if err := p2.views(); err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return p2
}

// CopyFrom overwrites the parameters with the values of src. Both must share a Config.
func (p *Params) CopyFrom(src *Params) error {
	if p.Config != src.Config {
		return errors.Errorf("Cannot copy parameters of %+v into %+v", src.Config, p.Config)
	}
	copy(p.w.Float32s(), src.w.Float32s())
	copy(p.v.Float32s(), src.v.Float32s())
	copy(p.BiasH, src.BiasH)
	copy(p.BiasO, src.BiasO)
	return nil
}
