package train

import (
	"fmt"

	"github.com/gorgonia/digits/nn"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
	"gorgonia.org/vecf32"
)

// Gradients holds the derivatives of a sample's error with respect to every parameter.
// W and V have the shapes of nn.Params' W and V.
type Gradients struct {
	W, V         *tensor.Dense
	w, v         [][]float32
	BiasH, BiasO []float32

	// active lists the inputs that were non-zero in the last sample, x their values.
	// Only the active rows of W are non-zero.
	active []int
	x      []float32
	hidden []float32
	tmp    []float32
}

// NewGradients allocates zeroed gradients for the given network.
func NewGradients(conf nn.Config) *Gradients {
	g := &Gradients{
		W:      tensor.New(tensor.WithShape(conf.Inputs, conf.Hidden), tensor.Of(nn.Float)),
		V:      tensor.New(tensor.WithShape(conf.Hidden, conf.Outputs), tensor.Of(nn.Float)),
		BiasH:  make([]float32, conf.Hidden),
		BiasO:  make([]float32, conf.Outputs),
		hidden: make([]float32, conf.Hidden),
		tmp:    make([]float32, conf.Outputs),
	}
	var err error
	if g.w, err = native.MatrixF32(g.W); err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	if g.v, err = native.MatrixF32(g.V); err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return g
}

// Rows returns W's gradient indexed [input][hidden] and V's indexed [hidden][output].
func (g *Gradients) Rows() (w, v [][]float32) { return g.w, g.v }

// Active returns the inputs that contributed to the last gradient.
func (g *Gradients) Active() []int { return g.active }

// Compute backpropagates the error ½Σ(y-d)² of act (the result of nn.Forward on input) against target.
// p must be the parameters act was computed with.
func (g *Gradients) Compute(p *nn.Params, input, target []float32, act *nn.Activations) {
	// output layer: δ_k = (y_k - d_k)·y_k·(1 - y_k)
	delta := g.BiasO
	for k, y := range act.Output {
		delta[k] = (y - target[k]) * y * (1 - y)
	}
	for j, h := range act.Hidden {
		row := g.v[j]
		for k := range row {
			row[k] = 0
		}
		vecf32.IncrScale(delta, h, row)
	}
	copy(g.hidden, act.Hidden)

	for _, i := range g.active {
		row := g.w[i]
		for j := range row {
			row[j] = 0
		}
	}
	g.active, g.x = g.active[:0], g.x[:0]
	for i, x := range input {
		if x != 0 {
			g.active = append(g.active, i)
			g.x = append(g.x, x)
		}
	}
	g.Backprop(p.V())
}

// Backprop propagates the output deltas of the last Compute through V into the hidden bias and W gradients:
//
//	g_j = Σ_k δ_k·V[j][k] · h_j·(1 - h_j)
//
// Compute calls it with the V the activations came from. Calling it again with an updated V
// lets the hidden layer see the output layer's step.
func (g *Gradients) Backprop(V [][]float32) {
	for j, h := range g.hidden {
		copy(g.tmp, V[j])
		vecf32.Mul(g.tmp, g.BiasO)
		g.BiasH[j] = vecf32.Sum(g.tmp) * h * (1 - h)
	}
	for n, i := range g.active {
		row := g.w[i]
		for j := range row {
			row[j] = 0
		}
		vecf32.IncrScale(g.BiasH, g.x[n], row)
	}
}
