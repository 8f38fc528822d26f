package train

import (
	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Optimizer applies a sample's gradients to the parameters.
type Optimizer interface {
	Step(p *nn.Params, g *Gradients) error
}

// NewOptimizer returns the optimizer named by conf.Optimizer.
func NewOptimizer(conf Config, net nn.Config) (Optimizer, error) {
	lr := G.WithLearnRate(float64(conf.Alpha))
	switch conf.Optimizer {
	case SignOptimizer:
		return NewSignMomentum(conf.Alpha, net), nil
	case VanillaOptimizer:
		return &Solver{Solver: G.NewVanillaSolver(lr)}, nil
	case MomentumOptimizer:
		return &Solver{Solver: G.NewMomentum(lr, G.WithMomentum(conf.Momentum))}, nil
	case AdamOptimizer:
		return &Solver{Solver: G.NewAdamSolver(lr)}, nil
	case RMSPropOptimizer:
		return &Solver{Solver: G.NewRMSPropSolver(lr)}, nil
	}
	return nil, errors.Errorf("Unknown optimizer %q", conf.Optimizer)
}

// SignMomentum is gradient descent with a per-weight step multiplier: a weight's step is scaled by Up
// when its gradient term has the same sign as the previous term for that weight, and by Down otherwise.
// Biases take plain gradient steps.
//
// V is stepped first and the hidden layer gradients are then recomputed from the updated V,
// so W and the hidden biases move against the output layer as it is after this sample.
type SignMomentum struct {
	Alpha    float32
	Up, Down float32

	prevW, prevV []float32
}

// NewSignMomentum returns a SignMomentum with the 1.2 and 0.5 multipliers.
func NewSignMomentum(alpha float32, conf nn.Config) *SignMomentum {
	return &SignMomentum{
		Alpha: alpha,
		Up:    1.2,
		Down:  0.5,
		prevW: make([]float32, conf.Inputs*conf.Hidden),
		prevV: make([]float32, conf.Hidden*conf.Outputs),
	}
}

func (o *SignMomentum) step(w, g, prev []float32) {
	for i, grad := range g {
		term := o.Alpha * grad
		m := o.Down
		if term*prev[i] > 0 {
			m = o.Up
		}
		w[i] -= term * m
		prev[i] = term
	}
}

func (o *SignMomentum) Step(p *nn.Params, g *Gradients) error {
	if len(o.prevW) != p.Inputs*p.Hidden || len(o.prevV) != p.Hidden*p.Outputs {
		return errors.Errorf("Optimizer was built for a different network than %+v", p.Config)
	}
	W, V := p.W(), p.V()
	gw, gv := g.Rows()
	for j := range V {
		o.step(V[j], gv[j], o.prevV[j*p.Outputs:(j+1)*p.Outputs])
	}
	// the hidden layer error flows back through the V just stepped
	g.Backprop(V)
	// rows of inactive inputs have no gradient and keep their previous terms
	for _, i := range g.Active() {
		o.step(W[i], gw[i], o.prevW[i*p.Hidden:(i+1)*p.Hidden])
	}
	if p.Bias {
		for k, d := range g.BiasO {
			p.BiasO[k] -= o.Alpha * d
		}
		for j, d := range g.BiasH {
			p.BiasH[j] -= o.Alpha * d
		}
	}
	return nil
}

// Solver steps the parameters with a gorgonia solver. The solver updates the weight tensors in place.
type Solver struct {
	G.Solver
}

type valueGrad struct {
	value, grad *tensor.Dense
}

func (vg valueGrad) Value() G.Value         { return vg.value }
func (vg valueGrad) Grad() (G.Value, error) { return vg.grad, nil }

func vector(a []float32) *tensor.Dense {
	return tensor.New(tensor.WithBacking(a), tensor.WithShape(len(a)))
}

func (s *Solver) Step(p *nn.Params, g *Gradients) error {
	model := []G.ValueGrad{
		valueGrad{p.WTensor(), g.W},
		valueGrad{p.VTensor(), g.V},
	}
	if p.Bias {
		model = append(model,
			valueGrad{vector(p.BiasH), vector(g.BiasH)},
			valueGrad{vector(p.BiasO), vector(g.BiasO)},
		)
	}
	return errors.WithStack(s.Solver.Step(model))
}
