package nn

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// Activations are the per-sample outputs of both layers. They are overwritten by every Forward.
type Activations struct {
	Hidden []float32
	Output []float32
}

// NewActivations allocates activations sized for the given network.
func NewActivations(conf Config) *Activations {
	return &Activations{
		Hidden: make([]float32, conf.Hidden),
		Output: make([]float32, conf.Outputs),
	}
}

// Sigmoid is the logistic function. It is not clamped.
func Sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Forward computes the hidden and output activations of the network for the given input.
// Zero inputs are skipped. p is only read.
//
// act is reused when non-nil (and resized if it does not fit p), and allocated otherwise.
// The filled activations are returned.
func Forward(p *Params, input []float32, act *Activations) (*Activations, error) {
	if len(input) != p.Inputs {
		return act, errors.Errorf("Expected an input of %d values. Got %d", p.Inputs, len(input))
	}
	if act == nil {
		act = NewActivations(p.Config)
	}
	if len(act.Hidden) != p.Hidden || len(act.Output) != p.Outputs {
		*act = *NewActivations(p.Config)
	}

	hidden := act.Hidden
	for j := range hidden {
		hidden[j] = 0
	}
	for i, x := range input {
		if x != 0 {
			vecf32.IncrScale(p.wRows[i], x, hidden)
		}
	}
	for j := range hidden {
		hidden[j] = Sigmoid(hidden[j] + p.BiasH[j])
	}

	output := act.Output
	for k := range output {
		output[k] = 0
	}
	for j, y := range hidden {
		vecf32.IncrScale(p.vRows[j], y, output)
	}
	for k := range output {
		output[k] = Sigmoid(output[k] + p.BiasO[k])
	}
	return act, nil
}

// OneHot writes the one-hot encoding of label into dst, allocating if dst is not n long.
func OneHot(label, n int, dst []float32) []float32 {
	if len(dst) != n {
		dst = make([]float32, n)
	}
	for i := range dst {
		dst[i] = 0
	}
	dst[label] = 1
	return dst
}

// SquaredError is half the sum of squared differences between output and target.
// This is the per-sample error the trainer counts and averages.
func SquaredError(output, target []float32) float32 {
	diff := make([]float32, len(output))
	copy(diff, output)
	vecf32.Sub(diff, target)
	vecf32.Mul(diff, diff)
	return vecf32.Sum(diff) / 2
}
