package digits

import (
	"fmt"

	"github.com/gorgonia/digits/dataset"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Evaluation is the accuracy of the network over a labelled set.
type Evaluation struct {
	Samples int
	Correct int
	Unknown int // samples the network could not decide on

	// Confusion counts samples by true label (row) and recognized digit (column).
	// Unknown recognitions are not counted.
	Confusion *mat.Dense
}

// Accuracy is the fraction of samples recognized correctly.
func (ev Evaluation) Accuracy() float64 {
	if ev.Samples == 0 {
		return 0
	}
	return float64(ev.Correct) / float64(ev.Samples)
}

func (ev Evaluation) String() string {
	return fmt.Sprintf("%d/%d correct (%.1f%%), %d unknown\n%v",
		ev.Correct, ev.Samples, 100*ev.Accuracy(), ev.Unknown,
		mat.Formatted(ev.Confusion, mat.Squeeze()))
}

// Evaluate classifies every sample of set. The parameters are not modified and nothing is sent to
// the output encoder.
func (e *Engine) Evaluate(set dataset.Set) (Evaluation, error) {
	n := e.params.Outputs
	ev := Evaluation{Confusion: mat.NewDense(n, n, nil)}
	for i := 0; i < set.Len(); i++ {
		s, err := set.At(i)
		if err != nil {
			return ev, errors.WithMessagef(err, "sample %d", i)
		}
		if err = dataset.Check(s, e.params.Inputs, n); err != nil {
			return ev, errors.WithMessagef(err, "sample %d", i)
		}
		res, err := e.classify(s.Pixels)
		if err != nil {
			return ev, errors.WithMessagef(err, "sample %d", i)
		}
		ev.Samples++
		switch {
		case res.Digit == Unknown:
			ev.Unknown++
			continue
		case res.Digit == s.Label:
			ev.Correct++
		}
		ev.Confusion.Set(s.Label, res.Digit, ev.Confusion.At(s.Label, res.Digit)+1)
	}
	return ev, nil
}
