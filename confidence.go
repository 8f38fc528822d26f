package digits

import (
	"github.com/chewxy/math32"
	"gorgonia.org/vecf32"
)

// Confidence rescales the network outputs to [0, 1]: the strongest output maps to 1, the weakest to 0.
// If the outputs are all equal (a saturated or untrained network) there is nothing to tell them apart, so
// Confidence returns the uniform vector 1/len(output) and false.
func Confidence(output []float32) ([]float32, bool) {
	retVal := make([]float32, len(output))
	if len(output) == 0 {
		return retVal, false
	}
	max, min := vecf32.MaxOf(output), vecf32.MinOf(output)
	span := max - min
	if span == 0 || math32.IsNaN(span) || math32.IsInf(span, 0) {
		for i := range retVal {
			retVal[i] = 1 / float32(len(output))
		}
		return retVal, false
	}
	for i, y := range output {
		retVal[i] = (y - min) / span
	}
	return retVal, true
}
