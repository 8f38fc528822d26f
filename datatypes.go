package digits

import (
	"fmt"
	"strings"
)

// Unknown is the Digit of a Result when nothing could be recognized.
const Unknown = -1

// Result is the outcome of recognizing one drawing.
type Result struct {
	Digit int // Unknown for blank drawings and undecided networks

	// Confidence[k] is (y_k - min y) / (max y - min y) over the network outputs y. It is not a
	// probability distribution. When all outputs are equal it is 1/len(y) everywhere.
	Confidence []float32
	Output     []float32 // raw output activations; nil for blank drawings
	Grid       []float32 // the normalized input; nil for blank drawings
}

// Blank reports whether the drawing had no ink.
func (r Result) Blank() bool { return r.Grid == nil }

func (r Result) String() string {
	if r.Digit == Unknown {
		if r.Blank() {
			return "unknown (blank)"
		}
		return "unknown"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "%d", r.Digit)
	for k, c := range r.Confidence {
		fmt.Fprintf(&buf, " %d:%.2f", k, c)
	}
	return buf.String()
}

// Recognition is what an Engine reports to its OutputEncoder for every Recognize call.
type Recognition struct {
	Name          string // engine name
	Number        int    // recognitions made so far, starting at 1
	Height, Width int    // grid size
	Result
}

// OutputEncoder encodes recognitions as whatever.
//
// An example OutputEncoder is the gif Encoder. Another example would be a logger.
type OutputEncoder interface {
	Encode(r Recognition) error
	Flush() error
}
