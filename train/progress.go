package train

import (
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Summary describes the spread of the per-sample errors of an evaluation pass.
type Summary struct {
	Median float64
	P90    float64
	StdDev float64
}

// Summarize computes a Summary. An empty slice yields the zero Summary.
func Summarize(errs []float32) (Summary, error) {
	if len(errs) == 0 {
		return Summary{}, nil
	}
	data := make(stats.Float64Data, len(errs))
	for i, e := range errs {
		data[i] = float64(e)
	}

	var s Summary
	var err error
	if s.Median, err = stats.Median(data); err != nil {
		return s, errors.Wrap(err, "median")
	}
	if s.P90, err = stats.Percentile(data, 90); err != nil {
		return s, errors.Wrap(err, "90th percentile")
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, errors.Wrap(err, "standard deviation")
	}
	return s, nil
}

// Progress is the outcome of one epoch.
type Progress struct {
	Epoch       int
	TrainErrors int // training samples whose error exceeded the threshold
	TestErrors  int
	TrainMSE    float32 // mean per-sample error over the training set
	TestMSE     float32
	Test        Summary
	State       State // state after the epoch
}

// ProgressEncoder receives the Progress of every epoch. Flush is called when training ends.
type ProgressEncoder interface {
	Encode(Progress) error
	Flush() error
}
