package digits

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/gorgonia/digits/train"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Statistics is the per-epoch history of every training run of an Engine.
type Statistics struct {
	Epochs []train.Progress
}

func makeStatistics() Statistics {
	return Statistics{
		Epochs: make([]train.Progress, 0, 128),
	}
}

func (s *Statistics) update(p train.Progress) { s.Epochs = append(s.Epochs, p) }

// Dump writes the history as CSV.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"epoch", "train_errors", "test_errors", "train_mse", "test_mse", "test_median", "test_p90", "test_stddev", "state"}); err != nil {
		return errors.WithStack(err)
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
	records := make([][]string, 0, len(s.Epochs))
	for _, p := range s.Epochs {
		records = append(records, []string{
			strconv.Itoa(p.Epoch),
			strconv.Itoa(p.TrainErrors),
			strconv.Itoa(p.TestErrors),
			ff(float64(p.TrainMSE)),
			ff(float64(p.TestMSE)),
			ff(p.Test.Median),
			ff(p.Test.P90),
			ff(p.Test.StdDev),
			p.State.String(),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(f.Close())
}

// Plot draws the training and test MSE of every epoch. The image format follows the file extension.
func (s *Statistics) Plot(filename string) error {
	if len(s.Epochs) == 0 {
		return errors.New("No epochs to plot")
	}
	trainPts := make(plotter.XYs, len(s.Epochs))
	testPts := make(plotter.XYs, len(s.Epochs))
	for i, p := range s.Epochs {
		trainPts[i].X, trainPts[i].Y = float64(i+1), float64(p.TrainMSE)
		testPts[i].X, testPts[i].Y = float64(i+1), float64(p.TestMSE)
	}

	p := plot.New()
	p.Title.Text = "Learning curve"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "MSE"
	if err := plotutil.AddLines(p, "train", trainPts, "test", testPts); err != nil {
		return errors.Wrap(err, "Unable to plot learning curve")
	}
	return errors.WithStack(p.Save(6*vg.Inch, 4*vg.Inch, filename))
}

// recorder feeds training progress into Statistics.
type recorder struct{ *Statistics }

func (r recorder) Encode(p train.Progress) error {
	r.update(p)
	return nil
}

func (r recorder) Flush() error { return nil }
