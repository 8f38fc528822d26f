// Package dataset supplies labelled digit samples to the trainer.
//
// Two sources are provided: Dir reads numbered image files where the label is implied by the
// index, and IDXReader streams the label/image record pairs of the IDX binary format.
package dataset

import (
	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
)

// Sample is a normalized binary grid with its label.
type Sample struct {
	Pixels []float32
	Label  int
}

// Target returns the one-hot encoding of the sample's label over n classes.
func (s Sample) Target(n int) []float32 { return nn.OneHot(s.Label, n, nil) }

// Set is a random access collection of samples.
type Set interface {
	Len() int
	At(i int) (Sample, error)
}

// Memory is a Set held in memory.
type Memory []Sample

func (m Memory) Len() int { return len(m) }

func (m Memory) At(i int) (Sample, error) {
	if i < 0 || i >= len(m) {
		return Sample{}, errors.Errorf("sample %d out of range [0, %d)", i, len(m))
	}
	return m[i], nil
}

// LabelOf returns the label of the i-th of total samples that are partitioned into
// classes contiguous blocks of equal size.
func LabelOf(i, total, classes int) int {
	return i / (total / classes)
}

// Check verifies that a sample fits a network with the given input and class counts.
func Check(s Sample, inputs, classes int) error {
	if len(s.Pixels) != inputs {
		return errors.Errorf("sample has %d pixels, expected %d", len(s.Pixels), inputs)
	}
	if s.Label < 0 || s.Label >= classes {
		return errors.Errorf("label %d out of range [0, %d)", s.Label, classes)
	}
	for i, p := range s.Pixels {
		if p != 0 && p != 1 {
			return errors.Errorf("pixel %d is %v, expected 0 or 1", i, p)
		}
	}
	return nil
}
