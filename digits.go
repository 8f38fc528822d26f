// Package digits recognizes handwritten digits with a small two layer network.
//
// An Engine owns the network parameters. Start loads them from a checkpoint, or trains them from
// scratch when there is no usable checkpoint; Recognize then classifies drawings.
package digits

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io/fs"
	"log"
	"os"

	"github.com/gorgonia/digits/checkpoint"
	"github.com/gorgonia/digits/dataset"
	"github.com/gorgonia/digits/nn"
	"github.com/gorgonia/digits/normalize"
	"github.com/gorgonia/digits/train"
	"github.com/pkg/errors"
	"gorgonia.org/vecf32"
)

// Engine is the top level structure and the entry point of the API.
//
// An Engine is not safe for concurrent use: training and recognition must be serialized by the caller.
type Engine struct {
	// state
	Statistics
	params *nn.Params
	act    *nn.Activations
	state  train.State
	loaded bool
	count  int

	// config
	conf  Config
	store checkpoint.Store

	// io
	logger  *log.Logger
	outEnc  OutputEncoder
	progEnc train.ProgressEncoder
}

// New creates an Engine with zeroed parameters. Call Start (or Learn) before recognizing anything.
func New(conf Config) (*Engine, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("Invalid config %+v", conf)
	}
	e := &Engine{
		Statistics: makeStatistics(),
		params:     nn.New(conf.NNConf),
		act:        nn.NewActivations(conf.NNConf),
		conf:       conf,
		store:      conf.Store,
		logger:     conf.Logger,
		outEnc:     conf.OutputEncoder,
		progEnc:    conf.ProgressEncoder,
	}
	if e.store == nil {
		e.store = conf.Checkpoint.Store()
	}
	if e.logger == nil {
		e.logger = log.New(os.Stderr, "", log.Ltime)
	}
	return e, nil
}

// Params returns the network parameters.
func (e *Engine) Params() *nn.Params { return e.params }

// State returns the outcome of the last training run. It is Uninitialized if the engine has not trained.
func (e *Engine) State() train.State { return e.state }

// Loaded reports whether the parameters came from a checkpoint.
func (e *Engine) Loaded() bool { return e.loaded }

// Start makes the engine ready to recognize. If the checkpoint store holds usable parameters they are
// loaded and no training happens. A missing, truncated or malformed checkpoint is logged and the
// parameters are randomly initialized and trained on trainSet and testSet instead.
func (e *Engine) Start(ctx context.Context, trainSet, testSet dataset.Set) error {
	if e.store != nil {
		err := e.store.Load(e.params)
		switch {
		case err == nil:
			e.loaded = true
			e.logger.Printf("Loaded parameters of %s. Skipping training", e.conf.Name)
			return nil
		case errors.Is(err, fs.ErrNotExist):
			e.logger.Printf("No checkpoint for %s. Training from scratch", e.conf.Name)
		case errors.Is(err, checkpoint.ErrTruncated), errors.Is(err, checkpoint.ErrFormat):
			e.logger.Printf("Discarding unusable checkpoint: %v", err)
		default:
			return errors.WithMessage(err, "Unable to load checkpoint")
		}
	}
	_, err := e.learn(ctx, trainSet, testSet, true)
	return err
}

// Learn trains the current parameters further on trainSet and testSet and saves them if training
// converges or exhausts its epoch budget. When training is aborted nothing is saved and the
// parameters are restored to what they were before Learn.
func (e *Engine) Learn(ctx context.Context, trainSet, testSet dataset.Set) (train.State, error) {
	return e.learn(ctx, trainSet, testSet, false)
}

func (e *Engine) learn(ctx context.Context, trainSet, testSet dataset.Set, init bool) (train.State, error) {
	enc := progressEncoders{recorder{&e.Statistics}}
	if e.progEnc != nil {
		enc = append(enc, e.progEnc)
	}
	t, err := train.New(e.conf.TrainConf, e.params, trainSet, testSet, train.WithLogger(e.logger), train.WithEncoder(enc))
	if err != nil {
		return train.Uninitialized, err
	}
	if init {
		if err = t.Init(); err != nil {
			return train.Uninitialized, err
		}
	}
	var snapshot *nn.Params
	loaded := e.loaded
	if !init {
		snapshot = e.params.Clone()
	}
	e.loaded = false
	e.state, err = t.Run(ctx)
	if err != nil {
		if snapshot != nil && e.params.CopyFrom(snapshot) == nil {
			e.loaded = loaded
			e.logger.Printf("Restored the parameters of %s from before training", e.conf.Name)
		}
		return e.state, errors.WithMessage(err, "Training failed")
	}
	if e.store != nil {
		if err = e.store.Save(e.params); err != nil {
			return e.state, errors.WithMessage(err, "Unable to save parameters")
		}
	}
	return e.state, nil
}

// Recognize normalizes a drawing and classifies it. A drawing without ink is reported as Unknown
// without running the network.
func (e *Engine) Recognize(b *normalize.Bitmap) (Result, error) {
	grid, err := normalize.Normalize(b, e.conf.Height, e.conf.Width)
	switch {
	case errors.Is(err, normalize.ErrNoContent):
		res := Result{Digit: Unknown, Confidence: make([]float32, e.params.Outputs)}
		return res, e.encode(res)
	case err != nil:
		return Result{}, err
	}
	res, err := e.classify(grid)
	if err != nil {
		return res, err
	}
	return res, e.encode(res)
}

// RecognizeImage recognizes an image, deciding what is ink according to the configured ink mode.
func (e *Engine) RecognizeImage(img image.Image) (Result, error) {
	return e.Recognize(normalize.FromImage(img, e.conf.inkFunc()))
}

// classify runs the network on a normalized grid.
func (e *Engine) classify(grid []float32) (Result, error) {
	if _, err := nn.Forward(e.params, grid, e.act); err != nil {
		return Result{}, err
	}
	conf, ok := Confidence(e.act.Output)
	res := Result{
		Digit:      Unknown,
		Confidence: conf,
		Output:     append([]float32(nil), e.act.Output...),
		Grid:       grid,
	}
	if ok {
		res.Digit = vecf32.Argmax(e.act.Output)
	}
	return res, nil
}

func (e *Engine) encode(res Result) error {
	e.count++
	if e.outEnc == nil {
		return nil
	}
	return e.outEnc.Encode(Recognition{
		Name:   e.conf.Name,
		Number: e.count,
		Height: e.conf.Height,
		Width:  e.conf.Width,
		Result: res,
	})
}

// Close flushes the output encoder.
func (e *Engine) Close() error {
	if e.outEnc == nil {
		return nil
	}
	return e.outEnc.Flush()
}

// Dot renders the k strongest connections of each layer in graphviz DOT.
func (e *Engine) Dot(k int) string { return nn.ToDot(e.params, k) }

type progressEncoders []train.ProgressEncoder

func (encs progressEncoders) Encode(p train.Progress) error {
	var errs manyErr
	for _, enc := range encs {
		if err := enc.Encode(p); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (encs progressEncoders) Flush() error {
	var errs manyErr
	for _, enc := range encs {
		if err := enc.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
