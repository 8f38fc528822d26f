// Package train fits nn.Params to a labelled dataset with online backpropagation.
//
// Every epoch shuffles the training and test orders, updates the parameters once per training sample,
// then measures the test set without touching the parameters. Training stops when the test MSE drops
// to Config.StopMSE or after Config.MaxEpochs epochs, whichever comes first.
package train

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gorgonia/digits/dataset"
	"github.com/gorgonia/digits/nn"
	"github.com/pkg/errors"
)

// ErrTerminal is returned when an epoch is requested from a trainer that has already stopped.
var ErrTerminal = errors.New("training has already stopped")

// Option configures a Trainer.
type Option func(t *Trainer)

// WithLogger sets the logger that per-epoch progress is written to.
func WithLogger(l *log.Logger) Option { return func(t *Trainer) { t.logger = l } }

// WithEncoder sets a ProgressEncoder that receives the progress of every epoch.
func WithEncoder(enc ProgressEncoder) Option { return func(t *Trainer) { t.enc = enc } }

// WithOptimizer replaces the optimizer named in the Config.
func WithOptimizer(o Optimizer) Option { return func(t *Trainer) { t.opt = o } }

// Trainer trains one set of parameters. A Trainer is not safe for concurrent use, and the
// parameters must not be used for inference while an epoch runs.
type Trainer struct {
	Config

	params      *nn.Params
	train, test dataset.Set
	opt         Optimizer
	logger      *log.Logger
	enc         ProgressEncoder

	// state
	state    State
	epoch    int
	progress Progress
	r        *rand.Rand

	// scratch
	act        *nn.Activations
	grads      *Gradients
	target     []float32
	trainOrder []int
	testOrder  []int
	testErrs   []float32
}

// New creates a Trainer for p. testSet may be empty, in which case the stopping rule uses the training MSE.
func New(conf Config, p *nn.Params, trainSet, testSet dataset.Set, opts ...Option) (*Trainer, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("Invalid training config %+v", conf)
	}
	if trainSet == nil || trainSet.Len() == 0 {
		return nil, errors.New("Cannot train without training samples")
	}
	if testSet == nil {
		testSet = dataset.Memory(nil)
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	t := &Trainer{
		Config:     conf,
		params:     p,
		train:      trainSet,
		test:       testSet,
		r:          rand.New(rand.NewSource(seed)),
		act:        nn.NewActivations(p.Config),
		grads:      NewGradients(p.Config),
		target:     make([]float32, p.Outputs),
		trainOrder: identity(trainSet.Len()),
		testOrder:  identity(testSet.Len()),
		testErrs:   make([]float32, 0, testSet.Len()),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.New(os.Stderr, "", log.Ltime)
	}
	if t.opt == nil {
		var err error
		if t.opt, err = NewOptimizer(conf, p.Config); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func identity(n int) []int {
	retVal := make([]int, n)
	for i := range retVal {
		retVal[i] = i
	}
	return retVal
}

func (t *Trainer) shuffle(a []int) {
	for i := range a {
		j := t.r.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}

// State returns the current state.
func (t *Trainer) State() State { return t.state }

// Epochs returns the number of completed epochs.
func (t *Trainer) Epochs() int { return t.epoch }

// Progress returns the progress of the last completed epoch.
func (t *Trainer) Progress() Progress { return t.progress }

// Init randomly initializes the parameters from the trainer's random source.
// It may only be called before the first epoch.
func (t *Trainer) Init() error {
	if t.state != Uninitialized {
		return errors.Errorf("Cannot initialize parameters of a trainer that is %v", t.state)
	}
	t.state = Initializing
	t.params.Init(t.r)
	return nil
}

// Update runs one forward and backward pass for s and steps the optimizer.
// It returns the error of s before the update.
func (t *Trainer) Update(s dataset.Sample) (float32, error) {
	if err := dataset.Check(s, t.params.Inputs, t.params.Outputs); err != nil {
		return 0, err
	}
	if _, err := nn.Forward(t.params, s.Pixels, t.act); err != nil {
		return 0, err
	}
	t.target = nn.OneHot(s.Label, t.params.Outputs, t.target)
	e := nn.SquaredError(t.act.Output, t.target)

	t.grads.Compute(t.params, s.Pixels, t.target, t.act)
	if err := t.opt.Step(t.params, t.grads); err != nil {
		return e, errors.WithMessage(err, "optimizer step")
	}
	return e, nil
}

// Loss returns the error of s without updating the parameters.
func (t *Trainer) Loss(s dataset.Sample) (float32, error) {
	if err := dataset.Check(s, t.params.Inputs, t.params.Outputs); err != nil {
		return 0, err
	}
	if _, err := nn.Forward(t.params, s.Pixels, t.act); err != nil {
		return 0, err
	}
	t.target = nn.OneHot(s.Label, t.params.Outputs, t.target)
	return nn.SquaredError(t.act.Output, t.target), nil
}

func (t *Trainer) abort(err error) (State, error) {
	t.state = Aborted
	t.logger.Printf("Training aborted after %d epochs: %v", t.epoch, err)
	if t.enc != nil {
		if ferr := t.enc.Flush(); ferr != nil {
			t.logger.Printf("Unable to flush progress: %v", ferr)
		}
	}
	return t.state, err
}

// Epoch runs a single epoch and returns the resulting state.
// A sample that cannot be read or a cancelled context aborts training.
func (t *Trainer) Epoch(ctx context.Context) (State, error) {
	if t.state.Terminal() {
		return t.state, errors.Wrapf(ErrTerminal, "trainer is %v", t.state)
	}
	if err := ctx.Err(); err != nil {
		return t.abort(errors.WithStack(err))
	}
	t.state = RunningEpoch
	t.shuffle(t.trainOrder)
	t.shuffle(t.testOrder)

	p := Progress{Epoch: t.epoch + 1}
	for _, i := range t.trainOrder {
		s, err := t.train.At(i)
		if err != nil {
			return t.abort(errors.WithMessagef(err, "training sample %d", i))
		}
		e, err := t.Update(s)
		if err != nil {
			return t.abort(errors.WithMessagef(err, "training sample %d", i))
		}
		p.TrainMSE += e
		if e > t.ErrorThreshold {
			p.TrainErrors++
		}
	}
	p.TrainMSE /= float32(len(t.trainOrder))

	t.testErrs = t.testErrs[:0]
	for _, i := range t.testOrder {
		s, err := t.test.At(i)
		if err != nil {
			return t.abort(errors.WithMessagef(err, "test sample %d", i))
		}
		e, err := t.Loss(s)
		if err != nil {
			return t.abort(errors.WithMessagef(err, "test sample %d", i))
		}
		t.testErrs = append(t.testErrs, e)
		p.TestMSE += e
		if e > t.ErrorThreshold {
			p.TestErrors++
		}
	}
	stop := p.TrainMSE
	if len(t.testOrder) > 0 {
		p.TestMSE /= float32(len(t.testOrder))
		stop = p.TestMSE
	}
	var err error
	if p.Test, err = Summarize(t.testErrs); err != nil {
		return t.abort(err)
	}

	t.epoch++
	switch {
	case stop <= t.StopMSE:
		t.state = Converged
	case t.epoch >= t.MaxEpochs:
		t.state = EpochBudgetExhausted
	}
	p.State = t.state
	t.progress = p

	t.logger.Printf("Epoch %d: train errors %d MSE %.6f, test errors %d MSE %.6f (median %.6f, p90 %.6f)",
		p.Epoch, p.TrainErrors, p.TrainMSE, p.TestErrors, p.TestMSE, p.Test.Median, p.Test.P90)
	if t.enc != nil {
		if err := t.enc.Encode(p); err != nil {
			return t.abort(errors.WithMessage(err, "progress encoder"))
		}
		if t.state.Terminal() {
			if err := t.enc.Flush(); err != nil {
				return t.state, errors.WithMessage(err, "progress encoder")
			}
		}
	}
	return t.state, nil
}

// Run runs epochs until training converges, exhausts its epoch budget or fails.
// The context is checked between epochs.
func (t *Trainer) Run(ctx context.Context) (State, error) {
	if t.state.Terminal() {
		return t.state, errors.Wrapf(ErrTerminal, "trainer is %v", t.state)
	}
	for !t.state.Terminal() {
		if _, err := t.Epoch(ctx); err != nil {
			return t.state, err
		}
	}
	t.logger.Printf("Training finished after %d epochs: %v", t.epoch, t.state)
	return t.state, nil
}
