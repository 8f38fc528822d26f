package digits

import (
	"log"

	"github.com/BurntSushi/toml"
	"github.com/gorgonia/digits/checkpoint"
	"github.com/gorgonia/digits/dataset"
	"github.com/gorgonia/digits/nn"
	"github.com/gorgonia/digits/normalize"
	"github.com/gorgonia/digits/train"
	"github.com/pkg/errors"
)

// Config configures an Engine.
type Config struct {
	Name   string `toml:"name"`
	Height int    `toml:"height"` // size of the normalized grid
	Width  int    `toml:"width"`

	// Ink selects how drawn images are turned into bitmaps: "opaque" (anything that is not
	// fully transparent, as a drawing canvas produces) or "dark" (darker than InkThreshold).
	Ink          string `toml:"ink"`
	InkThreshold uint8  `toml:"ink_threshold"`

	NNConf     nn.Config        `toml:"net"`
	TrainConf  train.Config     `toml:"train"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Data       DataConfig       `toml:"data"`

	// extensions
	Logger          *log.Logger           `toml:"-"`
	OutputEncoder   OutputEncoder         `toml:"-"`
	ProgressEncoder train.ProgressEncoder `toml:"-"`
	Store           checkpoint.Store      `toml:"-"` // overrides Checkpoint when set
}

// CheckpointConfig names the files parameters are persisted to. File takes precedence over the W/V pair.
// With neither set, parameters are not persisted.
type CheckpointConfig struct {
	File string `toml:"file"`
	W    string `toml:"w"`
	V    string `toml:"v"`
}

// Store returns the checkpoint.Store described by the config, or nil.
func (c CheckpointConfig) Store() checkpoint.Store {
	switch {
	case c.File != "":
		return checkpoint.File(c.File)
	case c.W != "" && c.V != "":
		return checkpoint.Pair{W: c.W, V: c.V}
	}
	return nil
}

// DataConfig locates the training and test samples.
//
// With Kind "dir", TrainDir and TestDir hold TrainCount and TestCount numbered images.
// With Kind "idx", the samples are read from IDX image/label file pairs, optionally gzipped,
// keeping at most TrainCount and TestCount records (all of them when zero).
type DataConfig struct {
	Kind       string `toml:"kind"`
	TrainDir   string `toml:"train_dir"`
	TestDir    string `toml:"test_dir"`
	TrainCount int    `toml:"train_count"`
	TestCount  int    `toml:"test_count"`

	TrainImages string `toml:"train_images"`
	TrainLabels string `toml:"train_labels"`
	TestImages  string `toml:"test_images"`
	TestLabels  string `toml:"test_labels"`
	Threshold   uint8  `toml:"threshold"` // IDX pixels above this are ink
}

// DefaultConfig returns the configuration of the 10×10 digit recognizer.
func DefaultConfig() Config {
	return Config{
		Name:         "digits",
		Height:       10,
		Width:        10,
		Ink:          "opaque",
		InkThreshold: 128,
		NNConf:       nn.DefaultConf(10, 10),
		TrainConf:    train.DefaultConfig(),
		Checkpoint: CheckpointConfig{
			W: "W.txt",
			V: "V.txt",
		},
		Data: DataConfig{
			Kind:       "dir",
			TrainDir:   "train",
			TestDir:    "test",
			TrainCount: 100,
			TestCount:  20,
			Threshold:  127,
		},
	}
}

func (c Config) IsValid() bool {
	return c.Height >= 1 && c.Width >= 1 &&
		c.NNConf.IsValid() &&
		c.NNConf.Inputs == c.Height*c.Width &&
		c.TrainConf.IsValid() &&
		(c.Ink == "opaque" || c.Ink == "dark")
}

func (c Config) inkFunc() normalize.InkFunc {
	if c.Ink == "dark" {
		return normalize.Dark(c.InkThreshold)
	}
	return normalize.Opaque
}

// LoadConfig decodes a TOML file over DefaultConfig. Keys missing from the file keep their defaults.
// When the grid size changes but net.inputs is not given, the input count follows the grid.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	md, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, errors.Wrapf(err, "Unable to decode config %s", path)
	}
	if !md.IsDefined("net", "inputs") {
		conf.NNConf.Inputs = conf.Height * conf.Width
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return conf, errors.Errorf("Unknown keys in %s: %v", path, undecoded)
	}
	if !conf.IsValid() {
		return conf, errors.Errorf("Invalid config in %s: %+v", path, conf)
	}
	return conf, nil
}

// Sets opens the configured training and test sets for the grid and ink mode of c.
func (c Config) Sets() (trainSet, testSet dataset.Set, err error) {
	return c.Data.Sets(c.Height, c.Width, c.NNConf.Outputs, c.inkFunc())
}

// Sets opens the training and test sets described by c, normalized to h×w grids over classes labels.
func (c DataConfig) Sets(h, w, classes int, ink normalize.InkFunc) (trainSet, testSet dataset.Set, err error) {
	switch c.Kind {
	case "dir":
		var tr, te *dataset.Dir
		if tr, err = dataset.NewDir(c.TrainDir, c.TrainCount, classes, h, w); err != nil {
			return nil, nil, errors.WithMessage(err, "training set")
		}
		if te, err = dataset.NewDir(c.TestDir, c.TestCount, classes, h, w); err != nil {
			return nil, nil, errors.WithMessage(err, "test set")
		}
		tr.Ink, te.Ink = ink, ink
		return tr, te, nil
	case "idx":
		if trainSet, err = c.collect(c.TrainImages, c.TrainLabels, c.TrainCount, h, w); err != nil {
			return nil, nil, errors.WithMessage(err, "training set")
		}
		if testSet, err = c.collect(c.TestImages, c.TestLabels, c.TestCount, h, w); err != nil {
			return nil, nil, errors.WithMessage(err, "test set")
		}
		return trainSet, testSet, nil
	}
	return nil, nil, errors.Errorf("Unknown data kind %q", c.Kind)
}

func (c DataConfig) collect(images, labels string, limit, h, w int) (dataset.Memory, error) {
	r, err := dataset.OpenIDX(images, labels)
	if err != nil {
		return nil, err
	}
	m, err := dataset.Collect(r, h, w, c.Threshold, limit)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	return m, err
}
