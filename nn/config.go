package nn

// Config configures the neural network
type Config struct {
	Inputs  int `toml:"inputs"`  // input count, the height*width of the normalized grid
	Hidden  int `toml:"hidden"`  // hidden layer width
	Outputs int `toml:"outputs"` // number of classes

	InitRange float32 `toml:"init_range"` // weights are initialized in [-InitRange, InitRange]
	Bias      bool    `toml:"bias"`       // does the network carry (and persist) bias vectors?
}

// DefaultConf returns the configuration of a network reading a h×w grid and classifying ten digits.
func DefaultConf(h, w int) Config {
	return Config{
		Inputs:    h * w,
		Hidden:    80,
		Outputs:   10,
		InitRange: 0.3,
		Bias:      true,
	}
}

func (conf Config) IsValid() bool {
	return conf.Inputs >= 1 &&
		conf.Hidden >= 1 &&
		conf.Outputs >= 2 &&
		conf.InitRange >= 0
}

// Count returns the number of scalars a checkpoint of this network holds.
func (conf Config) Count() int {
	n := conf.Inputs*conf.Hidden + conf.Hidden*conf.Outputs
	if conf.Bias {
		n += conf.Hidden + conf.Outputs
	}
	return n
}
