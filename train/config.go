package train

// Optimizer names accepted by Config.Optimizer.
const (
	SignOptimizer     = "sign"
	VanillaOptimizer  = "vanilla"
	MomentumOptimizer = "momentum"
	AdamOptimizer     = "adam"
	RMSPropOptimizer  = "rmsprop"
)

// Config configures a training run.
type Config struct {
	Alpha          float32 `toml:"alpha"`           // learning rate
	ErrorThreshold float32 `toml:"error_threshold"` // a sample whose error exceeds this is counted as an error
	StopMSE        float32 `toml:"stop_mse"`        // training stops once the test MSE is at or below this
	MaxEpochs      int     `toml:"max_epochs"`
	Seed           int64   `toml:"seed"` // 0 seeds from the clock

	Optimizer string  `toml:"optimizer"`
	Momentum  float64 `toml:"momentum"` // only used by the momentum optimizer
}

// DefaultConfig returns the configuration the recognizer was tuned with.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.7,
		ErrorThreshold: 0.01,
		StopMSE:        0.001,
		MaxEpochs:      100,
		Optimizer:      SignOptimizer,
		Momentum:       0.9,
	}
}

func (c Config) IsValid() bool {
	switch c.Optimizer {
	case SignOptimizer, VanillaOptimizer, MomentumOptimizer, AdamOptimizer, RMSPropOptimizer:
	default:
		return false
	}
	return c.Alpha > 0 &&
		c.ErrorThreshold >= 0 &&
		c.StopMSE >= 0 &&
		c.MaxEpochs >= 1 &&
		c.Momentum >= 0 && c.Momentum < 1
}
