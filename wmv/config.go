package wmv

import (
	"fmt"

	"github.com/banshee-data/motion.report/internal/config"
)

// Config provides a configuration builder for Params and the scheduling
// options of an Engine. It allows setting parameters with defaults and
// validation before creating streams.
type Config struct {
	// Estimator
	EnableWeight       bool       // false replaces Weights with (1/3, 1/3, 1/3)
	Weights            [3]float32 // newest first (default: 0.5, 0.3, 0.2)
	EnableThreshold    bool       // binary mask output (default: true)
	Threshold          float32    // 8-bit threshold (default: 15)
	Threshold16        float32    // 16-bit threshold (default: 3840)
	LegacyColorPairing bool       // reproduce reference color output (default: false)

	// Scheduling
	Parallelism          int // goroutines per frame (default: 1)
	MinPartitionPixels   int // smallest per-goroutine pixel range (default: 16384)
	MaxConcurrentStreams int // SubmitAll worker limit; 0 means one per stream

	// threshold16Set records an explicit Threshold16, which WithThreshold
	// then leaves alone.
	threshold16Set bool
}

// DefaultConfig returns a Config built from the tuning fallbacks. It does
// not read the defaults file.
func DefaultConfig() *Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// LoadDefaultConfig returns a Config loaded from the canonical tuning
// defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found. Intended for tests and binaries
// that have already validated config availability.
func LoadDefaultConfig() *Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) *Config {
	w := cfg.GetWeights()
	return &Config{
		EnableWeight:         cfg.GetEnableWeight(),
		Weights:              [3]float32{float32(w[0]), float32(w[1]), float32(w[2])},
		EnableThreshold:      cfg.GetEnableThreshold(),
		Threshold:            float32(cfg.GetThreshold()),
		Threshold16:          float32(cfg.GetThreshold16()),
		LegacyColorPairing:   cfg.GetLegacyColorPairing(),
		Parallelism:          cfg.GetParallelism(),
		MinPartitionPixels:   cfg.GetMinPartitionPixels(),
		MaxConcurrentStreams: cfg.GetMaxConcurrentStreams(),
		threshold16Set:       cfg.Threshold16 != nil,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any parameter is out of acceptable range.
func (c *Config) Validate() error {
	if _, err := c.ToParams(); err != nil {
		return err
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("%w: Parallelism must be non-negative, got %d", ErrInvalidParams, c.Parallelism)
	}
	if c.MinPartitionPixels < 0 {
		return fmt.Errorf("%w: MinPartitionPixels must be non-negative, got %d", ErrInvalidParams, c.MinPartitionPixels)
	}
	if c.MaxConcurrentStreams < 0 {
		return fmt.Errorf("%w: MaxConcurrentStreams must be non-negative, got %d", ErrInvalidParams, c.MaxConcurrentStreams)
	}
	return nil
}

// ToParams converts the estimator part of the config to Params.
func (c *Config) ToParams() (Params, error) {
	weights := c.Weights
	if !c.EnableWeight {
		weights = [3]float32{1, 1, 1}
	}
	p, err := NewParams(weights, c.EnableThreshold, c.Threshold, c.Threshold16)
	if err != nil {
		return Params{}, err
	}
	p.LegacyColorPairing = c.LegacyColorPairing
	return p, nil
}

// ToStreamOptions converts the scheduling part of the config.
func (c *Config) ToStreamOptions() StreamOptions {
	return StreamOptions{
		Parallelism:        c.Parallelism,
		MinPartitionPixels: c.MinPartitionPixels,
	}
}

// WithWeights sets the weight triplet, newest sample first.
func (c *Config) WithWeights(current, prev1, prev2 float32) *Config {
	c.Weights = [3]float32{current, prev1, prev2}
	return c
}

// WithEnableWeight enables or disables the weight triplet.
func (c *Config) WithEnableWeight(enabled bool) *Config {
	c.EnableWeight = enabled
	return c
}

// WithThreshold enables thresholding with the given 8-bit threshold. Unless
// Threshold16 was set explicitly, the 16-bit threshold is derived by scaling
// to the 16-bit range.
func (c *Config) WithThreshold(t float32) *Config {
	c.EnableThreshold = true
	c.Threshold = t
	if !c.threshold16Set {
		c.Threshold16 = t * 256
	}
	return c
}

// WithThreshold16 sets the 16-bit threshold independently of the 8-bit one.
func (c *Config) WithThreshold16(t float32) *Config {
	c.Threshold16 = t
	c.threshold16Set = true
	return c
}

// WithEnableThreshold switches between mask and continuous output.
func (c *Config) WithEnableThreshold(enabled bool) *Config {
	c.EnableThreshold = enabled
	return c
}

// WithLegacyColorPairing enables output compatibility with the reference
// color kernel.
func (c *Config) WithLegacyColorPairing(enabled bool) *Config {
	c.LegacyColorPairing = enabled
	return c
}

// WithParallelism sets the goroutines per frame and the smallest pixel range
// worth a goroutine.
func (c *Config) WithParallelism(n, minPartitionPixels int) *Config {
	c.Parallelism = n
	c.MinPartitionPixels = minPartitionPixels
	return c
}

// WithMaxConcurrentStreams bounds the SubmitAll worker pool.
func (c *Config) WithMaxConcurrentStreams(n int) *Config {
	c.MaxConcurrentStreams = n
	return c
}
