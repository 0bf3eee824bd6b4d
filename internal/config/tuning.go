package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the weighted moving
// variance estimator and its worker pool. Every field is optional; the Get*
// accessors supply the fallback when a field is absent, so partial files are
// safe.
type TuningConfig struct {
	// Estimator params
	EnableWeight       *bool       `json:"enable_weight,omitempty"`
	EnableThreshold    *bool       `json:"enable_threshold,omitempty"`
	Threshold          *float64    `json:"threshold,omitempty"`
	Threshold16        *float64    `json:"threshold16,omitempty"` // 16-bit inputs; defaults to threshold*256
	Weights            *[3]float64 `json:"weights,omitempty"`     // newest sample first
	LegacyColorPairing *bool       `json:"legacy_color_pairing,omitempty"`

	// Scheduling params
	Parallelism          *int `json:"parallelism,omitempty"`            // goroutines per frame
	MinPartitionPixels   *int `json:"min_partition_pixels,omitempty"`   // smallest per-goroutine slice
	MaxConcurrentStreams *int `json:"max_concurrent_streams,omitempty"` // 0 means unlimited
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the Get* fallbacks. It does not touch the filesystem.
func DefaultTuningConfig() *TuningConfig {
	empty := EmptyTuningConfig()
	w := empty.GetWeights()
	return &TuningConfig{
		EnableWeight:         ptrBool(empty.GetEnableWeight()),
		EnableThreshold:      ptrBool(empty.GetEnableThreshold()),
		Threshold:            ptrFloat64(empty.GetThreshold()),
		Threshold16:          ptrFloat64(empty.GetThreshold16()),
		Weights:              &w,
		LegacyColorPairing:   ptrBool(empty.GetLegacyColorPairing()),
		Parallelism:          ptrInt(empty.GetParallelism()),
		MinPartitionPixels:   ptrInt(empty.GetMinPartitionPixels()),
		MaxConcurrentStreams: ptrInt(empty.GetMaxConcurrentStreams()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from wmv/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func finiteNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%s must be a finite non-negative number, got %v", name, v)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Threshold != nil {
		if err := finiteNonNegative("threshold", *c.Threshold); err != nil {
			return err
		}
	}
	if c.Threshold16 != nil {
		if err := finiteNonNegative("threshold16", *c.Threshold16); err != nil {
			return err
		}
	}

	if c.Weights != nil {
		sum := 0.0
		for i, w := range c.Weights {
			if err := finiteNonNegative(fmt.Sprintf("weights[%d]", i), w); err != nil {
				return err
			}
			sum += w
		}
		if sum <= 0 {
			return fmt.Errorf("weights must have a positive sum, got %v", *c.Weights)
		}
	}

	if c.Parallelism != nil && *c.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative, got %d", *c.Parallelism)
	}
	if c.MinPartitionPixels != nil && *c.MinPartitionPixels < 0 {
		return fmt.Errorf("min_partition_pixels must be non-negative, got %d", *c.MinPartitionPixels)
	}
	if c.MaxConcurrentStreams != nil && *c.MaxConcurrentStreams < 0 {
		return fmt.Errorf("max_concurrent_streams must be non-negative, got %d", *c.MaxConcurrentStreams)
	}

	return nil
}

// GetEnableWeight returns the enable_weight value or the default.
func (c *TuningConfig) GetEnableWeight() bool {
	if c.EnableWeight == nil {
		return true
	}
	return *c.EnableWeight
}

// GetEnableThreshold returns the enable_threshold value or the default.
func (c *TuningConfig) GetEnableThreshold() bool {
	if c.EnableThreshold == nil {
		return true
	}
	return *c.EnableThreshold
}

// GetThreshold returns the threshold value or the default.
func (c *TuningConfig) GetThreshold() float64 {
	if c.Threshold == nil {
		return 15.0
	}
	return *c.Threshold
}

// GetThreshold16 returns the threshold16 value. When unset it is derived
// from the 8-bit threshold scaled to the 16-bit range.
func (c *TuningConfig) GetThreshold16() float64 {
	if c.Threshold16 == nil {
		return c.GetThreshold() * 256
	}
	return *c.Threshold16
}

// GetWeights returns the weight triplet or the default (0.5, 0.3, 0.2).
func (c *TuningConfig) GetWeights() [3]float64 {
	if c.Weights == nil {
		return [3]float64{0.5, 0.3, 0.2}
	}
	return *c.Weights
}

// GetLegacyColorPairing returns the legacy_color_pairing value or the default.
func (c *TuningConfig) GetLegacyColorPairing() bool {
	if c.LegacyColorPairing == nil {
		return false
	}
	return *c.LegacyColorPairing
}

// GetParallelism returns the parallelism value or the default.
func (c *TuningConfig) GetParallelism() int {
	if c.Parallelism == nil {
		return 1
	}
	return *c.Parallelism
}

// GetMinPartitionPixels returns the min_partition_pixels value or the default.
func (c *TuningConfig) GetMinPartitionPixels() int {
	if c.MinPartitionPixels == nil {
		return 16384
	}
	return *c.MinPartitionPixels
}

// GetMaxConcurrentStreams returns the max_concurrent_streams value or the default.
func (c *TuningConfig) GetMaxConcurrentStreams() int {
	if c.MaxConcurrentStreams == nil {
		return 0
	}
	return *c.MaxConcurrentStreams
}
