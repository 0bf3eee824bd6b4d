package wmv

import (
	"fmt"
	"math"
)

// weightSumTolerance is how far a weight triplet may drift from a unit sum
// before NewParams rescales it.
const weightSumTolerance = 1e-6

// Params is the immutable weight and threshold configuration shared by the
// kernels. Build it with NewParams or Config.ToParams; the zero value is not
// valid.
type Params struct {
	// Weights is ordered newest first: [0] current, [1] previous-1,
	// [2] previous-2. Always normalized to a unit sum.
	Weights [3]float32

	EnableThreshold bool
	Threshold       float32 // 8-bit inputs
	Threshold16     float32 // 16-bit inputs, configured independently

	// Pre-squared thresholds compared against variance so the thresholded
	// kernels skip the square root.
	ThresholdSquared   float32
	ThresholdSquared16 float32

	// LegacyColorPairing reproduces the reference color kernel, which reuses
	// previous-1 in the third deviation term.
	LegacyColorPairing bool
}

// NewParams validates and builds Params. Weights that do not sum to 1 are
// rescaled proportionally.
func NewParams(weights [3]float32, enableThreshold bool, threshold, threshold16 float32) (Params, error) {
	var sum float64
	for i, w := range weights {
		if !finite(w) || w < 0 {
			return Params{}, fmt.Errorf("%w: weight[%d] must be finite and non-negative, got %v", ErrInvalidParams, i, w)
		}
		sum += float64(w)
	}
	if sum <= 0 {
		return Params{}, fmt.Errorf("%w: weights must have a positive sum, got %v", ErrInvalidParams, weights)
	}
	if !finite(threshold) || threshold < 0 {
		return Params{}, fmt.Errorf("%w: threshold must be finite and non-negative, got %v", ErrInvalidParams, threshold)
	}
	if !finite(threshold16) || threshold16 < 0 {
		return Params{}, fmt.Errorf("%w: threshold16 must be finite and non-negative, got %v", ErrInvalidParams, threshold16)
	}

	if math.Abs(sum-1) > weightSumTolerance {
		for i := range weights {
			weights[i] = float32(float64(weights[i]) / sum)
		}
	}

	return Params{
		Weights:            weights,
		EnableThreshold:    enableThreshold,
		Threshold:          threshold,
		Threshold16:        threshold16,
		ThresholdSquared:   threshold * threshold,
		ThresholdSquared16: threshold16 * threshold16,
	}, nil
}

// DefaultParams returns the built-in defaults: weights (0.5, 0.3, 0.2),
// thresholding enabled at 15 (8-bit) and 3840 (16-bit).
func DefaultParams() Params {
	p, err := DefaultConfig().ToParams()
	if err != nil {
		panic(fmt.Sprintf("wmv: invalid built-in defaults: %v", err))
	}
	return p
}

// Validate re-checks a Params value that was assembled by hand. The squared
// thresholds must equal the thresholds squared.
func (p Params) Validate() error {
	var sum float64
	for i, w := range p.Weights {
		if !finite(w) || w < 0 {
			return fmt.Errorf("%w: weight[%d] must be finite and non-negative, got %v", ErrInvalidParams, i, w)
		}
		sum += float64(w)
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %v (sum %v)", ErrInvalidParams, p.Weights, sum)
	}
	if !finite(p.Threshold) || p.Threshold < 0 {
		return fmt.Errorf("%w: threshold must be finite and non-negative, got %v", ErrInvalidParams, p.Threshold)
	}
	if !finite(p.Threshold16) || p.Threshold16 < 0 {
		return fmt.Errorf("%w: threshold16 must be finite and non-negative, got %v", ErrInvalidParams, p.Threshold16)
	}
	if p.ThresholdSquared != p.Threshold*p.Threshold {
		return fmt.Errorf("%w: threshold squared %v does not match threshold %v", ErrInvalidParams, p.ThresholdSquared, p.Threshold)
	}
	if p.ThresholdSquared16 != p.Threshold16*p.Threshold16 {
		return fmt.Errorf("%w: 16-bit threshold squared %v does not match threshold16 %v", ErrInvalidParams, p.ThresholdSquared16, p.Threshold16)
	}
	return nil
}

// ForKernel selects the depth-appropriate threshold for a kernel variant.
func (p Params) ForKernel(k Kernel) KernelParams {
	kp := KernelParams{
		Weights:            p.Weights,
		EnableThreshold:    p.EnableThreshold,
		ThresholdSquared:   p.ThresholdSquared,
		LegacyColorPairing: p.LegacyColorPairing,
	}
	if k.Is16Bit() {
		kp.ThresholdSquared = p.ThresholdSquared16
	}
	return kp
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
