package wmv

import "math"

// Sample is an unsigned input sample type.
type Sample interface {
	uint8 | uint16
}

// Kernel identifies one of the four pixel-format variants. A stream's kernel
// is fixed by its geometry at registration.
type Kernel uint8

const (
	KernelMono8 Kernel = iota
	KernelMono16
	KernelColor8
	KernelColor16
)

// KernelFor returns the kernel variant for a geometry.
func KernelFor(g Geometry) Kernel {
	k := KernelMono8
	if g.IsColor() {
		k = KernelColor8
	}
	if g.BytesPerSample == BytesPerSample16 {
		k++
	}
	return k
}

// Is16Bit reports whether the kernel reads 16-bit samples.
func (k Kernel) Is16Bit() bool { return k == KernelMono16 || k == KernelColor16 }

func (k Kernel) String() string {
	switch k {
	case KernelMono8:
		return "mono8"
	case KernelMono16:
		return "mono16"
	case KernelColor8:
		return "color8"
	case KernelColor16:
		return "color16"
	default:
		return "unknown"
	}
}

// Luma coefficients used to fold three per-channel deviations into one score.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// KernelParams is the per-call view of Params after the depth-appropriate
// threshold has been selected.
type KernelParams struct {
	// Weights[0] applies to the current sample, [1] to previous-1 and [2]
	// to previous-2. A triplet that does not sum to 1 is rescaled
	// proportionally before use; a zero sum is not a valid weighting.
	Weights          [3]float32
	EnableThreshold  bool
	ThresholdSquared float32
	// LegacyColorPairing reuses previous-1 in the third deviation term of
	// the color kernels.
	LegacyColorPairing bool
}

// VarianceMono computes the weighted deviation of single-channel samples.
// cur, prev1 and prev2 must hold at least len(out) samples.
//
// Continuous mode writes sqrt(variance) truncated to [0,255]; thresholded
// mode writes 255 where variance > ThresholdSquared and 0 elsewhere.
func VarianceMono[T Sample](cur, prev1, prev2 []T, out []byte, kp KernelParams) {
	n := len(out)
	cur, prev1, prev2 = cur[:n], prev1[:n], prev2[:n]
	w0, w1, w2 := kp.unitWeights()

	if kp.EnableThreshold {
		thr := kp.ThresholdSquared
		for i := range out {
			v := weightedVariance(float32(cur[i]), float32(prev1[i]), float32(prev2[i]), float32(prev2[i]), w0, w1, w2)
			out[i] = mask(v > thr)
		}
		return
	}

	for i := range out {
		v := weightedVariance(float32(cur[i]), float32(prev1[i]), float32(prev2[i]), float32(prev2[i]), w0, w1, w2)
		out[i] = saturate(sqrt32(v))
	}
}

// VarianceColor computes the weighted deviation of interleaved 3-channel
// samples and folds the channels with luma weights. cur, prev1 and prev2 must
// hold at least 3*len(out) samples.
//
// Continuous mode folds per-channel standard deviations; thresholded mode
// folds per-channel variances and compares against ThresholdSquared.
func VarianceColor[T Sample](cur, prev1, prev2 []T, out []byte, kp KernelParams) {
	n := 3 * len(out)
	cur, prev1, prev2 = cur[:n], prev1[:n], prev2[:n]
	w0, w1, w2 := kp.unitWeights()

	// dev feeds the third deviation term; the mean always uses prev2.
	dev := prev2
	if kp.LegacyColorPairing {
		dev = prev1
	}

	if kp.EnableThreshold {
		thr := kp.ThresholdSquared
		for j := range out {
			j3 := 3 * j
			r := weightedVariance(float32(cur[j3]), float32(prev1[j3]), float32(prev2[j3]), float32(dev[j3]), w0, w1, w2)
			g := weightedVariance(float32(cur[j3+1]), float32(prev1[j3+1]), float32(prev2[j3+1]), float32(dev[j3+1]), w0, w1, w2)
			b := weightedVariance(float32(cur[j3+2]), float32(prev1[j3+2]), float32(prev2[j3+2]), float32(dev[j3+2]), w0, w1, w2)
			out[j] = mask(lumaR*r+lumaG*g+lumaB*b > thr)
		}
		return
	}

	for j := range out {
		j3 := 3 * j
		r := weightedVariance(float32(cur[j3]), float32(prev1[j3]), float32(prev2[j3]), float32(dev[j3]), w0, w1, w2)
		g := weightedVariance(float32(cur[j3+1]), float32(prev1[j3+1]), float32(prev2[j3+1]), float32(dev[j3+1]), w0, w1, w2)
		b := weightedVariance(float32(cur[j3+2]), float32(prev1[j3+2]), float32(prev2[j3+2]), float32(dev[j3+2]), w0, w1, w2)
		out[j] = saturate(lumaR*sqrt32(r) + lumaG*sqrt32(g) + lumaB*sqrt32(b))
	}
}

// unitWeights returns the weights rescaled to a unit sum, the same way
// NewParams does.
func (kp KernelParams) unitWeights() (w0, w1, w2 float32) {
	w := kp.Weights
	sum := float64(w[0]) + float64(w[1]) + float64(w[2])
	if sum > 0 && math.Abs(sum-1) > weightSumTolerance {
		for i := range w {
			w[i] = float32(float64(w[i]) / sum)
		}
	}
	return w[0], w[1], w[2]
}

// weightedVariance returns w0*(a-m)² + w1*(b-m)² + w2*(d-m)² where
// m = a*w0 + b*w1 + c*w2. d is c except under legacy color pairing.
//
// The weights sum to 1 (see unitWeights), so m is evaluated as a + w1*(b-a) + w2*(c-a). This
// is exact for a constant pixel and scales exactly with the sample depth.
func weightedVariance(a, b, c, d, w0, w1, w2 float32) float32 {
	mean := a + float32(w1*(b-a)) + float32(w2*(c-a))
	da, db, dd := a-mean, b-mean, d-mean
	return float32(da*da*w0) + float32(db*db*w1) + float32(dd*dd*w2)
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// saturate truncates toward zero and clamps to the 8-bit range.
func saturate(v float32) uint8 {
	if v >= math.MaxUint8 {
		return math.MaxUint8
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

func mask(on bool) uint8 {
	if on {
		return math.MaxUint8
	}
	return 0
}
