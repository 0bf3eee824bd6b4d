package wmv

import "gonum.org/v1/gonum/stat"

// FrameMetrics summarizes one output frame.
type FrameMetrics struct {
	Pixels             int
	ForegroundPixels   int // non-zero outputs
	ForegroundFraction float64
	MeanScore          float64
	StdDevScore        float64 // population standard deviation
	MaxScore           uint8
}

// ComputeFrameMetrics calculates summary statistics from an output buffer.
// Works for both continuous scores and binary masks.
func ComputeFrameMetrics(out []byte) FrameMetrics {
	if len(out) == 0 {
		return FrameMetrics{}
	}
	m := FrameMetrics{Pixels: len(out)}
	scores := make([]float64, len(out))
	for i, v := range out {
		scores[i] = float64(v)
		if v != 0 {
			m.ForegroundPixels++
		}
		if v > m.MaxScore {
			m.MaxScore = v
		}
	}
	m.ForegroundFraction = float64(m.ForegroundPixels) / float64(m.Pixels)
	m.MeanScore, m.StdDevScore = stat.PopMeanStdDev(scores, nil)
	return m
}
