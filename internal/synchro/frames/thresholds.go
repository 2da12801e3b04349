package frames

import (
	"gonum.org/v1/gonum/floats"
)

// thresholdWindow bounds how many samples EstimateThresholds inspects.
const thresholdWindow = 10_000_000

// EstimateThresholds derives detection thresholds from the peak amplitude of
// the trace. The peak is taken from a window starting at the middle of the
// trace, where a stimulus is most likely running: low is a quarter of the
// peak and high three quarters. This is a rough starting point; traces with
// a large baseline offset need hand-picked thresholds.
func EstimateThresholds(data []float64) (low, high float64) {
	if len(data) == 0 {
		return 0, 0
	}
	start := len(data) / 2
	end := min(start+thresholdWindow, len(data))
	peak := floats.Max(data[start:end])
	return peak / 4, peak * 3 / 4
}
