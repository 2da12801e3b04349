package levels

import (
	"gonum.org/v1/gonum/integrate"
)

// FrameAUCs returns the trapezoidal area under the curve of every frame,
// with unit sample spacing. Frame k spans data[timepoints[k]:timepoints[k+1]];
// the last frame runs to the end of data. Indices are clamped to data.
func FrameAUCs(data []float64, timepoints []int) []float64 {
	aucs := make([]float64, len(timepoints))
	if len(timepoints) == 0 {
		return aucs
	}

	longest := 0
	bounds := make([][2]int, len(timepoints))
	for k, tp := range timepoints {
		end := len(data)
		if k+1 < len(timepoints) {
			end = timepoints[k+1]
		}
		start := max(0, min(tp, len(data)))
		end = max(start, min(end, len(data)))
		bounds[k] = [2]int{start, end}
		longest = max(longest, end-start)
	}

	xs := make([]float64, longest)
	for i := range xs {
		xs[i] = float64(i)
	}
	for k, b := range bounds {
		n := b[1] - b[0]
		if n < 2 {
			continue
		}
		aucs[k] = integrate.Trapezoidal(xs[:n], data[b[0]:b[1]])
	}
	return aucs
}
