package frames

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/framesync/internal/monitoring"
	"github.com/banshee-data/framesync/internal/synchro"
)

const (
	// LeadingEdgeShift is subtracted from every detected timepoint so a frame
	// starts slightly before its threshold crossing. Timepoints never go
	// below sample 0.
	LeadingEdgeShift = 3

	// ExtrapolatedFrames bounds how many frames are extrapolated before the
	// earliest frame recovered by the backward scan.
	ExtrapolatedFrames = 10

	// AnomalySigma is the number of standard deviations above the mean
	// interval beyond which an interval is reported.
	AnomalySigma = 6.0
)

var logf = monitoring.Tagged("frames")

// Params controls frame detection.
type Params struct {
	// LowThreshold marks the start of any frame.
	LowThreshold float64
	// HighThreshold marks a bright frame and the first reliable landmark.
	HighThreshold float64
	// Increment is the nominal number of samples between frames,
	// e.g. 30000/60 for a 60 Hz display recorded at 30 kHz.
	Increment float64
	// Precision in (0, 1] describes how regular the frames are. A DLP
	// projector is very stable (0.95); camera triggers jitter more (0.6).
	// Values below 0.5 tend to over-detect.
	Precision float64
	// Reverse enables the backward scan from the first bright frame.
	Reverse bool
}

// DefaultParams returns detection parameters for a 60 Hz display recorded
// at 30 kHz. Thresholds are left at zero and must be set by the caller.
func DefaultParams() Params {
	return Params{
		Increment: 500,
		Precision: 0.95,
		Reverse:   true,
	}
}

// TimingAnomaly describes an inter-frame interval that deviates from the
// mean by more than AnomalySigma standard deviations.
type TimingAnomaly struct {
	Frame     int `json:"frame"`     // index of the frame opening the interval
	Timepoint int `json:"timepoint"` // sample index of that frame
	Interval  int `json:"interval"`  // samples until the next frame
}

// Detection is the result of DetectFrames. Timepoints and Signals are
// index-aligned; Signals is 1 for frames that crossed the high threshold.
type Detection struct {
	Timepoints []int           `json:"timepoints"`
	Signals    []int           `json:"signals"`
	FirstHigh  int             `json:"first_high"`
	Anomalies  []TimingAnomaly `json:"anomalies,omitempty"`
}

// Len returns the number of detected frames.
func (d *Detection) Len() int {
	return len(d.Timepoints)
}

// FirstHigh returns the index of the first sample strictly above threshold,
// or -1 when there is none.
func FirstHigh(data []float64, threshold float64) int {
	for i, v := range data {
		if v > threshold {
			return i
		}
	}
	return -1
}

// DetectFrames finds the frames of one contiguous stimulus run in data.
//
// The first sample above the high threshold anchors the detection. From
// there the trace is scanned forward, one window of roughly one increment at
// a time, for the next low-threshold crossing. The scan stops at the first
// window without a crossing: a run of frames is over and the caller should
// pass the remaining data for the next run.
func DetectFrames(data []float64, p Params) (*Detection, error) {
	if !(p.Precision > 0 && p.Precision <= 1) {
		return nil, fmt.Errorf("%w: got %v", synchro.ErrInvalidPrecision, p.Precision)
	}
	increment := int(p.Increment)
	safeIncrement := int(p.Increment * p.Precision)
	if increment < 1 || safeIncrement < 1 {
		return nil, fmt.Errorf("%w: increment=%v precision=%v", synchro.ErrInvalidIncrement, p.Increment, p.Precision)
	}

	firstHigh := FirstHigh(data, p.HighThreshold)
	if firstHigh == -1 {
		return nil, fmt.Errorf("%w (segment of %d samples, threshold %v)", synchro.ErrNoSignalDetected, len(data), p.HighThreshold)
	}

	var timepoints, signals []int
	if p.Reverse {
		back := reverseDetection(data, firstHigh, p.LowThreshold, increment, p.Precision)
		var extra []int
		if len(back) > 1 {
			extra = extendTimepoints(back, ExtrapolatedFrames)
		}
		timepoints = append(timepoints, extra...)
		timepoints = append(timepoints, back...)
		signals = make([]int, len(timepoints))
	}
	timepoints = append(timepoints, firstHigh)
	signals = append(signals, 1)

	window := increment/2 + (increment-safeIncrement)*2
	for i := firstHigh + safeIncrement; i < len(data); i += safeIncrement {
		slice := data[i:min(i+window, len(data))]
		offset := FirstHigh(slice, p.LowThreshold)
		if offset == -1 {
			break
		}
		bright := 0
		if FirstHigh(slice, p.HighThreshold) != -1 {
			bright = 1
		}
		i += offset
		timepoints = append(timepoints, i)
		signals = append(signals, bright)
	}

	for k := range timepoints {
		timepoints[k] = max(0, timepoints[k]-LeadingEdgeShift)
	}

	det := &Detection{
		Timepoints: timepoints,
		Signals:    signals,
		FirstHigh:  firstHigh,
		Anomalies:  CheckTiming(timepoints),
	}
	for _, a := range det.Anomalies {
		logf("timing anomaly at frame %d (sample %d): interval %d samples", a.Frame, a.Timepoint, a.Interval)
	}
	return det, nil
}

// NextRun returns the first sample after the run found by DetectFrames that
// crosses the low threshold again, or -1 when the rest of data stays below
// it. The search starts one increment after the last frame. A non-negative
// result means the trace holds a later run; pass data[next:] to
// DetectFrames to detect it.
func NextRun(data []float64, d *Detection, p Params) int {
	if d.Len() == 0 {
		return -1
	}
	start := d.Timepoints[d.Len()-1] + LeadingEdgeShift + int(p.Increment)
	if start >= len(data) {
		return -1
	}
	if offset := FirstHigh(data[start:], p.LowThreshold); offset != -1 {
		return start + offset
	}
	return -1
}

// reverseDetection walks left from the anchor with a slightly enlarged step
// so that jitter cannot make it skip a frame. It returns the recovered
// timepoints in increasing order, anchor excluded.
func reverseDetection(data []float64, anchor int, low float64, increment int, precision float64) []int {
	step := int(float64(increment) * (1 + (1 - precision)))
	window := increment/2 + (step-increment)*2

	var found []int
	last := anchor
	for i := anchor - step; i > 0; i -= step {
		slice := data[i:min(i+window, len(data))]
		offset := FirstHigh(slice, low)
		if offset == -1 {
			break
		}
		i += offset
		if i >= last {
			// the window reached back into the previous frame
			break
		}
		found = append(found, i)
		last = i
	}

	for l, r := 0, len(found)-1; l < r; l, r = l+1, r-1 {
		found[l], found[r] = found[r], found[l]
	}
	return found
}

// extendTimepoints extrapolates up to n frames to the left of timepoints
// using their mean spacing. Only positive sample indices are kept.
func extendTimepoints(timepoints []int, n int) []int {
	if len(timepoints) < 2 {
		return nil
	}
	diffs := intervals(timepoints)
	typical := int(stat.Mean(diffs, nil))
	if typical <= 0 {
		return nil
	}

	var out []int
	for k := n; k >= 1; k-- {
		if tp := timepoints[0] - k*typical; tp > 0 {
			out = append(out, tp)
		}
	}
	return out
}

// CheckTiming reports intervals longer than the mean plus AnomalySigma
// population standard deviations. Display hardware is regular, so an odd
// interval usually means a missed or spurious frame.
func CheckTiming(timepoints []int) []TimingAnomaly {
	if len(timepoints) < 2 {
		return nil
	}
	diffs := intervals(timepoints)
	mean, std := stat.PopMeanStdDev(diffs, nil)
	limit := mean + std*AnomalySigma

	var out []TimingAnomaly
	for k, d := range diffs {
		if math.Abs(d) > limit {
			out = append(out, TimingAnomaly{
				Frame:     k,
				Timepoint: timepoints[k],
				Interval:  int(d),
			})
		}
	}
	return out
}

func intervals(timepoints []int) []float64 {
	out := make([]float64, len(timepoints)-1)
	for k := 1; k < len(timepoints); k++ {
		out[k-1] = float64(timepoints[k] - timepoints[k-1])
	}
	return out
}
