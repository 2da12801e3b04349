package frames

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/framesync/internal/monitoring"
	"github.com/banshee-data/framesync/internal/synchro"
)

const (
	testIncrement = 100
	testOffset    = 1000
	testPulse     = 20
)

// syntheticTrace builds a trace with one pulse per frame, starting at
// testOffset and spaced testIncrement samples apart.
func syntheticTrace(amps []float64, jitter func(k int) int) []float64 {
	data := make([]float64, testOffset*2+len(amps)*testIncrement)
	for k, amp := range amps {
		start := testOffset + k*testIncrement
		if jitter != nil {
			start += jitter(k)
		}
		for s := start; s < start+testPulse; s++ {
			data[s] = amp
		}
	}
	return data
}

// fiveDarkThenAlternating returns 5 dark frames followed by alternating
// bright/dark frames, the first of which is bright.
func fiveDarkThenAlternating(n int) []float64 {
	amps := make([]float64, n)
	for k := range amps {
		switch {
		case k < 5:
			amps[k] = 0.5
		case (k-5)%2 == 0:
			amps[k] = 1
		default:
			amps[k] = 0.5
		}
	}
	return amps
}

func testParams() Params {
	return Params{
		LowThreshold:  0.25,
		HighThreshold: 0.75,
		Increment:     testIncrement,
		Precision:     0.95,
		Reverse:       true,
	}
}

func TestDetectFrames_ForwardAndReverse(t *testing.T) {
	amps := fiveDarkThenAlternating(50)
	data := syntheticTrace(amps, nil)

	det, err := DetectFrames(data, testParams())
	require.NoError(t, err)

	// 9 extrapolated + 5 recovered backwards + anchor + 44 forward frames.
	require.Equal(t, 59, det.Len())
	require.Len(t, det.Signals, det.Len())
	assert.Equal(t, testOffset+5*testIncrement, det.FirstHigh)

	for k := 1; k < det.Len(); k++ {
		assert.Greater(t, det.Timepoints[k], det.Timepoints[k-1], "timepoints must increase at %d", k)
	}

	// Every frame of the synthetic trace is found, shifted to the leading edge.
	for k := 0; k < len(amps); k++ {
		assert.Equal(t, testOffset+k*testIncrement-LeadingEdgeShift, det.Timepoints[9+k], "frame %d", k)
	}
	// Extrapolated frames continue the spacing to the left.
	assert.Equal(t, testIncrement-LeadingEdgeShift, det.Timepoints[0])

	for k := 0; k < len(amps); k++ {
		want := 0
		if k >= 5 && (k-5)%2 == 0 {
			want = 1
		}
		assert.Equal(t, want, det.Signals[9+k], "signal of frame %d", k)
	}
	assert.Empty(t, det.Anomalies)
}

func TestDetectFrames_PulseAtTraceStart(t *testing.T) {
	data := make([]float64, 1200)
	for k := 0; k < 10; k++ {
		start := 1 + k*testIncrement
		for s := start; s < start+testPulse; s++ {
			data[s] = 1
		}
	}

	det, err := DetectFrames(data, testParams())
	require.NoError(t, err)
	require.Equal(t, 10, det.Len())
	assert.Equal(t, 1, det.FirstHigh)
	assert.Equal(t, 0, det.Timepoints[0], "leading edge shift clamps at sample 0")
	for k := 1; k < det.Len(); k++ {
		assert.Equal(t, 1+k*testIncrement-LeadingEdgeShift, det.Timepoints[k])
	}
}

func TestNextRun(t *testing.T) {
	data := syntheticTrace(make([]float64, 15), nil)
	pulse := func(start int) {
		for s := start; s < start+testPulse; s++ {
			data[s] = 1
		}
	}
	for k := 0; k < 10; k++ {
		pulse(testOffset + k*testIncrement)
	}
	// second run after a gap of ten frames
	for k := 0; k < 3; k++ {
		pulse(testOffset + (20+k)*testIncrement)
	}

	p := testParams()
	det, err := DetectFrames(data, p)
	require.NoError(t, err)
	require.Equal(t, 10, det.Len())

	next := NextRun(data, det, p)
	assert.Equal(t, testOffset+20*testIncrement, next)

	rest, err := DetectFrames(data[next:], p)
	require.NoError(t, err)
	assert.Equal(t, 3, rest.Len())
	assert.Equal(t, -1, NextRun(data[next:], rest, p))
}

func TestDetectFrames_NoReverse(t *testing.T) {
	data := syntheticTrace(fiveDarkThenAlternating(50), nil)
	p := testParams()
	p.Reverse = false

	det, err := DetectFrames(data, p)
	require.NoError(t, err)
	assert.Equal(t, 45, det.Len())
	assert.Equal(t, testOffset+5*testIncrement-LeadingEdgeShift, det.Timepoints[0])
	assert.Equal(t, 1, det.Signals[0])
}

func TestDetectFrames_Jitter(t *testing.T) {
	jitter := func(k int) int { return []int{0, 2, -3, 1, -1}[k%5] }
	data := syntheticTrace(fiveDarkThenAlternating(40), jitter)

	det, err := DetectFrames(data, testParams())
	require.NoError(t, err)
	for k := 0; k < 40; k++ {
		assert.Equal(t, testOffset+k*testIncrement+jitter(k)-LeadingEdgeShift, det.Timepoints[det.Len()-40+k], "frame %d", k)
	}
}

func TestDetectFrames_StopsAtGap(t *testing.T) {
	amps := fiveDarkThenAlternating(30)
	amps = append(amps, make([]float64, 10)...) // ten missing frames
	amps = append(amps, 1, 1, 1)
	data := syntheticTrace(amps, nil)
	p := testParams()
	p.Reverse = false

	det, err := DetectFrames(data, p)
	require.NoError(t, err)
	assert.Equal(t, 25, det.Len(), "detection must end with the first run")
}

func TestDetectFrames_NoSignal(t *testing.T) {
	data := make([]float64, 5000)
	for i := range data {
		data[i] = 0.1
	}
	det, err := DetectFrames(data, testParams())
	assert.Nil(t, det)
	require.Error(t, err)
	assert.True(t, errors.Is(err, synchro.ErrNoSignalDetected))
}

func TestDetectFrames_InvalidParams(t *testing.T) {
	data := syntheticTrace(fiveDarkThenAlternating(10), nil)

	for _, precision := range []float64{0, -0.5, 1.2} {
		p := testParams()
		p.Precision = precision
		_, err := DetectFrames(data, p)
		assert.ErrorIs(t, err, synchro.ErrInvalidPrecision, "precision %v", precision)
	}

	p := testParams()
	p.Increment = 0.5
	_, err := DetectFrames(data, p)
	assert.ErrorIs(t, err, synchro.ErrInvalidIncrement)
}

func TestCheckTiming(t *testing.T) {
	tps := []int{0}
	for k := 1; k <= 100; k++ {
		step := 100
		if k == 60 {
			step = 300
		}
		tps = append(tps, tps[k-1]+step)
	}

	anomalies := CheckTiming(tps)
	require.Len(t, anomalies, 1)
	assert.Equal(t, TimingAnomaly{Frame: 59, Timepoint: 5900, Interval: 300}, anomalies[0])

	assert.Empty(t, CheckTiming([]int{10}))
	assert.Empty(t, CheckTiming([]int{0, 100, 200, 300}))
}

func TestDetectFrames_LogsAnomalies(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()

	var messages []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		messages = append(messages, format)
	})

	// One late frame inside the run produces one long and one short interval.
	jitter := func(k int) int {
		if k == 20 {
			return 25
		}
		return 0
	}
	amps := make([]float64, 200)
	for k := range amps {
		amps[k] = 1
	}
	p := testParams()
	p.Reverse = false
	p.Precision = 0.7

	det, err := DetectFrames(syntheticTrace(amps, jitter), p)
	require.NoError(t, err)
	require.Equal(t, 200, det.Len())
	require.Len(t, det.Anomalies, 1)
	assert.Equal(t, 19, det.Anomalies[0].Frame)
	assert.Equal(t, 125, det.Anomalies[0].Interval)
	assert.Len(t, messages, 1)
}

func TestExtendTimepoints(t *testing.T) {
	assert.Nil(t, extendTimepoints([]int{500}, 10))
	assert.Equal(t, []int{200, 300, 400}, extendTimepoints([]int{500, 600, 700}, 3))
	assert.Equal(t, []int{50, 250}, extendTimepoints([]int{450, 650}, 5))
}

func TestEstimateThresholds(t *testing.T) {
	data := make([]float64, 1000)
	data[100] = 10 // ignored: first half
	data[700] = 2
	low, high := EstimateThresholds(data)
	assert.InDelta(t, 0.5, low, 1e-12)
	assert.InDelta(t, 1.5, high, 1e-12)

	low, high = EstimateThresholds(nil)
	assert.Zero(t, low)
	assert.Zero(t, high)
}
