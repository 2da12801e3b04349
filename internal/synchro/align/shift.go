package align

import (
	"slices"

	"github.com/banshee-data/framesync/internal/synchro"
)

const (
	// shiftSmoothing is the width of the moving average applied to the
	// per-frame shift estimates.
	shiftSmoothing = 20

	// shiftThreshold is the smoothed shift magnitude that commits an edit.
	shiftThreshold = 0.5

	// deleteRefineRadius bounds how far a deletion may move to land on a
	// reference frame whose level is absent from the recording nearby.
	deleteRefineRadius = 2
)

// IterativeShiftCorrection is a cheap alternative to Align for recordings
// with mild drift. Each pass estimates, for every mismatching frame, how far
// away the nearest reference frame with the recorded level sits, smooths
// those estimates over shiftSmoothing frames, and commits a single insertion
// or deletion at the first frame where the smoothed shift exceeds half a
// frame. Passes repeat until no such frame is left, with at most one pass
// per reference frame.
//
// The returned edits use the same conventions as Align.
func IterativeShiftCorrection(signals, marker []int, window int) []synchro.Edit {
	marker = slices.Clone(marker)
	var edits []synchro.Edit

	for pass := 0; pass < len(marker); pass++ {
		replacements, _ := synchro.FindLocalMismatches(signals, marker, window)
		shifts := make([]float64, len(marker))
		for _, r := range replacements {
			shifts[r.Frame] = float64(r.Source - r.Frame)
		}
		smoothed := movingAverage(shifts, shiftSmoothing)

		idx := -1
		for k, v := range smoothed {
			if v > shiftThreshold || v < -shiftThreshold {
				idx = k
				break
			}
		}
		if idx == -1 {
			return edits
		}

		if smoothed[idx] > 0 {
			// The reference runs ahead of the recording: drop one of its
			// frames, preferably one whose level was never recorded here.
			idx = refineDeletion(signals, marker, idx)
			edits = append(edits, synchro.Edit{Position: idx, Op: synchro.Delete})
			marker = append(marker[:idx], marker[idx+1:]...)
			marker = append(marker, 0)
		} else {
			edits = append(edits, synchro.Edit{Position: idx, Op: synchro.Insert})
			marker = slices.Insert(marker, idx, marker[idx])
			marker = marker[:len(marker)-1]
		}
	}

	logf("shift correction stopped after %d passes with drift remaining", len(marker))
	return edits
}

func refineDeletion(signals, marker []int, idx int) int {
	start := max(0, idx-deleteRefineRadius)
	stop := min(len(marker), idx+deleteRefineRadius)
	recorded := signals[min(start, len(signals)):min(stop, len(signals))]
	for i := start; i < stop; i++ {
		if !slices.Contains(recorded, marker[i]) {
			return i
		}
	}
	return idx
}

// movingAverage returns the centred mean of x over width samples, treating
// samples outside x as zero. For even widths the window holds one more
// sample before the centre than after it.
func movingAverage(x []float64, width int) []float64 {
	out := make([]float64, len(x))
	if width < 1 || len(x) == 0 {
		return out
	}
	after := (width - 1) / 2
	before := width - 1 - after

	var sum float64
	// prime the window for out[0]: x[-before .. after]
	for i := 0; i <= after && i < len(x); i++ {
		sum += x[i]
	}
	for n := range x {
		out[n] = sum / float64(width)
		if add := n + after + 1; add < len(x) {
			sum += x[add]
		}
		if drop := n - before; drop >= 0 {
			sum -= x[drop]
		}
	}
	return out
}
