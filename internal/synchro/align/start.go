package align

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/framesync/internal/synchro"
)

const (
	// maxHeadFrames caps the length of the stimulus head used as a template.
	maxHeadFrames = 600
	// headChanges is the number of level changes the template should span.
	headChanges = 50
)

// PositionEstimate converts the wall-clock start of a stimulus into a sample
// index of a recording started at recordStart. Only whole seconds are used:
// the estimate seeds MatchStartingPosition and does not need to be exact.
// ok is false when the stimulus started before the recording.
func PositionEstimate(stimStart, recordStart time.Time, sampleRate float64) (pos int, ok bool) {
	if stimStart.Before(recordStart) {
		return -1, false
	}
	secs := int64(stimStart.Sub(recordStart) / time.Second)
	return int(float64(secs) * sampleRate), true
}

// MatchStartingPosition finds the frame of the recording where a stimulus
// most likely starts. The head of the expected sequence (up to its 50th level
// change, at most 600 frames) is cross-correlated with the recorded levels
// within searchSize frames of the first frame after estimateStart, and the
// best-scoring frame is returned.
func MatchStartingPosition(timepoints, signals, stim []int, estimateStart, searchSize int) (int, error) {
	if len(stim) == 0 || len(signals) == 0 {
		return 0, synchro.ErrEmptySequence
	}

	head := min(maxHeadFrames, len(stim))
	changes := 0
	for i := 1; i < len(stim); i++ {
		if stim[i] != stim[i-1] {
			if changes == headChanges {
				head = min(head, i-1)
				break
			}
			changes++
		}
	}

	estimate := -1
	for k, tp := range timepoints {
		if tp > estimateStart {
			estimate = k
			break
		}
	}
	if estimate == -1 {
		return 0, fmt.Errorf("no frame after sample %d", estimateStart)
	}

	lo := max(0, estimate-searchSize)
	hi := min(estimate+searchSize, len(signals))
	if hi-lo < head {
		return 0, fmt.Errorf("%w: search range [%d, %d) shorter than the %d frame template",
			synchro.ErrSignalsTooShort, lo, hi, head)
	}

	rec := toFloats(signals[lo:hi])
	tmpl := toFloats(stim[:head])
	best, bestScore := 0, floats.Dot(rec[:head], tmpl)
	for s := 1; s+head <= len(rec); s++ {
		if score := floats.Dot(rec[s:s+head], tmpl); score > bestScore {
			best, bestScore = s, score
		}
	}
	return lo + best, nil
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
