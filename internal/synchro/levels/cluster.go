package levels

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/framesync/internal/monitoring"
)

const (
	// edgeSuppression is the number of differences zeroed at each end of the
	// sorted AUC sequence, where the extreme frames are noisy.
	edgeSuppression = 5

	// peakExclusion is the half-width of the neighbourhood cleared around a
	// chosen boundary so the next pick is not an adjacent duplicate.
	peakExclusion = 10

	// peakSigma is the number of standard deviations a difference must
	// exceed to count as a boundary between levels.
	peakSigma = 3.0
)

var logf = monitoring.Tagged("levels")

// Clustering is the outcome of grouping AUCs into levels.
type Clustering struct {
	Levels     []int     `json:"levels"`
	Thresholds []float64 `json:"thresholds"`
}

// ClusterAUCs groups AUC values into at most nCluster levels.
//
// The AUCs are sorted and the largest jumps between consecutive values are
// taken as level boundaries, provided they stand out by more than three
// standard deviations of all jumps. Each boundary becomes a threshold halfway
// across the jump, and a frame's level is the number of thresholds its AUC
// exceeds. When fewer boundaries than requested stand out, fewer levels are
// produced and a warning is logged.
func ClusterAUCs(aucs []float64, nCluster int) Clustering {
	levels := make([]int, len(aucs))
	if nCluster < 2 || len(aucs) < 2 {
		return Clustering{Levels: levels}
	}

	sorted := slices.Clone(aucs)
	slices.Sort(sorted)

	deriv := make([]float64, len(sorted)-1)
	for i := range deriv {
		deriv[i] = sorted[i+1] - sorted[i]
	}
	for i := 0; i < edgeSuppression && i < len(deriv); i++ {
		deriv[i] = 0
		deriv[len(deriv)-1-i] = 0
	}

	_, std := stat.PopMeanStdDev(deriv, nil)
	minPeak := std * peakSigma

	want := nCluster - 1
	gaps := make([]int, 0, want)
	for len(gaps) < want {
		idx := floats.MaxIdx(deriv)
		if deriv[idx] <= 0 || deriv[idx] < minPeak {
			break
		}
		gaps = append(gaps, idx)
		for i := max(0, idx-peakExclusion); i < min(len(deriv), idx+peakExclusion); i++ {
			deriv[i] = 0
		}
	}
	if len(gaps) < want {
		logf("found %d AUC transitions, %d needed for %d levels: levels will be merged", len(gaps), want, nCluster)
	}
	slices.Sort(gaps)

	thresholds := make([]float64, len(gaps))
	for i, idx := range gaps {
		thresholds[i] = (sorted[idx] + sorted[idx+1]) / 2
	}

	for k, auc := range aucs {
		levels[k] = levelOf(auc, thresholds)
	}
	return Clustering{Levels: levels, Thresholds: thresholds}
}

func levelOf(auc float64, thresholds []float64) int {
	n := 0
	for _, th := range thresholds {
		if auc > th {
			n++
		}
	}
	return n
}

// ClusterFrameSignals assigns every detected frame a level in
// [0, nCluster-1] from the AUC of the raw trace over that frame.
func ClusterFrameSignals(data []float64, timepoints []int, nCluster int) Clustering {
	return ClusterAUCs(FrameAUCs(data, timepoints), nCluster)
}
