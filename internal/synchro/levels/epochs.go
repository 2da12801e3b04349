package levels

import (
	"fmt"
	"slices"
)

// Epoch is a half-open range of frames [Start, Stop) sharing one level count.
type Epoch struct {
	Start    int `json:"start"`
	Stop     int `json:"stop"`
	NCluster int `json:"n_cluster"`
}

// ClusterByEpochs clusters each epoch independently with its own level count,
// then rescales every epoch's levels onto the largest level range among the
// epochs so codes stay comparable across stimuli with different brightness
// steps. Frames outside every epoch keep their value from signals.
// signals is not modified.
func ClusterByEpochs(data []float64, timepoints []int, signals []int, epochs []Epoch) ([]int, error) {
	if len(signals) != len(timepoints) {
		return nil, fmt.Errorf("signals has %d frames, timepoints has %d", len(signals), len(timepoints))
	}
	maxLevel := 0
	for _, ep := range epochs {
		if ep.Start < 0 || ep.Stop > len(timepoints) || ep.Start > ep.Stop {
			return nil, fmt.Errorf("epoch [%d, %d) outside %d frames", ep.Start, ep.Stop, len(timepoints))
		}
		maxLevel = max(maxLevel, ep.NCluster-1)
	}

	aucs := FrameAUCs(data, timepoints)
	out := slices.Clone(signals)
	for _, ep := range epochs {
		n := ep.NCluster - 1
		c := ClusterAUCs(aucs[ep.Start:ep.Stop], ep.NCluster)
		for k, lvl := range c.Levels {
			if n <= 0 {
				out[ep.Start+k] = 0
				continue
			}
			out[ep.Start+k] = lvl * maxLevel / n
		}
	}
	return out, nil
}
