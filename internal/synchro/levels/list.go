package levels

import "slices"

// OffLevel marks frames outside any stimulus presentation in the output of
// ClusterByList. It is distinct from every stimulus identifier, including 0.
const OffLevel = -1

// trailingTransitions is the number of transitions at the end of a binary
// signal produced by the end-of-stimulus pulse of the display software.
const trailingTransitions = 2

// ListResult is the output of ClusterByList.
type ListResult struct {
	Signals  []int `json:"signals"`
	Ons      []int `json:"ons"`
	Offs     []int `json:"offs"`
	EpochEnd []int `json:"epoch_end"`
}

// ClusterByList stamps stimulus identifiers onto the on-runs of a binary
// frame signal, without looking at the trace itself. The signal must start
// in the off state. The last two transitions belong to the end-of-stimulus
// pulse and are returned in EpochEnd instead of being treated as a run.
// Off frames become OffLevel; the i-th on-run receives stimList[i].
func ClusterByList(signals []int, stimList []int) ListResult {
	var changes []int
	for i := 0; i+1 < len(signals); i++ {
		if signals[i] != signals[i+1] {
			changes = append(changes, i+1)
		}
	}

	cut := max(0, len(changes)-trailingTransitions)
	res := ListResult{EpochEnd: slices.Clone(changes[cut:])}
	changes = changes[:cut]
	for i, c := range changes {
		if i%2 == 0 {
			res.Ons = append(res.Ons, c)
		} else {
			res.Offs = append(res.Offs, c)
		}
	}

	out := slices.Clone(signals)
	for i, v := range out {
		if v == 0 {
			out[i] = OffLevel
		}
	}

	runs := len(res.Offs)
	if len(stimList) != runs {
		logf("stimulus list has %d entries for %d on-runs", len(stimList), runs)
	}
	for i, stim := range stimList {
		if i >= runs {
			break
		}
		for k := res.Ons[i]; k < res.Offs[i]; k++ {
			out[k] = stim
		}
	}
	res.Signals = out
	return res
}
