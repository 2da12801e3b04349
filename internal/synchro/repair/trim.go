package repair

import (
	"fmt"

	"github.com/banshee-data/framesync/internal/synchro"
)

// Trimmed is the result of Trim.
type Trimmed struct {
	Stimulus     synchro.Stimulus      `json:"stimulus"`
	Edits        []synchro.Edit        `json:"edits"`
	Replacements []synchro.Replacement `json:"replacements"`
}

// Trim keeps frames [first, last) of stim; a negative last counts from the
// end. Edits and replacements whose frame falls outside the kept range are
// dropped and the rest are rebased so that first becomes frame 0. A
// replacement source is rebased the same way and may end up negative when
// it pointed before first.
func Trim(first, last int, stim synchro.Stimulus, edits []synchro.Edit, replacements []synchro.Replacement) (*Trimmed, error) {
	if err := stim.Validate(); err != nil {
		return nil, err
	}
	n := stim.Len()
	if last < 0 {
		last += n
	}
	if first < 0 || last < first || last > n {
		return nil, fmt.Errorf("%w: [%d, %d) of %d frames", synchro.ErrTrimRange, first, last, n)
	}

	idx := make([]int, last-first)
	for i := range idx {
		idx[i] = first + i
	}
	out := &Trimmed{
		Stimulus:     stim.Select(idx),
		Edits:        []synchro.Edit{},
		Replacements: []synchro.Replacement{},
	}
	for _, e := range edits {
		if e.Position >= first && e.Position < last {
			out.Edits = append(out.Edits, synchro.Edit{Position: e.Position - first, Op: e.Op})
		}
	}
	for _, r := range replacements {
		if r.Frame >= first && r.Frame < last {
			out.Replacements = append(out.Replacements, synchro.Replacement{Frame: r.Frame - first, Source: r.Source - first})
		}
	}
	return out, nil
}
