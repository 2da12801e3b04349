package repair

import (
	"fmt"

	"github.com/banshee-data/framesync/internal/synchro"
)

// ApplyEdits replays edits over stim and returns a new stimulus of the same
// length. Insert at k duplicates the frame currently at k (at the end, the
// last frame); Delete at k removes it. The edited sequence is truncated, or
// padded by repeating its last frame, back to stim.Len().
//
// Positions are checked against the sequence as it stands when the edit is
// applied; an invalid one yields ErrEditOutOfRange and no result.
func ApplyEdits(stim synchro.Stimulus, edits []synchro.Edit) (synchro.Stimulus, error) {
	if err := stim.Validate(); err != nil {
		return synchro.Stimulus{}, err
	}
	idx, err := editIndex(stim.Len(), edits)
	if err != nil {
		return synchro.Stimulus{}, err
	}
	return stim.Select(idx), nil
}

// editIndex returns, for every frame of the edited sequence, the index of
// the original frame it is a copy of.
func editIndex(n int, edits []synchro.Edit) ([]int, error) {
	idx := make([]int, n, n+len(edits))
	for i := range idx {
		idx[i] = i
	}

	for step, e := range edits {
		switch e.Op {
		case synchro.Insert:
			if e.Position < 0 || e.Position > len(idx) || len(idx) == 0 {
				return nil, fmt.Errorf("%w: edit %d (%s) with %d frames", synchro.ErrEditOutOfRange, step, e, len(idx))
			}
			if e.Position == len(idx) {
				idx = append(idx, idx[len(idx)-1])
				continue
			}
			idx = append(idx, 0)
			copy(idx[e.Position+1:], idx[e.Position:])
		case synchro.Delete:
			if e.Position < 0 || e.Position >= len(idx) {
				return nil, fmt.Errorf("%w: edit %d (%s) with %d frames", synchro.ErrEditOutOfRange, step, e, len(idx))
			}
			idx = append(idx[:e.Position], idx[e.Position+1:]...)
		default:
			return nil, fmt.Errorf("edit %d: unknown op %v", step, e.Op)
		}
	}

	if len(idx) == 0 && n > 0 {
		return nil, fmt.Errorf("%w: edits removed every frame", synchro.ErrEditOutOfRange)
	}
	if len(idx) > n {
		return idx[:n], nil
	}
	for len(idx) < n {
		idx = append(idx, idx[len(idx)-1])
	}
	return idx, nil
}
