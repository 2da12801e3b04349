package align

import (
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/framesync/internal/monitoring"
	"github.com/banshee-data/framesync/internal/synchro"
)

var logf = monitoring.Tagged("align")

// unreachable marks band cells that no valid path can reach. It is far
// enough from the int32 limits that adding a penalty cannot wrap.
const unreachable int32 = math.MinInt32 / 2

// Params controls the banded alignment.
type Params struct {
	// Basis is the first row of the similarity matrix; its length is the
	// number of levels.
	Basis []int `json:"basis"`
	// InsDel is added to the score for every inserted or deleted frame.
	// It is normally negative.
	InsDel int `json:"insdel"`
	// Rowside is the half-width of the diagonal band, i.e. the largest
	// misalignment in frames the alignment can represent.
	Rowside int `json:"rowside"`
}

// DefaultParams returns the parameters used for five-level markers.
func DefaultParams() Params {
	return Params{
		Basis:   []int{1, -1, -3, -3, -1},
		InsDel:  -10,
		Rowside: 20,
	}
}

// Alignment is the result of Align.
type Alignment struct {
	// Edits turns the marker into the recorded sequence when applied in order.
	Edits []synchro.Edit `json:"edits"`
	// Score is the total score of the chosen path.
	Score int `json:"score"`
	// MaxOffset is the largest distance from the diagonal reached by the path.
	MaxOffset int `json:"max_offset"`
	// Rowside is the band half-width the alignment ran with.
	Rowside int `json:"rowside"`
}

// NearOverflow reports whether the path touched the edge of the band, in
// which case the true misalignment may have been larger than the band and
// the edit script should not be trusted.
func (a *Alignment) NearOverflow() bool {
	return a.MaxOffset >= a.Rowside
}

// band is the flat score arena: rows of 2*side+1 cells, where column j of
// row i pairs marker[i] with signals[i+j-side].
type band struct {
	side  int
	width int
	cells []int32
}

func newBand(rows, side int) *band {
	width := 2*side + 1
	b := &band{side: side, width: width, cells: make([]int32, rows*width)}
	for i := range b.cells {
		b.cells[i] = unreachable
	}
	return b
}

func (b *band) at(i, j int) int32     { return b.cells[i*b.width+j] }
func (b *band) set(i, j int, v int32) { b.cells[i*b.width+j] = v }

// Align computes the edit script of insertions into and deletions from
// marker that best reproduces signals, searching only paths that stay within
// p.Rowside frames of the diagonal. This bounds time and memory to
// O(len(marker)·Rowside).
//
// Both sequences are aligned end to end: the path starts by pairing their
// first elements and ends by pairing their last elements. When the length
// difference does not fit inside the band, the path ends at the best cell on
// the last marker frame (longer recording) or on the last recorded frame
// (shorter recording); the unaligned tail is left to the caller, and
// MaxOffset is raised to the length difference so NearOverflow reports it.
// On equal scores the backtrace prefers a match, then a deletion, then an
// insertion.
//
// Edit positions are indices in the recorded sequence. Insert at k means
// recorded frame k has no counterpart in the marker and the marker frame now
// at k must be duplicated; Delete at k means the marker frame now at k has no
// counterpart in the recording.
func Align(signals, marker []int, p Params) (*Alignment, error) {
	if len(signals) == 0 || len(marker) == 0 {
		return nil, synchro.ErrEmptySequence
	}
	if p.Rowside < 1 {
		return nil, fmt.Errorf("%w: got %d", synchro.ErrInvalidBand, p.Rowside)
	}
	sim, err := NewSimilarity(p.Basis)
	if err != nil {
		return nil, err
	}
	if !sim.Symmetric() {
		logf("similarity basis %v is not mirrored: confusing a for b scores differently from b for a", p.Basis)
	}
	if err := sim.check("marker", marker); err != nil {
		return nil, err
	}
	if err := sim.check("signals", signals); err != nil {
		return nil, err
	}

	b := fill(signals, marker, sim, int32(p.InsDel), p.Rowside)
	endRow, endCol, truncated := b.end(len(marker), len(signals))
	if endRow < 0 {
		return nil, fmt.Errorf("%w: %d recorded vs %d reference frames, rowside %d",
			synchro.ErrBandTooNarrow, len(signals), len(marker), p.Rowside)
	}
	res, err := backtrace(b, signals, marker, sim, int32(p.InsDel), endRow, endCol)
	if err != nil {
		return nil, err
	}
	if truncated {
		diff := len(signals) - len(marker)
		res.MaxOffset = max(res.MaxOffset, diff, -diff)
	}
	return res, nil
}

// end returns the cell the backtrace starts from. truncated is set when the
// length difference exceeds the band and the path cannot reach the cell
// pairing both last frames; the best reachable cell on the last marker row
// or on the last recorded frame is used instead, later ones winning ties.
// A negative row means no candidate is reachable.
func (b *band) end(rows, nSignals int) (row, col int, truncated bool) {
	col = b.side + nSignals - rows
	if col >= 0 && col < b.width {
		return rows - 1, col, false
	}

	row, col = -1, -1
	consider := func(i, j int) {
		v := b.at(i, j)
		if v != unreachable && (row < 0 || v >= b.at(row, col)) {
			row, col = i, j
		}
	}
	if col >= b.width {
		for j := 0; j < b.width; j++ {
			consider(rows-1, j)
		}
	} else {
		last := nSignals - 1
		for i := max(0, last-b.side); i <= min(rows-1, last+b.side); i++ {
			consider(i, last-i+b.side)
		}
	}
	return row, col, true
}

// fill scores every band cell in row order. Each cell takes the best of an
// insertion from its left neighbour, a deletion from the cell above-right
// and a match from the cell above; neighbours outside the band, outside the
// recorded sequence or unreachable are never used.
func fill(signals, marker []int, sim *Similarity, insdel int32, side int) *band {
	rows := len(marker)
	b := newBand(rows, side)
	b.set(0, side, int32(sim.At(marker[0], signals[0])))

	for i := 0; i < rows; i++ {
		for j := 0; j < b.width; j++ {
			k := i + j - side
			if k < 0 || k >= len(signals) || (i == 0 && j == side) {
				continue
			}
			best := unreachable
			if j > 0 {
				if v := b.at(i, j-1); v != unreachable {
					best = max(best, v+insdel)
				}
			}
			if i > 0 && j+1 < b.width {
				if v := b.at(i-1, j+1); v != unreachable {
					best = max(best, v+insdel)
				}
			}
			if i > 0 {
				if v := b.at(i-1, j); v != unreachable {
					best = max(best, v+int32(sim.At(marker[i], signals[k])))
				}
			}
			b.set(i, j, best)
		}
	}
	return b
}

func backtrace(b *band, signals, marker []int, sim *Similarity, insdel int32, endRow, endCol int) (*Alignment, error) {
	i, j := endRow, endCol
	res := &Alignment{Score: int(b.at(i, j)), Rowside: b.side}
	if b.at(i, j) == unreachable {
		return nil, fmt.Errorf("%w: end cell unreachable", synchro.ErrBandTooNarrow)
	}
	offset := func(j int) int {
		if j < b.side {
			return b.side - j
		}
		return j - b.side
	}
	res.MaxOffset = offset(j)

	for i > 0 || j != b.side {
		k := i + j - b.side
		v := b.at(i, j)
		switch {
		case i > 0 && k > 0 && b.at(i-1, j) != unreachable &&
			v == b.at(i-1, j)+int32(sim.At(marker[i], signals[k])):
			i--
		case i > 0 && j+1 < b.width && b.at(i-1, j+1) != unreachable &&
			v == b.at(i-1, j+1)+insdel:
			res.Edits = append(res.Edits, synchro.Edit{Position: k + 1, Op: synchro.Delete})
			i--
			j++
		case j > 0 && b.at(i, j-1) != unreachable && v == b.at(i, j-1)+insdel:
			res.Edits = append(res.Edits, synchro.Edit{Position: k, Op: synchro.Insert})
			j--
		default:
			return nil, fmt.Errorf("alignment backtrace has no predecessor at row %d, column %d", i, j)
		}
		res.MaxOffset = max(res.MaxOffset, offset(j))
	}

	slices.Reverse(res.Edits)
	return res, nil
}
