package align

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/framesync/internal/monitoring"
	"github.com/banshee-data/framesync/internal/synchro"
)

// applyScript replays an edit script on a plain level sequence without
// truncation, so the result can be compared with the recorded sequence.
func applyScript(t *testing.T, marker []int, edits []synchro.Edit) []int {
	t.Helper()
	out := append([]int(nil), marker...)
	for _, e := range edits {
		switch e.Op {
		case synchro.Insert:
			require.LessOrEqual(t, e.Position, len(out), "insert %v", e)
			if e.Position == len(out) {
				out = append(out, out[len(out)-1])
			} else {
				out = append(out[:e.Position+1], out[e.Position:]...)
			}
		case synchro.Delete:
			require.Less(t, e.Position, len(out), "delete %v", e)
			out = append(out[:e.Position], out[e.Position+1:]...)
		}
	}
	return out
}

// lcgLevels returns a reproducible pseudo-random level sequence.
func lcgLevels(n, levels int) []int {
	x := int64(1)
	out := make([]int, n)
	for i := range out {
		x = (x*1103515245 + 12345) % (1 << 31)
		out[i] = int((x >> 16) % int64(levels))
	}
	return out
}

func TestSimilarity(t *testing.T) {
	sim, err := NewSimilarity([]int{1, -1, -3, -3, -1})
	require.NoError(t, err)
	assert.True(t, sim.Symmetric())

	for a := 0; a < 5; a++ {
		assert.Equal(t, 1, sim.At(a, a))
	}
	assert.Equal(t, -1, sim.At(0, 1))
	assert.Equal(t, -1, sim.At(0, 4), "distance wraps around the level count")
	assert.Equal(t, -3, sim.At(1, 3))
	assert.Equal(t, -3, sim.At(3, 1))

	lopsided, err := NewSimilarity([]int{2, 0, -5})
	require.NoError(t, err)
	assert.False(t, lopsided.Symmetric())

	_, err = NewSimilarity(nil)
	assert.ErrorIs(t, err, synchro.ErrEmptySequence)
}

func TestAlign_LogsAsymmetricBasis(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})

	seq := []int{0, 1, 2, 0, 1, 2}
	_, err := Align(seq, seq, Params{Basis: []int{1, -1, -1}, InsDel: -10, Rowside: 2})
	require.NoError(t, err)
	assert.Empty(t, logged)

	res, err := Align(seq, seq, Params{Basis: []int{2, 0, -5}, InsDel: -10, Rowside: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Edits)
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "similarity basis [2 0 -5] is not mirrored")
}

func TestAlign_IdenticalSequences(t *testing.T) {
	seq := lcgLevels(50, 5)
	res, err := Align(seq, seq, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.Edits)
	assert.Equal(t, 50, res.Score)
	assert.Zero(t, res.MaxOffset)
	assert.False(t, res.NearOverflow())
}

func TestAlign_DuplicatedFrame(t *testing.T) {
	marker := []int{0, 0, 1, 1, 2, 2, 1, 1, 0, 0}
	signals := []int{0, 0, 1, 1, 2, 2, 2, 1, 1, 0, 0}

	for _, rowside := range []int{2, 3, 10} {
		res, err := Align(signals, marker, Params{Basis: []int{1, -1, -1}, InsDel: -10, Rowside: rowside})
		require.NoError(t, err)
		require.Len(t, res.Edits, 1, "rowside %d", rowside)
		// Any frame of the run of 2s may be duplicated; the match-first
		// backtrace picks the earliest one.
		assert.Equal(t, synchro.Edit{Position: 4, Op: synchro.Insert}, res.Edits[0])
		assert.Equal(t, signals, applyScript(t, marker, res.Edits))
		assert.Equal(t, 0, res.Score)
	}
}

func TestAlign_ExtraRecordedFrame(t *testing.T) {
	marker := []int{0, 1, 0, 1, 0, 1, 0, 1}
	signals := []int{0, 1, 0, 0, 1, 0, 1, 0, 1}

	res, err := Align(signals, marker, Params{Basis: []int{1, -1}, InsDel: -10, Rowside: 3})
	require.NoError(t, err)
	require.Len(t, res.Edits, 1)
	assert.Equal(t, synchro.Insert, res.Edits[0].Op)
	assert.Contains(t, []int{2, 3}, res.Edits[0].Position)

	corrected := applyScript(t, marker, res.Edits)
	assert.Equal(t, signals, corrected)
	// truncated back to the reference length it matches the recording head
	assert.Equal(t, signals[:len(marker)], corrected[:len(marker)])
}

func TestAlign_MissingRecordedFrame(t *testing.T) {
	marker := []int{0, 1, 1, 0}
	signals := []int{0, 1, 0}

	res, err := Align(signals, marker, Params{Basis: []int{1, -1}, InsDel: -10, Rowside: 2})
	require.NoError(t, err)
	assert.Equal(t, []synchro.Edit{{Position: 1, Op: synchro.Delete}}, res.Edits)
	assert.Equal(t, signals, applyScript(t, marker, res.Edits))
	assert.Equal(t, -7, res.Score)
}

func TestAlign_ShiftedBlock(t *testing.T) {
	marker := lcgLevels(30, 5)
	signals := append([]int(nil), marker[:5]...)
	signals = append(signals, marker[5], marker[5])
	signals = append(signals, marker[5:28]...)

	res, err := Align(signals, marker, DefaultParams())
	require.NoError(t, err)
	want := []synchro.Edit{
		{Position: 5, Op: synchro.Insert},
		{Position: 6, Op: synchro.Insert},
		{Position: 30, Op: synchro.Delete},
		{Position: 30, Op: synchro.Delete},
	}
	if diff := cmp.Diff(want, res.Edits); diff != "" {
		t.Errorf("edits mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, signals, applyScript(t, marker, res.Edits))
	assert.Equal(t, 2, res.MaxOffset)
	assert.False(t, res.NearOverflow())

	// A band exactly as wide as the shift still finds it, but says so.
	p := DefaultParams()
	p.Rowside = 2
	res, err = Align(signals, marker, p)
	require.NoError(t, err)
	assert.Equal(t, want, res.Edits)
	assert.True(t, res.NearOverflow())
}

func TestAlign_BandOverflowStaysWellFormed(t *testing.T) {
	marker := lcgLevels(30, 5)
	signals := append([]int(nil), marker[:5]...)
	signals = append(signals, marker[5], marker[5])
	signals = append(signals, marker[5:28]...)

	p := DefaultParams()
	p.Rowside = 1
	res, err := Align(signals, marker, p)
	require.NoError(t, err)
	assert.True(t, res.NearOverflow())
	assert.Len(t, applyScript(t, marker, res.Edits), len(signals))
	assert.NotEqual(t, signals, applyScript(t, marker, res.Edits))
}

// fullScore is an unbanded reference implementation of the same scoring.
func fullScore(signals, marker []int, sim *Similarity, insdel int) int {
	d := make([][]int, len(marker))
	for i := range d {
		d[i] = make([]int, len(signals))
		for k := range d[i] {
			if i == 0 && k == 0 {
				d[0][0] = sim.At(marker[0], signals[0])
				continue
			}
			best := -1 << 30
			if k > 0 {
				best = max(best, d[i][k-1]+insdel)
			}
			if i > 0 {
				best = max(best, d[i-1][k]+insdel)
			}
			if i > 0 && k > 0 {
				best = max(best, d[i-1][k-1]+sim.At(marker[i], signals[k]))
			}
			d[i][k] = best
		}
	}
	return d[len(marker)-1][len(signals)-1]
}

func binarySequences(n int) [][]int {
	var out [][]int
	for mask := 0; mask < 1<<n; mask++ {
		seq := make([]int, n)
		for i := range seq {
			seq[i] = (mask >> i) & 1
		}
		out = append(out, seq)
	}
	return out
}

// TestAlign_ExhaustiveSmall checks every pair of short binary sequences:
// with a band wider than both sequences the banded score equals the
// unbanded one, and with a narrow band it never exceeds it. Every script
// must turn the marker into a sequence of the recorded length.
func TestAlign_ExhaustiveSmall(t *testing.T) {
	basis := []int{1, -1}
	sim, err := NewSimilarity(basis)
	require.NoError(t, err)

	for lm := 1; lm <= 4; lm++ {
		for ls := 1; ls <= 4; ls++ {
			for _, marker := range binarySequences(lm) {
				for _, signals := range binarySequences(ls) {
					for _, insdel := range []int{-1, -2, -10} {
						want := fullScore(signals, marker, sim, insdel)

						wide, err := Align(signals, marker, Params{Basis: basis, InsDel: insdel, Rowside: 5})
						require.NoError(t, err)
						require.Equal(t, want, wide.Score, "marker %v signals %v insdel %d", marker, signals, insdel)
						require.Len(t, applyScript(t, marker, wide.Edits), len(signals))

						if d := ls - lm; d >= -1 && d <= 1 {
							narrow, err := Align(signals, marker, Params{Basis: basis, InsDel: insdel, Rowside: 1})
							require.NoError(t, err)
							require.LessOrEqual(t, narrow.Score, want)
							require.Len(t, applyScript(t, marker, narrow.Edits), len(signals))
						}
					}
				}
			}
		}
	}
}

func TestAlign_Errors(t *testing.T) {
	p := DefaultParams()

	_, err := Align(nil, []int{0}, p)
	assert.ErrorIs(t, err, synchro.ErrEmptySequence)
	_, err = Align([]int{0}, nil, p)
	assert.ErrorIs(t, err, synchro.ErrEmptySequence)

	_, err = Align([]int{0}, []int{0}, Params{Basis: p.Basis, InsDel: -10})
	assert.ErrorIs(t, err, synchro.ErrInvalidBand)

	_, err = Align([]int{0, 5}, []int{0, 1}, p)
	assert.ErrorIs(t, err, synchro.ErrLevelOutOfRange)
	_, err = Align([]int{0, 1}, []int{-1, 1}, p)
	assert.ErrorIs(t, err, synchro.ErrLevelOutOfRange)
}

func TestAlign_LengthDifferenceBeyondBand(t *testing.T) {
	marker := lcgLevels(100, 5)
	tail := lcgLevels(125, 5)[100:]

	tests := []struct {
		name    string
		signals []int
		want    []synchro.Edit
		score   int
	}{
		{
			name:    "recording 25 frames longer",
			signals: lcgLevels(125, 5),
			score:   100,
		},
		{
			name:    "recording 25 frames shorter",
			signals: marker[:75],
			score:   75,
		},
		{
			name:    "longer with duplicated frame",
			signals: concat(marker[:40], marker[40:41], marker[40:], tail[:24]),
			want:    []synchro.Edit{{Position: 40, Op: synchro.Insert}},
			score:   90,
		},
		{
			name:    "shorter with dropped frame",
			signals: concat(marker[:40], marker[41:76]),
			want:    []synchro.Edit{{Position: 40, Op: synchro.Delete}},
			score:   65,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Align(tt.signals, marker, DefaultParams())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, res.Edits); diff != "" {
				t.Errorf("edits mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.score, res.Score)
			assert.Equal(t, 25, res.MaxOffset)
			assert.True(t, res.NearOverflow())

			edited := applyScript(t, marker, res.Edits)
			n := min(len(edited), len(tt.signals), len(marker))
			assert.Equal(t, tt.signals[:n], edited[:n])
		})
	}
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestIterativeShiftCorrection_NoDrift(t *testing.T) {
	seq := lcgLevels(200, 5)
	assert.Empty(t, IterativeShiftCorrection(seq, seq, 5))
}

func TestIterativeShiftCorrection_ExtraRecordedFrame(t *testing.T) {
	for name, marker := range map[string][]int{
		"cycle":  cycleLevels(200),
		"random": lcgLevels(200, 5),
	} {
		t.Run(name, func(t *testing.T) {
			signals := append([]int(nil), marker[:100]...)
			signals = append(signals, marker[100])
			signals = append(signals, marker[100:199]...)
			before := append([]int(nil), marker...)

			edits := IterativeShiftCorrection(signals, marker, 5)
			require.Len(t, edits, 1)
			assert.Equal(t, synchro.Insert, edits[0].Op)
			assert.InDelta(t, 100, edits[0].Position, 5)
			assert.Equal(t, before, marker, "marker must not be modified")
		})
	}
}

func TestIterativeShiftCorrection_MissingRecordedFrame(t *testing.T) {
	marker := cycleLevels(200)
	signals := append([]int(nil), marker[:100]...)
	signals = append(signals, marker[101:]...)
	signals = append(signals, marker[199])

	edits := IterativeShiftCorrection(signals, marker, 5)
	assert.Equal(t, []synchro.Edit{{Position: 100, Op: synchro.Delete}}, edits)
}

func cycleLevels(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i % 5
	}
	return out
}

func TestMovingAverage(t *testing.T) {
	x := make([]float64, 30)
	x[15] = 20
	avg := movingAverage(x, 20)
	for n := range avg {
		// x[15] is inside the window of n when n-10 <= 15 <= n+9
		want := 0.0
		if n >= 6 && n <= 25 {
			want = 1
		}
		assert.InDelta(t, want, avg[n], 1e-12, "n=%d", n)
	}
	assert.Equal(t, []float64{2, 2, 2}, movingAverage([]float64{2, 2, 2}, 1))
	assert.Empty(t, movingAverage(nil, 20))
}

func TestMatchStartingPosition(t *testing.T) {
	stim := lcgLevels(120, 5)
	signals := make([]int, 400)
	copy(signals[173:], stim)
	timepoints := make([]int, len(signals))
	for k := range timepoints {
		timepoints[k] = 1000 + k*500
	}

	// estimate lands 20 frames early
	pos, err := MatchStartingPosition(timepoints, signals, stim, 1000+153*500-1, 100)
	require.NoError(t, err)
	assert.Equal(t, 173, pos)

	_, err = MatchStartingPosition(timepoints, signals, stim, 1000+400*500, 100)
	assert.Error(t, err)

	_, err = MatchStartingPosition(timepoints, signals, stim, 1000, 10)
	assert.ErrorIs(t, err, synchro.ErrSignalsTooShort)

	_, err = MatchStartingPosition(timepoints, signals, nil, 1000, 10)
	assert.ErrorIs(t, err, synchro.ErrEmptySequence)
}

func TestPositionEstimate(t *testing.T) {
	record := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	pos, ok := PositionEstimate(record.Add(90*time.Second+400*time.Millisecond), record, 30000)
	assert.True(t, ok)
	assert.Equal(t, 90*30000, pos)

	pos, ok = PositionEstimate(record.Add(-time.Second), record, 30000)
	assert.False(t, ok)
	assert.Equal(t, -1, pos)
}
