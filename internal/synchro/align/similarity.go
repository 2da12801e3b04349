package align

import (
	"fmt"

	"github.com/banshee-data/framesync/internal/synchro"
)

// Similarity scores how plausible it is to observe level b where level a was
// expected. Row a is the basis rotated right by a, so the score depends only
// on (b-a) mod k. With a basis that decreases away from index 0 and is
// mirrored (basis[d] == basis[k-d]), the matrix is symmetric and nearby
// levels are cheaper confusions than distant ones.
type Similarity struct {
	k     int
	cells []int
}

// NewSimilarity builds the k×k similarity matrix from a basis of length k.
func NewSimilarity(basis []int) (*Similarity, error) {
	k := len(basis)
	if k == 0 {
		return nil, fmt.Errorf("similarity basis: %w", synchro.ErrEmptySequence)
	}
	s := &Similarity{k: k, cells: make([]int, k*k)}
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			s.cells[a*k+b] = basis[((b-a)%k+k)%k]
		}
	}
	return s, nil
}

// At returns the score of observing b where a was expected.
func (s *Similarity) At(a, b int) int {
	return s.cells[a*s.k+b]
}

// Symmetric reports whether At(a, b) == At(b, a) for every pair.
func (s *Similarity) Symmetric() bool {
	for a := 0; a < s.k; a++ {
		for b := a + 1; b < s.k; b++ {
			if s.At(a, b) != s.At(b, a) {
				return false
			}
		}
	}
	return true
}

// check verifies that every level of seq has a row in the matrix.
func (s *Similarity) check(name string, seq []int) error {
	for i, v := range seq {
		if v < 0 || v >= s.k {
			return fmt.Errorf("%s[%d] = %d with %d levels: %w", name, i, v, s.k, synchro.ErrLevelOutOfRange)
		}
	}
	return nil
}
