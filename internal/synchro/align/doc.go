// Package align recovers the edit script that re-synchronises a reference
// marker sequence with the levels recorded during an experiment.
//
// Responsibilities: the banded global alignment (a memory-bounded
// Needleman-Wunsch), the cheaper iterative shift corrector for mildly
// drifted recordings, and the coarse cross-correlation search for the
// frame where a stimulus starts. Key types: Params, Similarity, Alignment.
//
// The band assumes the true misalignment never exceeds Params.Rowside
// frames. When it does, Align still returns a well-formed but wrong script;
// Alignment.MaxOffset lets callers notice when the path ran along the edge
// of the band.
//
// Dependency rule: align depends only on the synchro model package.
package align
