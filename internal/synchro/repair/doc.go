// Package repair turns an edit script into corrected reference arrays.
//
// ApplyEdits replays insertions and deletions over the reference stimulus,
// Correct chooses how the script is obtained and patches the single-frame
// mismatches left afterwards, and Trim cuts the result down to the frames
// that belong to the stimulus while keeping the audit logs consistent.
// Caller-owned arrays are never modified.
package repair
