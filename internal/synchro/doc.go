// Package synchro holds the data model shared by the frame synchronisation
// pipeline: reference stimulus arrays, edit scripts, frame replacements and
// the error taxonomy.
//
// The pipeline stages live in sub-packages and only depend on this package,
// never on each other's internals:
//
//	frames  raw trace -> frame timepoints + binary signal
//	levels  frame signal -> quantised levels (AUC clustering)
//	align   levels + reference marker -> edit script
//	repair  edit script -> corrected, trimmed reference arrays
//	diag    human-readable views of the above
//
// Dependency rule: data flows forward only. A stage may import an earlier
// stage but never a later one.
package synchro
