// Package levels quantises detected frames into discrete integer levels.
//
// Responsibilities: per-frame area-under-curve (AUC), unsupervised grouping of
// AUCs into k levels, per-epoch grouping with a shared level scale, and
// list-driven stamping of stimulus identifiers onto on/off runs.
// Key types: Clustering, Epoch, ListResult.
//
// Dependency rule: levels depends only on the synchro model package.
package levels
