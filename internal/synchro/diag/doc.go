// Package diag renders human-readable views of a synchronisation run: a
// text side-by-side of reference, recorded and corrected levels, a plot of
// inter-frame intervals and an interactive HTML comparison chart.
package diag
