// Package frames finds frame boundaries in a raw photodiode or trigger trace.
//
// Responsibilities: locating frame-start timepoints with a dual-threshold
// scan, labelling each frame as bright or dark, and flagging irregular
// inter-frame intervals. Key types: Params, Detection, TimingAnomaly.
//
// Dependency rule: frames depends only on the synchro model package.
package frames
