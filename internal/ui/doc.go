// Package ui renders the single-screen terminal interface: a status
// indicator, a progress bar, and a scrolling log pane.
//
// The UI owns its own event loop. Engine events arrive on a channel and
// are folded into local state before drawing; nothing outside this
// package touches the screen. Keys: s starts a run, e exports the log,
// q quits (with confirmation while a run is in flight).
package ui
