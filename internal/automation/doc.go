// Package automation orchestrates a single library-sync run: shut Steam
// down, verify it is gone, invoke Steam ROM Manager, and optionally
// relaunch Steam afterwards.
//
// The engine is constructed with its collaborators injected and reports
// everything it does over a buffered event channel (progress updates,
// log lines, status changes). The consumer drains the channel on its own
// schedule; the engine never touches presentation state directly.
//
// One run at a time: a start request while a run is in flight is refused
// with ErrRunInProgress. Runs are not cancellable mid-flight; Cancelled
// is only reachable between runs.
package automation
