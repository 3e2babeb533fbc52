package automation

import "errors"

// ErrRunInProgress is returned by Start while a run is in flight. The
// in-flight run is unaffected.
var ErrRunInProgress = errors.New("automation: run already in progress")
