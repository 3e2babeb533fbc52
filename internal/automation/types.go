package automation

import "time"

// Status is the run state machine's state.
type Status string

const (
	// StatusReady means no run is in flight and a new one may start.
	StatusReady Status = "ready"

	// StatusRunning means a run is in flight; new runs are refused.
	StatusRunning Status = "running"

	// StatusSuccess means the last run completed all steps.
	StatusSuccess Status = "success"

	// StatusFailed means the last run stopped at a fatal step.
	StatusFailed Status = "failed"

	// StatusCancelled means a shutdown request arrived between runs.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is an end state of a run.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Level is the severity of a log line.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Progress describes where in the four-step sequence a run is. Step 0 at
// 0% marks a failed run's reset bar.
type Progress struct {
	Step       int
	Percentage int
	Message    string
	Icon       string
}

// LogEntry is a user-visible log line with its severity.
type LogEntry struct {
	Message string
	Level   Level
}

// EventKind discriminates the Event union.
type EventKind int

const (
	EventProgress EventKind = iota
	EventLog
	EventStatus
)

// Event is one message from the run to the presentation side. Exactly
// one of Progress, Log, or Status is meaningful, selected by Kind.
type Event struct {
	Kind     EventKind
	Progress Progress
	Log      LogEntry
	Status   Status
}

// RunRecord is the persisted summary of one completed run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     Status
	Duration   time.Duration
	Message    string
}
