package process

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"

	gops "github.com/shirou/gopsutil/v4/process"
)

// Proc identifies a running process matched during enumeration.
// The identity is transient: it is valid only until the process exits
// and must never be persisted.
type Proc struct {
	PID  int32
	Name string
}

// FailureClass categorises per-process errors seen during enumeration
// or signalling. All classes except ClassOther are expected races and
// are skipped by callers.
type FailureClass int

const (
	// ClassNotFound means the process exited between listing and use.
	ClassNotFound FailureClass = iota

	// ClassAccessDenied means the process belongs to another user or is
	// otherwise protected. Treated the same as gone for our purposes.
	ClassAccessDenied

	// ClassTransient covers cancelled or timed-out lookups.
	ClassTransient

	// ClassOther is any failure that does not match the above.
	ClassOther
)

// Classify maps an error from a per-process operation to a FailureClass.
// A nil error classifies as ClassOther; callers check err != nil first.
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, gops.ErrorProcessNotRunning),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, syscall.ESRCH):
		return ClassNotFound
	case errors.Is(err, os.ErrPermission),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.EACCES):
		return ClassAccessDenied
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassOther
	}
}

// Skippable reports whether a per-process error should be silently
// ignored during enumeration (the process vanished, is shielded, or the
// lookup was interrupted).
func Skippable(err error) bool {
	return Classify(err) != ClassOther
}

// NameSet is a case-insensitive set of executable names.
type NameSet map[string]struct{}

// NewNameSet builds a NameSet from a list of executable names.
func NewNameSet(names []string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set, ignoring case.
func (s NameSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// Lister enumerates running processes whose executable name is in the
// given set. Enumeration is best-effort: it returns an empty slice, never
// an error, when the process table cannot be read at all.
type Lister interface {
	List(ctx context.Context, names NameSet) []Proc
}

// Signaller extends Lister with termination and executable-path lookup
// for individual processes. Per-process errors are returned so callers
// can classify them; see Classify.
type Signaller interface {
	Lister

	// Terminate asks the process to exit (SIGTERM or the platform
	// equivalent).
	Terminate(ctx context.Context, pid int32) error

	// Kill forcefully ends the process.
	Kill(ctx context.Context, pid int32) error

	// ExePath returns the process's own executable path.
	ExePath(ctx context.Context, pid int32) (string, error)
}

// SystemLister enumerates and signals processes on the live system via
// gopsutil.
type SystemLister struct{}

// NewSystemLister returns a Signaller backed by the OS process table.
func NewSystemLister() *SystemLister {
	return &SystemLister{}
}

// List returns all running processes whose name matches the set.
// Individual entries that vanish or deny access mid-scan are skipped.
// Total enumeration failure yields an empty result, not an error.
func (s *SystemLister) List(ctx context.Context, names NameSet) []Proc {
	procs, err := gops.ProcessesWithContext(ctx)
	if err != nil {
		return nil
	}

	var matched []Proc
	for _, p := range procs {
		name, nameErr := p.NameWithContext(ctx)
		if nameErr != nil {
			// Raced against exit, zombie reaping, or another user's
			// process. Skip and continue.
			continue
		}
		if names.Contains(name) {
			matched = append(matched, Proc{PID: p.Pid, Name: name})
		}
	}
	return matched
}

// Terminate sends a graceful termination signal to pid.
func (s *SystemLister) Terminate(ctx context.Context, pid int32) error {
	p, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}

// Kill forcefully ends pid.
func (s *SystemLister) Kill(ctx context.Context, pid int32) error {
	p, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.KillWithContext(ctx)
}

// ExePath returns the executable path of pid.
func (s *SystemLister) ExePath(ctx context.Context, pid int32) (string, error) {
	p, err := gops.NewProcessWithContext(ctx, pid)
	if err != nil {
		return "", err
	}
	return p.ExeWithContext(ctx)
}
