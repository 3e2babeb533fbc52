package srm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/romdock/internal/process"
)

// CommandAdd is the Steam ROM Manager subcommand that scans configured
// parsers and writes the resulting shortcuts into Steam.
const CommandAdd = "add"

// PathAutoDetect is the sentinel configuration value meaning "probe the
// conventional install locations instead of a fixed path".
const PathAutoDetect = "auto-detect"

// currentGOOS feeds the platform-specific validation rules. Tests
// override it to cover every platform's branch.
var currentGOOS = runtime.GOOS

// Error is a tool-invocation failure: an invalid executable path, a
// timeout, or a spawn failure. A non-zero exit from a tool that actually
// ran is reported through the boolean result instead, with its output.
type Error struct {
	// Timeout is true when the invocation exceeded its deadline.
	Timeout bool

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("steam rom manager: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes the Steam ROM Manager binary. Path and timeout can be
// swapped between invocations when settings change on disk.
type Runner struct {
	mu      sync.Mutex
	path    string
	timeout time.Duration
}

// NewRunner creates a runner for the executable at path with the given
// invocation timeout.
func NewRunner(path string, timeout time.Duration) *Runner {
	return &Runner{path: path, timeout: timeout}
}

// Reconfigure replaces the executable path and timeout. An invocation
// already in flight keeps the values it started with.
func (r *Runner) Reconfigure(path string, timeout time.Duration) {
	r.mu.Lock()
	r.path = path
	r.timeout = timeout
	r.mu.Unlock()
}

// Path returns the configured executable path.
func (r *Runner) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

func (r *Runner) snapshot() (string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.timeout
}

// ValidatePath checks that the configured path points at something we
// can execute. Each failure mode has its own reason string so the
// operator can tell a typo from a permissions problem.
func (r *Runner) ValidatePath() (bool, string) {
	path, _ := r.snapshot()
	return validatePath(path)
}

func validatePath(path string) (bool, string) {
	if path == "" || path == PathAutoDetect {
		return false, "no Steam ROM Manager path configured"
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, "file does not exist"
	}
	if info.IsDir() {
		return false, "path is not a file"
	}
	if !info.Mode().IsRegular() {
		return false, "path is not a regular file"
	}
	if currentGOOS == "windows" && !strings.HasSuffix(strings.ToLower(path), ".exe") {
		return false, "must be an .exe file on Windows"
	}

	return true, "valid executable"
}

// Execute runs the tool with the given command argument and waits for it
// to finish, bounded by the runner's timeout.
//
// The boolean result is true iff the tool exited with code zero. The
// string result is the tool's stdout followed by stderr, trimmed of
// surrounding whitespace, regardless of exit code. A returned *Error
// means the tool was never (or not cleanly) run: validation failed, the
// deadline passed, or the spawn itself failed.
func (r *Runner) Execute(ctx context.Context, command string) (bool, string, error) {
	path, timeout := r.snapshot()

	if valid, reason := validatePath(path); !valid {
		return false, "", &Error{Err: fmt.Errorf("validation failed: %s", reason)}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, command)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = process.HiddenWindowSysProcAttr()

	err := cmd.Run()
	output := strings.TrimSpace(stdout.String() + stderr.String())

	if runCtx.Err() == context.DeadlineExceeded {
		return false, output, &Error{
			Timeout: true,
			Err:     fmt.Errorf("timed out after %v", timeout),
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and reported failure; not a tool error.
			return false, output, nil
		}
		return false, output, &Error{Err: fmt.Errorf("failed to execute: %w", err)}
	}

	return true, output, nil
}

// AutoDetect probes the conventional Steam ROM Manager install locations
// and returns the first that exists.
func AutoDetect() (string, bool) {
	for _, candidate := range DefaultInstallPaths() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// DefaultInstallPaths returns the conventional Steam ROM Manager
// executable locations for this platform, in probe priority order.
func DefaultInstallPaths() []string {
	switch runtime.GOOS {
	case "windows":
		home, _ := os.UserHomeDir()
		return []string{
			filepath.Join(home, `AppData\Local\Programs\steam-rom-manager\Steam ROM Manager.exe`),
			`C:\Program Files\Steam ROM Manager\Steam ROM Manager.exe`,
			`C:\Program Files (x86)\Steam ROM Manager\Steam ROM Manager.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/Steam ROM Manager.app/Contents/MacOS/Steam ROM Manager",
		}
	default:
		home, _ := os.UserHomeDir()
		return []string{
			"/usr/bin/steam-rom-manager",
			"/usr/local/bin/steam-rom-manager",
			filepath.Join(home, "Applications", "steam-rom-manager.AppImage"),
		}
	}
}
