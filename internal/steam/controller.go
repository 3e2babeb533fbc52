package steam

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/nerrad567/romdock/internal/process"
)

// Timing constants for the shutdown and relaunch sequences.
const (
	// settleDelay is the pause between the graceful terminate pass and
	// the forceful kill pass, giving processes a moment to exit cleanly.
	settleDelay = 1 * time.Second

	// launchSettleDelay is how long to wait after spawning Steam before
	// re-checking that it is actually running.
	launchSettleDelay = 2 * time.Second

	// waitInitialInterval is the first closure-poll interval.
	waitInitialInterval = 500 * time.Millisecond

	// waitBackoffFactor multiplies the poll interval after each attempt.
	waitBackoffFactor = 1.5

	// waitMaxInterval caps the poll interval so a slow shutdown is still
	// confirmed within a few seconds of completing.
	waitMaxInterval = 3 * time.Second

	// minShutdownTimeout and maxShutdownTimeout bound the configurable
	// closure-wait timeout.
	minShutdownTimeout = 5 * time.Second
	maxShutdownTimeout = 300 * time.Second
)

// Config holds configuration for the Steam controller.
type Config struct {
	// ProcessNames are the executable names that count as "Steam".
	// Default: platform-appropriate client, service, and webhelper names.
	ProcessNames []string

	// InstallPaths are candidate Steam executable locations probed, in
	// order, when discovering where to relaunch from.
	// Default: conventional per-platform install locations.
	InstallPaths []string

	// LaunchArgs are passed to the Steam executable on relaunch.
	// Default: ["-silent"] so the client restarts minimised to the tray.
	LaunchArgs []string

	// ShutdownTimeout is the maximum time WaitForClosure polls before
	// giving up. Must be between 5s and 300s.
	// Default: 30s.
	ShutdownTimeout time.Duration
}

// Logger defines the logging interface for the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Controller owns the is-running check, the two-phase termination
// sequence, closure waiting, executable discovery, and relaunch.
//
// State recorded during GracefulShutdown (whether Steam was running, and
// where its executable lives) is scoped to one automation run: the
// orchestrator calls ResetRunState at the start of each run.
type Controller struct {
	config Config
	names  process.NameSet
	procs  process.Signaller
	logger Logger

	mu             sync.Mutex
	wasRunning     bool
	discoveredPath string

	// sleep is swapped out by tests to make backoff timing observable.
	sleep func(time.Duration)

	// launch is swapped out by tests to avoid spawning real processes.
	launch func(path string, args []string) error
}

// NewController creates a Steam controller. It validates the shutdown
// timeout at construction; this is the only operation in the package
// that can return an error.
func NewController(cfg Config, procs process.Signaller) (*Controller, error) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout < minShutdownTimeout || cfg.ShutdownTimeout > maxShutdownTimeout {
		return nil, fmt.Errorf("shutdown timeout %v out of range [%v, %v]",
			cfg.ShutdownTimeout, minShutdownTimeout, maxShutdownTimeout)
	}
	if len(cfg.ProcessNames) == 0 {
		cfg.ProcessNames = DefaultProcessNames()
	}
	if len(cfg.InstallPaths) == 0 {
		cfg.InstallPaths = DefaultInstallPaths()
	}
	if cfg.LaunchArgs == nil {
		cfg.LaunchArgs = []string{"-silent"}
	}

	return &Controller{
		config: cfg,
		names:  process.NewNameSet(cfg.ProcessNames),
		procs:  procs,
		logger: noopLogger{},
		sleep:  time.Sleep,
		launch: launchDetached,
	}, nil
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// IsRunning reports whether any Steam process is currently running.
// Any internal failure is treated as "not running".
func (c *Controller) IsRunning(ctx context.Context) bool {
	return len(c.procs.List(ctx, c.names)) > 0
}

// TerminateAll performs the two-phase shutdown: a graceful terminate
// signal to every matching process, a one-second settle, then a forceful
// kill of anything still present.
//
// A process that has already exited or denies access is not an error.
// Any other per-process failure marks the overall result false but does
// not stop the remaining terminations. An empty process set returns true
// with no side effects.
func (c *Controller) TerminateAll(ctx context.Context) bool {
	targets := c.procs.List(ctx, c.names)
	if len(targets) == 0 {
		return true
	}

	ok := true
	for _, p := range targets {
		if err := c.procs.Terminate(ctx, p.PID); err != nil {
			if process.Skippable(err) {
				continue
			}
			c.logger.Warn("terminate failed", "pid", p.PID, "name", p.Name, "error", err)
			ok = false
		}
	}

	c.sleep(settleDelay)

	for _, p := range c.procs.List(ctx, c.names) {
		if err := c.procs.Kill(ctx, p.PID); err != nil {
			if process.Skippable(err) {
				continue
			}
			c.logger.Warn("kill failed", "pid", p.PID, "name", p.Name, "error", err)
			ok = false
		}
	}

	return ok
}

// WaitForClosure polls IsRunning with exponential backoff (0.5s initial,
// x1.5 per attempt, capped at 3s) until Steam is gone or the accumulated
// wait reaches maxWait. Once the budget is spent the wait has failed,
// even if Steam exits on the boundary.
func (c *Controller) WaitForClosure(ctx context.Context, maxWait time.Duration) bool {
	interval := waitInitialInterval
	var waited time.Duration

	for waited < maxWait {
		if !c.IsRunning(ctx) {
			return true
		}
		c.sleep(interval)
		waited += interval
		interval = min(time.Duration(float64(interval)*waitBackoffFactor), waitMaxInterval)
	}

	return false
}

// GracefulShutdown is the composite shutdown operation used at the start
// of a run. It records whether Steam was running (for relaunch
// eligibility) and, when it was, where its executable lives.
func (c *Controller) GracefulShutdown(ctx context.Context) (bool, string) {
	if !c.IsRunning(ctx) {
		c.setRunState(false, "")
		return true, "Steam not running"
	}

	path, _ := c.FindExecutablePath(ctx)
	c.setRunState(true, path)

	if !c.TerminateAll(ctx) {
		return false, "Failed to terminate Steam processes"
	}

	if !c.WaitForClosure(ctx, c.config.ShutdownTimeout) {
		return false, fmt.Sprintf("Steam still running after %v timeout", c.config.ShutdownTimeout)
	}

	return true, "Steam closed successfully"
}

// FindExecutablePath probes the conventional install locations in order,
// then falls back to asking a running Steam process for its own
// executable path. The second return is false if both strategies fail.
func (c *Controller) FindExecutablePath(ctx context.Context) (string, bool) {
	for _, candidate := range c.config.InstallPaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	for _, p := range c.procs.List(ctx, c.names) {
		exe, err := c.procs.ExePath(ctx, p.PID)
		if err != nil {
			// The process may have exited between listing and lookup.
			continue
		}
		if exe != "" {
			return exe, true
		}
	}

	return "", false
}

// Start launches Steam detached and silent, then confirms it came up.
//
// The path is resolved in priority order: the explicit argument, the
// path discovered during the last GracefulShutdown, then a fresh
// discovery. The failure message distinguishes an unresolvable or
// missing executable from a launch that completed but was never
// detected as running.
func (c *Controller) Start(ctx context.Context, path string) (bool, string) {
	resolved := path
	if resolved == "" {
		c.mu.Lock()
		resolved = c.discoveredPath
		c.mu.Unlock()
	}
	if resolved == "" {
		if found, ok := c.FindExecutablePath(ctx); ok {
			resolved = found
		}
	}
	if resolved == "" {
		return false, "Steam executable not found"
	}
	if info, err := os.Stat(resolved); err != nil || info.IsDir() {
		return false, fmt.Sprintf("Steam executable not found at %s", resolved)
	}

	c.logger.Info("launching Steam", "path", resolved, "args", c.config.LaunchArgs)
	if err := c.launch(resolved, c.config.LaunchArgs); err != nil {
		return false, fmt.Sprintf("Failed to launch Steam: %v", err)
	}

	c.sleep(launchSettleDelay)

	if !c.IsRunning(ctx) {
		return false, "Steam launched but not detected running"
	}
	return true, "Steam restarted"
}

// WasRunningBeforeShutdown reports whether Steam was observed running at
// the start of the most recent GracefulShutdown.
func (c *Controller) WasRunningBeforeShutdown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wasRunning
}

// ResetRunState clears the per-run shutdown state. Called by the
// orchestrator at the start of each run.
func (c *Controller) ResetRunState() {
	c.setRunState(false, "")
}

func (c *Controller) setRunState(wasRunning bool, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wasRunning = wasRunning
	c.discoveredPath = path
}

// launchDetached spawns the executable in its own session with no
// console, releasing the handle so the child outlives us.
func launchDetached(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = process.DetachedSysProcAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
