package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// eventBufferSize bounds the event channel. A full run emits well under
// this many events; a consumer that stalls loses the overflow rather
// than blocking the run.
const eventBufferSize = 64

// SteamController is the interface the engine needs from the Steam
// controller.
type SteamController interface {
	// IsRunning reports whether any Steam process is up.
	IsRunning(ctx context.Context) bool

	// GracefulShutdown terminates Steam and waits for closure.
	GracefulShutdown(ctx context.Context) (bool, string)

	// WasRunningBeforeShutdown reports the state recorded by the most
	// recent GracefulShutdown.
	WasRunningBeforeShutdown() bool

	// ResetRunState clears the per-run shutdown state.
	ResetRunState()

	// Start relaunches Steam; an empty path means use the discovered one.
	Start(ctx context.Context, path string) (bool, string)
}

// ToolRunner is the interface the engine needs from the Steam ROM
// Manager runner.
type ToolRunner interface {
	Execute(ctx context.Context, command string) (bool, string, error)
}

// RunStore persists run summaries. Optional; a nil store disables
// history.
type RunStore interface {
	SaveRun(ctx context.Context, rec RunRecord) error
}

// Logger defines the logging interface for the engine.
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

// Config holds configuration for the engine.
type Config struct {
	// ToolCommand is the argument passed to the tool. Default: "add".
	ToolCommand string

	// RestartSteam relaunches Steam after a successful run, provided it
	// was running before the shutdown step.
	RestartSteam bool
}

// Engine runs the four-step automation sequence.
type Engine struct {
	cfg    Config
	steam  SteamController
	tool   ToolRunner
	store  RunStore
	logger Logger

	events chan Event

	mu     sync.Mutex
	status Status
}

// NewEngine creates an engine. store and logger may be nil.
func NewEngine(cfg Config, steam SteamController, tool ToolRunner, store RunStore, logger Logger) *Engine {
	if cfg.ToolCommand == "" {
		cfg.ToolCommand = "add"
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		cfg:    cfg,
		steam:  steam,
		tool:   tool,
		store:  store,
		logger: logger,
		events: make(chan Event, eventBufferSize),
		status: StatusReady,
	}
}

// Events returns the channel the engine publishes on. The engine never
// closes it.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Status returns the current run state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Config returns the current engine configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the engine configuration, typically after the
// settings file changed on disk. The change applies from the next run;
// a run in flight keeps the snapshot it started with.
func (e *Engine) SetConfig(cfg Config) {
	if cfg.ToolCommand == "" {
		cfg.ToolCommand = "add"
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// Start begins a run in the background. It returns ErrRunInProgress
// without side effects if a run is already in flight. Completion is
// observed through the event channel: the final event of a run is a
// status event carrying a terminal status.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.status == StatusRunning {
		e.mu.Unlock()
		return ErrRunInProgress
	}
	e.status = StatusRunning
	cfg := e.cfg
	e.mu.Unlock()

	e.emit(Event{Kind: EventStatus, Status: StatusRunning})
	go e.run(ctx, cfg)
	return nil
}

// Cancel marks the engine cancelled if no run is in flight. A run in
// flight is not interruptible; Cancel then reports false and changes
// nothing.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	if e.status == StatusRunning {
		e.mu.Unlock()
		return false
	}
	e.status = StatusCancelled
	e.mu.Unlock()

	e.emit(Event{Kind: EventStatus, Status: StatusCancelled})
	return true
}

// run executes the sequence against the configuration snapshot taken at
// start. Any panic is caught here so the state machine can never be
// left stuck in Running.
func (e *Engine) run(ctx context.Context, cfg Config) {
	started := time.Now()
	final := StatusFailed
	summary := ""

	defer func() {
		if r := recover(); r != nil {
			final = StatusFailed
			summary = fmt.Sprintf("unexpected error: %v", r)
			e.logger.Error("run panicked", "panic", r)
			e.emitLog(fmt.Sprintf("✗ Unexpected error: %v", r), LevelError)
			e.emitProgress(0, 0, "Process failed - unexpected error", "✗")
		}
		e.finish(ctx, started, final, summary)
	}()

	e.logger.Info("starting automation run")
	e.steam.ResetRunState()

	// Step 1: shut Steam down. A failure here is a warning, not fatal;
	// termination may have partially succeeded and the next step decides.
	e.emitProgress(1, 25, "Terminating Steam processes...", "🔄")
	e.emitLog("Step 1: Checking Steam processes...", LevelInfo)
	if ok, msg := e.steam.GracefulShutdown(ctx); ok {
		e.emitLog("✓ "+msg, LevelSuccess)
		e.logger.Info("steam shutdown complete", "result", msg)
	} else {
		e.emitLog("⚠ "+msg, LevelWarning)
		e.logger.Warn("steam termination issue", "result", msg)
	}

	// Step 2: verify closure. The tool must never run while Steam might
	// still hold its library files.
	e.emitProgress(2, 50, "Verifying Steam is closed...", "🔍")
	e.emitLog("Step 2: Final verification...", LevelInfo)
	if e.steam.IsRunning(ctx) {
		summary = "Steam still running after shutdown attempt"
		e.logger.Error("steam still running after shutdown")
		e.emitLog("✗ Steam is still running! Manual intervention required.", LevelError)
		e.emitProgress(0, 0, "Failed - Steam still running", "✗")
		return
	}
	e.emitLog("✓ Steam is completely closed", LevelSuccess)

	// Step 3: run the tool.
	e.emitProgress(3, 75, "Running Steam ROM Manager...", "⚙")
	e.emitLog("Step 3: Executing Steam ROM Manager...", LevelInfo)
	ok, output, err := e.tool.Execute(ctx, cfg.ToolCommand)
	if err != nil {
		summary = err.Error()
		e.logger.Error("tool invocation failed", "error", err)
		e.emitLog(fmt.Sprintf("✗ Operation failed: %v", err), LevelError)
		e.emitProgress(0, 0, "Process failed - see log", "✗")
		return
	}
	if !ok {
		summary = "Steam ROM Manager exited with failure"
		e.logger.Error("tool reported failure", "output", output)
		e.emitProgress(4, 0, "Process failed - see log for details", "✗")
		e.emitLog("✗ Steam ROM Manager failed!", LevelError)
		if output != "" {
			e.emitLog("Error: "+output, LevelError)
		}
		return
	}

	// Step 4: report success and optionally bring Steam back. Relaunch
	// failure never downgrades the run.
	elapsed := time.Since(started)
	e.emitProgress(4, 100, "Process completed successfully!", "✓")
	e.emitLog("✓ Steam ROM Manager completed successfully!", LevelSuccess)
	e.emitLog("✓ ROMs have been added to Steam", LevelSuccess)
	e.emitLog(fmt.Sprintf("⏱ Total time: %.1fs", elapsed.Seconds()), LevelInfo)
	if output != "" {
		e.emitLog("Output: "+output, LevelInfo)
	}
	e.logger.Info("run completed", "elapsed", elapsed)

	if cfg.RestartSteam && e.steam.WasRunningBeforeShutdown() {
		e.emitLog("Restarting Steam...", LevelInfo)
		if ok, msg := e.steam.Start(ctx, ""); ok {
			e.emitLog("✓ "+msg, LevelSuccess)
		} else {
			e.logger.Warn("steam relaunch failed", "result", msg)
			e.emitLog("⚠ "+msg, LevelWarning)
		}
	}

	final = StatusSuccess
	summary = "completed successfully"
}

// finish records the terminal status, persists the run summary, and
// emits the closing status event.
func (e *Engine) finish(ctx context.Context, started time.Time, final Status, summary string) {
	e.mu.Lock()
	e.status = final
	e.mu.Unlock()

	if e.store != nil {
		rec := RunRecord{
			ID:         uuid.NewString(),
			StartedAt:  started,
			FinishedAt: time.Now(),
			Status:     final,
			Duration:   time.Since(started),
			Message:    summary,
		}
		// Survive a cancelled parent context; history should still record
		// the run that just happened.
		if err := e.store.SaveRun(context.WithoutCancel(ctx), rec); err != nil {
			e.logger.Warn("failed to persist run record", "error", err)
		}
	}

	e.emit(Event{Kind: EventStatus, Status: final})
}

func (e *Engine) emitProgress(step, percentage int, message, icon string) {
	e.emit(Event{Kind: EventProgress, Progress: Progress{
		Step:       step,
		Percentage: percentage,
		Message:    message,
		Icon:       icon,
	}})
}

func (e *Engine) emitLog(message string, level Level) {
	e.emit(Event{Kind: EventLog, Log: LogEntry{Message: message, Level: level}})
}

// emit never blocks the run; a stalled consumer loses events past the
// buffer.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event dropped, consumer not keeping up", "kind", ev.Kind)
	}
}
