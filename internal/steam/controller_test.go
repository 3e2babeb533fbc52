package steam

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/nerrad567/romdock/internal/process"
)

// fakeSignaller is an in-memory process table for controller tests.
type fakeSignaller struct {
	procs         []process.Proc
	exePaths      map[int32]string
	terminateErrs map[int32]error
	killErrs      map[int32]error

	terminated []int32
	killed     []int32

	// removeOnTerminate makes Terminate drop the process from the table,
	// simulating a clean graceful exit.
	removeOnTerminate bool
}

func (f *fakeSignaller) List(_ context.Context, names process.NameSet) []process.Proc {
	var out []process.Proc
	for _, p := range f.procs {
		if names.Contains(p.Name) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeSignaller) Terminate(_ context.Context, pid int32) error {
	f.terminated = append(f.terminated, pid)
	if err, ok := f.terminateErrs[pid]; ok {
		return err
	}
	if f.removeOnTerminate {
		f.remove(pid)
	}
	return nil
}

func (f *fakeSignaller) Kill(_ context.Context, pid int32) error {
	f.killed = append(f.killed, pid)
	if err, ok := f.killErrs[pid]; ok {
		return err
	}
	f.remove(pid)
	return nil
}

func (f *fakeSignaller) ExePath(_ context.Context, pid int32) (string, error) {
	if path, ok := f.exePaths[pid]; ok {
		return path, nil
	}
	return "", errors.New("no exe path")
}

func (f *fakeSignaller) remove(pid int32) {
	kept := f.procs[:0]
	for _, p := range f.procs {
		if p.PID != pid {
			kept = append(kept, p)
		}
	}
	f.procs = kept
}

func newTestController(t *testing.T, fake *fakeSignaller, cfg Config) *Controller {
	t.Helper()
	if cfg.ProcessNames == nil {
		cfg.ProcessNames = []string{"steam", "steamwebhelper"}
	}
	if cfg.InstallPaths == nil {
		cfg.InstallPaths = []string{"/nonexistent/steam"}
	}
	c, err := NewController(cfg, fake)
	if err != nil {
		t.Fatalf("NewController() error: %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func TestNewController_TimeoutBounds(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"zero uses default", 0, false},
		{"minimum", 5 * time.Second, false},
		{"maximum", 300 * time.Second, false},
		{"below minimum", 2 * time.Second, true},
		{"above maximum", 301 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(Config{ShutdownTimeout: tt.timeout}, &fakeSignaller{})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewController(timeout=%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
		})
	}
}

func TestIsRunning(t *testing.T) {
	fake := &fakeSignaller{procs: []process.Proc{{PID: 100, Name: "steam"}}}
	c := newTestController(t, fake, Config{})

	if !c.IsRunning(context.Background()) {
		t.Error("IsRunning() = false with a matching process present")
	}

	fake.procs = nil
	if c.IsRunning(context.Background()) {
		t.Error("IsRunning() = true with no matching processes")
	}
}

func TestTerminateAll_EmptySetIsNoop(t *testing.T) {
	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})

	if !c.TerminateAll(context.Background()) {
		t.Error("TerminateAll() on empty set = false, want true")
	}
	if len(fake.terminated) != 0 || len(fake.killed) != 0 {
		t.Errorf("TerminateAll() on empty set signalled processes: terminated=%v killed=%v",
			fake.terminated, fake.killed)
	}
}

func TestTerminateAll_GracefulExit(t *testing.T) {
	fake := &fakeSignaller{
		procs: []process.Proc{
			{PID: 100, Name: "steam"},
			{PID: 101, Name: "steamwebhelper"},
		},
		removeOnTerminate: true,
	}
	c := newTestController(t, fake, Config{})

	if !c.TerminateAll(context.Background()) {
		t.Error("TerminateAll() = false, want true")
	}
	if len(fake.terminated) != 2 {
		t.Errorf("terminated %d processes, want 2", len(fake.terminated))
	}
	if len(fake.killed) != 0 {
		t.Errorf("killed %d processes after clean exit, want 0", len(fake.killed))
	}
}

func TestTerminateAll_ForcesStragglers(t *testing.T) {
	fake := &fakeSignaller{
		procs: []process.Proc{{PID: 100, Name: "steam"}},
	}
	c := newTestController(t, fake, Config{})

	if !c.TerminateAll(context.Background()) {
		t.Error("TerminateAll() = false, want true")
	}
	if len(fake.killed) != 1 {
		t.Errorf("killed %d processes, want 1 (straggler after terminate)", len(fake.killed))
	}
}

func TestTerminateAll_SkippableErrorsIgnored(t *testing.T) {
	fake := &fakeSignaller{
		procs: []process.Proc{
			{PID: 100, Name: "steam"},
			{PID: 101, Name: "steamwebhelper"},
		},
		terminateErrs: map[int32]error{
			100: syscall.ESRCH, // exited on its own
			101: syscall.EPERM, // shielded service process
		},
		killErrs: map[int32]error{
			100: syscall.ESRCH,
			101: syscall.EPERM,
		},
	}
	c := newTestController(t, fake, Config{})

	if !c.TerminateAll(context.Background()) {
		t.Error("TerminateAll() = false, want true (already-exited and access-denied are not failures)")
	}
}

func TestTerminateAll_UnexpectedErrorMarksFailure(t *testing.T) {
	fake := &fakeSignaller{
		procs: []process.Proc{
			{PID: 100, Name: "steam"},
			{PID: 101, Name: "steamwebhelper"},
		},
		terminateErrs: map[int32]error{100: errors.New("kernel said no")},
		killErrs:      map[int32]error{100: errors.New("kernel said no")},
	}
	c := newTestController(t, fake, Config{})

	if c.TerminateAll(context.Background()) {
		t.Error("TerminateAll() = true despite unexpected per-process error")
	}
	// The failing process must not have aborted the second one.
	if len(fake.terminated) != 2 {
		t.Errorf("terminated %d processes, want 2 (failure must not abort the loop)", len(fake.terminated))
	}
}

func TestWaitForClosure_ReturnsQuicklyWhenClosed(t *testing.T) {
	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})

	var slept time.Duration
	c.sleep = func(d time.Duration) { slept += d }

	if !c.WaitForClosure(context.Background(), 30*time.Second) {
		t.Error("WaitForClosure() = false with nothing running")
	}
	if slept != 0 {
		t.Errorf("slept %v before first check, want 0", slept)
	}
}

func TestWaitForClosure_ExitOnBudgetBoundaryStillFails(t *testing.T) {
	fake := &fakeSignaller{procs: []process.Proc{{PID: 100, Name: "steam"}}}
	c := newTestController(t, fake, Config{})

	// The process exits only once the whole wait budget is spent.
	maxWait := 10 * time.Second
	var total time.Duration
	c.sleep = func(d time.Duration) {
		total += d
		if total >= maxWait {
			fake.remove(100)
		}
	}

	if c.WaitForClosure(context.Background(), maxWait) {
		t.Error("WaitForClosure() = true after the budget was exhausted")
	}
}

func TestWaitForClosure_BackoffAccumulation(t *testing.T) {
	fake := &fakeSignaller{procs: []process.Proc{{PID: 100, Name: "steam"}}}
	c := newTestController(t, fake, Config{})

	var intervals []time.Duration
	var total time.Duration
	c.sleep = func(d time.Duration) {
		intervals = append(intervals, d)
		total += d
	}

	maxWait := 30 * time.Second
	if c.WaitForClosure(context.Background(), maxWait) {
		t.Fatal("WaitForClosure() = true while process never stops")
	}

	// Accumulated wait must reach the timeout, overshooting by at most
	// one capped interval.
	if total < maxWait {
		t.Errorf("accumulated wait %v < timeout %v", total, maxWait)
	}
	if total >= maxWait+waitMaxInterval {
		t.Errorf("accumulated wait %v >= timeout+cap %v", total, maxWait+waitMaxInterval)
	}

	// The schedule starts at 0.5s, grows by 1.5x, and caps at 3s.
	wantPrefix := []time.Duration{
		500 * time.Millisecond,
		750 * time.Millisecond,
		1125 * time.Millisecond,
	}
	for i, want := range wantPrefix {
		if i >= len(intervals) {
			t.Fatalf("only %d poll intervals recorded", len(intervals))
		}
		if intervals[i] != want {
			t.Errorf("interval[%d] = %v, want %v", i, intervals[i], want)
		}
	}
	for i, d := range intervals {
		if d > waitMaxInterval {
			t.Errorf("interval[%d] = %v exceeds cap %v", i, d, waitMaxInterval)
		}
	}
}

func TestGracefulShutdown_NotRunning(t *testing.T) {
	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})

	ok, msg := c.GracefulShutdown(context.Background())
	if !ok {
		t.Errorf("GracefulShutdown() = false, %q; want success when not running", msg)
	}
	if c.WasRunningBeforeShutdown() {
		t.Error("WasRunningBeforeShutdown() = true, want false")
	}
	if len(fake.terminated) != 0 {
		t.Error("termination was invoked for a target that was not running")
	}
}

func TestGracefulShutdown_RecordsRunStateAndPath(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "steam")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeSignaller{
		procs:             []process.Proc{{PID: 100, Name: "steam"}},
		removeOnTerminate: true,
	}
	c := newTestController(t, fake, Config{InstallPaths: []string{exe}})

	ok, msg := c.GracefulShutdown(context.Background())
	if !ok {
		t.Fatalf("GracefulShutdown() = false, %q", msg)
	}
	if !c.WasRunningBeforeShutdown() {
		t.Error("WasRunningBeforeShutdown() = false, want true")
	}
	c.mu.Lock()
	got := c.discoveredPath
	c.mu.Unlock()
	if got != exe {
		t.Errorf("discovered path = %q, want %q", got, exe)
	}
}

func TestGracefulShutdown_TimeoutMessage(t *testing.T) {
	fake := &fakeSignaller{
		procs: []process.Proc{{PID: 100, Name: "steam"}},
		// Terminate and Kill both "succeed" but the process never leaves
		// the table, so closure never completes.
		killErrs: map[int32]error{100: syscall.EPERM},
	}
	c := newTestController(t, fake, Config{ShutdownTimeout: 10 * time.Second})

	ok, msg := c.GracefulShutdown(context.Background())
	if ok {
		t.Fatal("GracefulShutdown() = true while process refuses to die")
	}
	if want := "10s"; !strings.Contains(msg, want) {
		t.Errorf("message %q does not state the timeout %q", msg, want)
	}
}

func TestFindExecutablePath_ProbeOrder(t *testing.T) {
	dir := t.TempDir()
	second := filepath.Join(dir, "steam-second")
	if err := os.WriteFile(second, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{
		InstallPaths: []string{filepath.Join(dir, "missing"), second},
	})

	got, ok := c.FindExecutablePath(context.Background())
	if !ok || got != second {
		t.Errorf("FindExecutablePath() = %q, %v; want %q, true", got, ok, second)
	}
}

func TestFindExecutablePath_FallsBackToRunningProcess(t *testing.T) {
	fake := &fakeSignaller{
		procs:    []process.Proc{{PID: 100, Name: "steam"}},
		exePaths: map[int32]string{100: "/opt/steam/steam"},
	}
	c := newTestController(t, fake, Config{})

	got, ok := c.FindExecutablePath(context.Background())
	if !ok || got != "/opt/steam/steam" {
		t.Errorf("FindExecutablePath() = %q, %v; want process exe path", got, ok)
	}
}

func TestFindExecutablePath_NothingFound(t *testing.T) {
	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})

	if got, ok := c.FindExecutablePath(context.Background()); ok {
		t.Errorf("FindExecutablePath() = %q, true; want not found", got)
	}
}

func TestStart_UnresolvablePath(t *testing.T) {
	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})

	ok, msg := c.Start(context.Background(), "")
	if ok {
		t.Fatal("Start() = true with no resolvable path")
	}
	if !strings.Contains(msg, "not found") {
		t.Errorf("message %q should say the executable was not found", msg)
	}
}

func TestStart_LaunchedButNotDetected(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "steam")
	if err := os.WriteFile(exe, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})
	launched := false
	c.launch = func(string, []string) error {
		launched = true
		return nil
	}

	ok, msg := c.Start(context.Background(), exe)
	if ok {
		t.Fatal("Start() = true while nothing shows up in the process table")
	}
	if !launched {
		t.Error("launch was never attempted")
	}
	if !strings.Contains(msg, "not detected") {
		t.Errorf("message %q should distinguish launched-but-not-detected", msg)
	}
}

func TestStart_Success(t *testing.T) {
	exe := filepath.Join(t.TempDir(), "steam")
	if err := os.WriteFile(exe, []byte("x"), 0o755); err != nil {
		t.Fatal(err)
	}

	fake := &fakeSignaller{}
	c := newTestController(t, fake, Config{})
	c.launch = func(string, []string) error {
		fake.procs = []process.Proc{{PID: 200, Name: "steam"}}
		return nil
	}

	ok, msg := c.Start(context.Background(), exe)
	if !ok {
		t.Errorf("Start() = false, %q; want success", msg)
	}
}

func TestResetRunState(t *testing.T) {
	fake := &fakeSignaller{
		procs:             []process.Proc{{PID: 100, Name: "steam"}},
		removeOnTerminate: true,
	}
	c := newTestController(t, fake, Config{})

	if ok, msg := c.GracefulShutdown(context.Background()); !ok {
		t.Fatalf("GracefulShutdown() = false, %q", msg)
	}
	if !c.WasRunningBeforeShutdown() {
		t.Fatal("run state not recorded")
	}

	c.ResetRunState()
	if c.WasRunningBeforeShutdown() {
		t.Error("ResetRunState() did not clear wasRunning")
	}
}

