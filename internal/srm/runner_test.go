//go:build !windows

package srm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeScript drops an executable shell script into dir and returns its
// path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	regular := writeScript(t, dir, "srm", "exit 0")

	tests := []struct {
		name       string
		path       string
		wantValid  bool
		wantReason string
	}{
		{
			name:       "empty path",
			path:       "",
			wantValid:  false,
			wantReason: "no Steam ROM Manager path configured",
		},
		{
			name:       "auto-detect sentinel",
			path:       PathAutoDetect,
			wantValid:  false,
			wantReason: "no Steam ROM Manager path configured",
		},
		{
			name:       "nonexistent file",
			path:       filepath.Join(dir, "missing"),
			wantValid:  false,
			wantReason: "file does not exist",
		},
		{
			name:       "directory",
			path:       dir,
			wantValid:  false,
			wantReason: "path is not a file",
		},
		{
			name:       "regular executable",
			path:       regular,
			wantValid:  true,
			wantReason: "valid executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(tt.path, time.Minute)
			valid, reason := r.ValidatePath()
			if valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", valid, tt.wantValid)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestExecute_Success(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "srm", `echo "parsed 12 titles"`)

	r := NewRunner(path, time.Minute)
	ok, output, err := r.Execute(context.Background(), CommandAdd)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !ok {
		t.Error("ok = false, want true")
	}
	if output != "parsed 12 titles" {
		t.Errorf("output = %q, want %q", output, "parsed 12 titles")
	}
}

func TestExecute_NonZeroExitIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "srm", `echo "parser config broken" >&2; exit 1`)

	r := NewRunner(path, time.Minute)
	ok, output, err := r.Execute(context.Background(), CommandAdd)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil for exit-code failure", err)
	}
	if ok {
		t.Error("ok = true, want false")
	}
	if !strings.Contains(output, "parser config broken") {
		t.Errorf("output = %q, want stderr content captured", output)
	}
}

func TestExecute_CombinesStdoutAndStderr(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "srm", `printf first; printf second >&2`)

	r := NewRunner(path, time.Minute)
	_, output, err := r.Execute(context.Background(), CommandAdd)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if output != "firstsecond" {
		t.Errorf("output = %q, want stdout before stderr", output)
	}
}

func TestExecute_RunsFromExecutableDirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "srm", "pwd")

	r := NewRunner(path, time.Minute)
	_, output, err := r.Execute(context.Background(), CommandAdd)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Resolve symlinks; macOS tempdirs live under /private.
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(output)
	if got != want {
		t.Errorf("working directory = %q, want %q", got, want)
	}
}

func TestExecute_Timeout(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "srm", "sleep 10")

	r := NewRunner(path, 100*time.Millisecond)
	ok, _, err := r.Execute(context.Background(), CommandAdd)
	if ok {
		t.Error("ok = true, want false")
	}

	var toolErr *Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if !toolErr.Timeout {
		t.Error("Timeout = false, want true")
	}
	if !strings.Contains(toolErr.Error(), "100ms") {
		t.Errorf("error message %q should state the timeout", toolErr.Error())
	}
}

func TestExecute_InvalidPathReturnsError(t *testing.T) {
	r := NewRunner("", time.Minute)
	ok, output, err := r.Execute(context.Background(), CommandAdd)
	if ok {
		t.Error("ok = true, want false")
	}
	if output != "" {
		t.Errorf("output = %q, want empty", output)
	}

	var toolErr *Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if toolErr.Timeout {
		t.Error("Timeout = true, want false")
	}
	if !strings.Contains(toolErr.Error(), "no Steam ROM Manager path configured") {
		t.Errorf("error message %q should carry the validation reason", toolErr.Error())
	}
}

func TestExecute_SpawnFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "srm")
	if err := os.WriteFile(path, []byte("not a binary"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	r := NewRunner(path, time.Minute)
	ok, _, err := r.Execute(context.Background(), CommandAdd)
	if ok {
		t.Error("ok = true, want false")
	}

	var toolErr *Error
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if toolErr.Timeout {
		t.Error("Timeout = true, want false")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Err: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}
