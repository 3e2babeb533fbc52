package srm

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setGOOS pins the platform validation rules for the duration of a test.
func setGOOS(t *testing.T, goos string) {
	t.Helper()
	orig := currentGOOS
	currentGOOS = goos
	t.Cleanup(func() { currentGOOS = orig })
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("binary"), 0o755); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return path
}

func TestValidatePath_WindowsRequiresExeExtension(t *testing.T) {
	setGOOS(t, "windows")
	dir := t.TempDir()

	tests := []struct {
		name       string
		file       string
		wantValid  bool
		wantReason string
	}{
		{
			name:       "no extension",
			file:       "srm",
			wantValid:  false,
			wantReason: "must be an .exe file on Windows",
		},
		{
			name:       "wrong extension",
			file:       "srm.bat",
			wantValid:  false,
			wantReason: "must be an .exe file on Windows",
		},
		{
			name:       "exe extension",
			file:       "srm.exe",
			wantValid:  true,
			wantReason: "valid executable",
		},
		{
			name:       "uppercase exe extension",
			file:       "SRM.EXE",
			wantValid:  true,
			wantReason: "valid executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(writeFile(t, dir, tt.file), time.Minute)
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

func TestReconfigure_ReplacesPathAndTimeout(t *testing.T) {
	setGOOS(t, "linux")
	r := NewRunner("", time.Minute)

	if valid, _ := r.ValidatePath(); valid {
		t.Fatal("empty path should not validate")
	}

	path := writeFile(t, t.TempDir(), "steam-rom-manager")
	r.Reconfigure(path, 30*time.Second)

	if r.Path() != path {
		t.Errorf("Path() = %q, want %q", r.Path(), path)
	}
	if valid, reason := r.ValidatePath(); !valid {
		t.Errorf("reconfigured path should validate, got %q", reason)
	}
}

func TestValidatePath_NoExtensionRequiredElsewhere(t *testing.T) {
	setGOOS(t, "linux")

	r := NewRunner(writeFile(t, t.TempDir(), "steam-rom-manager"), time.Minute)
	valid, reason := r.ValidatePath()
	if !valid {
		t.Errorf("valid = false (%q), extension must not matter off Windows", reason)
	}
}
