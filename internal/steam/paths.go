package steam

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultProcessNames returns the executable names treated as Steam on
// this platform. The Windows client splits into a service and one
// webhelper per window; all of them must be gone before library files
// can be touched safely.
func DefaultProcessNames() []string {
	if runtime.GOOS == "windows" {
		return []string{"steam.exe", "steamservice.exe", "steamwebhelper.exe"}
	}
	return []string{"steam", "steamwebhelper"}
}

// DefaultInstallPaths returns the conventional Steam executable
// locations for this platform, in probe priority order.
func DefaultInstallPaths() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			`C:\Program Files (x86)\Steam\steam.exe`,
			`C:\Program Files\Steam\steam.exe`,
		}
	case "darwin":
		return []string{
			"/Applications/Steam.app/Contents/MacOS/steam_osx",
		}
	default:
		home, err := os.UserHomeDir()
		paths := []string{
			"/usr/bin/steam",
			"/usr/games/steam",
		}
		if err == nil {
			paths = append(paths,
				filepath.Join(home, ".steam", "steam", "steam.sh"),
				filepath.Join(home, ".local", "share", "Steam", "steam.sh"),
			)
		}
		return paths
	}
}
