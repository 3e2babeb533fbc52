package ui

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// exportLog writes the current log pane to a timestamped file in the
// working directory and returns its path.
func exportLog(st *state, now time.Time) (string, error) {
	path := fmt.Sprintf("romdock-log-%s.txt", now.Format("20060102-150405"))

	var b strings.Builder
	b.WriteString("romdock log export\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n")
	b.WriteString("Status:   " + string(st.status) + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for _, line := range st.lines {
		fmt.Fprintf(&b, "[%s] %s\n", line.level, line.message)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return "", err
	}
	return path, nil
}
