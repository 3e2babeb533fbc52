package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/nerrad567/romdock/internal/automation"
)

// Fixed rows above the log pane: title, status, progress, keys, spacer.
const logPaneTop = 5

func (a *App) draw(s tcell.Screen, st *state) {
	s.Clear()
	w, h := s.Size()

	putString(s, 0, 0, truncateToWidth("romdock — Steam ROM Manager automation", w), a.theme.title)
	putString(s, 0, 1, truncateToWidth(a.statusLine(st), w), a.statusStyle(st.status))
	a.drawProgressBar(s, st, 2, w)

	keys := "s start | e export log | q quit"
	if st.notice != "" {
		keys = st.notice
	}
	putString(s, 0, 3, truncateToWidth(keys, w), a.theme.base)

	a.drawLogPane(s, st, logPaneTop, w, h)
	s.Show()
}

func (a *App) statusLine(st *state) string {
	label := strings.ToUpper(string(st.status))
	if st.progress.Message != "" {
		return fmt.Sprintf("● %s — %s %s", label, st.progress.Icon, st.progress.Message)
	}
	return "● " + label
}

func (a *App) statusStyle(status automation.Status) tcell.Style {
	switch status {
	case automation.StatusSuccess:
		return a.theme.success
	case automation.StatusFailed:
		return a.theme.errstyle
	case automation.StatusRunning:
		return a.theme.warning
	default:
		return a.theme.base
	}
}

func (a *App) drawProgressBar(s tcell.Screen, st *state, y, w int) {
	label := fmt.Sprintf(" Step %d/4 %3d%% ", st.progress.Step, st.progress.Percentage)
	barWidth := w - len(label)
	if barWidth < 10 {
		putString(s, 0, y, truncateToWidth(label, w), a.theme.base)
		return
	}

	filled := barWidth * st.progress.Percentage / 100
	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		if i < filled {
			b.WriteRune('█')
		} else {
			b.WriteRune('░')
		}
	}

	putString(s, 0, y, label, a.theme.base)
	putString(s, len(label), y, b.String(), a.theme.bar)
}

// drawLogPane renders the newest lines that fit, oldest at the top.
func (a *App) drawLogPane(s tcell.Screen, st *state, top, w, h int) {
	rows := h - top
	if rows <= 0 {
		return
	}

	lines := st.lines
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	for i, line := range lines {
		putString(s, 0, top+i, truncateToWidth(line.message, w), a.theme.styleFor(line.level))
	}
}
