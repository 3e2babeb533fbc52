package ui

import (
	"github.com/gdamore/tcell/v2"

	"github.com/nerrad567/romdock/internal/automation"
)

// maxLogLines bounds the in-memory log; older lines scroll off.
const maxLogLines = 500

// logLine is one rendered log entry.
type logLine struct {
	message string
	level   automation.Level
}

// state is everything the draw pass needs. Mutated only from the UI
// loop goroutine.
type state struct {
	status      automation.Status
	progress    automation.Progress
	lines       []logLine
	confirmQuit bool
	notice      string
}

func (st *state) appendLog(message string, level automation.Level) {
	st.lines = append(st.lines, logLine{message: message, level: level})
	if len(st.lines) > maxLogLines {
		st.lines = st.lines[len(st.lines)-maxLogLines:]
	}
}

func (st *state) apply(ev automation.Event) {
	switch ev.Kind {
	case automation.EventProgress:
		st.progress = ev.Progress
	case automation.EventLog:
		st.appendLog(ev.Log.Message, ev.Log.Level)
	case automation.EventStatus:
		st.status = ev.Status
	}
}

// theme holds the style set for one colour scheme.
type theme struct {
	base     tcell.Style
	title    tcell.Style
	success  tcell.Style
	warning  tcell.Style
	errstyle tcell.Style
	bar      tcell.Style
}

// themeFor maps a configured theme name to styles. "auto" follows the
// terminal's own colours.
func themeFor(name string) theme {
	switch name {
	case "light":
		base := tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack)
		return theme{
			base:     base,
			title:    base.Bold(true),
			success:  base.Foreground(tcell.ColorDarkGreen),
			warning:  base.Foreground(tcell.ColorDarkOrange),
			errstyle: base.Foreground(tcell.ColorDarkRed),
			bar:      base.Background(tcell.ColorDarkBlue).Foreground(tcell.ColorWhite),
		}
	case "dark":
		base := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorSilver)
		return theme{
			base:     base,
			title:    base.Bold(true).Foreground(tcell.ColorWhite),
			success:  base.Foreground(tcell.ColorGreen),
			warning:  base.Foreground(tcell.ColorYellow),
			errstyle: base.Foreground(tcell.ColorRed),
			bar:      base.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite),
		}
	default:
		base := tcell.StyleDefault
		return theme{
			base:     base,
			title:    base.Bold(true),
			success:  base.Foreground(tcell.ColorGreen),
			warning:  base.Foreground(tcell.ColorYellow),
			errstyle: base.Foreground(tcell.ColorRed),
			bar:      base.Reverse(true),
		}
	}
}

func (t theme) styleFor(level automation.Level) tcell.Style {
	switch level {
	case automation.LevelSuccess:
		return t.success
	case automation.LevelWarning:
		return t.warning
	case automation.LevelError:
		return t.errstyle
	default:
		return t.base
	}
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		s.SetContent(col, y, r, nil, style)
		col++
	}
}

func truncateToWidth(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
