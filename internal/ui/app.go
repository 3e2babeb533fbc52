package ui

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/nerrad567/romdock/internal/automation"
)

// Config holds presentation settings for the UI loop.
type Config struct {
	// Theme is "auto", "light", or "dark".
	Theme string

	// AutoStart begins a run as soon as the loop is up.
	AutoStart bool

	// AutoCloseOnSuccess exits after a successful run, once
	// AutoCloseDelay has passed.
	AutoCloseOnSuccess bool
	AutoCloseDelay     time.Duration
}

// Logger defines the logging interface for the UI.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// App is the terminal interface. It consumes engine events and issues
// start requests; it never reaches into the engine's state directly.
type App struct {
	cfg    Config
	engine *automation.Engine
	logger Logger
	theme  theme

	// newScreen allows a simulation screen to stand in for the real
	// terminal.
	newScreen func() (tcell.Screen, error)
}

// New creates the terminal interface.
func New(cfg Config, engine *automation.Engine, logger Logger) *App {
	return &App{
		cfg:       cfg,
		engine:    engine,
		logger:    logger,
		theme:     themeFor(cfg.Theme),
		newScreen: tcell.NewScreen,
	}
}

// Run drives the UI until the user quits, auto-close fires, or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	screen, err := a.newScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.SetStyle(a.theme.base)

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	st := &state{status: a.engine.Status()}

	if a.logger != nil {
		a.logger.Debug("ui loop started", "theme", a.cfg.Theme, "auto_start", a.cfg.AutoStart)
	}

	if a.cfg.AutoStart {
		a.startRun(ctx, st)
	}

	var autoCloseAt time.Time

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		a.draw(screen, st)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev := <-a.engine.Events():
			st.apply(ev)
			if ev.Kind == automation.EventStatus && ev.Status == automation.StatusSuccess &&
				a.cfg.AutoCloseOnSuccess {
				autoCloseAt = time.Now().Add(a.cfg.AutoCloseDelay)
				st.notice = "Closing automatically..."
			}

		case ev := <-events:
			switch tev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				if quit := a.handleKey(ctx, tev, st); quit {
					return nil
				}
			}

		case <-tick.C:
			if !autoCloseAt.IsZero() && time.Now().After(autoCloseAt) {
				return nil
			}
		}
	}
}

// handleKey processes one key press; a true return exits the loop.
func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey, st *state) bool {
	if st.confirmQuit {
		switch ev.Rune() {
		case 'y', 'Y':
			return true
		default:
			st.confirmQuit = false
			st.notice = ""
		}
		return false
	}

	switch ev.Rune() {
	case 's', 'S':
		a.startRun(ctx, st)
	case 'e', 'E':
		path, err := exportLog(st, time.Now())
		if err != nil {
			st.appendLog("✗ Log export failed: "+err.Error(), automation.LevelError)
		} else {
			st.appendLog("✓ Log exported to "+path, automation.LevelSuccess)
		}
	case 'q', 'Q':
		if st.status == automation.StatusRunning {
			st.confirmQuit = true
			st.notice = "Run in progress. Quit anyway? (y/n)"
			return false
		}
		return true
	}

	if ev.Key() == tcell.KeyCtrlC {
		return true
	}
	return false
}

func (a *App) startRun(ctx context.Context, st *state) {
	if err := a.engine.Start(ctx); err != nil {
		if errors.Is(err, automation.ErrRunInProgress) {
			st.appendLog("⚠ A run is already in progress", automation.LevelWarning)
			return
		}
		st.appendLog("✗ Could not start run: "+err.Error(), automation.LevelError)
		return
	}
	st.appendLog("🚀 Starting Steam ROM Manager automation...", automation.LevelInfo)
}
