// romdock automates the Steam ROM Manager workflow: close Steam, run
// the tool against the library, and bring Steam back up.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nerrad567/romdock/internal/automation"
	"github.com/nerrad567/romdock/internal/history"
	"github.com/nerrad567/romdock/internal/infrastructure/config"
	"github.com/nerrad567/romdock/internal/infrastructure/database"
	"github.com/nerrad567/romdock/internal/infrastructure/logging"
	"github.com/nerrad567/romdock/internal/process"
	"github.com/nerrad567/romdock/internal/srm"
	"github.com/nerrad567/romdock/internal/steam"
	"github.com/nerrad567/romdock/internal/ui"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("romdock", flag.ContinueOnError)
	configFlag := flags.String("config", "", "path to config file (default: platform config dir)")
	noUI := flags.Bool("no-ui", false, "run once without the terminal interface")
	if err := flags.Parse(args); err != nil {
		return err
	}

	log := logging.Default()
	log.Info("starting romdock", "version", version, "commit", commit, "build_date", date)

	configPath, err := resolveConfigPath(*configFlag)
	if err != nil {
		return err
	}

	// A legacy config in the working directory moves to the platform
	// location once; an existing file there always wins.
	legacyPath := filepath.Join(".", config.LegacyFilename)
	if migrated, migErr := config.MigrateLegacy(legacyPath, configPath); migErr != nil {
		log.Warn("legacy config migration failed", "error", migErr)
	} else if migrated {
		log.Info("migrated legacy config", "from", legacyPath, "to", configPath)
	}

	cfg := loadConfig(configPath, log)

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("run history database ready", "path", db.Path())

	runStore := history.NewSQLiteRepository(db.DB)

	controller, err := steam.NewController(steam.Config{
		ProcessNames:    cfg.Steam.ProcessNames,
		InstallPaths:    cfg.Steam.InstallPaths,
		LaunchArgs:      cfg.Steam.LaunchArgs,
		ShutdownTimeout: cfg.SteamTimeout(),
	}, process.NewSystemLister())
	if err != nil {
		return fmt.Errorf("configuring steam controller: %w", err)
	}
	controller.SetLogger(log.With("component", "steam"))

	toolPath := resolveToolPath(cfg, configPath, log)
	runner := srm.NewRunner(toolPath, cfg.ToolTimeout())

	preflight(ctx, controller, runner, log)

	engine := automation.NewEngine(automation.Config{
		ToolCommand:  cfg.Tool.Command,
		RestartSteam: cfg.Steam.RestartAfterCompletion,
	}, controller, runner, runStore, log.With("component", "automation"))

	// Settings edited on disk apply between runs without a restart.
	watcher, err := config.NewWatcher(configPath)
	if err != nil {
		log.Warn("config watcher unavailable, settings changes need a restart", "error", err)
	} else if startErr := watcher.Start(ctx); startErr != nil {
		log.Warn("config watcher failed to start", "error", startErr)
		watcher.Stop()
	} else {
		defer watcher.Stop()
		go applyReloads(ctx, watcher.Events(), engine, runner, log.With("component", "config"))
	}

	if *noUI {
		return runHeadless(ctx, engine, log)
	}

	app := ui.New(ui.Config{
		Theme:              cfg.UI.Theme,
		AutoStart:          cfg.UI.AutoStart,
		AutoCloseOnSuccess: cfg.UI.AutoCloseOnSuccess,
		AutoCloseDelay:     time.Duration(cfg.UI.AutoCloseDelaySeconds) * time.Second,
	}, engine, log.With("component", "ui"))

	return app.Run(ctx)
}

// resolveConfigPath picks the explicit flag value, else the platform
// default.
func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the config file, falling back to defaults when the
// file is absent or invalid. An invalid file is never overwritten; a
// missing one is seeded with defaults.
func loadConfig(path string, log *logging.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg
	}

	if os.IsNotExist(err) {
		cfg = config.Default()
		if saveErr := cfg.Save(path); saveErr != nil {
			log.Warn("could not write default config", "path", path, "error", saveErr)
		} else {
			log.Info("created default config", "path", path)
		}
		return cfg
	}

	log.Error("invalid config, using defaults", "path", path, "error", err)
	return config.Default()
}

// resolveToolPath turns the auto-detect sentinel into a concrete path
// when possible, persisting the detection for next start.
func resolveToolPath(cfg *config.Config, configPath string, log *logging.Logger) string {
	if cfg.Tool.Path != config.ToolPathAutoDetect {
		return cfg.Tool.Path
	}

	detected, ok := srm.AutoDetect()
	if !ok {
		log.Warn("Steam ROM Manager not found in conventional locations")
		return cfg.Tool.Path
	}

	log.Info("auto-detected Steam ROM Manager", "path", detected)
	cfg.Tool.Path = detected
	if err := cfg.Save(configPath); err != nil {
		log.Warn("auto-detected tool path but failed to save config", "error", err)
	}
	return detected
}

// applyReloads folds config reload events into the running components
// until ctx is cancelled or the channel closes.
func applyReloads(ctx context.Context, events <-chan config.Event, engine *automation.Engine, runner *srm.Runner, log *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Error != nil {
				log.Warn("config reload failed, keeping current settings", "error", ev.Error)
				continue
			}
			applySettings(ev.Config, engine, runner, log)
		}
	}
}

// applySettings pushes reloaded settings into the components that accept
// them between runs: the tool path and timeout, the tool command, and
// the relaunch toggle. A run in flight keeps the snapshot it started
// with; the Steam shutdown timeout stays fixed for the process lifetime.
func applySettings(cfg *config.Config, engine *automation.Engine, runner *srm.Runner, log *logging.Logger) {
	toolPath := cfg.Tool.Path
	if toolPath == config.ToolPathAutoDetect {
		if detected, ok := srm.AutoDetect(); ok {
			toolPath = detected
		}
	}

	runner.Reconfigure(toolPath, cfg.ToolTimeout())
	engine.SetConfig(automation.Config{
		ToolCommand:  cfg.Tool.Command,
		RestartSteam: cfg.Steam.RestartAfterCompletion,
	})

	log.Info("settings reloaded",
		"tool_path", toolPath,
		"tool_timeout", cfg.ToolTimeout(),
		"restart_steam", cfg.Steam.RestartAfterCompletion,
	)
}

// preflight reports on the environment before any run. Findings are
// informational; the run itself re-validates everything it needs.
func preflight(ctx context.Context, controller *steam.Controller, runner *srm.Runner, log *logging.Logger) {
	if _, ok := controller.FindExecutablePath(ctx); ok {
		log.Info("Steam installation found")
	} else {
		log.Warn("Steam installation not found in common locations")
	}

	if valid, reason := runner.ValidatePath(); valid {
		log.Info("Steam ROM Manager path valid", "path", runner.Path())
	} else {
		log.Warn("Steam ROM Manager path not usable", "reason", reason)
	}
}

// runHeadless executes one run without the terminal interface, logging
// engine events as they arrive. The returned error is non-nil unless
// the run succeeds.
func runHeadless(ctx context.Context, engine *automation.Engine, log *logging.Logger) error {
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-engine.Events():
			switch ev.Kind {
			case automation.EventLog:
				logEvent(log, ev.Log)
			case automation.EventProgress:
				log.Debug("progress", "step", ev.Progress.Step, "percentage", ev.Progress.Percentage,
					"message", ev.Progress.Message)
			case automation.EventStatus:
				if !ev.Status.Terminal() {
					continue
				}
				if ev.Status != automation.StatusSuccess {
					return fmt.Errorf("run finished with status %s", ev.Status)
				}
				return nil
			}
		}
	}
}

func logEvent(log *logging.Logger, entry automation.LogEntry) {
	switch entry.Level {
	case automation.LevelWarning:
		log.Warn(entry.Message)
	case automation.LevelError:
		log.Error(entry.Message)
	default:
		log.Info(entry.Message)
	}
}
