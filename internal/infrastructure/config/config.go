package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Timeout bounds, in seconds. Values outside these ranges are rejected
// at load time.
const (
	MinSteamTimeout = 5
	MaxSteamTimeout = 300
	MinToolTimeout  = 10
	MaxToolTimeout  = 600
)

// dirPermissions is the permission mode for the config directory.
const dirPermissions = 0750

// filePermissions is the permission mode for the config file.
const filePermissions = 0600

// ToolPathAutoDetect is the sentinel meaning "probe conventional install
// locations instead of a fixed path".
const ToolPathAutoDetect = "auto-detect"

// Config is the root configuration structure for romdock.
// All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Tool     ToolConfig     `yaml:"tool"`
	Steam    SteamConfig    `yaml:"steam"`
	UI       UIConfig       `yaml:"ui"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
}

// ToolConfig contains Steam ROM Manager invocation settings.
type ToolConfig struct {
	// Path is the tool executable, or the "auto-detect" sentinel.
	Path string `yaml:"path"`

	// Command is the argument passed to the tool. Default: "add".
	Command string `yaml:"command"`

	// TimeoutSeconds bounds one tool invocation. Range: 10-600.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// BackupShortcuts copies Steam's shortcuts files aside before the
	// tool runs.
	BackupShortcuts bool `yaml:"backup_shortcuts"`
}

// SteamConfig contains Steam client control settings.
type SteamConfig struct {
	// ProcessNames override the platform defaults when non-empty.
	ProcessNames []string `yaml:"process_names,omitempty"`

	// InstallPaths override the platform defaults when non-empty.
	InstallPaths []string `yaml:"install_paths,omitempty"`

	// LaunchArgs are passed to Steam on relaunch.
	LaunchArgs []string `yaml:"launch_args,omitempty"`

	// ShutdownTimeoutSeconds bounds the closure wait. Range: 5-300.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds"`

	// RestartAfterCompletion relaunches Steam after a successful run if
	// it was running before.
	RestartAfterCompletion bool `yaml:"restart_after_completion"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "auto", "light", or "dark".
	Theme string `yaml:"theme"`

	// AutoStart begins a run as soon as the application opens.
	AutoStart bool `yaml:"auto_start"`

	// AutoCloseOnSuccess exits the application after a successful run.
	AutoCloseOnSuccess bool `yaml:"auto_close_on_success"`

	// AutoCloseDelaySeconds is the pause before auto-close.
	AutoCloseDelaySeconds int `yaml:"auto_close_delay_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is debug, info, warning, or error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	Output string `yaml:"output"`
}

// DatabaseConfig contains run history database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// SteamTimeout returns the shutdown timeout as a Duration.
func (c *Config) SteamTimeout() time.Duration {
	return time.Duration(c.Steam.ShutdownTimeoutSeconds) * time.Second
}

// ToolTimeout returns the tool invocation timeout as a Duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tool.TimeoutSeconds) * time.Second
}

// DefaultPath returns the platform-appropriate config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config directory: %w", err)
	}
	return filepath.Join(dir, "romdock", "config.yaml"), nil
}

// LegacyFilename is the config filename older versions wrote to the
// working directory.
const LegacyFilename = "romdock.yaml"

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern ROMDOCK_SECTION_KEY, for
// example ROMDOCK_TOOL_PATH or ROMDOCK_UI_THEME.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Tool: ToolConfig{
			Path:            ToolPathAutoDetect,
			Command:         "add",
			TimeoutSeconds:  120,
			BackupShortcuts: true,
		},
		Steam: SteamConfig{
			ShutdownTimeoutSeconds: 30,
			RestartAfterCompletion: true,
		},
		UI: UIConfig{
			Theme:                 "auto",
			AutoStart:             true,
			AutoCloseOnSuccess:    false,
			AutoCloseDelaySeconds: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Database: DatabaseConfig{
			Path:        defaultDatabasePath(),
			WALMode:     true,
			BusyTimeout: 5,
		},
	}
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./romdock.db"
	}
	return filepath.Join(dir, "romdock", "romdock.db")
}

// applyEnvOverrides applies ROMDOCK_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROMDOCK_TOOL_PATH"); v != "" {
		cfg.Tool.Path = v
	}
	if v := os.Getenv("ROMDOCK_TOOL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tool.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("ROMDOCK_STEAM_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Steam.ShutdownTimeoutSeconds = n
		}
	}
	if v := os.Getenv("ROMDOCK_UI_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if v := os.Getenv("ROMDOCK_UI_AUTO_START"); v != "" {
		cfg.UI.AutoStart = v == "true" || v == "1"
	}
	if v := os.Getenv("ROMDOCK_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ROMDOCK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Tool.TimeoutSeconds < MinToolTimeout || c.Tool.TimeoutSeconds > MaxToolTimeout {
		errs = append(errs, fmt.Sprintf("tool.timeout_seconds must be between %d and %d",
			MinToolTimeout, MaxToolTimeout))
	}
	if c.Steam.ShutdownTimeoutSeconds < MinSteamTimeout || c.Steam.ShutdownTimeoutSeconds > MaxSteamTimeout {
		errs = append(errs, fmt.Sprintf("steam.shutdown_timeout_seconds must be between %d and %d",
			MinSteamTimeout, MaxSteamTimeout))
	}

	switch strings.ToLower(c.UI.Theme) {
	case "auto", "light", "dark":
	default:
		errs = append(errs, "ui.theme must be auto, light, or dark")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warning", "warn", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warning, or error")
	}

	if c.UI.AutoCloseDelaySeconds < 0 {
		errs = append(errs, "ui.auto_close_delay_seconds must not be negative")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Save writes the configuration to path as YAML, creating the directory
// as needed. The file is written 0600.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// MigrateLegacy copies a legacy config file from the working directory
// to the new location. It never overwrites an existing file at the new
// location and reports whether a copy happened.
func MigrateLegacy(legacyPath, newPath string) (bool, error) {
	if _, err := os.Stat(legacyPath); err != nil {
		return false, nil // nothing to migrate
	}
	if _, err := os.Stat(newPath); err == nil {
		return false, nil // never overwrite
	}

	if err := os.MkdirAll(filepath.Dir(newPath), dirPermissions); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	src, err := os.Open(legacyPath)
	if err != nil {
		return false, fmt.Errorf("opening legacy config: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(newPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return false, fmt.Errorf("creating migrated config: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return false, fmt.Errorf("copying legacy config: %w", err)
	}

	return true, nil
}
