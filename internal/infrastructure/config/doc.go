// Package config loads, validates, and persists romdock settings.
//
// Configuration is layered: hardcoded defaults, then the YAML file, then
// ROMDOCK_* environment variables, then validation. A file that fails
// validation is rejected at load time and never rewritten, so a bad edit
// cannot corrupt the persisted settings.
//
// The config file lives in the platform config directory
// (os.UserConfigDir()/romdock/config.yaml). A legacy file in the working
// directory is migrated there once, never overwriting an existing file.
package config
