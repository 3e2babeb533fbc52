// Package logging provides structured logging for romdock.
//
// It wraps log/slog with level filtering, text or JSON output, default
// fields (service, version), and optional file output. Configured via
// the logging section of config.yaml:
//
//	logging:
//	  level: "info"     # debug, info, warning, error
//	  format: "text"    # text, json
//	  output: "stderr"  # stdout, stderr, or a file path
//
// All methods are safe for concurrent use.
package logging
