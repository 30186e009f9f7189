// Package logging provides structured logging for the Insteon bridge.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("sync complete", "device", "1a.2b.3c", "records", 14)
//	logger.Error("failed to connect", "error", err)
//
// # Security
//
// Never log secrets or broker credentials. Use field redaction for
// sensitive data:
//
//	logger.Info("token used", "token_prefix", token[:8]+"...")
package logging
