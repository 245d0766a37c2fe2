// Package logging provides structured logging for DevBind.
//
// It wraps log/slog so every component logs the same way:
//
//   - JSON output by default, text for development
//   - service and version fields on every entry
//   - level filtering (debug, info, warn, error)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	engine := devfile.NewEngine(devfile.EngineOptions{Logger: logger.Component("devfile")})
//
// Device payloads are logged at debug level only. Never log the JWT secret or
// MQTT credentials.
package logging
