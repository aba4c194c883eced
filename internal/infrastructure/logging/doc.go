// Package logging provides structured logging for the item provider.
//
// It wraps log/slog so every component logs the same way: JSON for
// production, text for development, with service and version attached to
// every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("items loaded", "items", 42)
//	logger.Error("item file reload failed", "line", 7, "error", err)
//
// Never log secrets such as the MQTT password or the InfluxDB token.
package logging
