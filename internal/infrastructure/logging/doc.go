// Package logging provides structured logging for the ventana core service.
//
// It wraps log/slog so every component logs with the same handler and the
// same default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("reconciled", "device_id", id, "field", field)
//	logger.Error("upsert failed", "error", err)
//
// Never log push tokens, MQTT passwords or API tokens in full.
package logging
