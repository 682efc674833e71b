// Package logging provides structured logging for domotic nodes.
//
// It wraps Go's log/slog so that every component (dispatcher, relay client,
// UDP server, bridges) logs with the same fields and format.
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
//	logger.Component("server").Info("listening", "addr", ":9999")
package logging
