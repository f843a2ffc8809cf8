// Package logging provides structured logging for periphmon.
//
// This package wraps a global zap logger with convenience functions. Logging
// is silent unless a level is given on the command line, in the config file,
// or through PERIPHMON_LOG_LEVEL.
//
// # Log Levels
//
//   - Debug: Poller ticks, batch sequence numbers, HTTP requests
//   - Info: Catalog built, engine start/stop, user edits, feed clients
//   - Warn: Failed device reads and writes, categories that cannot be polled
//   - Error: Startup failures
//
// # Output
//
// The interactive monitor draws on the terminal, so logs must go to a file:
//
//	periphmon --log-level debug --log-file /tmp/periphmon.log
//
// Without a file, logs are written to stderr in console format.
//
// # Structured Logging
//
// Components take a *zap.Logger (see Named) and log with fields:
//
//	logger.Warn("Device read failed",
//	    zap.String("category", "HWMON"),
//	    zap.String("device", "temp"),
//	    zap.Error(err),
//	)
package logging
