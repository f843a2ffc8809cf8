package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "PERIPHMON_LOG_LEVEL"

// LogFileEnvVar names a file to write logs to instead of stderr
const LogFileEnvVar = "PERIPHMON_LOG_FILE"

// Initialize creates a new logger with the specified level, writing to file
// when set and to stderr otherwise. The interactive monitor owns the
// terminal, so it should always be given a file.
//
// If level is empty, PERIPHMON_LOG_LEVEL is checked; if neither is set,
// logging is disabled (silent mode). The same fallback applies to file and
// PERIPHMON_LOG_FILE.
func Initialize(level, file string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if file == "" {
		file = os.Getenv(LogFileEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	output := "stderr"
	encodeLevel := zapcore.CapitalColorLevelEncoder
	if file != "" {
		output = file
		encodeLevel = zapcore.CapitalLevelEncoder
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = encodeLevel
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built

	return nil
}

// ParseLevel converts a level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// InitializeFromEnv initializes the logger from the PERIPHMON_LOG_LEVEL and
// PERIPHMON_LOG_FILE environment variables.
func InitializeFromEnv() error {
	return Initialize("", "")
}

// SetLogger replaces the global logger. Intended for tests.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		// This ensures no unexpected log output in CLI commands
		logger = zap.NewNop()
	}
	return logger
}

// Named returns a child of the global logger for one component
func Named(component string) *zap.Logger {
	return GetLogger().Named(component)
}

// Sync flushes buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogDiscovery logs the result of building the device catalog
func LogDiscovery(source string, counts map[string]int, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("source", source),
		zap.Duration("elapsed", elapsed),
	}
	total := 0
	for category, n := range counts {
		fields = append(fields, zap.Int(strings.ToLower(category), n))
		total += n
	}
	fields = append(fields, zap.Int("devices", total))

	Info("Device catalog built", fields...)
}

// LogEdit logs a user edit applied to a device
func LogEdit(category, device, op string, value interface{}) {
	Info("Device edited",
		zap.String("category", category),
		zap.String("device", device),
		zap.String("op", op),
		zap.Any("value", value),
	)
}

// LogFeedClient logs a network feed client event
func LogFeedClient(remoteAddr string, event string) {
	Info("Feed client event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs an HTTP request served by the feed
func LogHTTPRequest(remoteAddr string, method string, path string, status int) {
	Debug("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
	)
}
