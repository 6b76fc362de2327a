package logger

import (
	"go.uber.org/zap"
)

// Verbosity controls how much of the tool's log output is emitted.
type Verbosity int

const (
	// LevelBasic emits only errors and warnings (silent on success).
	LevelBasic Verbosity = iota

	// LevelNormal additionally emits info messages.
	LevelNormal

	// LevelDetailed additionally emits debug messages.
	LevelDetailed
)

// String returns the verbosity level name.
func (v Verbosity) String() string {
	switch v {
	case LevelBasic:
		return "basic"
	case LevelNormal:
		return "normal"
	case LevelDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// ParseVerbosity parses a verbosity level name. Unknown names map to LevelNormal.
func ParseVerbosity(s string) Verbosity {
	switch s {
	case "basic":
		return LevelBasic
	case "detailed":
		return LevelDetailed
	default:
		return LevelNormal
	}
}

// VerboseLogger wraps a zap.Logger with verbosity-based logging.
// It abstracts the mapping between Verbosity and actual log output.
//
// Logging behavior by verbosity level:
//   - LevelBasic: Only Error and Warn are output (silent on success)
//   - LevelNormal: Error, Warn, and Info are output
//   - LevelDetailed: Error, Warn, Info, and Debug are output
type VerboseLogger struct {
	logger    *zap.Logger
	verbosity Verbosity
}

// New creates a new VerboseLogger with the given zap.Logger and verbosity level.
func New(logger *zap.Logger, verbosity Verbosity) *VerboseLogger {
	return &VerboseLogger{
		logger:    logger,
		verbosity: verbosity,
	}
}

// Info logs a message at Info level if verbosity >= LevelNormal.
func (l *VerboseLogger) Info(msg string, fields ...zap.Field) {
	if l.verbosity >= LevelNormal {
		l.logger.Info(msg, fields...)
	}
}

// Debug logs a message at Debug level if verbosity >= LevelDetailed.
func (l *VerboseLogger) Debug(msg string, fields ...zap.Field) {
	if l.verbosity >= LevelDetailed {
		l.logger.Debug(msg, fields...)
	}
}

// Error logs an error message. This is always output regardless of verbosity.
func (l *VerboseLogger) Error(msg string, fields ...zap.Field) {
	l.logger.Error(msg, fields...)
}

// Warn logs a warning message. This is always output regardless of verbosity.
func (l *VerboseLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Warn(msg, fields...)
}

// GetVerbosity returns the current verbosity level.
func (l *VerboseLogger) GetVerbosity() Verbosity {
	return l.verbosity
}

// Underlying returns the underlying zap.Logger.
// Use this when you need direct access to the logger (e.g., for third-party libraries).
func (l *VerboseLogger) Underlying() *zap.Logger {
	return l.logger
}

// IsNormal returns true if verbosity allows normal-level logging (Info).
func (l *VerboseLogger) IsNormal() bool {
	return l.verbosity >= LevelNormal
}

// IsDetailed returns true if verbosity allows detailed-level logging (Debug).
func (l *VerboseLogger) IsDetailed() bool {
	return l.verbosity >= LevelDetailed
}
