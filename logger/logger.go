// Package logger provides the logging abstraction used throughout go-soak,
// allowing the harness to run on top of a preferred logging backend.
//
// The Logger interface defines methods for logging messages at various severity
// levels (Trace, Debug, Info, Warn, Error, Fatal) and supports structured logging
// with key-value pairs.
//
// Log Levels:
//
//   - TraceLevel: Wire-level dumps of every line sent and received.
//   - DebugLevel: Per-round outcomes and reader diagnostics.
//   - InfoLevel:  Run start, progress and summaries.
//   - WarnLevel:  Recoverable transport or codec problems.
//   - ErrorLevel: Breaker trips and fatal transport failures.
//   - FatalLevel: Critical errors that cause program termination.
package logger

// LogLevel indicates the logging severity level.
type LogLevel int8

const (
	// TraceLevel logs every byte-level exchange with the peer.
	TraceLevel LogLevel = iota - 2
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If a soak run is healthy,
	// it shouldn't generate any error-level logs.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// String returns the lower-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case TraceLevel:
		return "trace"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// LevelFromVerbosity maps a repeated -v flag count to a log level.
//
// 0 selects InfoLevel, 1 selects DebugLevel and anything above selects TraceLevel.
func LevelFromVerbosity(verbosity int) LogLevel {
	switch {
	case verbosity <= 0:
		return InfoLevel
	case verbosity == 1:
		return DebugLevel
	default:
		return TraceLevel
	}
}

// Logger defines a common interface for logging.
type Logger interface {
	// Trace logs a message at TraceLevel.
	Trace(msg string, keysAndValues ...any)
	// Debug logs a message at DebugLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel.
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel
	// The message includes any fields passed at the log site, as well as any fields accumulated on the logger.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel
	//
	// The logger then calls os.Exit(1), even if logging at FatalLevel is disabled.
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger and adds structured context to it.
	// Key-values added to the child don't affect the parent, and vice versa.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() LogLevel
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level LogLevel)
}
