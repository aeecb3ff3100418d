package pkg

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentEngine   Component = "engine"
	ComponentBackend  Component = "backend"
	ComponentSysfs    Component = "sysfs"
	ComponentDebugfs  Component = "debugfs"
	ComponentSnapshot Component = "snapshot"
	ComponentDecode   Component = "decode"
	ComponentCLI      Component = "cli"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatConsole LogFormat = iota // Console format (default)
	LogFormatJSON                     // JSON format
)

// ParseLogFormat maps "console" or "json" to a LogFormat.
func ParseLogFormat(s string) (LogFormat, bool) {
	switch s {
	case "", "console", "text":
		return LogFormatConsole, true
	case "json":
		return LogFormatJSON, true
	}
	return LogFormatConsole, false
}

var (
	// DefaultLogger is the logger used by the package-level Log functions.
	DefaultLogger *zap.Logger

	// logLevel controls the minimum log level.
	logLevel = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	DefaultLogger = NewLogger(os.Stderr, nil)
}

// SetLogLevel sets the minimum log level for all logging through the
// package-level functions and loggers created with a nil level.
func SetLogLevel(level zapcore.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.SetLevel(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() zapcore.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// ParseLogLevel parses a level name such as "debug" or "warn".
func ParseLogLevel(s string) (zapcore.Level, error) {
	lvl, err := zap.ParseAtomicLevel(s)
	if err != nil {
		return zapcore.WarnLevel, err
	}
	return lvl.Level(), nil
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger *zap.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr and uses the current log level.
func SetLogFormat(format LogFormat) {
	var logger *zap.Logger
	switch format {
	case LogFormatJSON:
		logger = NewJSONLogger(os.Stderr, nil)
	default:
		logger = NewLogger(os.Stderr, nil)
	}
	SetLogger(logger)
}

// NewLogger creates a console logger writing to w. A nil level uses the
// package-wide level.
func NewLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	return newLogger(zapcore.NewConsoleEncoder(cfg), w, level)
}

// NewJSONLogger creates a JSON logger writing to w. A nil level uses the
// package-wide level.
func NewJSONLogger(w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return newLogger(zapcore.NewJSONEncoder(cfg), w, level)
}

func newLogger(enc zapcore.Encoder, w io.Writer, level zapcore.LevelEnabler) *zap.Logger {
	if level == nil {
		level = logLevel
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}

func logger() *zap.SugaredLogger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger.Sugar()
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logger().Debugw(msg, append([]any{"component", string(component)}, args...)...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logger().Infow(msg, append([]any{"component", string(component)}, args...)...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logger().Warnw(msg, append([]any{"component", string(component)}, args...)...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logger().Errorw(msg, append([]any{"component", string(component)}, args...)...)
}

// Sync flushes any buffered output of the default logger.
func Sync() {
	_ = logger().Sync()
}
