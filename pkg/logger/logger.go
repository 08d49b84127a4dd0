package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// ServiceNameWidth is the fixed column width of the service name in console output
const ServiceNameWidth = 20

// Logger provides leveled logging on top of zap
type Logger struct {
	serviceName string
	version     string
	level       zap.AtomicLevel
	zl          *zap.Logger
}

// New creates a logger writing to stderr. Colors are enabled when stderr is a terminal.
func New(serviceName, version string) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "service",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       encodeServiceName,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: " ",
	}
	if isTerminal() {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
	return newLogger(serviceName, version, core, level)
}

// NewWithCore creates a logger on top of an existing zap core, used by tests and embedders
func NewWithCore(serviceName, version string, core zapcore.Core) *Logger {
	return newLogger(serviceName, version, core, zap.NewAtomicLevelAt(zapcore.DebugLevel))
}

func newLogger(serviceName, version string, core zapcore.Core, level zap.AtomicLevel) *Logger {
	return &Logger{
		serviceName: serviceName,
		version:     version,
		level:       level,
		zl:          zap.New(core).Named(serviceName).With(zap.String("version", version)),
	}
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// encodeServiceName truncates and pads the service name for consistent column width
func encodeServiceName(name string, enc zapcore.PrimitiveArrayEncoder) {
	if len(name) > ServiceNameWidth {
		name = name[:ServiceNameWidth-1] + "…"
	}
	enc.AppendString(fmt.Sprintf("[%-*s]", ServiceNameWidth, name))
}

// ParseLevel maps a configuration level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// SetLevel changes the minimum level written by the logger
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(parsed)
	return nil
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func (l *Logger) log(level zapcore.Level, message string, fields map[string]string) {
	if !l.level.Enabled(level) {
		return
	}
	ce := l.zl.Check(level, message)
	if ce == nil {
		return
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zfields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zfields = append(zfields, zap.String(k, fields[k]))
	}
	ce.Write(zfields...)
}

func formatMessage(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(zapcore.DebugLevel, formatMessage(message, args), nil)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(zapcore.DebugLevel, fmt.Sprintf(format, args...), nil)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(zapcore.InfoLevel, formatMessage(message, args), nil)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(zapcore.InfoLevel, fmt.Sprintf(format, args...), nil)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(zapcore.WarnLevel, formatMessage(message, args), nil)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(zapcore.WarnLevel, fmt.Sprintf(format, args...), nil)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, formatMessage(message, args), nil)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(zapcore.ErrorLevel, fmt.Sprintf(format, args...), nil)
}

// WithFields logs a message with additional fields
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{
		logger: l,
		fields: fields,
	}
}

// LogContext provides field-based logging
type LogContext struct {
	logger *Logger
	fields map[string]string
}

func (c *LogContext) Debug(message string) {
	c.logger.log(zapcore.DebugLevel, message, c.fields)
}

func (c *LogContext) Info(message string) {
	c.logger.log(zapcore.InfoLevel, message, c.fields)
}

func (c *LogContext) Warn(message string) {
	c.logger.log(zapcore.WarnLevel, message, c.fields)
}

func (c *LogContext) Error(message string) {
	c.logger.log(zapcore.ErrorLevel, message, c.fields)
}
