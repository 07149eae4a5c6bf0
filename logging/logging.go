// Package logging contains the logger used by the terrain engine and its tools.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global loggers.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewZapLoggerConfig returns a new default logger config.
func NewZapLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC.
func NewLogger(name string) Logger {
	return newStdoutLogger(name, INFO)
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout in UTC.
func NewDebugLogger(name string) Logger {
	return newStdoutLogger(name, DEBUG)
}

// NewBlankLogger returns a new logger that discards everything. It is useful when a caller
// requires a logger but the output is irrelevant.
func NewBlankLogger(name string) Logger {
	return newImpl(name, NewAtomicLevelAt(DEBUG), zapcore.NewNopCore())
}

func newStdoutLogger(name string, level Level) Logger {
	return newImpl(name, NewAtomicLevelAt(level), stdoutCore())
}

// NewFileLogger returns a logger that writes to stdout and also appends JSON lines to a size
// rotated file at path. Closing the returned closer releases the file.
func NewFileLogger(name, path string, level Level) (Logger, io.Closer) {
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
	}
	encoderConfig := NewZapLoggerConfig().EncoderConfig
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotating), zapcore.DebugLevel)
	return newImpl(name, NewAtomicLevelAt(level), zapcore.NewTee(stdoutCore(), fileCore)), rotating
}

func stdoutCore() zapcore.Core {
	config := NewZapLoggerConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoder(func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		zapcore.ISO8601TimeEncoder(t.UTC(), enc)
	})
	encoder := zapcore.NewConsoleEncoder(config.EncoderConfig)
	return zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)
}
