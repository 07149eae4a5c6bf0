package logging

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging interface used throughout the engine. It mirrors the sugared zap
// logger so call sites read the same as plain zap.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<parent>.<subname>" that starts at the parent's level.
	Sublogger(subname string) Logger
	SetLevel(level Level)
	GetLevel() Level
	AsZap() *zap.SugaredLogger
	Sync() error
}

// Level is a logging level.
type Level int

// The supported levels, ordered by severity.
const (
	DEBUG Level = iota - 1
	INFO
	WARN
	ERROR
)

func (level Level) String() string {
	switch level {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	}
	panic(fmt.Sprintf("unreachable: %d", level))
}

// AsZap converts the level to the equivalent zap level.
func (level Level) AsZap() zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}
	panic(fmt.Sprintf("unreachable: %d", level))
}

// LevelFromString parses a level name, case-insensitively.
func LevelFromString(inp string) (Level, error) {
	switch strings.ToLower(inp) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return DEBUG, errors.Errorf("unknown log level: %q", inp)
}

// AtomicLevel is a level that can be safely changed while loggers are in use.
type AtomicLevel struct {
	level zap.AtomicLevel
}

// NewAtomicLevelAt creates a new AtomicLevel at the input level.
func NewAtomicLevelAt(initLevel Level) AtomicLevel {
	return AtomicLevel{zap.NewAtomicLevelAt(initLevel.AsZap())}
}

// Set changes the level.
func (level AtomicLevel) Set(newLevel Level) {
	level.level.SetLevel(newLevel.AsZap())
}

// Get returns the current level.
func (level AtomicLevel) Get() Level {
	switch level.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.InfoLevel:
		return INFO
	case zapcore.WarnLevel:
		return WARN
	default:
		return ERROR
	}
}

type impl struct {
	name  string
	level AtomicLevel
	core  zapcore.Core
	sugar *zap.SugaredLogger
}

func newImpl(name string, level AtomicLevel, core zapcore.Core) *impl {
	filtered := &levelFilterCore{Core: core, level: level.level}
	sugar := zap.New(filtered, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	if name != "" {
		sugar = sugar.Named(name)
	}
	return &impl{name: name, level: level, core: core, sugar: sugar}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return newImpl(newName, NewAtomicLevelAt(imp.level.Get()), imp.core)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.sugar.WithOptions(zap.AddCallerSkip(-1))
}

func (imp *impl) Sync() error {
	return imp.sugar.Sync()
}

func (imp *impl) Debug(args ...interface{}) {
	imp.sugar.Debug(args...)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.sugar.Debugf(template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) {
	imp.sugar.Info(args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.sugar.Infof(template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.sugar.Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.sugar.Warn(args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.sugar.Warnf(template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) {
	imp.sugar.Error(args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.sugar.Errorf(template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Errorw(msg, keysAndValues...)
}

// levelFilterCore gates an underlying core on the logger's own atomic level, so sibling
// subloggers sharing a core can run at different levels.
type levelFilterCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return checked
	}
	return c.Core.Check(entry, checked)
}
