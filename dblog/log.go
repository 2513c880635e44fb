// Package dblog holds the process-wide leveled logger of fleure-db.
package dblog

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel int

// L is set up by main; until then it logs warnings and errors to stderr.
var L *Logger

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func init() {
	L = NewWriterLogger(WARN, os.Stderr)
}

type Logger struct {
	level   zap.AtomicLevel
	sugar   *zap.SugaredLogger
	logFile *os.File
}

// LevelFromVerbosity maps the -v count of the CLI: 0 -> WARN, 1 -> INFO,
// 2 or more -> DEBUG.
func LevelFromVerbosity(verbosity int) LogLevel {
	switch {
	case verbosity <= 0:
		return WARN
	case verbosity == 1:
		return INFO
	default:
		return DEBUG
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARN:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// NewLogger logs to logFilePath, or to stderr if the path is empty.
func NewLogger(level LogLevel, logFilePath string) (*Logger, error) {
	if logFilePath == "" {
		return NewWriterLogger(level, os.Stderr), nil
	}

	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	l := NewWriterLogger(level, logFile)
	l.logFile = logFile
	return l, nil
}

func NewWriterLogger(level LogLevel, w io.Writer) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), atom)

	return &Logger{
		level: atom,
		sugar: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar(),
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) Enabled(level LogLevel) bool {
	return l.level.Enabled(level.zapLevel())
}

func (l *Logger) Close() {
	_ = l.sugar.Sync()
	if l.logFile != nil {
		l.logFile.Close()
	}
}

func (l *Logger) logMessage(level LogLevel, format string, v ...interface{}) {
	var msg string
	if format == "" {
		msg = fmt.Sprint(v...)
	} else {
		msg = fmt.Sprintf(format, v...)
	}

	switch level {
	case DEBUG:
		l.sugar.Debug(msg)
	case INFO:
		l.sugar.Info(msg)
	case WARN:
		l.sugar.Warn(msg)
	default:
		l.sugar.Error(msg)
	}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.logMessage(DEBUG, format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.logMessage(INFO, format, v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.logMessage(WARN, format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.logMessage(ERROR, format, v...)
}
