package logger

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger = zap.NewNop().Sugar()
	globalSync   = func() error { return nil }
)

// Init initializes the process-wide logger.
// Files get JSON lines; the console gets the human readable encoder.
// With console disabled and no file, logging is discarded.
func Init(enabled bool, levelStr, logFile string, console bool) error {
	if !enabled {
		globalLogger = zap.NewNop().Sugar()
		globalSync = func() error { return nil }
		return nil
	}

	level := parseLevel(levelStr)
	var cores []zapcore.Core

	if logFile != "" {
		dir := filepath.Dir(logFile)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return errors.Wrap(err, "failed to create log directory")
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
	}

	if console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), level))
	}

	if len(cores) == 0 {
		globalLogger = zap.NewNop().Sugar()
		globalSync = func() error { return nil }
		return nil
	}

	l := zap.New(zapcore.NewTee(cores...))
	globalLogger = l.Sugar()
	globalSync = l.Sync
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	_ = globalSync()
}

func parseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	globalLogger.Debugf(format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	globalLogger.Infof(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	globalLogger.Warnf(format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	globalLogger.Errorf(format, args...)
}
