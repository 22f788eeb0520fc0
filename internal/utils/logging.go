// internal/utils/logging.go
package utils

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultLogFileName = "artifactory-sync.log"
	LogFileMaxSizeMB   = 10
	LogFileMaxBackups  = 3
	LogFileMaxAgeDays  = 28
)

var Logger = zap.NewNop()

// LogOptions controls where and how verbosely the CLI logs.
type LogOptions struct {
	// Level is a zap level name ("debug", "info", ...). Empty means info.
	Level string
	// File is the JSON log file path. Empty disables the file sink.
	File string
}

// Init configures zap to write to the console and, when a file is configured,
// to a size-rotated JSON log file.
// This should be called once at application startup.
func Init(opts LogOptions) error {
	// Configure encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("unknown log level '%s': %w", opts.Level, err)
		}
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    LogFileMaxSizeMB,
			MaxBackups: LogFileMaxBackups,
			MaxAge:     LogFileMaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	Logger.Debug("logging initialized",
		zap.String("log_level", level.String()),
		zap.String("log_file", opts.File))

	return nil
}

// Sync flushes any buffered log entries.
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}

// WithComponent returns a logger pre-bound with a `component` field so callers
// don't have to repeat the same field across messages in a component.
func WithComponent(component string) *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger.With(zap.String(FieldComponent, component))
}

// WithRunID binds the invocation's run id to the process logger.
func WithRunID(runID string) {
	if Logger == nil {
		return
	}
	Logger = Logger.With(zap.String(FieldRunID, runID))
}
