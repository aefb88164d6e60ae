package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
)

// Logger wraps logrus with the field-map helpers used across the service.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// NewLogger builds a logger from configuration.
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger := &Logger{entry: l}

	switch cfg.Log.Output {
	case "file":
		if cfg.Log.Filename != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Log.Filename), 0o755); err == nil {
				if f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
					l.SetOutput(io.MultiWriter(os.Stdout, f))
					logger.file = f
				}
			}
		}
	default:
		l.SetOutput(os.Stdout)
	}

	return logger
}

// Close releases the log file, if any.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// SetGlobalLogger installs the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func std() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.entry
	}
	return logrus.StandardLogger()
}

// Debug logs a message with optional structured fields.
func Debug(msg string, fields ...map[string]interface{}) {
	withFields(fields).Debug(msg)
}

// Info logs a message with optional structured fields.
func Info(msg string, fields ...map[string]interface{}) {
	withFields(fields).Info(msg)
}

// Warn logs a message with optional structured fields.
func Warn(msg string, fields ...map[string]interface{}) {
	withFields(fields).Warn(msg)
}

// Error logs a message with optional structured fields.
func Error(msg string, fields ...map[string]interface{}) {
	withFields(fields).Error(msg)
}

// Fatal logs a message and exits.
func Fatal(msg string, fields ...map[string]interface{}) {
	withFields(fields).Fatal(msg)
}

// Debugf logs a formatted message.
func Debugf(format string, args ...interface{}) {
	std().Debugf(format, args...)
}

// Infof logs a formatted message.
func Infof(format string, args ...interface{}) {
	std().Infof(format, args...)
}

// Warnf logs a formatted message.
func Warnf(format string, args ...interface{}) {
	std().Warnf(format, args...)
}

// Errorf logs a formatted message.
func Errorf(format string, args ...interface{}) {
	std().Errorf(format, args...)
}

// Fatalf logs a formatted message and exits.
func Fatalf(format string, args ...interface{}) {
	std().Fatal(fmt.Sprintf(format, args...))
}

func withFields(fields []map[string]interface{}) *logrus.Entry {
	entry := logrus.NewEntry(std())
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}
