package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *clog.Logger
	loggerOnce sync.Once
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = clog.NewWithOptions(os.Stderr, clog.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339Nano,
			Level:           clog.InfoLevel,
		})
	})
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// Level. Unknown strings fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	initLogger()
	switch l {
	case LevelDebug:
		logger.SetLevel(clog.DebugLevel)
	case LevelWarn:
		logger.SetLevel(clog.WarnLevel)
	case LevelError:
		logger.SetLevel(clog.ErrorLevel)
	default:
		logger.SetLevel(clog.InfoLevel)
	}
}

// SetFormat selects the line format: "json", "logfmt" or "text" (default).
func SetFormat(format string) {
	initLogger()
	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(clog.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(clog.LogfmtFormatter)
	default:
		logger.SetFormatter(clog.TextFormatter)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	initLogger()
	logger.SetOutput(w)
}

func Debug(msg string, kv ...any) {
	initLogger()
	logger.Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	initLogger()
	logger.Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	initLogger()
	logger.Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logger.Error(msg, extended...)
}
