package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	global  = zerolog.New(os.Stderr).With().Timestamp().Logger()
	logFile *os.File
)

// ParseLevel maps a config level name to a zerolog level. Unknown names fall
// back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitGlobalLogger routes all package logging to stderr and, when path is
// set, to an append-only JSON file.
func InitGlobalLogger(level, path string, pretty bool) error {
	var console io.Writer = os.Stderr
	if pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}

	out := console
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		file = f
		out = zerolog.MultiLevelWriter(console, f)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	SetLogger(zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger())

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = file
	mu.Unlock()
	return nil
}

// SetLogger swaps the global logger; tests use it to capture output.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debug() *zerolog.Event {
	l := Logger()
	return l.Debug()
}

func Info() *zerolog.Event {
	l := Logger()
	return l.Info()
}

func Warn() *zerolog.Event {
	l := Logger()
	return l.Warn()
}

func Error() *zerolog.Event {
	l := Logger()
	return l.Error()
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
