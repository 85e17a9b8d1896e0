package telemetry

import (
	"io"
	"os"
	"sort"
	"sync"

	clog "github.com/charmbracelet/log"
)

// Logger writes structured JSON lines. Fields are emitted in key order so
// log files diff cleanly.
type Logger struct {
	mu     sync.Mutex
	w      io.WriteCloser
	logger *clog.Logger
}

func NewLogger(path string, debug bool) (*Logger, error) {
	var w io.WriteCloser = nopCloser{Writer: io.Discard}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}
	return newLogger(w, debug), nil
}

// NewWriterLogger logs to w without taking ownership of it.
func NewWriterLogger(w io.Writer, debug bool) *Logger {
	return newLogger(nopCloser{Writer: w}, debug)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return newLogger(nopCloser{Writer: io.Discard}, false)
}

func newLogger(w io.WriteCloser, debug bool) *Logger {
	level := clog.InfoLevel
	if debug {
		level = clog.DebugLevel
	}
	l := clog.NewWithOptions(w, clog.Options{
		Level:           level,
		ReportTimestamp: true,
		Formatter:       clog.JSONFormatter,
	})
	return &Logger{w: w, logger: l}
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(clog.DebugLevel, msg, fields)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(clog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(clog.WarnLevel, msg, fields)
}

func (l *Logger) Error(msg string, fields map[string]any) {
	l.log(clog.ErrorLevel, msg, fields)
}

func (l *Logger) log(level clog.Level, msg string, fields map[string]any) {
	if l == nil || l.logger == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Log(level, msg, kv...)
}

func (l *Logger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
