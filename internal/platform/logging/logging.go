package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
}

// Logger is a tagged, printf-style logger backed by slog.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
	mu      sync.Mutex
}

// New creates a Logger writing to stdout and, when configured, a log file.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var writer io.Writer = os.Stdout
	var file *os.File
	if cfg.Dir != "" && cfg.Filename != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(
			filepath.Join(cfg.Dir, cfg.Filename),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writer = io.MultiWriter(os.Stdout, f)
	}

	handler := &textHandler{writer: writer, level: level}
	return &Logger{
		slogger: slog.New(handler),
		file:    file,
	}, nil
}

// Slog exposes the structured logger for integrations that want it.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close releases the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(msg, args...))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(msg, args...))
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(msg, args...))
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(msg, args...))
}

func (l *Logger) DebugTag(tag, msg string, args ...interface{}) {
	l.Debug("["+tag+"] "+msg, args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...interface{}) {
	l.Info("["+tag+"] "+msg, args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...interface{}) {
	l.Warn("["+tag+"] "+msg, args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...interface{}) {
	l.Error("["+tag+"] "+msg, args...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// textHandler renders "time - LEVEL - message" lines.
type textHandler struct {
	writer io.Writer
	level  slog.Level
	mu     sync.Mutex
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	_, err := fmt.Fprintf(h.writer, "%s - %s - %s\n", timeStr, r.Level.String(), r.Message)
	return err
}

func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *textHandler) WithGroup(_ string) slog.Handler { return h }
