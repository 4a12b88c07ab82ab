// Package logger is the process-wide structured logger. It writes slog
// records to the console, a rotated file, or both.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

var log *slog.Logger

// Initialize builds the logger from config. Call once at startup; the
// package-level functions are no-ops until then.
func Initialize(cfg Config) error {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if cfg.ConsoleEnabled {
		handlers = append(handlers, newHandler(os.Stdout, cfg.ConsoleFormat, opts))
	}
	if cfg.FileEnabled {
		rotated := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.FileMaxSizeMB,
			MaxBackups: cfg.FileMaxBackups,
			MaxAge:     cfg.FileMaxAgeDays,
		}
		handlers = append(handlers, newHandler(rotated, cfg.FileFormat, opts))
	}

	switch len(handlers) {
	case 0:
		log = slog.New(slog.NewTextHandler(os.Stdout, opts))
	case 1:
		log = slog.New(handlers[0])
	default:
		log = slog.New(&multiHandler{handlers: handlers})
	}
	return nil
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if log != nil {
		log.Debug(msg, args...)
	}
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if log != nil {
		log.Info(msg, args...)
	}
}

// Warning logs at warn level.
func Warning(msg string, args ...any) {
	if log != nil {
		log.Warn(msg, args...)
	}
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if log != nil {
		log.Error(msg, args...)
	}
}

// multiHandler fans each record out to every configured handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
