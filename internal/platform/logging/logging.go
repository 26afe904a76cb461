// Package logging wires the process-wide slog.Logger.
package logging

import (
	"context"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where structured logs go.
type Config struct {
	// LogFilePath, if non-empty, enables a rotating JSON sink alongside
	// the text sink written to stdout.
	LogFilePath string
	Level       slog.Level
}

// Init builds and installs the default slog.Logger per cfg. It always
// writes human-readable text to stdout; when LogFilePath is set it
// additionally fans out JSON lines to a rotating file (5 MB x 3
// backups). None of the cmd entrypoints sets LogFilePath, so they log
// to stdout only.
func Init(cfg Config) *slog.Logger {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})

	var handler slog.Handler = textHandler
	if cfg.LogFilePath != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    5, // megabytes
			MaxBackups: 3,
		}
		jsonHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: cfg.Level})
		handler = &fanoutHandler{handlers: []slog.Handler{textHandler, jsonHandler}}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// fanoutHandler dispatches every record to all of its child handlers.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
