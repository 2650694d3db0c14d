package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// Log level mapping
	logLevelMap = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// loggers holds the main logger and the dedicated queries logger, both
// writing JSON to files in the log directory.
type loggers struct {
	main    *slog.Logger
	queries *slog.Logger
	dir     string
	files   []*os.File
}

// initLogging opens the log files in dir. With logQueries, every statement
// is also printed to stdout.
func initLogging(dir, logLevel string, logQueries bool, stdout io.Writer) (*loggers, error) {
	level, ok := logLevelMap[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	l := &loggers{dir: dir}

	logPath := filepath.Join(dir, "accords.log")
	logFile, err := l.open(logPath)
	if err != nil {
		return nil, err
	}
	l.main = slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
	slog.SetDefault(l.main)

	queriesLogPath := filepath.Join(dir, "accords-queries.log")
	queriesLogFile, err := l.open(queriesLogPath)
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	// Base handler for queries is always the file
	var queriesHandler slog.Handler = slog.NewJSONHandler(queriesLogFile, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if logQueries {
		stdoutHandler := slog.NewTextHandler(stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
		queriesHandler = &multiHandler{
			handlers: []slog.Handler{queriesHandler, stdoutHandler},
		}
	}
	l.queries = slog.New(queriesHandler).With("logger", "queries")

	l.main.Debug("logging initialized",
		"level", level.String(),
		"log_file", logPath,
		"queries_file", queriesLogPath,
		"log_queries_stdout", logQueries)

	return l, nil
}

func (l *loggers) open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l.files = append(l.files, f)
	return f, nil
}

// Close closes the log files.
func (l *loggers) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	l.files = nil
	return errors.Join(errs...)
}

// multiHandler implements slog.Handler to write to multiple handlers
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

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
