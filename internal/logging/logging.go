package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Level is one of debug, info, warn or error.
	Level string
	// Format is json or text.
	Format string
	// File receives the logs with size-based rotation. Empty or "-" means
	// stdout, os.DevNull discards.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New builds a logger from opts. Unusable options fall back to their
// defaults and are reported through the returned logger. The closer
// releases the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer) {
	var warnings []string

	level, ok := parseLevel(opts.Level)
	if !ok {
		warnings = append(warnings, "could not parse logger level")
	}

	var output io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	discard := false
	switch opts.File {
	case "", "-":
	case os.DevNull:
		discard = true
	default:
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		output, closer = rotator, rotator
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch {
	case discard:
		handler = slog.DiscardHandler
	case strings.EqualFold(opts.Format, "text"):
		handler = slog.NewTextHandler(output, handlerOpts)
	case opts.Format == "" || strings.EqualFold(opts.Format, "json"):
		handler = slog.NewJSONHandler(output, handlerOpts)
	default:
		warnings = append(warnings, "could not parse logger format")
		handler = slog.NewJSONHandler(output, handlerOpts)
	}

	logger := slog.New(handler)
	for _, w := range warnings {
		logger.Warn(w, "level", opts.Level, "format", opts.Format)
	}

	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
