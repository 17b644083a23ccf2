// Package logging carries a slog logger and request-scoped attributes through
// a context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type loggerKey struct{}
type attrsKey struct{}

var (
	fallback     *slog.Logger
	fallbackOnce sync.Once
)

// New builds a logger writing to w. format is "json" or "text"; level is one
// of debug, info, warn, error.
func New(w io.Writer, format, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel defaults to info for unknown input.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func base() *slog.Logger {
	fallbackOnce.Do(func() {
		fallback = New(os.Stderr, "text", "info")
	})
	return fallback
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithAttrs attaches attrs that every later log call on ctx will carry.
// A later attr with the same key replaces the earlier one.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(attrs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, attrsKey{}, merge(Attrs(ctx), attrs))
}

func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return base()
}

func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	if len(attrs) == 0 {
		return nil
	}
	out := make([]slog.Attr, len(attrs))
	copy(out, attrs)
	return out
}

func Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelDebug, msg, attrs)
}

func Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelInfo, msg, attrs)
}

func Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelWarn, msg, attrs)
}

func Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelError, msg, attrs)
}

func emit(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	Logger(ctx).LogAttrs(ctx, level, msg, merge(Attrs(ctx), attrs)...)
}

func merge(base, extra []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, group := range [][]slog.Attr{base, extra} {
		for _, attr := range group {
			if i, ok := index[attr.Key]; ok && attr.Key != "" {
				out[i] = attr
				continue
			}
			out = append(out, attr)
			if attr.Key != "" {
				index[attr.Key] = len(out) - 1
			}
		}
	}
	return out
}
