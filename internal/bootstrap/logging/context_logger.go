package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

type ctxLoggerKey struct{}
type ctxAttrsKey struct{}

var fallbackLogger atomic.Pointer[slog.Logger]

func init() {
	fallbackLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// SetDefault replaces the logger used for contexts that carry none.
func SetDefault(logger *slog.Logger) {
	if logger == nil {
		return
	}
	fallbackLogger.Store(logger)
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// WithAttrs returns ctx with attrs merged over the ones already attached.
// A later attr replaces an earlier one with the same key.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(attrs) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxAttrsKey{}, mergeAttrs(Attrs(ctx), attrs))
}

func WithComponent(ctx context.Context, component string) context.Context {
	return WithAttrs(ctx, slog.String("component", component))
}

// WithRequest tags ctx with the HTTP request id and the acting principal.
func WithRequest(ctx context.Context, requestID string, actorID string) context.Context {
	attrs := make([]slog.Attr, 0, 2)
	if requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if actorID != "" {
		attrs = append(attrs, slog.String("actor_id", actorID))
	}
	return WithAttrs(ctx, attrs...)
}

func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return fallbackLogger.Load()
}

func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	if len(attrs) == 0 {
		return nil
	}
	return append([]slog.Attr(nil), attrs...)
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
	Logger(ctx).LogAttrs(ctx, level, msg, mergeAttrs(Attrs(ctx), attrs)...)
}

func mergeAttrs(base []slog.Attr, extra []slog.Attr) []slog.Attr {
	merged := make([]slog.Attr, 0, len(base)+len(extra))
	position := make(map[string]int, len(base)+len(extra))
	for _, group := range [][]slog.Attr{base, extra} {
		for _, attr := range group {
			if attr.Key != "" {
				if idx, ok := position[attr.Key]; ok {
					merged[idx] = attr
					continue
				}
				position[attr.Key] = len(merged)
			}
			merged = append(merged, attr)
		}
	}
	return merged
}
