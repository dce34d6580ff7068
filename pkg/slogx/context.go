package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or slog's default outside a
// request.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// With adds attributes to the request logger, e.g. the principal once the
// gate has identified it.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// Security logs a security relevant event at Warn level tagged event=security
// so alerting can pick it out of the request log stream.
func Security(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).With("event", "security").WarnContext(ctx, msg, args...)
}
