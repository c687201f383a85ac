package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct {
	Key string
}

var (
	loggerKey = ctxKey{Key: "logger"}
	reqKey    = ctxKey{Key: "request_id"}
	tokenKey  = ctxKey{Key: "token"}
)

// GetLoggerFromContext returns the logger stored in ctx, falling back to
// slog.Default. Request id and filesystem token are attached when present.
func GetLoggerFromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || l == nil {
		l = slog.Default()
	}

	if requestID := GetRequestIDFromCtx(ctx); requestID != "" {
		l = l.With(slog.String("request_id", requestID))
	}
	if token := GetTokenFromCtx(ctx); token != "" {
		l = l.With(slog.String("token", token))
	}

	return l
}

// Returns logger from context and attaches operation name
func GetLoggerFromContextWithOp(ctx context.Context, op string) *slog.Logger {
	return GetLoggerFromContext(ctx).With(slog.String("op", op))
}

func MakeContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetTokenFromCtx returns the filesystem token the request operates on.
func GetTokenFromCtx(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}

func MakeContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}
