package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger returns ctx carrying logger for later retrieval via Ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithConn returns ctx carrying a logger scoped to one websocket
// connection, so every entry written while handling its frames names
// the connection and the authenticated user.
func WithConn(ctx context.Context, connID, userID string) context.Context {
	l := L().With().
		Str(FieldConnID, connID).
		Str(FieldUserID, userID).
		Logger()
	return WithLogger(ctx, l)
}

// Ctx returns the logger carried by ctx, falling back to the
// process-wide logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
