package log

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToRelayDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, New(Config{}).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, New(Config{Level: "debug"}).GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" WARNING "))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("verbose"))
}

func TestCtxRoundTrip(t *testing.T) {
	stored := New(Config{Level: "error"})
	ctx := WithLogger(context.Background(), stored)
	assert.Equal(t, zerolog.ErrorLevel, Ctx(ctx).GetLevel())

	// No logger stored: the process-wide logger is returned.
	assert.Equal(t, L().GetLevel(), Ctx(context.Background()).GetLevel())
}

func TestWithConnScopesLogger(t *testing.T) {
	ctx := WithConn(context.Background(), "conn1", "alice")
	_, ok := ctx.Value(ctxKey{}).(zerolog.Logger)
	assert.True(t, ok)
}
