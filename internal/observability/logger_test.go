package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env    string
		expect zapcore.Level
	}{
		{"", zap.InfoLevel},
		{"DEBUG", zap.DebugLevel},
		{"warning", zap.WarnLevel},
		{"  warn  ", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"verbose", zap.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, parseLogLevel(tt.env).Level(), "LOG_LEVEL=%q", tt.env)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"", "console"} {
		t.Setenv("LOG_FORMAT", format)
		t.Setenv("LOG_LEVEL", "debug")
		logger, err := NewLogger("service")
		require.NoError(t, err, "format %q", format)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
		logger.Debug("test message")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CorrelationID(ctx))
	require.NotNil(t, LoggerFrom(ctx), "no logger in ctx falls back to nop")

	core, logs := observer.New(zap.InfoLevel)
	ctx = WithCorrelationID(ctx, "abc-123")
	ctx = WithLogger(ctx, zap.New(core))

	assert.Equal(t, "abc-123", CorrelationID(ctx))
	LoggerFrom(ctx).Info("hello")
	assert.Equal(t, 1, logs.Len())
}

func TestFlush(t *testing.T) {
	assert.NoError(t, Flush(context.Background(), nil))
	assert.NoError(t, Flush(context.Background(), zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Flush(ctx, zap.NewNop()))
}
