package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger, err := NewLogger(nil)
	require.NoError(t, err)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.NoError(t, logger.Sync())
}

func TestNewLoggerInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "loud", Format: "json"}},
		{"bad format", Config{Level: "info", Format: "xml"}},
		{"bad stacktrace", Config{Level: "info", Format: "json", Stacktrace: "nope"}},
		{"negative skip", Config{Level: "info", Format: "json", Caller: CallerConfig{Enabled: true, Skip: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogger(&tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, level)

	level, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	_, err = LevelFromString("shout")
	assert.Error(t, err)
}

func TestContextAwareLogging(t *testing.T) {
	logger := NewTestLogger()
	ctx := WithRequestID(context.Background(), "req-42")

	logger.Info(ctx, "rule set reloaded", zap.Int("rules", 7))

	entries := logger.FilterMessage("rule set reloaded").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request.id"])
	assert.EqualValues(t, 7, fields["rules"])
}

func TestNamedAndWithChildLoggers(t *testing.T) {
	logger := NewTestLogger()

	child := logger.Named("store").With(zap.String("source", "file:rules.yaml"))
	child.Warn(context.Background(), "reload failed")

	entries := logger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0].LoggerName)
	assert.Equal(t, "file:rules.yaml", entries[0].ContextMap()["source"])
}

func TestTraceLevelGating(t *testing.T) {
	logger := NewTestLogger()
	logger.Trace(context.Background(), "per-rule match detail")
	logger.AssertLogged(t, TraceLevel, "per-rule match detail")

	logger.Reset()
	assert.Empty(t, logger.All())
}

func TestRequestIDFromContextMissing(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	ctx := context.Background()
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
}
