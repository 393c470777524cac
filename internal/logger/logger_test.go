package logger_test

import (
	"testing"

	"github.com/straye-as/lead-api/internal/config"
	"github.com/straye-as/lead-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Level(t *testing.T) {
	app := &config.AppConfig{Name: "lead-api", Environment: "test"}

	log, err := logger.NewLogger(&config.LoggingConfig{Level: "warn", Format: "json"}, app)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = logger.NewLogger(&config.LoggingConfig{Level: "loud"}, app)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestScopedLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	log := logger.WithSession(logger.WithRequest(base, "GET", "/api/v1/opportunities", "req-1"), 7, "sara", "sales")
	log.Info("listed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "/api/v1/opportunities", fields["path"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, "sales", fields["role"])
}
