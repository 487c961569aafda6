package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filipesmpacheco/projdataviz/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetTraceID(ctx))
}

func TestInitializeLoggerFileOutput(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{
		Level:    "debug",
		Output:   "file",
		FilePath: logPath,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("hello", slog.String("key", "value"))
	require.NoError(t, CloseLogFile())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"key":"value"`)
}

func TestInitializeLoggerOnce(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "stdout"})
	require.NoError(t, err)

	second, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "stdout"})
	require.NoError(t, err)

	assert.Same(t, first, second, "initialization is once-only")
}

func TestLoggerFromContext(t *testing.T) {
	ResetLoggerForTesting()
	t.Cleanup(ResetLoggerForTesting)

	logger := LoggerFromContext(context.Background())
	assert.NotNil(t, logger)

	ctx := WithTraceID(context.Background(), "trace-1")
	traced := LoggerFromContext(ctx)
	assert.NotNil(t, traced)
}
