package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	t.Setenv(LevelEnv, "")
	var buf bytes.Buffer
	logger := New(Options{JSON: true, Output: &buf})

	logger.Info("artifact written", "path", "dist/git-remote-hg")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "artifact written", entry["msg"])
	assert.Equal(t, "dist/git-remote-hg", entry["path"])
}

func TestNew_DebugOverridesEnv(t *testing.T) {
	t.Setenv(LevelEnv, "error")
	var buf bytes.Buffer
	logger := New(Options{Debug: true, Output: &buf})

	logger.Debug("resolving includes")
	assert.Contains(t, buf.String(), "resolving includes")
}

func TestNew_LevelFromEnv(t *testing.T) {
	t.Setenv(LevelEnv, "warn")
	var buf bytes.Buffer
	logger := New(Options{Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
