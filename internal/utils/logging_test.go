package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetLogLevel(tt.level))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	assert.Equal(t, "debug", ValidateLogLevel("debug"))
	assert.Equal(t, "warn", ValidateLogLevel("WARN"))
	assert.Equal(t, "info", ValidateLogLevel("verbose"))
	assert.Equal(t, "info", ValidateLogLevel(""))
}

func TestValidateLogFormat(t *testing.T) {
	assert.Equal(t, "json", ValidateLogFormat("json"))
	assert.Equal(t, "text", ValidateLogFormat("text"))
	assert.Equal(t, "text", ValidateLogFormat("xml"))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")
	logger.Info("light: added", "entity_id", "light.yeelight")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "light: added", record["msg"])
	assert.Equal(t, "light.yeelight", record["entity_id"])
}

func TestSetLevel_AppliesToExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error", "text")

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, "error", CurrentLevel())

	assert.Equal(t, "info", SetLevel("info"))
	logger.Info("visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))
	assert.Equal(t, "info", CurrentLevel())

	assert.Equal(t, "info", SetLevel("bogus"))
}
