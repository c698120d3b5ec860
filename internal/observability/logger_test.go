package observability

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/formpilot/formpilot-cli/internal/config"
)

// memSink is a WriteSyncer backed by a string builder, so tests can inspect
// what the console core emitted without touching stdout.
type memSink struct {
	strings.Builder
}

func (m *memSink) Sync() error { return nil }

func TestInitializeConsoleFormat(t *testing.T) {
	ResetForTest()
	sink := &memSink{}

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "formpilot",
	}, sink)

	GetLogger().Info("session started")

	out := sink.String()
	assert.Contains(t, out, "session started")
	assert.Contains(t, out, "formpilot.")
	assert.Contains(t, out, colorGreen, "info lines are colorized on the console")
}

func TestInitializeJSONFormat(t *testing.T) {
	ResetForTest()
	sink := &memSink{}

	Initialize(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "formpilot",
	}, sink)

	GetLogger().Warn("dropdown surface not detected")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(sink.String()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "dropdown surface not detected", entry["msg"])
}

func TestInitializeOnlyOnce(t *testing.T) {
	ResetForTest()
	first := &memSink{}
	second := &memSink{}

	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
	Initialize(config.LoggerConfig{Level: "debug", Format: "console"}, second)

	GetLogger().Info("one")
	assert.NotEmpty(t, first.String())
	assert.Empty(t, second.String(), "second Initialize must be a no-op")
}

func TestBadLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	sink := &memSink{}

	Initialize(config.LoggerConfig{Level: "verbose-ish", Format: "json"}, sink)

	logger := GetLogger()
	logger.Debug("dropped")
	logger.Info("kept")

	assert.NotContains(t, sink.String(), "dropped")
	assert.Contains(t, sink.String(), "kept")
}

func TestGetLoggerBeforeInit(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}

func TestColorizedLevelEncoderCoversAllLevels(t *testing.T) {
	for level := zapcore.DebugLevel; level <= zapcore.FatalLevel; level++ {
		_, ok := levelColors[level]
		assert.True(t, ok, "level %s has no color mapping", level)
	}
}
