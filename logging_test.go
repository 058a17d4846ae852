package procfixture

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerProfiles(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(ProfileRuntime, &buf, env(nil))
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	log.Info().Str("fault", "fullgc").Msg("served")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "served", line["message"])
	assert.Equal(t, "fullgc", line["fault"])
	assert.Contains(t, line, "time")

	buf.Reset()
	log = NewLogger(ProfileTest, &buf, env(nil))
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
	log.Debug().Msg("debug")
	line = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "time")
}

func TestNewLoggerEnv(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(ProfileRuntime, &buf, env(map[string]string{EnvLogLevel: "warn"}))
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log = NewLogger(ProfileRuntime, &buf, env(map[string]string{EnvLogLevel: "bogus"}))
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())

	buf.Reset()
	log = NewLogger(ProfileRuntime, &buf, env(map[string]string{EnvLogJSON: "false", EnvLogNoColor: "1"}))
	log.Info().Msg("console")
	assert.Contains(t, buf.String(), "console")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for raw, want := range tests {
		got, ok := parseLevel(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}
	_, ok := parseLevel("")
	assert.False(t, ok)
}
