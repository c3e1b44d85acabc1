package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", ""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("staging", ""))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("development", ""))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("development", "warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", "not-a-level"))
}

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "production", "")

	log.Debug().Msg("hidden")
	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "user", entry["service"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "time")
}
