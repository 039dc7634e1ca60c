package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug", true)
	log.Debug().Str("match", "abc").Msg("turn")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "abc", line["match"])
	assert.Contains(t, line, "time")
}

func TestLevelFallback(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, NewWriter(&bytes.Buffer{}, "chatty", true).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWriter(&bytes.Buffer{}, "", true).GetLevel())
	assert.Equal(t, zerolog.WarnLevel, NewWriter(&bytes.Buffer{}, " WARN ", true).GetLevel())
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn", true)
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}
