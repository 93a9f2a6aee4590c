package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf})
	Component(l, "libsql").Debug().Str("project", "p").Msg("opened")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "triplemap", entry["service"])
	assert.Equal(t, "libsql", entry["component"])
	assert.Equal(t, "p", entry["project"])
	assert.Equal(t, "debug", entry["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())
	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}

func TestLogToolCall(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	LogToolCall(l, "create_entity", time.Millisecond, nil)
	assert.Empty(t, buf.String(), "successful calls log at debug")

	LogToolCall(l, "create_entity", time.Millisecond, errors.New("boom"))
	assert.Contains(t, buf.String(), `"tool":"create_entity"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
