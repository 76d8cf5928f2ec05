package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)

	Debug("hidden", "k", 1)
	assert.Empty(t, buf.String())

	Info("event added", "id", "abc", 42, "ignored", "dangling")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "event added", line["message"])
	assert.Equal(t, "abc", line["id"])
	assert.Equal(t, "info", line["level"])
	assert.NotContains(t, line, "dangling")

	buf.Reset()
	Error("persist failed", errors.New("disk full"), "key", "events")
	line = map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "disk full", line["error"])
	assert.Equal(t, "events", line["key"])
	assert.Contains(t, line, "stack")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
