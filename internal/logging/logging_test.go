package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(New(&buf, Options{}), "player")

	l.Debug().Msg("hidden")
	l.Info().Str("file", "a.bml").Msg("playing")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "player", line["component"])
	assert.Equal(t, "a.bml", line["file"])
	assert.Equal(t, "playing", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewDebugConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Debug: true, Console: true})

	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.NotContains(t, buf.String(), `"message"`)
}
