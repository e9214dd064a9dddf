package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fadedpez/contrast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, WARN, false)

	logger.Debug("hidden %d", 1)
	logger.Info("hidden %d", 2)
	logger.Warn("shown %d", 3)
	logger.Error("shown %d", 4)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "shown 3", lines[0]["message"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DEBUG, false).With("balance")

	logger.Info("added %d to %s", 50, "user-1")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "balance", lines[0]["component"])
	assert.Equal(t, "added 50 to user-1", lines[0]["message"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, DEBUG, false)

	logger.LogError(types.WrapError(types.ErrStoreUnavailable, "ledger unavailable", errors.New("locked")))
	logger.LogError(errors.New("plain"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "STORE_UNAVAILABLE", lines[0]["code"])
	assert.Equal(t, "ledger unavailable", lines[0]["detail"])
	assert.Equal(t, "locked", lines[0]["cause"])
	assert.Equal(t, "plain", lines[1]["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, Default, OrDefault(nil))
	l := NewLogger(INFO)
	assert.Same(t, l, OrDefault(l))
}
