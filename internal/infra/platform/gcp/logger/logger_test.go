package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudLoggingKeys(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelInfo).Warn("snapshot: busy, retrying", slog.Int("attempt", 2))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARNING", rec["severity"])
	assert.Equal(t, "snapshot: busy, retrying", rec["message"])
	assert.Contains(t, rec, "timestamp")
	assert.Contains(t, rec, "logging.googleapis.com/sourceLocation")
	assert.EqualValues(t, 2, rec["attempt"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, slog.LevelWarn).Info("dropped")
	assert.Zero(t, buf.Len())
}
