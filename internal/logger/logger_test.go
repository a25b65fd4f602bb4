package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, Config{Level: "warn", Format: "json"})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept", zap.Duration("took", 1500*time.Millisecond))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "1.5s", entry["took"])

	_, err = time.Parse(time.RFC3339, entry["ts"].(string))
	assert.NoError(t, err)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, NewConfig())
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, Config{Format: "xml"})
	assert.Error(t, err)
}
