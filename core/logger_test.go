package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("test-service")
	logger.format = "text"
	logger.level = "INFO"
	logger.SetOutput(&buf)

	logger.Info("Name resolved", map[string]interface{}{
		"input": "koala",
		"rank":  "species",
	})

	line := buf.String()
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "test-service")
	assert.Contains(t, line, "Name resolved")
	assert.Contains(t, line, "input=koala")
	assert.Contains(t, line, "rank=species")
}

func TestStdLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("test-service")
	logger.format = "json"
	logger.level = "INFO"
	logger.SetOutput(&buf)

	logger.Warn("Lookup failed", map[string]interface{}{"endpoint": "vernacular"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "Lookup failed", entry["message"])
	assert.Equal(t, "vernacular", entry["endpoint"])
}

func TestStdLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("test-service")
	logger.format = "text"
	logger.level = "WARN"
	logger.debug = false
	logger.SetOutput(&buf)

	logger.Debug("debug line", nil)
	logger.Info("info line", nil)
	assert.Empty(t, buf.String())

	logger.Warn("warn line", nil)
	assert.Contains(t, buf.String(), "warn line")
}

func TestStdLoggerDebugGate(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("test-service")
	logger.format = "text"
	logger.level = "DEBUG"
	logger.debug = true
	logger.SetOutput(&buf)

	logger.Debug("debug line", nil)
	assert.Contains(t, buf.String(), "debug line")
}

func TestStdLoggerErrorRateLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger("test-service")
	logger.format = "text"
	logger.level = "ERROR"
	logger.SetOutput(&buf)

	for i := 0; i < 5; i++ {
		logger.Error("repeated failure", nil)
	}

	// Only the first error within the interval is emitted.
	assert.Equal(t, 1, strings.Count(buf.String(), "repeated failure"))
}

func TestNoOpLoggerIsSilent(t *testing.T) {
	logger := &NoOpLogger{}
	logger.Info("x", nil)
	logger.Warn("x", nil)
	logger.Error("x", nil)
	logger.Debug("x", nil)
}
