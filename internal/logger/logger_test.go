package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_PlainOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.Info("checkout", "transaction created")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[CHECKOUT  ]")
	assert.Contains(t, out, "transaction created")
}

func TestSetLevel_FiltersLowerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(WARN)

	l.Debug("API", "debug line")
	l.Info("API", "info line")
	l.Warn("API", "warn line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, "warn line")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("unknown"))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("APP", "ignored") })
}
