package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	reset(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "level=DEBUG msg=\"test message arg\"\n", buf.String())
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := reset(t)
	SetVerbose(false)

	Debug("test message")
	Info("info")
	Warn("warn")
	Section("Routing")

	assert.Zero(t, buf.Len())
}

func TestSection(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Section("Routing")

	assert.Contains(t, buf.String(), "=== Routing ===")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestWarn(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Warn("index %d missing", 2)

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "index 2 missing")
}

func TestError_AlwaysWritten(t *testing.T) {
	buf := reset(t)
	SetVerbose(false)

	Error("store failed: %v", "disk full")

	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "store failed: disk full")
}

func TestLogger_ReturnsStructuredLogger(t *testing.T) {
	buf := reset(t)
	SetVerbose(true)

	Logger().Info("swap", "chunks", 12)

	assert.Contains(t, buf.String(), "chunks=12")
}
