package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewSelectsFormatAndLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	l := newWithWriter(&buf, "warn", "json")
	l.Info("hidden")
	l.Warn("shown", "import_run_id", "run-1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"import_run_id":"run-1"`)

	buf.Reset()
	newWithWriter(&buf, "info", "text").Info("plain", "source", "feed")
	assert.Contains(t, buf.String(), "source=feed")
}
