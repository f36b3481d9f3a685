package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestPrettyHandlerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("quiet")
	assert.Empty(t, buf.String())

	log.Warn("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestPrettyHandlerAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil)).With("request_id", "r1").WithGroup("store")

	log.Info("copy failed", "key", "docs/a.txt", "error", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "request_id")
	assert.Contains(t, out, "r1")
	assert.Contains(t, out, "store.key")
	assert.Contains(t, out, "docs/a.txt")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "store.request_id")
}
