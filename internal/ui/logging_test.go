package ui

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func captured(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		SetOutput(nil)
		pterm.EnableStyling()
		SetDebug(false)
	})
	return &buf
}

func TestSetDebug(t *testing.T) {
	defer SetDebug(false)

	SetDebug(true)
	assert.True(t, pterm.PrintDebugMessages)

	SetDebug(false)
	assert.False(t, pterm.PrintDebugMessages)
}

func TestDebugIsGated(t *testing.T) {
	buf := captured(t)

	Debug("gate %s", "closed")
	assert.Empty(t, buf.String())

	SetDebug(true)
	Debug("gate %s", "open")
	assert.Contains(t, buf.String(), "gate open")
}

func TestLevelsAreFormatted(t *testing.T) {
	buf := captured(t)

	Info("heater %s", "on")
	Warning("fallback to %.1f", 7.0)
	Error("bad reading %q", "abc")

	out := buf.String()
	assert.Contains(t, out, "heater on")
	assert.Contains(t, out, "fallback to 7.0")
	assert.Contains(t, out, `bad reading "abc"`)
}
