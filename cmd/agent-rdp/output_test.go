package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHas(t *testing.T) {
	data := map[string]any{"a": 1, "b": 2}
	assert.True(t, has(data, "a", "b"))
	assert.False(t, has(data, "a", "c"))
}

func TestPrintData_DoesNotPanicOnKnownShapes(t *testing.T) {
	shapes := []map[string]any{
		{"host": "h", "width": 1024, "height": 768},
		{"width": 1024, "height": 768, "format": "png", "base64": "YWJj"},
		{"text": "clipboard contents"},
		{"name": "default", "state": "connected", "pid": 123, "uptime_secs": 5},
		{"drives": []any{}},
		{"drives": []any{map[string]any{"name": "C", "path": "/tmp"}}},
		{"pong": true},
		{"unrecognised_shape": "value"},
	}
	for _, s := range shapes {
		assert.NotPanics(t, func() { printData(s) })
	}
}

func TestCommands_RegistersAllSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range commands() {
		names[c.name] = true
	}
	for _, want := range []string{
		"connect", "disconnect", "screenshot", "mouse", "keyboard",
		"scroll", "clipboard", "drive", "session", "ping", "shutdown",
		"view", "wait",
	} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}
