package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 200.0, cfg.ReinvocationMargin)
	assert.Equal(t, 530*time.Millisecond, cfg.CursorBlink())
	assert.Equal(t, 16*time.Millisecond, cfg.ThreadPoll())
	assert.Equal(t, time.Second/60, cfg.AutoScrollInterval())
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "changeflow.cue", `
reinvocation_margin: 150
cursor_blink_ms:     400
journal:             "cycles.db"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150.0, cfg.ReinvocationMargin)
	assert.Equal(t, 400, cfg.CursorBlinkMS)
	assert.Equal(t, "cycles.db", cfg.Journal)
	assert.Equal(t, DefaultAutoScrollHz, cfg.AutoScrollHz, "schema default")
	assert.Equal(t, DefaultMaxQueuedWindowStates, cfg.MaxQueuedWindowStates)
}

func TestLoad_CUEErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative margin", `reinvocation_margin: -5`},
		{"unknown field", `blink: 3`},
		{"wrong type", `cursor_blink_ms: "fast"`},
		{"syntax", `cursor_blink_ms: {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.cue", tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "changeflow.yaml", "auto_scroll_hz: 30\nthread_poll_ms: 8\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.AutoScrollHz)
	assert.Equal(t, 8, cfg.ThreadPollMS)
	assert.Equal(t, DefaultReinvocationMargin, cfg.ReinvocationMargin)
}

func TestLoad_YAMLEmpty(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLUnknownField(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "margin: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "margin")
}

func TestLoad_YAMLValidation(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "max_queued_window_states: 0\n"))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "max_queued_window_states", ve.Field)
}

func TestLoad_Unsupported(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"margin", func(c *Config) { c.ReinvocationMargin = 0 }, "reinvocation_margin"},
		{"blink", func(c *Config) { c.CursorBlinkMS = -1 }, "cursor_blink_ms"},
		{"hz", func(c *Config) { c.AutoScrollHz = 5000 }, "auto_scroll_hz"},
		{"poll", func(c *Config) { c.ThreadPollMS = 0 }, "thread_poll_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(&cfg)
			var ve *ValidationError
			require.True(t, errors.As(cfg.Validate(), &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}
