// Package config loads pipeline tunables from CUE or YAML files.
//
// CUE files are unified with an embedded #Config schema, which supplies
// defaults and range constraints. YAML files are decoded over Default() with
// unknown keys rejected. Both paths end in Validate.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Defaults.
const (
	DefaultReinvocationMargin    = 200.0
	DefaultCursorBlinkMS         = 530
	DefaultAutoScrollHz          = 60
	DefaultThreadPollMS          = 16
	DefaultMaxQueuedWindowStates = 64
)

// Config holds the tunables of one engine.
type Config struct {
	// ReinvocationMargin is how close, in layout units, a scroll offset must
	// come to a content edge before a virtual view is regenerated.
	ReinvocationMargin float64 `json:"reinvocation_margin" yaml:"reinvocation_margin"`

	CursorBlinkMS int `json:"cursor_blink_ms" yaml:"cursor_blink_ms"`
	AutoScrollHz  int `json:"auto_scroll_hz" yaml:"auto_scroll_hz"`
	ThreadPollMS  int `json:"thread_poll_ms" yaml:"thread_poll_ms"`

	// MaxQueuedWindowStates bounds a single QueueWindowStateSequence change.
	MaxQueuedWindowStates int `json:"max_queued_window_states" yaml:"max_queued_window_states"`

	// Journal is an optional SQLite path cycles are recorded to.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReinvocationMargin:    DefaultReinvocationMargin,
		CursorBlinkMS:         DefaultCursorBlinkMS,
		AutoScrollHz:          DefaultAutoScrollHz,
		ThreadPollMS:          DefaultThreadPollMS,
		MaxQueuedWindowStates: DefaultMaxQueuedWindowStates,
	}
}

// CursorBlink is the cursor blink period.
func (c Config) CursorBlink() time.Duration {
	return time.Duration(c.CursorBlinkMS) * time.Millisecond
}

// AutoScrollInterval is the drag auto-scroll timer period.
func (c Config) AutoScrollInterval() time.Duration {
	if c.AutoScrollHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.AutoScrollHz)
}

// ThreadPoll is the period of the timer that drains thread writebacks.
func (c Config) ThreadPoll() time.Duration {
	return time.Duration(c.ThreadPollMS) * time.Millisecond
}

// ValidationError reports an out-of-range configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks every field is in range.
func (c Config) Validate() error {
	switch {
	case c.ReinvocationMargin <= 0:
		return &ValidationError{Field: "reinvocation_margin", Message: "must be positive"}
	case c.CursorBlinkMS <= 0:
		return &ValidationError{Field: "cursor_blink_ms", Message: "must be positive"}
	case c.AutoScrollHz <= 0 || c.AutoScrollHz > 1000:
		return &ValidationError{Field: "auto_scroll_hz", Message: "must be in (0, 1000]"}
	case c.ThreadPollMS <= 0:
		return &ValidationError{Field: "thread_poll_ms", Message: "must be positive"}
	case c.MaxQueuedWindowStates <= 0:
		return &ValidationError{Field: "max_queued_window_states", Message: "must be positive"}
	}
	return nil
}

// Load reads a configuration file. The format is chosen by extension:
// .cue, .yaml or .yml.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// ParseCUE compiles data and unifies it with the embedded schema.
func ParseCUE(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("compile %s: %w", filename, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", filename, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseYAML decodes data over Default, rejecting unknown keys.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode yaml config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
