package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate",
		"testdata/insert.yaml",
		"testdata/fast.cue",
		"../harness/testdata/scenarios/fast_blink.yaml",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ testdata/insert.yaml (insert)")
	assert.Contains(t, out, "✓ testdata/fast.cue")
	assert.Contains(t, out, "All 3 file(s) valid")
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/insert.yaml", "testdata/broken.yaml", "testdata/broken.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "validation failed for 2 of 3 file(s)", err.Error())

	assert.Contains(t, out, "✗ testdata/broken.yaml")
	assert.Contains(t, out, `unknown step kind "sleep"`)
	assert.Contains(t, out, "✗ testdata/broken.cue")
	assert.Contains(t, out, "2 of 3 file(s) invalid")
}

func TestValidate_ScenarioConfigIsLoaded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\nconfig: missing.yaml\nsteps: [{kind: render}]\n"), 0o644))

	report := validateFile(path)
	assert.False(t, report.Valid)
	assert.Equal(t, "scenario", report.Kind)
	assert.Contains(t, report.Error, "config "+filepath.Join(dir, "missing.yaml"))
}

func TestValidate_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", "testdata/fast.cue", "testdata/broken.yaml")
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalid, resp.Error.Code)

	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.Equal(t, FileReport{Path: "testdata/fast.cue", Kind: "config", Valid: true}, resp.Data.Files[0])
	assert.Equal(t, "scenario", resp.Data.Files[1].Kind)
	assert.False(t, resp.Data.Files[1].Valid)
}

func TestValidate_RequiresFiles(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
