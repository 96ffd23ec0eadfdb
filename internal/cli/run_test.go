package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/store"
)

type runResponse struct {
	Status string    `json:"status"`
	Data   RunResult `json:"data"`
	Error  *CLIError `json:"error"`
}

func TestRun_Pass(t *testing.T) {
	out, _, err := execute(t, "run", "testdata/insert.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ insert (1 steps, 1 cycles)")
	assert.Contains(t, out, "[1] process")
	assert.Contains(t, out, "incremental-relayout")
	assert.Contains(t, out, "Passed: 1  Failed: 0  Total: 1")
	assert.NotContains(t, out, "user:", "changes are only listed with --verbose")
}

func TestRun_Verbose(t *testing.T) {
	out, errOut, err := execute(t, "run", "--verbose", "testdata/insert.yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "step 0 process")
	assert.Contains(t, out, "user: [InsertText] (handled 1, forwarded 0)")
	assert.Contains(t, errOut, `"msg":"running scenario"`)
}

func TestRun_Failure(t *testing.T) {
	out, _, err := execute(t, "run", "testdata/insert.yaml", "testdata/wrong_severity.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "1 of 2 scenario(s) failed", err.Error())

	assert.Contains(t, out, "✓ insert")
	assert.Contains(t, out, "✗ wrong-severity")
	assert.Contains(t, out, "step 0 (process): expected severity regenerate-all, got incremental-relayout")
	assert.Contains(t, out, "Passed: 1  Failed: 1  Total: 2")
}

func TestRun_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", "testdata/insert.yaml")
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)

	s := resp.Data.Scenarios[0]
	assert.Equal(t, "insert", s.Name)
	assert.Equal(t, "insert", s.Session)
	assert.True(t, s.Pass)
	require.Len(t, s.Cycles, 1)
	assert.Equal(t, severity.IncrementalRelayout, s.Cycles[0].Severity)
	assert.Equal(t, []string{"InsertText"}, s.Cycles[0].User)
}

func TestRun_JSONFailure(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "run", "testdata/wrong_severity.yaml")
	require.Error(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestRun_Journal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	_, _, err := execute(t, "run", "--db", dbPath, "testdata/insert.yaml")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "insert", sess.ID)
	assert.Equal(t, "insert", sess.Label)

	n, err := st.CountCycles(context.Background(), "insert")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Rerunning a scenario into the same journal records nothing new: cycles
// are keyed by content.
func TestRun_JournalIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	for range 2 {
		_, _, err := execute(t, "run", "--db", dbPath, "testdata/insert.yaml")
		require.NoError(t, err)
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	n, err := st.CountCycles(context.Background(), "insert")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_ConfigJournal(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "changeflow.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf("journal: %q\n", dbPath)), 0o644))

	_, _, err := execute(t, "run", "--config", cfgPath, "testdata/insert.yaml")
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "the config's journal is used when --db is not given")
}

func TestRun_ConfigOverridesScenario(t *testing.T) {
	const scenario = "../harness/testdata/scenarios/fast_blink.yaml"

	_, _, err := execute(t, "run", scenario)
	require.NoError(t, err, "passes with its own 100ms blink config")

	cfgPath := filepath.Join(t.TempDir(), "slow.cue")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cursor_blink_ms: 530\n"), 0o644))

	_, _, err = execute(t, "run", "--config", cfgPath, scenario)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_CommandErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no scenario", []string{"run"}, "requires at least 1 arg"},
		{"missing scenario", []string{"run", "testdata/missing.yaml"}, "failed to load testdata/missing.yaml"},
		{"invalid scenario", []string{"run", "testdata/broken.yaml"}, `unknown step kind "sleep"`},
		{"bad config", []string{"run", "--config", "testdata/broken.cue", "testdata/insert.yaml"}, "failed to load config"},
		{"missing config", []string{"run", "--config", "testdata/nope.cue", "testdata/insert.yaml"}, "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.name != "no scenario" {
				assert.Equal(t, ExitCommandError, GetExitCode(err))
			}
		})
	}
}
