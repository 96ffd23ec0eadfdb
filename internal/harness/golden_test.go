package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/trace"
)

// To regenerate golden files:
//
//	go test ./internal/harness -run TestRunWithGolden -update
func TestRunWithGolden_Typing(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/typing.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunWithGolden_Timers(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/timers.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.Steps = append(result.Steps, StepResult{Kind: StepProcess, Severity: severity.RepaintOnly})
	result.Cycles = append(result.Cycles, trace.Cycle{
		Session:  "s",
		Seq:      1,
		Source:   trace.SourceProcess,
		User:     []string{"ResetCursorBlink"},
		System:   []string{},
		Handled:  1,
		Severity: severity.RepaintOnly,
		Platform: []string{},
	})

	got, err := Snapshot("tiny", result)
	require.NoError(t, err)

	want := `{"cycles":[{"forwarded":0,"handled":1,"platform":[],"seq":1,"session":"s","severity":"repaint-only",` +
		`"source":"process","system":[],"user":["ResetCursorBlink"]}],` +
		`"scenario":"tiny","steps":[{"kind":"process","severity":"repaint-only"}]}`
	assert.Equal(t, want, string(got))
}

func TestSnapshot_Empty(t *testing.T) {
	got, err := Snapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"cycles":[],"scenario":"empty","steps":[]}`, string(got))
}
