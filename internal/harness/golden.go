package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/changeflow/internal/trace"
)

// Snapshot is the canonical form of a scenario run used for golden files.
// It holds the cycle trace and the per-step severities.
func Snapshot(name string, result *Result) ([]byte, error) {
	cycles := make(trace.Array, len(result.Cycles))
	for i, c := range result.Cycles {
		cycles[i] = c.Object()
	}
	steps := make(trace.Array, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = trace.Object{
			"kind":     trace.String(s.Kind),
			"severity": trace.String(s.Severity.String()),
		}
	}
	return trace.MarshalCanonical(trace.Object{
		"scenario": trace.String(name),
		"cycles":   cycles,
		"steps":    steps,
	})
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	golden(t).Assert(t, name, data)
	return nil
}
