package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/harness"
	"github.com/roach88/changeflow/internal/store"
	"github.com/roach88/changeflow/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Config   string
}

// ScenarioReport is the outcome of one scenario file.
type ScenarioReport struct {
	File    string               `json:"file"`
	Name    string               `json:"name"`
	Session string               `json:"session"`
	Pass    bool                 `json:"pass"`
	Steps   []harness.StepResult `json:"steps"`
	Cycles  []trace.Cycle        `json:"cycles"`
	Codes   []string             `json:"codes,omitempty"`
	Errors  []string             `json:"errors,omitempty"`
}

// RunResult holds the outcome of every scenario passed to run.
type RunResult struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Execute scenarios against a headless engine",
		Long: `Execute one or more scenario files.

Each scenario runs against a fresh engine with a manual clock. The command
prints whether it passed and the severity of every pipeline cycle. With --db
(or a config whose journal is set) the cycles are also journaled to SQLite
for later inspection with "changeflow trace".

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable scenario, bad config, etc.)

Examples:
  changeflow run ./scenarios/typing.yaml
  changeflow run --db ./journal.db ./scenarios/*.yaml
  changeflow run --config ./changeflow.cue ./scenarios/timers.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (.cue or .yaml) overriding each scenario's own")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	logger := opts.logger()
	runOpts := []harness.RunOption{harness.WithLogger(logger)}

	dbPath := opts.Database
	if opts.Config != "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		runOpts = append(runOpts, harness.WithConfig(cfg))
		if dbPath == "" {
			dbPath = cfg.Journal
		}
	}

	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, harness.WithJournal(st))
		logger.Debug("journaling cycles", "db", dbPath)
	}

	result := RunResult{
		Scenarios: make([]ScenarioReport, 0, len(paths)),
		Total:     len(paths),
	}
	for _, path := range paths {
		s, err := harness.LoadScenario(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
		}

		logger.Info("running scenario", "scenario", s.Name, "file", path)
		r, err := harness.Run(s, runOpts...)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to run %s", s.Name), err)
		}

		report := ScenarioReport{
			File:    path,
			Name:    s.Name,
			Session: sessionOf(r),
			Pass:    r.Pass,
			Steps:   r.Steps,
			Cycles:  r.Cycles,
			Codes:   r.Codes,
			Errors:  r.Errors,
		}
		result.Scenarios = append(result.Scenarios, report)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	f := newFormatter(opts.RootOptions, cmd)
	text := func(w io.Writer) { writeRunText(w, result, opts.Verbose) }
	if result.Failed == 0 {
		return f.Success(result, text)
	}

	msg := fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)
	if err := f.Failure(CodeScenarioFailed, msg, result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// sessionOf returns the journal session the scenario's cycles belong to.
func sessionOf(r *harness.Result) string {
	if len(r.Cycles) == 0 {
		return ""
	}
	return r.Cycles[0].Session
}

func writeRunText(w io.Writer, result RunResult, verbose bool) {
	for _, s := range result.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d steps, %d cycles)\n", mark, s.Name, len(s.Steps), len(s.Cycles))

		if verbose {
			for _, step := range s.Steps {
				fmt.Fprintf(w, "    step %d %-12s %s\n", step.Index, step.Kind, step.Severity)
			}
		}
		for _, c := range s.Cycles {
			writeCycleLine(w, c, verbose)
		}
		if len(s.Codes) > 0 {
			fmt.Fprintf(w, "    runtime errors: %v\n", s.Codes)
		}
		for _, msg := range s.Errors {
			fmt.Fprintf(w, "    %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Passed: %d  Failed: %d  Total: %d\n", result.Passed, result.Failed, result.Total)
}

// writeCycleLine prints one journaled cycle. Verbose output adds the
// changes and platform calls.
func writeCycleLine(w io.Writer, c trace.Cycle, verbose bool) {
	fmt.Fprintf(w, "  [%d] %-20s %s\n", c.Seq, c.Source, c.Severity)
	if !verbose {
		return
	}
	if len(c.User) > 0 {
		fmt.Fprintf(w, "       user: %v (handled %d, forwarded %d)\n", c.User, c.Handled, c.Forwarded)
	}
	if len(c.System) > 0 {
		fmt.Fprintf(w, "       system: %v\n", c.System)
	}
	if len(c.Platform) > 0 {
		fmt.Fprintf(w, "       platform: %v\n", c.Platform)
	}
}
