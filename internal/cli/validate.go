package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/changeflow/internal/config"
	"github.com/roach88/changeflow/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// FileReport is the validation outcome of one file.
type FileReport struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "scenario" or "config"
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds the outcome of every file passed to validate.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileReport `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check scenario and config files",
		Long: `Check scenario and config files without running them.

.yaml and .yml files are parsed as scenarios: every change, handler push,
step and assertion is decoded, the layout is built, and the config file a
scenario names is loaded too. .cue files are loaded as configs against the
built-in schema.

Examples:
  changeflow validate ./scenarios/*.yaml
  changeflow validate ./changeflow.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	logger := opts.logger()

	result := ValidationResult{Valid: true, Files: make([]FileReport, 0, len(paths))}
	for _, path := range paths {
		report := validateFile(path)
		if !report.Valid {
			result.Valid = false
			logger.Debug("file invalid", "path", path, "error", report.Error)
		}
		result.Files = append(result.Files, report)
	}

	f := newFormatter(opts.RootOptions, cmd)
	text := func(w io.Writer) { writeValidationText(w, result) }
	if result.Valid {
		return f.Success(result, text)
	}

	msg := fmt.Sprintf("validation failed for %d of %d file(s)", countInvalid(result.Files), len(result.Files))
	if err := f.Failure(CodeInvalid, msg, result, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

func validateFile(path string) FileReport {
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		report := FileReport{Path: path, Kind: "config"}
		if _, err := config.Load(path); err != nil {
			report.Error = err.Error()
			return report
		}
		report.Valid = true
		return report
	}

	report := FileReport{Path: path, Kind: "scenario"}
	s, err := harness.LoadScenario(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Name = s.Name
	if cfgPath := s.ConfigPath(); cfgPath != "" {
		if _, err := config.Load(cfgPath); err != nil {
			report.Error = fmt.Sprintf("config %s: %v", cfgPath, err)
			return report
		}
	}
	report.Valid = true
	return report
}

func countInvalid(files []FileReport) int {
	n := 0
	for _, f := range files {
		if !f.Valid {
			n++
		}
	}
	return n
}

func writeValidationText(w io.Writer, result ValidationResult) {
	for _, f := range result.Files {
		if f.Valid {
			label := f.Path
			if f.Name != "" {
				label = fmt.Sprintf("%s (%s)", f.Path, f.Name)
			}
			fmt.Fprintf(w, "✓ %s\n", label)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", f.Path)
		fmt.Fprintf(w, "  %s\n", f.Error)
	}

	fmt.Fprintln(w)
	if result.Valid {
		fmt.Fprintf(w, "All %d file(s) valid\n", len(result.Files))
		return
	}
	fmt.Fprintf(w, "%d of %d file(s) invalid\n", countInvalid(result.Files), len(result.Files))
}
