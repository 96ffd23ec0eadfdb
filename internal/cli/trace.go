package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/changeflow/internal/severity"
	"github.com/roach88/changeflow/internal/store"
	"github.com/roach88/changeflow/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	Session     string // default: the latest session
	MinSeverity string
	List        bool
}

// TraceResult holds the journaled cycles of one session.
type TraceResult struct {
	Session trace.Session `json:"session"`
	Min     string        `json:"min_severity"`
	Total   int           `json:"total"` // cycles in the session, before filtering
	Cycles  []trace.Cycle `json:"cycles"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats summarises the shown cycles.
type TraceStats struct {
	Cycles     int            `json:"cycles"`
	BySource   map[string]int `json:"by_source"`
	BySeverity map[string]int `json:"by_severity"`
	Strongest  string         `json:"strongest"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print journaled pipeline cycles",
		Long: `Print the cycles recorded in a SQLite journal.

Each cycle shows where it came from (process, dispatch, a timer or a
thread), the severity it produced and, with --verbose, the user and system
changes it applied and the platform calls it made.

Examples:
  changeflow trace --db ./journal.db
  changeflow trace --db ./journal.db --session typing --min incremental-relayout
  changeflow trace --db ./journal.db --list
  changeflow trace --db ./journal.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id (default: latest)")
	cmd.Flags().StringVar(&opts.MinSeverity, "min", severity.NoOp.String(), "only show cycles at least this severe")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list sessions instead of cycles")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	minSev, err := severity.Parse(opts.MinSeverity)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --min", err)
	}

	// Opening would create an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd)

	if opts.List {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
		return f.Success(sessions, func(w io.Writer) { writeSessions(w, sessions) })
	}

	sess, err := resolveSession(ctx, st, opts.Session)
	if errors.Is(err, sql.ErrNoRows) {
		if err := f.Error(CodeEmptyJournal, "journal has no sessions", nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, "journal has no sessions")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve session", err)
	}

	total, err := st.CountCycles(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count cycles", err)
	}
	cycles, err := st.Cycles(ctx, sess.ID, minSev)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}

	result := TraceResult{
		Session: sess,
		Min:     minSev.String(),
		Total:   total,
		Cycles:  cycles,
		Stats:   summarize(cycles),
	}
	return f.Success(result, func(w io.Writer) { writeTraceText(w, result, opts.Verbose) })
}

// resolveSession returns the session with id, or the latest one when id is
// empty. A journal without sessions yields sql.ErrNoRows.
func resolveSession(ctx context.Context, st *store.Store, id string) (trace.Session, error) {
	if id == "" {
		return st.LatestSession(ctx)
	}
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return trace.Session{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return trace.Session{}, fmt.Errorf("session %q not found", id)
}

func summarize(cycles []trace.Cycle) TraceStats {
	stats := TraceStats{
		Cycles:     len(cycles),
		BySource:   make(map[string]int),
		BySeverity: make(map[string]int),
	}
	strongest := severity.NoOp
	for _, c := range cycles {
		stats.BySource[sourceKind(c.Source)]++
		stats.BySeverity[c.Severity.String()]++
		strongest = severity.Combine(strongest, c.Severity)
	}
	stats.Strongest = strongest.String()
	return stats
}

// sourceKind strips the id from "timer/<id>" and "thread/<id>".
func sourceKind(source string) string {
	kind, _, _ := strings.Cut(source, "/")
	return kind
}

func writeSessions(w io.Writer, sessions []trace.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions.")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Label, truncateHash(s.ConfigHash))
	}
}

func writeTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Session: %s", result.Session.ID)
	if result.Session.Label != "" && result.Session.Label != result.Session.ID {
		fmt.Fprintf(w, " (%s)", result.Session.Label)
	}
	fmt.Fprintln(w)
	if verbose {
		fmt.Fprintf(w, "Config: %s\n", result.Session.ConfigHash)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Cycles ===")
	if len(result.Cycles) == 0 {
		fmt.Fprintln(w, "  (no cycles)")
	}
	for _, c := range result.Cycles {
		writeCycleLine(w, c, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Shown:     %d of %d (min %s)\n", result.Stats.Cycles, result.Total, result.Min)
	fmt.Fprintf(w, "  Strongest: %s\n", result.Stats.Strongest)
	for _, kind := range []string{trace.SourceProcess, trace.SourceDispatch, trace.SourceTimer, trace.SourceThread} {
		if n := result.Stats.BySource[kind]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", kind+":", n)
		}
	}
}

func truncateHash(h string) string {
	const n = 12
	if len(h) <= n {
		return h
	}
	return h[:n]
}
