package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/engine"
)

// Stages a change can be applied in.
const (
	StageImmediate = "immediate"
	StageDeferred  = "deferred"
)

// TagInfo is one change kind and the stage that applies it.
type TagInfo struct {
	Name  string `json:"name"`
	Stage string `json:"stage"`
}

// TagsResult lists both change vocabularies.
type TagsResult struct {
	User   []TagInfo `json:"user"`
	System []TagInfo `json:"system"`
}

// NewTagsCommand creates the tags command.
func NewTagsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List user and system change kinds",
		Long: `List every user and system change kind with the stage that applies it.

User changes are either applied by the immediate stage or forwarded to the
deferred stage, which has platform access. System changes always go to the
deferred stage. Names are the ones scenario files use in "type:".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := Tags()
			f := newFormatter(rootOpts, cmd)
			return f.Success(result, func(w io.Writer) { writeTagsText(w, result) })
		},
	}

	return cmd
}

// Tags returns both vocabularies in declaration order.
func Tags() TagsResult {
	var result TagsResult
	for _, tag := range change.AllUserTags() {
		stage := StageImmediate
		if engine.Forwards(tag) {
			stage = StageDeferred
		}
		result.User = append(result.User, TagInfo{Name: tag.String(), Stage: stage})
	}
	for _, tag := range change.AllSystemTags() {
		result.System = append(result.System, TagInfo{Name: tag.String(), Stage: StageDeferred})
	}
	return result
}

func writeTagsText(w io.Writer, result TagsResult) {
	fmt.Fprintf(w, "User changes (%d):\n", len(result.User))
	for _, t := range result.User {
		fmt.Fprintf(w, "  %-30s %s\n", t.Name, t.Stage)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "System changes (%d):\n", len(result.System))
	for _, t := range result.System {
		fmt.Fprintf(w, "  %-30s %s\n", t.Name, t.Stage)
	}
}
