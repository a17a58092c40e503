package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/krystal/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath   string
	Registry string // registry digest filter
	RunID    string // show one run with its issues
}

// HistoryOutput is the JSON payload of the history command.
type HistoryOutput struct {
	Runs []store.Run `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded verification runs",
		Long: `List verification runs recorded with verify-registry --db, oldest first.

Examples:
  krystal history --db audit.db
  krystal history --db audit.db --registry <digest> --format json
  krystal history --db audit.db --run <id>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the SQLite audit log (required)")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "only list runs for this registry digest")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run and its issues")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Opening would create an empty log; a missing file is an error here.
	if _, err := os.Stat(opts.DBPath); err != nil {
		return commandFailed(formatter, "open audit log", err)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open audit log", err)
	}
	defer st.Close()

	if opts.RunID != "" {
		return showRun(formatter, st, opts.RunID, cmd)
	}

	runs, err := st.ListRuns(cmd.Context(), opts.Registry)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list runs", err)
	}
	formatter.VerboseLog("Found %d run(s) in %s", len(runs), opts.DBPath)

	if formatter.IsJSON() {
		return formatter.Success(HistoryOutput{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		printRunLine(formatter.Writer, r)
	}
	return nil
}

func showRun(formatter *OutputFormatter, st *store.Store, id string, cmd *cobra.Command) error {
	run, err := st.ReadRun(cmd.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		return commandFailed(formatter, "read run", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read run", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(run)
	}

	printRunLine(formatter.Writer, run)
	fmt.Fprintf(formatter.Writer, "registry %s\n", run.RegistryDigest)
	for _, issue := range run.Issues {
		fmt.Fprintf(formatter.Writer, "  [%d] %s %s: %s\n", issue.Index, issue.Level, issue.Code, issue.Message)
		fmt.Fprintf(formatter.Writer, "      %s\n", issue.URL)
	}
	return nil
}

func printRunLine(w io.Writer, r store.Run) {
	mark := "✓"
	if !r.OK {
		mark = "✗"
	}
	mode := "strict"
	if !r.Strict {
		mode = "non-strict"
	}
	fmt.Fprintf(w, "%s #%d %s %s %s total=%d decoded=%d errors=%d issues=%d\n",
		mark, r.Seq, r.ID, shortDigest(r.RegistryDigest), mode, r.Total, r.Decoded, r.Errors, r.IssueCount)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
