package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/harness"
)

// ConformOptions holds flags for the conform command.
type ConformOptions struct {
	*RootOptions
	Update bool // rewrite snapshot files instead of comparing
}

// SuiteOutcome is the result of one suite file.
type SuiteOutcome struct {
	Path     string               `json:"path"`
	Suite    string               `json:"suite"`
	Pass     bool                 `json:"pass"`
	Checks   int                  `json:"checks"`
	Failures []string             `json:"failures"`
	Snapshot harness.GoldenStatus `json:"snapshot"`
}

// ConformOutput is the JSON payload of the conform command.
type ConformOutput struct {
	Suites []SuiteOutcome `json:"suites"`
	Passed int            `json:"passed"`
	Failed int            `json:"failed"`
	Total  int            `json:"total"`
}

// NewConformCommand creates the conform command.
func NewConformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conform <suite.yaml>...",
		Short: "Run conformance vector suites",
		Long: `Run YAML conformance suites against the coordinate engine, the locator
decoder and the canonical encoder.

Each suite's canonical results are compared with a snapshot file next to
it (suite.yaml -> suite.golden). A missing snapshot is reported but does
not fail the suite; use --update to write it.

Exit codes:
  0 - All suites passed
  1 - One or more vectors or snapshots mismatched
  2 - Suite file unreadable or invalid

Examples:
  krystal conform vectors/kks.yaml vectors/kcs.yaml
  krystal conform vectors/*.yaml --update`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConform(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite snapshot files")

	return cmd
}

func runConform(opts *ConformOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	out := ConformOutput{Suites: make([]SuiteOutcome, 0, len(paths))}
	for _, path := range paths {
		outcome, err := conformSuite(path, opts.Update)
		if err != nil {
			return commandFailed(formatter, fmt.Sprintf("suite %s", path), err)
		}
		log.Debug("suite run",
			zap.String("path", path),
			zap.Bool("pass", outcome.Pass),
			zap.String("snapshot", string(outcome.Snapshot)),
		)
		out.Suites = append(out.Suites, outcome)
		if outcome.Pass {
			out.Passed++
		} else {
			out.Failed++
		}
	}
	out.Total = len(out.Suites)

	if !formatter.IsJSON() {
		for _, s := range out.Suites {
			mark := "✓"
			if !s.Pass {
				mark = "✗"
			}
			fmt.Fprintf(formatter.Writer, "%s %s (%d checks, snapshot %s)\n", mark, s.Suite, s.Checks, s.Snapshot)
			for _, f := range s.Failures {
				fmt.Fprintf(formatter.Writer, "    %s\n", f)
			}
		}
		fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d total\n", out.Passed, out.Failed, out.Total)
	}

	if out.Failed > 0 {
		msg := fmt.Sprintf("%d of %d suite(s) failed", out.Failed, out.Total)
		if err := formatter.Failure(out, "conformance_failed", msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	return nil
}

func conformSuite(path string, update bool) (SuiteOutcome, error) {
	s, err := harness.LoadSuite(path)
	if err != nil {
		return SuiteOutcome{}, err
	}

	result := harness.Run(s)
	snap, err := harness.Snapshot(s)
	if err != nil {
		return SuiteOutcome{}, err
	}
	status, err := harness.CheckGoldenFile(harness.GoldenPath(path), snap, update)
	if err != nil {
		return SuiteOutcome{}, err
	}

	outcome := SuiteOutcome{
		Path:     path,
		Suite:    result.Suite,
		Pass:     result.Pass && status != harness.GoldenDiffers,
		Checks:   result.Checks,
		Failures: result.Failures,
		Snapshot: status,
	}
	if status == harness.GoldenDiffers {
		outcome.Failures = append(outcome.Failures, "snapshot differs from "+harness.GoldenPath(path))
	}
	return outcome, nil
}
