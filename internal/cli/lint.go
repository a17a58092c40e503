package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/schema"
)

// NewLintRegistryCommand creates the lint-registry command.
func NewLintRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint-registry <path>",
		Short: "Check a registry document against the registry schema",
		Long: `Check a registry document against the registry schema and report
every violation with its line and column.

Exit codes:
  0 - Registry matches the schema
  1 - Schema violations found
  2 - File unreadable or not JSON

Examples:
  krystal lint-registry registry.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runLint(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	linter, err := schema.NewLinter()
	if err != nil {
		return commandFailed(formatter, "compile schema", err)
	}
	report, err := linter.LintFile(path)
	if err != nil {
		return commandFailed(formatter, "lint registry", err)
	}
	opts.logger().Debug("registry linted", zap.String("path", path), zap.Int("violations", len(report.Violations)))

	if !formatter.IsJSON() {
		if report.Valid {
			fmt.Fprintf(formatter.Writer, "✓ %s matches the registry schema\n", path)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s: %d violation(s)\n", path, len(report.Violations))
			for _, v := range report.Violations {
				fmt.Fprintf(formatter.Writer, "  %s\n", v)
			}
		}
	}

	if !report.Valid {
		msg := fmt.Sprintf("%d schema violation(s)", len(report.Violations))
		if err := formatter.Failure(report, "schema_violation", msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.IsJSON() {
		return formatter.Success(report)
	}
	return nil
}
