package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/registry"
	"github.com/roach88/krystal/internal/store"
	"github.com/roach88/krystal/internal/verify"
)

// VerifyOptions holds flags for the verify-registry command.
type VerifyOptions struct {
	*RootOptions
	NonStrict bool   // report decode failures and unknown shapes as warnings
	Workers   int    // concurrent entry checks
	DBPath    string // audit log, empty to skip recording
}

// VerifyOutput is the JSON payload of the verify-registry command.
type VerifyOutput struct {
	verify.Result
	RunID string `json:"runId,omitempty"`
}

// NewVerifyRegistryCommand creates the verify-registry command.
func NewVerifyRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify-registry <path>",
		Short: "Verify every locator in a registry",
		Long: `Decode every locator in a registry and check its beat/step claim
against the KKS-1.0 derivation for its pulse.

Exit codes:
  0 - Registry ok (no error-level issues)
  1 - One or more error-level issues
  2 - Registry unreadable or malformed, or audit log failure

Examples:
  krystal verify-registry registry.json
  krystal verify-registry registry.json --non-strict --workers 8
  krystal verify-registry registry.json --db audit.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NonStrict, "non-strict", false, "report decode failures and unknown locators as warnings")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of entries checked concurrently")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this SQLite audit log")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger()

	reg, err := registry.Load(path)
	if err != nil {
		return commandFailed(formatter, "load registry", err)
	}
	formatter.VerboseLog("Loaded %d locator(s) from %s", reg.Len(), path)

	strict := !opts.NonStrict
	result, err := verify.Verify(cmd.Context(), reg, verify.Options{Strict: strict, Workers: opts.Workers})
	if err != nil {
		return commandFailed(formatter, "verify registry", err)
	}
	log.Debug("registry verified",
		zap.String("path", path),
		zap.Bool("ok", result.OK),
		zap.Int("total", result.Total),
		zap.Int("issues", len(result.Issues)),
	)

	out := VerifyOutput{Result: result}
	if opts.DBPath != "" {
		run, err := recordRun(opts.DBPath, reg, strict, result, cmd)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "record run", err)
		}
		out.RunID = run.ID
		log.Debug("run recorded", zap.String("db", opts.DBPath), zap.String("run", run.ID), zap.Int64("seq", run.Seq))
	}

	if !formatter.IsJSON() {
		printVerifyText(formatter.Writer, path, out)
	}

	if !result.OK {
		msg := fmt.Sprintf("registry has %d error(s)", result.Errors())
		if err := formatter.Failure(out, "verification_failed", msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	return nil
}

func recordRun(dbPath string, reg registry.Registry, strict bool, result verify.Result, cmd *cobra.Command) (store.Run, error) {
	digest, err := reg.Digest()
	if err != nil {
		return store.Run{}, fmt.Errorf("registry digest: %w", err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	return st.RecordRun(cmd.Context(), digest, strict, result)
}

func printVerifyText(w io.Writer, path string, out VerifyOutput) {
	mark := "✓"
	if !out.OK {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: %d locator(s), %d decoded, %d issue(s)\n",
		mark, path, out.Total, out.Decoded, len(out.Issues))
	for _, issue := range out.Issues {
		fmt.Fprintf(w, "  [%d] %s %s: %s\n", issue.Index, issue.Level, issue.Code, issue.Message)
	}
	if out.RunID != "" {
		fmt.Fprintf(w, "run %s\n", out.RunID)
	}
}
