package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/normalize"
	"github.com/roach88/krystal/internal/registry"
)

// NormalizeOutput is the JSON payload of the normalize-registry command.
type NormalizeOutput struct {
	OK bool `json:"ok"`
	normalize.Result
	Output string `json:"output"`
}

// NewNormalizeRegistryCommand creates the normalize-registry command.
func NewNormalizeRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize-registry <input> <output>",
		Short: "Rewrite capsule beat/step metadata to match the pulse",
		Long: `Rewrite every content capsule whose beat/step metadata disagrees with
the KKS-1.0 derivation for its pulse, writing the corrected registry to
output. All other entries are copied unchanged.

Examples:
  krystal normalize-registry registry.json registry.fixed.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runNormalize(opts *RootOptions, input, output string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	reg, err := registry.Load(input)
	if err != nil {
		return commandFailed(formatter, "load registry", err)
	}

	fixed, result := normalize.Normalize(reg)
	if err := registry.Write(output, fixed); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "write registry", err)
	}
	opts.logger().Debug("registry normalized",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("fixed", result.FixedCapsules),
	)

	out := NormalizeOutput{OK: true, Result: result, Output: output}
	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "✓ fixed %d of %d locator(s), wrote %s\n", out.FixedCapsules, out.Total, out.Output)
	return nil
}
