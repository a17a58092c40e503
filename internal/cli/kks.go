package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/kks"
)

// NewKKSCommand creates the kks command.
func NewKKSCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kks <pulse>",
		Short: "Compute the KKS-1.0 coordinate for a pulse",
		Long: `Compute the KKS-1.0 coordinate for a non-negative integer pulse.

The pulse may have any number of digits.

Examples:
  krystal kks 17491
  krystal kks 1000000000000000000000000000000 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKKS(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runKKS(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	pulse, err := kks.ParsePulse(arg)
	if err != nil {
		return commandFailed(formatter, "invalid pulse", err)
	}
	coord, err := kks.Derive(pulse)
	if err != nil {
		return commandFailed(formatter, "derive coordinate", err)
	}
	opts.logger().Debug("coordinate derived", zap.String("pulse", arg), zap.String("kairos", coord.Kairos()))

	rec := coord.Record()
	if formatter.IsJSON() {
		return formatter.Success(rec)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%-12s %s\n", "pulse", rec.Pulse)
	fmt.Fprintf(w, "%-12s %s\n", "dayIndex", rec.DayIndex)
	fmt.Fprintf(w, "%-12s %d\n", "beat", rec.Beat)
	fmt.Fprintf(w, "%-12s %d\n", "stepIndex", rec.StepIndex)
	fmt.Fprintf(w, "%-12s %d\n", "pulseInStep", rec.PulseInStep)
	fmt.Fprintf(w, "%-12s %d\n", "gridIndex", rec.GridIndex)
	fmt.Fprintf(w, "%-12s %d\n", "rMu", rec.RMu)
	fmt.Fprintf(w, "%-12s %s\n", "kairos", rec.Kairos)
	return nil
}
