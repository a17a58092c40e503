package cli

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/canon"
	"github.com/roach88/krystal/internal/krl"
)

// NewDecodeURLCommand creates the decode-url command.
func NewDecodeURLCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode-url <url>",
		Short: "Decode a KRL-1.0 locator",
		Long: `Decode a KRL-1.0 locator URL and print its kind and claims.

Exit codes:
  0 - Decoded (including unknown shapes)
  2 - Malformed URL or embedded payload

Examples:
  krystal decode-url 'https://x/s/abc?p=c:eyJ1Ijo1LCJiIjowLCJzIjoxfQ'
  krystal decode-url 'https://x/stream/p/eyJwdWxzZSI6N30' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecodeURL(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDecodeURL(opts *RootOptions, rawURL string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	d, err := krl.Decode(rawURL)
	if err != nil {
		return commandFailed(formatter, "decode url", err)
	}
	opts.logger().Debug("locator decoded", zap.String("kind", string(d.Kind)))

	rec := d.Record()
	if formatter.IsJSON() {
		return formatter.Success(rec)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%-13s %s\n", "kind", rec.Kind)
	fmt.Fprintf(w, "%-13s %s\n", "url", rec.URL)
	fmt.Fprintf(w, "%-13s %s\n", "artifactHash", optionalText(rec.ArtifactHash))
	fmt.Fprintf(w, "%-13s %s\n", "pulse", bigOrDash(rec.Pulse))
	fmt.Fprintf(w, "%-13s %s\n", "beat", bigOrDash(rec.Beat))
	fmt.Fprintf(w, "%-13s %s\n", "stepIndex", bigOrDash(rec.StepIndex))

	payload := "-"
	if rec.Payload != nil {
		data, err := canon.MarshalCompact(rec.Payload)
		if err != nil {
			return commandFailed(formatter, "encode payload", err)
		}
		payload = string(data)
	}
	fmt.Fprintf(w, "%-13s %s\n", "payload", payload)
	return nil
}

func optionalText(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func bigOrDash(n *big.Int) string {
	if n == nil {
		return "-"
	}
	return n.String()
}
