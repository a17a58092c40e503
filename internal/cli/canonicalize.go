package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/krystal/internal/canon"
)

// CanonicalizeOptions holds flags for the canonicalize command.
type CanonicalizeOptions struct {
	*RootOptions
	Hash bool // also print the SHA-256 of the canonical bytes
}

// CanonicalizeResult is the JSON payload of the canonicalize command.
type CanonicalizeResult struct {
	Canonical string `json:"canonical"`
	SHA256    string `json:"sha256,omitempty"`
}

// NewCanonicalizeCommand creates the canonicalize command.
func NewCanonicalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonicalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canonicalize <file|->",
		Short: "Print the KCS-1 canonical encoding of a JSON document",
		Long: `Print the KCS-1 canonical encoding of a JSON document.

Object keys are sorted by code point, strings are not normalized, and
non-integer numbers are rejected with TYPE_MISMATCH. NaN and Infinity
are not JSON, so input spelling them fails to parse and is reported as
DECODE_ERROR, as is a string escape naming an unpaired UTF-16 surrogate.
Use - to read standard input.

Examples:
  krystal canonicalize payload.json
  echo '{"b":1,"a":2}' | krystal canonicalize - --hash`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanonicalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Hash, "hash", false, "also print the SHA-256 of the canonical bytes")

	return cmd
}

func runCanonicalize(opts *CanonicalizeOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return commandFailed(formatter, "read input", err)
	}

	v, err := canon.Parse(data)
	if err != nil {
		return commandFailed(formatter, "parse input", err)
	}
	out, err := canon.Marshal(v)
	if err != nil {
		return commandFailed(formatter, "canonicalize", err)
	}
	opts.logger().Debug("canonicalized", zap.String("input", path), zap.Int("bytes", len(out)))

	result := CanonicalizeResult{Canonical: string(out)}
	if opts.Hash {
		result.SHA256 = canon.SHA256Hex(out)
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, result.Canonical)
	if opts.Hash {
		fmt.Fprintf(formatter.Writer, "sha256 %s\n", result.SHA256)
	}
	return nil
}
