// Package verify checks every locator in a registry against KRL-1.0 decoding
// and the KKS-1.0 coordinate rules, accumulating issues instead of failing.
package verify

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/krystal/internal/kks"
	"github.com/roach88/krystal/internal/krl"
	"github.com/roach88/krystal/internal/registry"
)

// Level is the severity of an Issue.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
)

// Issue codes.
const (
	CodeDecodeFailed   = "krl_decode_failed"
	CodeUnknownLocator = "unknown_locator"
	CodeKKSMismatch    = "kks_mismatch"
	CodeInvalidPulse   = "invalid_pulse"
)

// Issue describes one problem found at a registry index.
type Issue struct {
	Index   int    `json:"index"`
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Result summarizes a verification run. OK is true iff no issue has
// LevelError. Issues are in registry order.
type Result struct {
	OK      bool    `json:"ok"`
	Total   int     `json:"total"`
	Decoded int     `json:"decoded"`
	Issues  []Issue `json:"issues"`
}

// Errors counts issues at LevelError.
func (r Result) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Level == LevelError {
			n++
		}
	}
	return n
}

// Options controls a verification run.
type Options struct {
	// Strict reports decode failures and unknown locators as errors
	// instead of warnings. KKS mismatches are errors either way.
	Strict bool

	// Workers bounds concurrent entry checks. Values below 2 check
	// entries sequentially.
	Workers int
}

// DefaultOptions returns strict, sequential verification.
func DefaultOptions() Options {
	return Options{Strict: true, Workers: 1}
}

// entry is the outcome of checking a single URL.
type entry struct {
	decoded bool
	issues  []Issue
}

// Verify checks every URL in reg. The result does not depend on
// opts.Workers. The only error returned is ctx's, if it ends before all
// entries are checked.
func Verify(ctx context.Context, reg registry.Registry, opts Options) (Result, error) {
	entries := make([]entry, reg.Len())

	if opts.Workers < 2 {
		for i := range entries {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			entries[i] = check(i, reg.At(i), opts.Strict)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range entries {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Each goroutine writes only its own slot.
				entries[i] = check(i, reg.At(i), opts.Strict)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	res := Result{OK: true, Total: reg.Len(), Issues: []Issue{}}
	for _, e := range entries {
		if e.decoded {
			res.Decoded++
		}
		res.Issues = append(res.Issues, e.issues...)
	}
	res.OK = res.Errors() == 0
	return res, nil
}

// check verifies the URL at index and returns whether it decoded plus any
// issues found.
func check(index int, rawURL string, strict bool) entry {
	soft := LevelWarn
	if strict {
		soft = LevelError
	}
	issue := func(level Level, code, msg string) Issue {
		return Issue{Index: index, Level: level, Code: code, Message: msg, URL: rawURL}
	}

	d, err := krl.Decode(rawURL)
	if err != nil {
		return entry{issues: []Issue{issue(soft, CodeDecodeFailed, err.Error())}}
	}

	if d.Kind == krl.KindUnknown {
		return entry{decoded: true, issues: []Issue{issue(soft, CodeUnknownLocator, "unrecognized locator shape")}}
	}

	if !d.HasCoordinateClaim() {
		return entry{decoded: true}
	}

	coord, err := kks.Derive(d.Pulse)
	if err != nil {
		return entry{decoded: true, issues: []Issue{issue(LevelError, CodeInvalidPulse, err.Error())}}
	}

	if !coord.Matches(d.Beat, d.StepIndex) {
		msg := fmt.Sprintf("claimed beat/step=(%s,%s) but derived=(%d,%d) for pulse=%s",
			d.Beat.String(), d.StepIndex.String(), coord.Beat, coord.StepIndex, d.Pulse.String())
		return entry{decoded: true, issues: []Issue{issue(LevelError, CodeKKSMismatch, msg)}}
	}

	return entry{decoded: true}
}
