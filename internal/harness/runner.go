package harness

import (
	"fmt"
	"math/big"

	"github.com/roach88/krystal/internal/canon"
	"github.com/roach88/krystal/internal/kerr"
	"github.com/roach88/krystal/internal/kks"
	"github.com/roach88/krystal/internal/krl"
)

// Result is the outcome of running one suite.
type Result struct {
	Suite string `json:"suite"`

	// Pass is true if every vector matched.
	Pass bool `json:"pass"`

	// Checks is the number of vectors run.
	Checks int `json:"checks"`

	// Failures describes each mismatching vector. Empty if Pass is true.
	Failures []string `json:"failures"`
}

func (r *Result) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run checks every vector in s against the engines.
func Run(s *Suite) *Result {
	r := &Result{Suite: s.Name, Pass: true, Checks: s.Checks(), Failures: []string{}}

	for i, c := range s.KKS {
		runKKS(r, fmt.Sprintf("kks[%d] pulse=%s", i, c.Pulse), c)
	}
	for i, c := range s.KRL {
		runKRL(r, fmt.Sprintf("krl[%d] %s", i, c.URL), c)
	}
	for i, c := range s.KCS {
		runKCS(r, fmt.Sprintf("kcs[%d] %s", i, c.Name), c)
	}

	return r
}

// checkError reports whether err matches the expected kind, recording a
// failure if not. It returns true when the vector is fully handled.
func checkError(r *Result, label, want string, err error) bool {
	switch {
	case want == "" && err == nil:
		return false
	case want == "":
		r.fail("%s: unexpected error: %v", label, err)
	case err == nil:
		r.fail("%s: expected %s, got success", label, want)
	case string(kerr.KindOf(err)) != want:
		r.fail("%s: expected %s, got %s (%v)", label, want, kerr.KindOf(err), err)
	}
	return true
}

func runKKS(r *Result, label string, c KKSCase) {
	coord, err := derive(c.Pulse)
	if checkError(r, label, c.Error, err) {
		return
	}

	e := c.Expect
	if e.DayIndex != nil && coord.DayIndex().String() != *e.DayIndex {
		r.fail("%s: dayIndex = %s, want %s", label, coord.DayIndex(), *e.DayIndex)
	}
	compareInt(r, label, "beat", coord.Beat, e.Beat)
	compareInt(r, label, "stepIndex", coord.StepIndex, e.StepIndex)
	compareInt(r, label, "pulseInStep", coord.PulseInStep, e.PulseInStep)
	compareInt(r, label, "gridIndex", coord.GridIndex, e.GridIndex)
	if e.RMu != nil && coord.RMu != *e.RMu {
		r.fail("%s: rMu = %d, want %d", label, coord.RMu, *e.RMu)
	}
	if e.Kairos != nil && coord.Kairos() != *e.Kairos {
		r.fail("%s: kairos = %s, want %s", label, coord.Kairos(), *e.Kairos)
	}
}

func derive(pulse string) (kks.Coord, error) {
	p, err := kks.ParsePulse(pulse)
	if err != nil {
		return kks.Coord{}, err
	}
	return kks.Derive(p)
}

func compareInt(r *Result, label, field string, got int, want *int) {
	if want != nil && got != *want {
		r.fail("%s: %s = %d, want %d", label, field, got, *want)
	}
}

func runKRL(r *Result, label string, c KRLCase) {
	d, err := krl.Decode(c.URL)
	if checkError(r, label, c.Error, err) {
		return
	}

	e := c.Expect
	if string(d.Kind) != e.Kind {
		r.fail("%s: kind = %s, want %s", label, d.Kind, e.Kind)
	}
	compareOptional(r, label, "artifactHash", d.ArtifactHash, e.ArtifactHash)
	compareOptional(r, label, "pulse", bigText(d.Pulse), e.Pulse)
	compareOptional(r, label, "beat", bigText(d.Beat), e.Beat)
	compareOptional(r, label, "stepIndex", bigText(d.StepIndex), e.StepIndex)
}

func bigText(n *big.Int) *string {
	if n == nil {
		return nil
	}
	s := n.String()
	return &s
}

func compareOptional(r *Result, label, field string, got, want *string) {
	switch {
	case got == nil && want == nil:
	case got == nil:
		r.fail("%s: %s absent, want %s", label, field, *want)
	case want == nil:
		r.fail("%s: %s = %s, want absent", label, field, *got)
	case *got != *want:
		r.fail("%s: %s = %s, want %s", label, field, *got, *want)
	}
}

func runKCS(r *Result, label string, c KCSCase) {
	out, err := canonicalize(c.Input)
	if checkError(r, label, c.Error, err) {
		return
	}

	if string(out) != *c.Canonical {
		r.fail("%s: canonical = %s, want %s", label, out, *c.Canonical)
	}
	if c.SHA256 != "" {
		if got := canon.SHA256Hex(out); got != c.SHA256 {
			r.fail("%s: sha256 = %s, want %s", label, got, c.SHA256)
		}
	}
}

func canonicalize(input string) ([]byte, error) {
	v, err := canon.Parse([]byte(input))
	if err != nil {
		return nil, err
	}
	return canon.Marshal(v)
}

// Snapshot returns the KCS-1 encoding of what the engines produce for
// every input in s, expected values aside. Golden files store it.
func Snapshot(s *Suite) ([]byte, error) {
	kksOut := make([]any, len(s.KKS))
	for i, c := range s.KKS {
		entry := map[string]any{"pulse": c.Pulse}
		if coord, err := derive(c.Pulse); err != nil {
			entry["error"] = string(kerr.KindOf(err))
		} else {
			entry["coord"] = map[string]any{
				"dayIndex":    coord.DayIndex(),
				"beat":        coord.Beat,
				"stepIndex":   coord.StepIndex,
				"pulseInStep": coord.PulseInStep,
				"gridIndex":   coord.GridIndex,
				"rMu":         coord.RMu,
				"kairos":      coord.Kairos(),
			}
		}
		kksOut[i] = entry
	}

	krlOut := make([]any, len(s.KRL))
	for i, c := range s.KRL {
		entry := map[string]any{"url": c.URL}
		if d, err := krl.Decode(c.URL); err != nil {
			entry["error"] = string(kerr.KindOf(err))
		} else {
			entry["kind"] = string(d.Kind)
			entry["artifactHash"] = d.ArtifactHash
			entry["pulse"] = d.Pulse
			entry["beat"] = d.Beat
			entry["stepIndex"] = d.StepIndex
		}
		krlOut[i] = entry
	}

	kcsOut := make([]any, len(s.KCS))
	for i, c := range s.KCS {
		entry := map[string]any{"name": c.Name}
		if out, err := canonicalize(c.Input); err != nil {
			entry["error"] = string(kerr.KindOf(err))
		} else {
			entry["canonical"] = string(out)
			entry["sha256"] = canon.SHA256Hex(out)
		}
		kcsOut[i] = entry
	}

	data, err := canon.Marshal(map[string]any{
		"suite": s.Name,
		"kks":   kksOut,
		"krl":   krlOut,
		"kcs":   kcsOut,
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.Name, err)
	}
	return data, nil
}
