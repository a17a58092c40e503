// Package schema lints registry documents against a CUE schema, reporting
// every violation with its source position instead of stopping at the first.
package schema

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/krystal/internal/kerr"
)

// registrySchema constrains the urls field only. The struct is open, so
// extra top-level keys are allowed.
const registrySchema = `
urls: [...string]
`

// Violation codes.
const (
	CodeNotObject   = "not_object"
	CodeMissingURLs = "missing_urls"
	CodeType        = "type"
)

// Violation is one schema failure. Line and Column are 1-based and zero
// when CUE supplied no position inside the document.
type Violation struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

func (v Violation) String() string {
	loc := v.Path
	if loc == "" {
		loc = "(root)"
	}
	if v.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", v.Line, v.Column, loc, v.Message)
	}
	return fmt.Sprintf("%s: %s", loc, v.Message)
}

// Report is the result of linting one document.
type Report struct {
	File       string      `json:"file"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Linter holds a compiled schema. A Linter is not safe for concurrent use;
// the underlying CUE context is not.
type Linter struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLinter compiles the registry schema.
func NewLinter() (*Linter, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(registrySchema, cue.Filename("registry.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile registry schema: %w", err)
	}
	return &Linter{ctx: ctx, schema: schema}, nil
}

// LintFile reads and lints the registry at path.
func (l *Linter) LintFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read registry: %w", err)
	}
	return l.Lint(path, data)
}

// Lint checks data, reporting positions against filename. It fails only
// when data is not JSON; schema failures are returned in the Report.
func (l *Linter) Lint(filename string, data []byte) (Report, error) {
	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return Report{}, kerr.Wrap(kerr.KindDecode, "invalid JSON", err)
	}
	doc := l.ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return Report{}, kerr.Wrap(kerr.KindDecode, "invalid JSON", err)
	}

	report := Report{File: filename, Violations: []Violation{}}
	switch {
	case doc.IncompleteKind() != cue.StructKind:
		report.Violations = append(report.Violations, violationAt(doc, CodeNotObject, "",
			fmt.Sprintf("registry must be a JSON object, got %s", doc.IncompleteKind())))
	case !doc.LookupPath(cue.ParsePath("urls")).Exists():
		report.Violations = append(report.Violations, violationAt(doc, CodeMissingURLs, "", "registry missing 'urls'"))
	default:
		unified := l.schema.Unify(doc)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			report.Violations = append(report.Violations, collect(err, filename)...)
		}
	}

	report.Valid = len(report.Violations) == 0
	return report, nil
}

func violationAt(v cue.Value, code, path, msg string) Violation {
	out := Violation{Code: code, Path: path, Message: msg}
	if pos := v.Pos(); pos.IsValid() {
		out.Line, out.Column = pos.Line(), pos.Column()
	}
	return out
}

// collect flattens a CUE error list into violations sorted by position,
// preferring positions inside the linted document over schema positions.
func collect(err error, filename string) []Violation {
	seen := make(map[string]bool)
	var out []Violation
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		v := Violation{
			Code:    CodeType,
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		if pos, ok := documentPos(errors.Positions(e), filename); ok {
			v.Line, v.Column = pos.Line(), pos.Column()
		}

		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}

	slices.SortStableFunc(out, func(a, b Violation) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		if a.Column != b.Column {
			return a.Column - b.Column
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

func documentPos(positions []token.Pos, filename string) (token.Pos, bool) {
	for _, p := range positions {
		if p.IsValid() && p.Filename() == filename {
			return p, true
		}
	}
	return token.NoPos, false
}
