package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/krystal/internal/kerr"
)

// Suite is a conformance suite: named groups of vectors for the coordinate
// engine, the locator decoder and the canonical encoder.
type Suite struct {
	// Name uniquely identifies this suite and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this suite covers.
	Description string `yaml:"description"`

	KKS []KKSCase `yaml:"kks,omitempty"`
	KRL []KRLCase `yaml:"krl,omitempty"`
	KCS []KCSCase `yaml:"kcs,omitempty"`
}

// KKSCase is one coordinate vector. Exactly one of Expect and Error is set.
type KKSCase struct {
	// Pulse is base-10 text so that values beyond int64 survive YAML.
	Pulse string `yaml:"pulse"`

	Expect *KKSExpect `yaml:"expect,omitempty"`

	// Error is the expected error kind, e.g. INVALID_ARGUMENT.
	Error string `yaml:"error,omitempty"`
}

// KKSExpect lists coordinate fields to check. Unset fields are not compared.
type KKSExpect struct {
	DayIndex    *string `yaml:"dayIndex,omitempty"`
	Beat        *int    `yaml:"beat,omitempty"`
	StepIndex   *int    `yaml:"stepIndex,omitempty"`
	PulseInStep *int    `yaml:"pulseInStep,omitempty"`
	GridIndex   *int    `yaml:"gridIndex,omitempty"`
	RMu         *int64  `yaml:"rMu,omitempty"`
	Kairos      *string `yaml:"kairos,omitempty"`
}

// KRLCase is one locator vector. Exactly one of Expect and Error is set.
type KRLCase struct {
	URL    string     `yaml:"url"`
	Expect *KRLExpect `yaml:"expect,omitempty"`
	Error  string     `yaml:"error,omitempty"`
}

// KRLExpect is compared exactly: an unset optional field must be absent
// from the decoded locator.
type KRLExpect struct {
	Kind         string  `yaml:"kind"`
	ArtifactHash *string `yaml:"artifactHash,omitempty"`
	Pulse        *string `yaml:"pulse,omitempty"`
	Beat         *string `yaml:"beat,omitempty"`
	StepIndex    *string `yaml:"stepIndex,omitempty"`
}

// KCSCase is one canonical-encoding vector. Input is JSON text; YAML
// scalars would lose the integer/float distinction.
type KCSCase struct {
	Name      string  `yaml:"name"`
	Input     string  `yaml:"input"`
	Canonical *string `yaml:"canonical,omitempty"`
	SHA256    string  `yaml:"sha256,omitempty"`
	Error     string  `yaml:"error,omitempty"`
}

// Checks returns the number of vectors in the suite.
func (s *Suite) Checks() int {
	return len(s.KKS) + len(s.KRL) + len(s.KCS)
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return ParseSuite(data)
}

// ParseSuite parses suite YAML with strict field checking.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}

	return &suite, nil
}

var knownKinds = map[string]bool{
	string(kerr.KindInvalidArgument): true,
	string(kerr.KindDecode):          true,
	string(kerr.KindTypeMismatch):    true,
	string(kerr.KindSchema):          true,
	string(kerr.KindNonFinite):       true,
}

// validateSuite checks that required fields are present and valid.
func validateSuite(s *Suite) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Checks() == 0 {
		return fmt.Errorf("suite %q has no vectors", s.Name)
	}

	for i, c := range s.KKS {
		if c.Pulse == "" {
			return fmt.Errorf("kks[%d]: pulse is required", i)
		}
		if err := exactlyOne(c.Expect != nil, c.Error); err != nil {
			return fmt.Errorf("kks[%d]: %w", i, err)
		}
	}

	for i, c := range s.KRL {
		if c.URL == "" {
			return fmt.Errorf("krl[%d]: url is required", i)
		}
		if err := exactlyOne(c.Expect != nil, c.Error); err != nil {
			return fmt.Errorf("krl[%d]: %w", i, err)
		}
		if c.Expect != nil && c.Expect.Kind == "" {
			return fmt.Errorf("krl[%d].expect: kind is required", i)
		}
	}

	for i, c := range s.KCS {
		if c.Name == "" {
			return fmt.Errorf("kcs[%d]: name is required", i)
		}
		if c.Input == "" {
			return fmt.Errorf("kcs[%d]: input is required", i)
		}
		if err := exactlyOne(c.Canonical != nil, c.Error); err != nil {
			return fmt.Errorf("kcs[%d]: %w", i, err)
		}
		if c.SHA256 != "" && c.Canonical == nil {
			return fmt.Errorf("kcs[%d]: sha256 requires canonical", i)
		}
	}

	return nil
}

func exactlyOne(hasExpect bool, errKind string) error {
	switch {
	case hasExpect && errKind != "":
		return fmt.Errorf("expected result and error are mutually exclusive")
	case !hasExpect && errKind == "":
		return fmt.Errorf("an expected result or an error is required")
	case errKind != "" && !knownKinds[errKind]:
		return fmt.Errorf("unknown error kind %q", errKind)
	}
	return nil
}
