package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares data against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, data []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

// RunWithGolden runs s, fails t on any mismatching vector and compares the
// suite snapshot against its golden file.
func RunWithGolden(t *testing.T, s *Suite) *Result {
	t.Helper()

	result := Run(s)
	for _, f := range result.Failures {
		t.Error(f)
	}

	snap, err := Snapshot(s)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	AssertGolden(t, s.Name, snap)

	return result
}

// GoldenPath returns the snapshot file kept next to a suite file:
// vectors.yaml becomes vectors.golden.
func GoldenPath(suitePath string) string {
	return strings.TrimSuffix(suitePath, filepath.Ext(suitePath)) + ".golden"
}

// GoldenStatus is the outcome of CheckGoldenFile.
type GoldenStatus string

const (
	GoldenMatch   GoldenStatus = "match"
	GoldenMissing GoldenStatus = "missing"
	GoldenDiffers GoldenStatus = "differs"
	GoldenWritten GoldenStatus = "written"
)

// CheckGoldenFile compares snap with the file at path, or rewrites the
// file when update is set. A missing file is reported, not an error.
func CheckGoldenFile(path string, snap []byte, update bool) (GoldenStatus, error) {
	if update {
		if err := os.WriteFile(path, snap, 0o644); err != nil {
			return "", fmt.Errorf("write golden file: %w", err)
		}
		return GoldenWritten, nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return GoldenMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, snap) {
		return GoldenDiffers, nil
	}
	return GoldenMatch, nil
}
