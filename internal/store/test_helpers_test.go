package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/krystal/internal/verify"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult builds a failed result with one error and one warning.
func createTestResult() verify.Result {
	return verify.Result{
		OK:      false,
		Total:   3,
		Decoded: 2,
		Issues: []verify.Issue{
			{Index: 0, Level: verify.LevelError, Code: verify.CodeKKSMismatch, Message: "claimed beat/step=(0,0) but derived=(35,43) for pulse=17491", URL: "https://x/s/h?p=c:abc"},
			{Index: 2, Level: verify.LevelWarn, Code: verify.CodeUnknownLocator, Message: "unrecognized locator shape", URL: "https://x/other"},
		},
	}
}
