package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SHA256Hex returns the SHA-256 digest of data as 64 lowercase hex characters.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Digest returns SHA256Hex of the KCS-1 canonical bytes of v.
// This is the identity downstream signing layers consume.
func Digest(v any) (string, error) {
	canonical, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return SHA256Hex(canonical), nil
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when the input is known to be valid.
func MustDigest(v any) string {
	d, err := Digest(v)
	if err != nil {
		panic(err)
	}
	return d
}
