// Package b64 implements the base64url-without-padding codec used to embed
// JSON payloads in locator URLs.
package b64

import (
	"encoding/base64"
	"strings"

	"github.com/roach88/krystal/internal/kerr"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Encode returns the base64url encoding of data with all '=' padding stripped.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode decodes unpadded base64url text.
// Padding is restored ((4 - len%4) % 4 '=' characters) before decoding.
// Fails with a decode error on characters outside the base64url alphabet
// or an impossible length.
func Decode(text string) ([]byte, error) {
	// The stdlib decoder skips '\r' and '\n'; reject them (and every other
	// non-alphabet byte) up front.
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '=' && strings.IndexByte(alphabet, c) < 0 {
			return nil, kerr.New(kerr.KindDecode, "invalid base64url character %q at offset %d", c, i)
		}
	}

	pad := (4 - len(text)%4) % 4
	padded := text + strings.Repeat("=", pad)

	data, err := base64.URLEncoding.DecodeString(padded)
	if err != nil {
		return nil, kerr.Wrap(kerr.KindDecode, "invalid base64url", err)
	}
	return data, nil
}
