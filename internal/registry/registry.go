// Package registry loads and writes locator registries: JSON documents of
// the shape {"urls": ["<url>", ...]}.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/roach88/krystal/internal/canon"
	"github.com/roach88/krystal/internal/kerr"
)

// Registry is an immutable ordered sequence of locator URLs.
type Registry struct {
	urls []string
}

// New creates a Registry holding a copy of urls.
func New(urls ...string) Registry {
	return Registry{urls: append([]string{}, urls...)}
}

// URLs returns a copy of the entries in registry order.
func (r Registry) URLs() []string {
	return append([]string{}, r.urls...)
}

// Len returns the number of entries.
func (r Registry) Len() int {
	return len(r.urls)
}

// At returns the entry at index i.
func (r Registry) At(i int) string {
	return r.urls[i]
}

// Parse validates a registry document.
//
// Errors:
//   - decode error: not JSON
//   - type mismatch: top level not an object, urls not an array, or a
//     non-string element (the index is reported)
//   - schema error: urls missing
func Parse(data []byte) (Registry, error) {
	doc, err := canon.Parse(data)
	if err != nil {
		return Registry{}, err
	}

	obj, ok := doc.(canon.Object)
	if !ok {
		return Registry{}, kerr.New(kerr.KindTypeMismatch, "registry must be a JSON object, got %s", canon.KindName(doc))
	}

	raw, ok := obj["urls"]
	if !ok {
		return Registry{}, kerr.New(kerr.KindSchema, "registry missing 'urls'")
	}

	arr, ok := raw.(canon.Array)
	if !ok {
		return Registry{}, kerr.New(kerr.KindTypeMismatch, "registry 'urls' must be an array, got %s", canon.KindName(raw))
	}

	urls := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := elem.(canon.String)
		if !ok {
			return Registry{}, kerr.New(kerr.KindTypeMismatch, "registry urls[%d] must be a string, got %s", i, canon.KindName(elem))
		}
		urls[i] = string(s)
	}

	return Registry{urls: urls}, nil
}

// Load reads and parses a registry file.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return Registry{}, fmt.Errorf("load registry %s: %w", path, err)
	}
	return reg, nil
}

type document struct {
	URLs []string `json:"urls"`
}

// Marshal encodes r as a pretty-printed registry document: two-space
// indent, UTF-8, no HTML escaping, trailing newline.
func Marshal(r Registry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{URLs: r.URLs()}); err != nil {
		return nil, fmt.Errorf("marshal registry: %w", err)
	}
	return buf.Bytes(), nil
}

// Write marshals r and writes it to path.
func Write(path string, r Registry) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Digest returns the SHA-256 of the KCS-1 encoding of {"urls": [...]}.
// Registries with the same entries in the same order share a digest.
func (r Registry) Digest() (string, error) {
	arr := make(canon.Array, len(r.urls))
	for i, u := range r.urls {
		arr[i] = canon.String(u)
	}
	return canon.Digest(canon.Object{"urls": arr})
}
