// Package normalize rewrites content capsules whose beat/step metadata
// disagrees with the KKS-1.0 derivation for their pulse.
package normalize

import (
	"strings"

	"github.com/roach88/krystal/internal/canon"
	"github.com/roach88/krystal/internal/kks"
	"github.com/roach88/krystal/internal/krl"
	"github.com/roach88/krystal/internal/registry"
)

// Result counts the entries seen and the capsules rewritten.
type Result struct {
	FixedCapsules int `json:"fixedCapsules"`
	Total         int `json:"total"`
}

// Normalize returns a new registry in which every content capsule carries
// the derived beat and stepIndex for its pulse. reg is not modified.
// Entries that are not capsules, or whose capsule cannot be decoded, pass
// through unchanged.
func Normalize(reg registry.Registry) (registry.Registry, Result) {
	urls := reg.URLs()
	fixed := 0
	for i, raw := range urls {
		if out, ok := FixURL(raw); ok {
			urls[i] = out
			fixed++
		}
	}
	return registry.New(urls...), Result{FixedCapsules: fixed, Total: len(urls)}
}

// FixURL corrects a single capsule locator. It reports false, returning
// rawURL as is, when the URL is not a capsule, the capsule is malformed or
// its metadata already matches.
func FixURL(rawURL string) (string, bool) {
	parts := krl.Split(rawURL)
	if !strings.HasPrefix(parts.Path, "/s/") {
		return rawURL, false
	}

	p := krl.FirstParam(parts.Query, krl.QueryParam)
	encoded, ok := strings.CutPrefix(p, krl.CapsulePrefix)
	if !ok {
		return rawURL, false
	}

	payload, err := krl.DecodePayload(encoded)
	if err != nil {
		return rawURL, false
	}
	pulse, ok := payload["u"].(canon.Int)
	if !ok {
		return rawURL, false
	}
	coord, err := kks.Derive(pulse.Big())
	if err != nil {
		return rawURL, false
	}

	if intEquals(payload["b"], coord.Beat) && intEquals(payload["s"], coord.StepIndex) {
		return rawURL, false
	}

	next := payload.Clone()
	next["b"] = canon.NewInt(int64(coord.Beat))
	next["s"] = canon.NewInt(int64(coord.StepIndex))
	reencoded, err := krl.EncodePayload(next)
	if err != nil {
		return rawURL, false
	}

	return replaceParam(rawURL, p, krl.CapsulePrefix+reencoded), true
}

func intEquals(v canon.Value, want int) bool {
	n, ok := v.(canon.Int)
	return ok && n.Equal(int64(want))
}

// replaceParam swaps the first query pair whose key is p and whose decoded
// value is old for p=repl. Everything outside that pair is kept byte for
// byte, including other parameters and the fragment.
func replaceParam(rawURL, old, repl string) string {
	base, frag, hasFrag := strings.Cut(rawURL, "#")
	prefix, rawQuery, _ := strings.Cut(base, "?")

	pairs := strings.Split(rawQuery, "&")
	for i, pair := range pairs {
		k, v, _ := strings.Cut(pair, "=")
		if krl.Unescape(k) != krl.QueryParam {
			continue
		}
		if krl.Unescape(v) == old {
			pairs[i] = krl.QueryParam + "=" + repl
			break
		}
	}

	out := prefix + "?" + strings.Join(pairs, "&")
	if hasFrag {
		out += "#" + frag
	}
	return out
}
