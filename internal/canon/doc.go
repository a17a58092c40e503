// Package canon provides the restricted JSON value model and the KCS-1
// canonical encoder.
//
// canon imports nothing internal except kerr; every other package that
// touches JSON payloads goes through it.
//
// Key design constraints:
//   - NO float type in the value model. Non-integral numbers read from the
//     wire are kept as Number text and rejected by Marshal
//   - Integers are arbitrary precision (math/big)
//   - Object keys sort by code point; strings are never normalized
//   - Marshal output is the hashing contract; MarshalCompact is the
//     transport encoding for payloads re-embedded in locator URLs
package canon
