// Package krl decodes KRL-1.0 locator URLs.
//
// Recognized shapes, checked in this order:
//
//	stream (path):     .../stream/p/{b64url-json}
//	stream (fragment): .../stream#t={b64url-json}
//	content:           /s/{artifactHash}?p={b64url-json}
//	content (capsule): /s/{artifactHash}?p=c:{b64url-json}   keys u/b/s
//
// Anything else decodes as KindUnknown. A malformed embedded payload fails
// the whole decode; there is no best-effort result.
package krl

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/krystal/internal/b64"
	"github.com/roach88/krystal/internal/canon"
	"github.com/roach88/krystal/internal/kerr"
)

// Kind classifies a locator.
type Kind string

const (
	KindStream  Kind = "stream"
	KindContent Kind = "content"
	KindUnknown Kind = "unknown"
)

const (
	streamPathMarker = "/stream/p/"
	streamSuffix     = "/stream"
	contentPrefix    = "/s/"

	// CapsulePrefix marks a compact content payload with keys u/b/s.
	CapsulePrefix = "c:"

	// QueryParam is the content locator payload parameter.
	QueryParam = "p"

	// FragmentParam is the fragment stream payload parameter.
	FragmentParam = "t"
)

// claimKeys names the payload keys carrying pulse, beat and stepIndex.
type claimKeys struct {
	pulse, beat, step string
}

var (
	fullKeys    = claimKeys{pulse: "pulse", beat: "beat", step: "stepIndex"}
	capsuleKeys = claimKeys{pulse: "u", beat: "b", step: "s"}
)

// Decoded is the result of decoding a locator. Optional fields are nil
// when absent; KindUnknown carries none of them.
type Decoded struct {
	Kind         Kind
	URL          string
	Pulse        *big.Int
	Beat         *big.Int
	StepIndex    *big.Int
	ArtifactHash *string

	// Payload is the embedded JSON object as decoded, nil if none.
	Payload canon.Object
}

// HasCoordinateClaim reports whether pulse, beat and stepIndex are all present.
func (d Decoded) HasCoordinateClaim() bool {
	return d.Pulse != nil && d.Beat != nil && d.StepIndex != nil
}

// Decode classifies a locator and decodes its embedded payload.
// The URL itself never fails to decode: a string that matches no shape is
// KindUnknown. Fails with a decode error only if an embedded payload is not
// base64url-encoded UTF-8 JSON holding an object with integer claim fields.
func Decode(rawURL string) (Decoded, error) {
	parts := Split(rawURL)
	path := parts.Path

	if i := strings.Index(path, streamPathMarker); i >= 0 {
		seg := path[i+len(streamPathMarker):]
		if j := strings.Index(seg, streamPathMarker); j >= 0 {
			seg = seg[:j]
		}
		return decodeStream(rawURL, seg)
	}

	if strings.HasSuffix(strings.TrimRight(path, "/"), streamSuffix) && parts.Fragment != "" {
		if t := FirstParam(parts.Fragment, FragmentParam); t != "" {
			return decodeStream(rawURL, t)
		}
	}

	if strings.HasPrefix(path, contentPrefix) {
		return decodeContent(rawURL, parts)
	}

	return Decoded{Kind: KindUnknown, URL: rawURL}, nil
}

func decodeStream(rawURL, encoded string) (Decoded, error) {
	payload, err := DecodePayload(encoded)
	if err != nil {
		return Decoded{}, err
	}
	d := Decoded{Kind: KindStream, URL: rawURL, Payload: payload}
	if err := d.liftClaims(fullKeys); err != nil {
		return Decoded{}, err
	}
	return d, nil
}

// decodeContent reads the artifact hash as the last path segment, exactly
// as written in the URL.
func decodeContent(rawURL string, parts Parts) (Decoded, error) {
	hash := parts.Path[strings.LastIndex(parts.Path, "/")+1:]
	d := Decoded{Kind: KindContent, URL: rawURL, ArtifactHash: &hash}

	p := FirstParam(parts.Query, QueryParam)
	if p == "" {
		return d, nil
	}

	keys := fullKeys
	if rest, ok := strings.CutPrefix(p, CapsulePrefix); ok {
		p = rest
		keys = capsuleKeys
	}

	payload, err := DecodePayload(p)
	if err != nil {
		return Decoded{}, err
	}
	d.Payload = payload
	if err := d.liftClaims(keys); err != nil {
		return Decoded{}, err
	}
	return d, nil
}

func (d *Decoded) liftClaims(keys claimKeys) error {
	var err error
	if d.Pulse, err = IntField(d.Payload, keys.pulse); err != nil {
		return err
	}
	if d.Beat, err = IntField(d.Payload, keys.beat); err != nil {
		return err
	}
	if d.StepIndex, err = IntField(d.Payload, keys.step); err != nil {
		return err
	}
	return nil
}

// IntField reads an optional integer field. Absent and null are both nil;
// any other non-integer value is a decode error.
func IntField(obj canon.Object, key string) (*big.Int, error) {
	v, ok := obj[key]
	if !ok {
		return nil, nil
	}
	switch val := v.(type) {
	case canon.Null:
		return nil, nil
	case canon.Int:
		return val.Big(), nil
	default:
		return nil, kerr.New(kerr.KindDecode, "payload field %q must be an integer, got %s", key, canon.KindName(v))
	}
}

// DecodePayload decodes base64url text into a JSON object.
func DecodePayload(encoded string) (canon.Object, error) {
	raw, err := b64.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	obj, err := canon.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return obj, nil
}

// EncodePayload is the inverse of DecodePayload: compact sorted JSON,
// UTF-8, base64url without padding.
func EncodePayload(obj canon.Object) (string, error) {
	data, err := canon.MarshalCompact(obj)
	if err != nil {
		return "", fmt.Errorf("payload: %w", err)
	}
	return b64.Encode(data), nil
}
