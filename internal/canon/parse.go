package canon

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/roach88/krystal/internal/kerr"
)

// Parse decodes a JSON document into a Value.
//
// Integers of any length become Int. Non-integral numbers become Number so
// the document survives a decode/encode round trip unchanged; the KCS-1
// encoder rejects them. The input must be valid UTF-8 holding exactly one
// JSON value. Failures are decode errors.
func Parse(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return nil, kerr.New(kerr.KindDecode, "invalid JSON: input is not valid UTF-8")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, kerr.Wrap(kerr.KindDecode, "invalid JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, kerr.New(kerr.KindDecode, "invalid JSON: trailing data after top-level value")
	}
	if err := checkSurrogates(data); err != nil {
		return nil, err
	}

	return convert(raw)
}

// checkSurrogates rejects \u escapes naming a UTF-16 surrogate that is not
// part of a high/low pair. The json decoder would silently turn them into
// U+FFFD, changing the string and so its canonical bytes. data must already
// be a well-formed JSON document.
func checkSurrogates(data []byte) error {
	if !bytes.Contains(data, []byte(`\u`)) {
		return nil
	}

	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			inString = c == '"'
			continue
		}
		switch c {
		case '"':
			inString = false
		case '\\':
			if data[i+1] != 'u' {
				i++
				continue
			}
			r := hex4(data[i+2 : i+6])
			i += 5
			switch {
			case r >= 0xD800 && r <= 0xDBFF:
				if i+6 < len(data) && data[i+1] == '\\' && data[i+2] == 'u' {
					if lo := hex4(data[i+3 : i+7]); lo >= 0xDC00 && lo <= 0xDFFF {
						i += 6
						continue
					}
				}
				return kerr.New(kerr.KindDecode, "invalid JSON: unpaired surrogate escape \\u%04x", r)
			case r >= 0xDC00 && r <= 0xDFFF:
				return kerr.New(kerr.KindDecode, "invalid JSON: unpaired surrogate escape \\u%04x", r)
			}
		}
	}
	return nil
}

func hex4(b []byte) rune {
	var r rune
	for _, c := range b {
		r <<= 4
		switch {
		case '0' <= c && c <= '9':
			r |= rune(c - '0')
		case 'a' <= c && c <= 'f':
			r |= rune(c-'a') + 10
		default:
			r |= rune(c-'A') + 10
		}
	}
	return r
}

// ParseObject is Parse restricted to a top-level JSON object.
func ParseObject(data []byte) (Object, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, kerr.New(kerr.KindDecode, "decoded payload must be a JSON object, got %s", KindName(v))
	}
	return obj, nil
}

// convert maps the output of a UseNumber json.Decoder onto Value.
func convert(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return numberValue(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := convert(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := convert(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, kerr.New(kerr.KindTypeMismatch, "unsupported decoded type: %T", v)
	}
}

// numberValue classifies JSON number text: integer grammar becomes Int,
// anything with a fraction or exponent becomes Number.
func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return Number(s), nil
	}
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, kerr.New(kerr.KindDecode, "invalid JSON number: %s", s)
	}
	return Int{n: i}, nil
}

func asJSONNumber(v any) (json.Number, bool) {
	n, ok := v.(json.Number)
	return n, ok
}

// KindName returns the JSON type name of v for error messages.
func KindName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "boolean"
	case Int:
		return "integer"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
