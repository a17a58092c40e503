package canon

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"unicode/utf8"

	"github.com/roach88/krystal/internal/kerr"
)

const hexDigits = "0123456789abcdef"

// Marshal produces KCS-1 canonical JSON bytes for hashing and signing.
// CRITICAL: byte-identical output across implementations is the contract.
//
// Rules:
//  1. Object keys sorted by Unicode code point, no whitespace anywhere
//  2. Integers as minimal base-10, arbitrary precision
//  3. Strings minimally escaped: '"', '\\' and U+0000-U+001F only;
//     '/' and non-ASCII pass through as UTF-8
//  4. No floats, ever: NaN/Inf fail as non-finite, every other float
//     (and every Number node) fails as a type mismatch
//  5. No Unicode normalization
//
// v may be a Value or a native Go value accepted by FromGo.
func Marshal(v any) ([]byte, error) {
	val, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	e := encoder{}
	if err := e.encode(val); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// MustMarshal is like Marshal but panics on error.
// Use only in tests or when the input is known to be valid.
func MustMarshal(v any) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// MarshalCompact encodes v like Marshal but emits Number nodes verbatim.
// This is the transport encoding for re-encoded payloads: deterministic,
// sorted, whitespace-free, but not a hashing input.
func MarshalCompact(v Value) ([]byte, error) {
	e := encoder{allowNumber: true}
	if err := e.encode(v); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf         bytes.Buffer
	allowNumber bool
}

func (e *encoder) encode(v Value) error {
	switch val := v.(type) {
	case nil, Null:
		e.buf.WriteString("null")
	case Bool:
		if val {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case Int:
		e.buf.WriteString(val.String())
	case String:
		return e.encodeString(string(val))
	case Number:
		if !e.allowNumber {
			return kerr.New(kerr.KindTypeMismatch, "floats are not allowed in canonical form (use integers): %s", string(val))
		}
		e.buf.WriteString(string(val))
	case Array:
		e.buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.encode(elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		e.buf.WriteByte(']')
	case Object:
		e.buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.encodeString(k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			e.buf.WriteByte(':')
			if err := e.encode(val[k]); err != nil {
				return fmt.Errorf("object[%q]: %w", k, err)
			}
		}
		e.buf.WriteByte('}')
	default:
		return kerr.New(kerr.KindTypeMismatch, "unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// encodeString writes s quoted with minimal escaping.
// Only ASCII bytes are ever escaped, so multi-byte UTF-8 sequences are
// copied through untouched.
func (e *encoder) encodeString(s string) error {
	if !utf8.ValidString(s) {
		return kerr.New(kerr.KindTypeMismatch, "string is not valid UTF-8")
	}

	e.buf.WriteByte('"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		e.buf.WriteString(s[start:i])
		switch c {
		case '"':
			e.buf.WriteString(`\"`)
		case '\\':
			e.buf.WriteString(`\\`)
		case '\b':
			e.buf.WriteString(`\b`)
		case '\f':
			e.buf.WriteString(`\f`)
		case '\n':
			e.buf.WriteString(`\n`)
		case '\r':
			e.buf.WriteString(`\r`)
		case '\t':
			e.buf.WriteString(`\t`)
		default:
			e.buf.WriteString(`\u00`)
			e.buf.WriteByte(hexDigits[c>>4])
			e.buf.WriteByte(hexDigits[c&0xf])
		}
		start = i + 1
	}
	e.buf.WriteString(s[start:])
	e.buf.WriteByte('"')
	return nil
}

// FromGo converts a native Go value to a Value.
//
// Accepted: nil, Value, bool, string, all integer kinds, *big.Int,
// json.Number, slices/arrays, and maps with string keys.
// Rejected: float32/float64 (NaN/Inf as non-finite, others as type
// mismatch), maps with non-string keys, and every other type.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return NewInt(int64(val)), nil
	case int8:
		return NewInt(int64(val)), nil
	case int16:
		return NewInt(int64(val)), nil
	case int32:
		return NewInt(int64(val)), nil
	case int64:
		return NewInt(val), nil
	case uint:
		return NewBigInt(new(big.Int).SetUint64(uint64(val))), nil
	case uint8:
		return NewInt(int64(val)), nil
	case uint16:
		return NewInt(int64(val)), nil
	case uint32:
		return NewInt(int64(val)), nil
	case uint64:
		return NewBigInt(new(big.Int).SetUint64(val)), nil
	case *big.Int:
		if val == nil {
			return Null{}, nil
		}
		return NewBigInt(val), nil
	case float64:
		return nil, rejectFloat(val)
	case float32:
		return nil, rejectFloat(float64(val))
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	}

	if n, ok := asJSONNumber(v); ok {
		return numberValue(n)
	}
	return fromReflect(reflect.ValueOf(v))
}

func rejectFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return kerr.New(kerr.KindNonFinite, "non-finite number not allowed")
	}
	return kerr.New(kerr.KindTypeMismatch, "floats are not allowed in canonical form (use integers)")
}

// fromReflect handles typed slices and maps ([]string, map[string]int,
// map[int]any, ...).
func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null{}, nil
		}
		arr := make(Array, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, kerr.New(kerr.KindTypeMismatch, "object keys must be strings, got %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		obj := make(Object, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			ev, err := FromGo(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return Null{}, nil
		}
		return FromGo(rv.Elem().Interface())
	}
	return nil, kerr.New(kerr.KindTypeMismatch, "unsupported type for canonical JSON: %s", rv.Type())
}
