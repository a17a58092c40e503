package canon

import (
	"bytes"
	"math/big"
	"slices"
)

// Value is a sealed interface over the restricted JSON value model.
// Only Null, Bool, Int, String, Array, Object and Number implement it.
//
// There is no float type. Number holds the text of a non-integral JSON
// number read from the wire so decoded payloads can be passed through
// verbatim; the KCS-1 encoder rejects it.
type Value interface {
	canonValue() // Sealed
}

// Null is the JSON null value.
type Null struct{}

func (Null) canonValue() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) canonValue() {}

// String is a JSON string. It must hold valid UTF-8 to be encoded.
type String string

func (String) canonValue() {}

// Int is an arbitrary-precision JSON integer.
// The zero Int is 0.
type Int struct {
	n *big.Int
}

func (Int) canonValue() {}

// Array is an ordered sequence of values.
type Array []Value

func (Array) canonValue() {}

// Object maps string keys to values. Encoders always emit keys in
// code-point order, so map iteration order never leaks into output.
type Object map[string]Value

func (Object) canonValue() {}

// Number is the literal text of a non-integral JSON number (e.g. "1.5", "2e3").
type Number string

func (Number) canonValue() {}

// NewInt creates an Int from an int64.
func NewInt(n int64) Int {
	return Int{n: big.NewInt(n)}
}

// NewBigInt creates an Int holding a copy of n.
func NewBigInt(n *big.Int) Int {
	if n == nil {
		return Int{}
	}
	return Int{n: new(big.Int).Set(n)}
}

// Big returns a copy of the integer.
func (i Int) Big() *big.Int {
	if i.n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(i.n)
}

// Int64 returns the integer and whether it fits in int64.
func (i Int) Int64() (int64, bool) {
	if i.n == nil {
		return 0, true
	}
	if !i.n.IsInt64() {
		return 0, false
	}
	return i.n.Int64(), true
}

// Equal reports whether i and n hold the same integer.
func (i Int) Equal(n int64) bool {
	v, ok := i.Int64()
	return ok && v == n
}

// String returns the minimal base-10 representation.
func (i Int) String() string {
	if i.n == nil {
		return "0"
	}
	return i.n.String()
}

// O is a key/value pair for ObjectOf.
type O struct {
	Key   string
	Value Value
}

// ObjectOf builds an Object from pairs. Later pairs win on duplicate keys.
func ObjectOf(pairs ...O) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in ascending code-point order.
// For valid UTF-8, code-point order is byte order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy of obj.
func (obj Object) Clone() Object {
	if obj == nil {
		return nil
	}
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case Object:
		return val.Clone()
	case Array:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = cloneValue(elem)
		}
		return arr
	case Int:
		return NewBigInt(val.n)
	default:
		return v
	}
}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler for Int.
func (i Int) MarshalJSON() ([]byte, error) {
	return []byte(i.String()), nil
}

// MarshalJSON implements json.Marshaler for Number.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n), nil
}

// MarshalJSON implements json.Marshaler for Array using the compact encoding.
func (arr Array) MarshalJSON() ([]byte, error) {
	return MarshalCompact(arr)
}

// MarshalJSON implements json.Marshaler for Object using the compact encoding.
func (obj Object) MarshalJSON() ([]byte, error) {
	return MarshalCompact(obj)
}

// Equal reports whether a and b are the same value.
// Objects compare by content regardless of construction order.
func Equal(a, b Value) bool {
	ab, errA := MarshalCompact(a)
	bb, errB := MarshalCompact(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
