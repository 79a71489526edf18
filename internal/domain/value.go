package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a decoded response value.
type Kind int

const (
	// KindNone is the explicit "no result" marker: the body was empty,
	// malformed, or decoded to an empty value.
	KindNone Kind = iota
	KindObject
	KindArray
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindScalar:
		return "scalar"
	default:
		return "none"
	}
}

// Value is a decoded JSON response. The zero Value is the "no result" marker.
//
// Objects hold map[string]any, arrays []any and scalars string, json.Number
// or bool, exactly as produced by encoding/json with UseNumber.
type Value struct {
	kind Kind
	raw  any
}

// NoResult is returned by the gateway when a response carries nothing usable.
var NoResult = Value{}

// Decode parses a response body. Decoding is lenient: a malformed body, and
// any body that decodes to null, false, 0, "", "0" or [], yields NoResult.
func Decode(body []byte) Value {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return NoResult
	}
	if dec.More() {
		return NoResult
	}
	if isEmpty(raw) {
		return NoResult
	}
	return NewValue(raw)
}

// NewValue wraps an already decoded JSON value. A nil input yields NoResult.
func NewValue(raw any) Value {
	switch raw.(type) {
	case nil:
		return NoResult
	case map[string]any:
		return Value{kind: KindObject, raw: raw}
	case []any:
		return Value{kind: KindArray, raw: raw}
	default:
		return Value{kind: KindScalar, raw: raw}
	}
}

// isEmpty mirrors the remote service's loose emptiness rule for whole
// responses. An empty object is not empty.
func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == "" || v == "0"
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// Kind returns the value's classification.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the "no result" marker.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Raw returns the underlying decoded value.
func (v Value) Raw() any { return v.raw }

// Field returns the named member of an object. It reports false when v is not
// an object or the member is absent.
func (v Value) Field(name string) (Value, bool) {
	obj, ok := v.raw.(map[string]any)
	if !ok {
		return NoResult, false
	}
	member, ok := obj[name]
	if !ok {
		return NoResult, false
	}
	return wrapMember(member), true
}

// Path walks nested object members.
func (v Value) Path(names ...string) (Value, bool) {
	cur := v
	for _, name := range names {
		next, ok := cur.Field(name)
		if !ok {
			return NoResult, false
		}
		cur = next
	}
	return cur, true
}

// Len returns the number of elements of an array or members of an object.
func (v Value) Len() int {
	switch raw := v.raw.(type) {
	case []any:
		return len(raw)
	case map[string]any:
		return len(raw)
	default:
		return 0
	}
}

// Index returns the i-th element of an array.
func (v Value) Index(i int) (Value, bool) {
	arr, ok := v.raw.([]any)
	if !ok || i < 0 || i >= len(arr) {
		return NoResult, false
	}
	return wrapMember(arr[i]), true
}

// Items returns the elements of an array, or nil when v is not an array.
func (v Value) Items() []Value {
	arr, ok := v.raw.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(arr))
	for i, el := range arr {
		out[i] = wrapMember(el)
	}
	return out
}

// Text returns the textual form of a scalar. Booleans render as "1" and "".
func (v Value) Text() (string, bool) {
	switch raw := v.raw.(type) {
	case string:
		return raw, true
	case json.Number:
		return raw.String(), true
	case bool:
		if raw {
			return "1", true
		}
		return "", true
	case nil:
		return "", v.kind == KindScalar
	default:
		return "", false
	}
}

// Int converts a scalar to an integer using the remote service's loose
// rules: numeric strings convert by their leading digits, non-numeric
// strings convert to 0, booleans to 0 or 1. It reports false for objects,
// arrays and NoResult.
func (v Value) Int() (int64, bool) {
	switch raw := v.raw.(type) {
	case json.Number:
		if n, err := raw.Int64(); err == nil {
			return n, true
		}
		f, err := raw.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, true
		}
		return int64(f), true
	case string:
		return leadingInt(raw), true
	case bool:
		if raw {
			return 1, true
		}
		return 0, true
	case nil:
		return 0, v.kind == KindScalar
	default:
		return 0, false
	}
}

// MarshalJSON encodes the underlying value; NoResult encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.raw)
}

// wrapMember wraps a nested member. Unlike NewValue, a JSON null member is a
// scalar so that a present-but-null field is distinguishable from NoResult.
func wrapMember(raw any) Value {
	if raw == nil {
		return Value{kind: KindScalar}
	}
	return NewValue(raw)
}

func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		if s[0] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return n
}
