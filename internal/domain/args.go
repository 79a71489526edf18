package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Arg is a single named call argument.
type Arg struct {
	Key   string
	Value any
}

// Args is an ordered argument mapping. It marshals to a JSON object whose
// members keep insertion order; the remote service binds rest_data members
// by position, so order is part of the wire contract.
type Args []Arg

// NewArgs builds Args from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewArgs(kv ...any) Args {
	args := make(Args, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		args = args.With(key, kv[i+1])
	}
	return args
}

// Get returns the value stored under key.
func (a Args) Get(key string) (any, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is defined.
func (a Args) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Keys returns the keys in order.
func (a Args) Keys() []string {
	keys := make([]string, len(a))
	for i, arg := range a {
		keys[i] = arg.Key
	}
	return keys
}

// Clone returns a shallow copy.
func (a Args) Clone() Args {
	if a == nil {
		return Args{}
	}
	out := make(Args, len(a))
	copy(out, a)
	return out
}

// With returns a copy of a with key set to value. An existing key keeps its
// position; a new key is appended.
func (a Args) With(key string, value any) Args {
	out := a.Clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Arg{Key: key, Value: value})
}

// Merge returns a copy of a extended with the members of extra whose keys
// a does not already define. Keys already in a always win.
func (a Args) Merge(extra Args) Args {
	out := a.Clone()
	for _, arg := range extra {
		if out.Has(arg.Key) {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// MarshalJSON encodes the arguments as an ordered JSON object.
func (a Args) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, arg := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(arg.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(arg.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping member order. Nested objects
// decode as Args as well.
func (a *Args) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeOrdered(dec)
	if err != nil {
		return err
	}
	args, ok := v.(Args)
	if !ok {
		return &json.UnmarshalTypeError{Value: "non-object", Type: argsType}
	}
	*a = args
	return nil
}

var argsType = reflect.TypeOf(Args(nil))

// decodeOrdered reads one JSON value from dec, producing Args for objects.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		args := Args{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T, want string", keyTok)
			}
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			args = args.With(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return args, nil
	case '[':
		list := []any{}
		for dec.More() {
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
