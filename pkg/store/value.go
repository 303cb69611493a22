// SPDX-License-Identifier: MPL-2.0

package store

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/exp/slices"
)

// Value is an immutable tagged variant holding one of the supported kinds.
// The zero Value is null. Constructors copy slices and maps they are given,
// so a Value never aliases caller-owned memory.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	raw    []byte
	list   []Value
	fields map[string]Value
}

// wireValue is the tagged JSON form of a Value.
type wireValue struct {
	Kind   Kind             `json:"kind"`
	Bool   *bool            `json:"bool,omitempty"`
	Number *wireNumber      `json:"number,omitempty"`
	String *string          `json:"string,omitempty"`
	Bytes  []byte           `json:"bytes,omitempty"`
	List   []Value          `json:"list,omitempty"`
	Map    map[string]Value `json:"map,omitempty"`
}

// wireNumber is a float64 whose JSON form is a number when finite and one of
// the strings "+Inf", "-Inf" or "NaN" otherwise.
type wireNumber float64

// MarshalJSON implements json.Marshaler.
func (n wireNumber) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *wireNumber) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "+Inf":
			*n = wireNumber(math.Inf(1))
		case "-Inf":
			*n = wireNumber(math.Inf(-1))
		case "NaN":
			*n = wireNumber(math.NaN())
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = wireNumber(f)
	return nil
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a number Value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes returns a bytes Value holding a copy of b.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: bytes.Clone(b)} }

// List returns a list Value holding a copy of items.
func List(items ...Value) Value { return Value{kind: KindList, list: slices.Clone(items)} }

// Map returns a map Value holding a copy of fields.
func Map(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: KindMap, fields: cp}
}

// Kind reports which variant the Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the bool and true when the Value is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and true when the Value is a number.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and true when the Value is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns a copy of the bytes and true when the Value is bytes.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return bytes.Clone(v.raw), true
}

// AsList returns a copy of the items and true when the Value is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

// AsMap returns a copy of the fields and true when the Value is a map.
func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	cp := make(map[string]Value, len(v.fields))
	for k, f := range v.fields {
		cp[k] = f
	}
	return cp, true
}

// Any converts the Value into plain Go data: nil, bool, float64, string,
// []byte, []any or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindBytes:
		return bytes.Clone(v.raw)
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Any()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two Values hold the same kind and content.
// A nil list or map equals an empty one, and NaN equals NaN.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n || (math.IsNaN(v.n) && math.IsNaN(other.n))
	case KindString:
		return v.s == other.s
	case KindBytes:
		return bytes.Equal(v.raw, other.raw)
	case KindList:
		return slices.EqualFunc(v.list, other.list, Value.Equal)
	case KindMap:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, f := range v.fields {
			o, ok := other.fields[k]
			if !ok || !f.Equal(o) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the Value as a JSON literal. Bytes render as a base64
// string, map keys are sorted. Non-finite numbers render as +Inf, -Inf or
// NaN, quoted when nested inside a list or map.
func (v Value) String() string {
	if v.kind == KindNumber && !isFinite(v.n) {
		return strconv.FormatFloat(v.n, 'g', -1, 64)
	}
	data, err := json.Marshal(v.printable())
	if err != nil {
		return fmt.Sprintf("<%s>", v.kind)
	}
	return string(data)
}

// printable is Any with non-finite numbers replaced by their names, which
// json.Marshal would otherwise reject.
func (v Value) printable() any {
	switch v.kind {
	case KindNumber:
		if !isFinite(v.n) {
			return strconv.FormatFloat(v.n, 'g', -1, 64)
		}
		return v.n
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.printable()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.printable()
		}
		return out
	default:
		return v.Any()
	}
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// MarshalJSON implements json.Marshaler using the tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{Kind: v.kind}
	switch v.kind {
	case KindBool:
		w.Bool = &v.b
	case KindNumber:
		n := wireNumber(v.n)
		w.Number = &n
	case KindString:
		w.String = &v.s
	case KindBytes:
		w.Bytes = v.raw
	case KindList:
		w.List = v.list
	case KindMap:
		w.Map = v.fields
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler for the tagged wire form.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Value{kind: w.Kind}
	switch w.Kind {
	case KindBool:
		if w.Bool != nil {
			out.b = *w.Bool
		}
	case KindNumber:
		if w.Number != nil {
			out.n = float64(*w.Number)
		}
	case KindString:
		if w.String != nil {
			out.s = *w.String
		}
	case KindBytes:
		out.raw = w.Bytes
	case KindList:
		out.list = w.List
	case KindMap:
		out.fields = w.Map
	}
	*v = out
	return nil
}

// FromAny converts decoded Go data (as produced by encoding/json, yaml.v3,
// go-toml or CUE) into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", t, err)
		}
		return Number(n), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]Value:
		return Map(t), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = v
		}
		return Value{kind: KindMap, fields: fields}, nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("%v: %w", k, err)
			}
			fields[fmt.Sprint(k)] = v
		}
		return Value{kind: KindMap, fields: fields}, nil
	case encoding.TextMarshaler:
		// Local dates and times from TOML, net.IP, and similar.
		text, err := t.MarshalText()
		if err != nil {
			return Value{}, fmt.Errorf("%T: %w", x, err)
		}
		return String(string(text)), nil
	default:
		return Value{}, &UnsupportedValueError{Type: fmt.Sprintf("%T", x)}
	}
}

// MustFromAny is FromAny for literals known to be convertible; it panics on error.
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseLiteral interprets s as a JSON literal ("0.05", "true", "[1,2]",
// "\"quoted\"", "null"). Anything that is not valid JSON is taken as a plain
// string, so `set greeting hello` stores "hello".
func ParseLiteral(s string) Value {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return String(s)
	}
	v, err := FromAny(decoded)
	if err != nil {
		return String(s)
	}
	return v
}
