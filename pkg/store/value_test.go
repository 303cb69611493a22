// SPDX-License-Identifier: MPL-2.0

package store

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestValueJSONRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
		wire  string
	}{
		{name: "null", value: Null(), wire: `{"kind":"null"}`},
		{name: "false", value: Bool(false), wire: `{"kind":"bool","bool":false}`},
		{name: "zero", value: Number(0), wire: `{"kind":"number","number":0}`},
		{name: "number", value: Number(0.1), wire: `{"kind":"number","number":0.1}`},
		{name: "empty string", value: String(""), wire: `{"kind":"string","string":""}`},
		{name: "bytes", value: Bytes([]byte("hi")), wire: `{"kind":"bytes","bytes":"aGk="}`},
		{name: "list", value: List(Number(1), String("x")), wire: `{"kind":"list","list":[{"kind":"number","number":1},{"kind":"string","string":"x"}]}`},
		{name: "positive infinity", value: Number(math.Inf(1)), wire: `{"kind":"number","number":"+Inf"}`},
		{name: "negative infinity", value: Number(math.Inf(-1)), wire: `{"kind":"number","number":"-Inf"}`},
		{name: "nan", value: Number(math.NaN()), wire: `{"kind":"number","number":"NaN"}`},
		{name: "nested infinity", value: List(Number(math.Inf(1))), wire: `{"kind":"list","list":[{"kind":"number","number":"+Inf"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.wire {
				t.Errorf("Marshal() = %s, want %s", data, tt.wire)
			}

			var got Value
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !got.Equal(tt.value) {
				t.Errorf("round trip = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestValueUnmarshalInvalidNumber(t *testing.T) {
	t.Parallel()

	var v Value
	if err := json.Unmarshal([]byte(`{"kind":"number","number":"infinity"}`), &v); err == nil {
		t.Errorf("Unmarshal(infinity) = %v, want error", v)
	}
}

func TestValueUnmarshalInvalidKind(t *testing.T) {
	t.Parallel()

	var v Value
	err := json.Unmarshal([]byte(`{"kind":"tensor"}`), &v)
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Unmarshal(tensor) error = %v, want ErrInvalidKind", err)
	}
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{name: "nil", in: nil, want: Null()},
		{name: "int", in: 3, want: Number(3)},
		{name: "int64", in: int64(-7), want: Number(-7)},
		{name: "uint8", in: uint8(9), want: Number(9)},
		{name: "float32", in: float32(0.5), want: Number(0.5)},
		{name: "json number", in: json.Number("1.25"), want: Number(1.25)},
		{name: "time", in: when, want: String("2024-01-02T03:04:05Z")},
		{name: "strings", in: []string{"a", "b"}, want: List(String("a"), String("b"))},
		{name: "nested", in: map[string]any{"xs": []any{true, nil}}, want: Map(map[string]Value{"xs": List(Bool(true), Null())})},
		{name: "yaml keys", in: map[any]any{1: "one"}, want: Map(map[string]Value{"1": String("one")})},
		{name: "value passthrough", in: String("v"), want: String("v")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromAny(tt.in)
			if err != nil {
				t.Fatalf("FromAny(%v) error = %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("FromAny(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromAnyUnsupported(t *testing.T) {
	t.Parallel()

	_, err := FromAny(struct{}{})
	var unsupported *UnsupportedValueError
	if !errors.As(err, &unsupported) {
		t.Fatalf("FromAny(struct{}) error = %v, want *UnsupportedValueError", err)
	}
	if unsupported.Type != "struct {}" {
		t.Errorf("Type = %q, want %q", unsupported.Type, "struct {}")
	}
}

func TestParseLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Value
	}{
		{in: "0.05", want: Number(0.05)},
		{in: "true", want: Bool(true)},
		{in: "null", want: Null()},
		{in: `"quoted"`, want: String("quoted")},
		{in: "hello", want: String("hello")},
		{in: "[1,2]", want: List(Number(1), Number(2))},
		{in: `{"a":1}`, want: Map(map[string]Value{"a": Number(1)})},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := ParseLiteral(tt.in); !got.Equal(tt.want) {
				t.Errorf("ParseLiteral(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value Value
		want  string
	}{
		{Number(0.1), "0.1"},
		{String("sgd"), `"sgd"`},
		{Null(), "null"},
		{Map(map[string]Value{"b": Number(2), "a": Number(1)}), `{"a":1,"b":2}`},
		{Number(math.Inf(1)), "+Inf"},
		{Number(math.NaN()), "NaN"},
		{List(Number(1), Number(math.Inf(-1))), `[1,"-Inf"]`},
		{Map(map[string]Value{"limit": Number(math.Inf(1))}), `{"limit":"+Inf"}`},
	}

	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueConstructorsCopy(t *testing.T) {
	t.Parallel()

	raw := []byte("abc")
	v := Bytes(raw)
	raw[0] = 'X'
	if got, _ := v.AsBytes(); string(got) != "abc" {
		t.Errorf("Bytes() aliased caller slice: %q", got)
	}

	fields := map[string]Value{"a": Number(1)}
	m := Map(fields)
	fields["b"] = Number(2)
	if got, _ := m.AsMap(); len(got) != 1 {
		t.Errorf("Map() aliased caller map: %v", got)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for k := KindNull; k <= KindMap; k++ {
		parsed, err := ParseKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", k.String(), parsed, err, k)
		}
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("Kind(99).String() = %q, want %q", got, "unknown")
	}
}
