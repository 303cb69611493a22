// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"remotectl/pkg/store"
)

type pipe struct {
	io.Reader
	io.Writer
}

func TestCodecRequestWireForm(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := NewCodec(pipe{Reader: strings.NewReader(""), Writer: &out})

	if err := c.WriteRequest(Request{ID: 1, Op: OpGet, Key: "learning_rate"}); err != nil {
		t.Fatalf("WriteRequest() error = %v", err)
	}

	want := `{"id":1,"op":"get","key":"learning_rate"}` + "\n"
	if got := out.String(); got != want {
		t.Errorf("wire = %q, want %q", got, want)
	}
}

func TestCodecResponseWireForm(t *testing.T) {
	t.Parallel()

	v := store.Number(0.1)
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "value",
			resp: Response{ID: 1, Value: &v},
			want: `{"id":1,"value":{"kind":"number","number":0.1}}`,
		},
		{
			name: "error",
			resp: Response{ID: 2, Error: Errorf(CodeKeyNotFound, "key %q not found", "x")},
			want: `{"id":2,"error":{"code":"key_not_found","message":"key \"x\" not found"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			c := NewCodec(pipe{Reader: strings.NewReader(""), Writer: &out})
			if err := c.WriteResponse(tt.resp); err != nil {
				t.Fatalf("WriteResponse() error = %v", err)
			}
			if got := strings.TrimSuffix(out.String(), "\n"); got != tt.want {
				t.Errorf("wire = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCodecReadSequence(t *testing.T) {
	t.Parallel()

	in := strings.NewReader(`{"id":1,"op":"len"}` + "\n" +
		`{"id":2,"op":"set","key":"k","value":{"kind":"string","string":"v"}}` + "\n")
	c := NewCodec(pipe{Reader: in, Writer: io.Discard})

	first, err := c.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest() #1 error = %v", err)
	}
	if first.ID != 1 || first.Op != OpLen {
		t.Errorf("ReadRequest() #1 = %+v", first)
	}

	second, err := c.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest() #2 error = %v", err)
	}
	if second.Op != OpSet || second.Key != "k" || second.Value == nil || !second.Value.Equal(store.String("v")) {
		t.Errorf("ReadRequest() #2 = %+v", second)
	}

	if _, err := c.ReadRequest(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadRequest() at end error = %v, want io.EOF", err)
	}
}

func TestCodecMalformedLineIsRecoverable(t *testing.T) {
	t.Parallel()

	in := strings.NewReader("not json\n" + `{"id":7,"op":"keys"}` + "\n")
	c := NewCodec(pipe{Reader: in, Writer: io.Discard})

	_, err := c.ReadRequest()
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("ReadRequest() error = %v, want ErrMalformedMessage", err)
	}
	var mErr *MalformedMessageError
	if !errors.As(err, &mErr) {
		t.Fatalf("errors.As(*MalformedMessageError) failed for %T", err)
	}

	req, err := c.ReadRequest()
	if err != nil {
		t.Fatalf("ReadRequest() after malformed line error = %v", err)
	}
	if req.ID != 7 || req.Op != OpKeys {
		t.Errorf("ReadRequest() = %+v", req)
	}
}

func TestCodecEncodeFailureWritesNothing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	c := NewCodec(pipe{Reader: strings.NewReader(""), Writer: &out})

	if err := c.write(make(chan int)); !errors.Is(err, ErrEncode) {
		t.Fatalf("write(chan) error = %v, want ErrEncode", err)
	}
	if out.Len() != 0 {
		t.Fatalf("failed encode wrote %q", out.String())
	}

	if err := c.WriteRequest(Request{ID: 2, Op: OpLen}); err != nil {
		t.Fatalf("WriteRequest() after failed encode error = %v", err)
	}
	if want := `{"id":2,"op":"len"}` + "\n"; out.String() != want {
		t.Errorf("wire = %q, want %q", out.String(), want)
	}
}

func TestCodecNonFiniteValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewCodec(pipe{Reader: &buf, Writer: &buf})

	sent := Response{ID: 4, Values: []store.Value{store.Number(math.Inf(1)), store.Number(math.NaN())}}
	if err := c.WriteResponse(sent); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	got, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if len(got.Values) != 2 || !got.Values[0].Equal(sent.Values[0]) || !got.Values[1].Equal(sent.Values[1]) {
		t.Errorf("Values = %v, want %v", got.Values, sent.Values)
	}
}

func TestCodecMessageTooLarge(t *testing.T) {
	t.Parallel()

	line := strings.Repeat("x", MaxMessageSize+1) + "\n"
	c := NewCodec(pipe{Reader: strings.NewReader(line), Writer: io.Discard})

	if _, err := c.ReadRequest(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadRequest() error = %v, want ErrMessageTooLarge", err)
	}
}

func TestCodecResponseRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewCodec(pipe{Reader: &buf, Writer: &buf})

	n := 3
	sent := Response{
		ID:     9,
		Keys:   []string{"a", "b", "c"},
		Length: &n,
		Status: &StatusResult{Paused: true, Waiting: 1},
	}
	if err := c.WriteResponse(sent); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}

	got, err := c.ReadResponse()
	if err != nil {
		t.Fatalf("ReadResponse() error = %v", err)
	}
	if got.ID != 9 || len(got.Keys) != 3 || got.Length == nil || *got.Length != 3 {
		t.Errorf("ReadResponse() = %+v", got)
	}
	if got.Status == nil || !got.Status.Paused || got.Status.Waiting != 1 {
		t.Errorf("ReadResponse().Status = %+v", got.Status)
	}
	if got.Error != nil {
		t.Errorf("ReadResponse().Error = %v, want nil", got.Error)
	}
}
