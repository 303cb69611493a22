// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"net"
	"testing"

	"remotectl/pkg/types"
)

func TestListenAutoSelectPort(t *testing.T) {
	t.Parallel()

	ln, err := Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok || addr.Port == 0 {
		t.Errorf("Addr() = %v, want a concrete port", ln.Addr())
	}
}

func TestListenPortInUse(t *testing.T) {
	t.Parallel()

	first, err := Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer first.Close()

	port := types.ListenPort(first.Addr().(*net.TCPAddr).Port)
	_, err = Listen(context.Background(), "127.0.0.1", port)
	if !errors.Is(err, ErrBind) {
		t.Fatalf("second Listen() error = %v, want ErrBind", err)
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("errors.As(*BindError) failed for %T", err)
	}
	if want := net.JoinHostPort("127.0.0.1", port.String()); bindErr.Addr != want {
		t.Errorf("BindError.Addr = %q, want %q", bindErr.Addr, want)
	}
}

func TestListenInvalidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		host  types.HostAddress
		port  types.ListenPort
		cause error
	}{
		{"empty host", "", 0, types.ErrInvalidHostAddress},
		{"host with port", "127.0.0.1:80", 0, types.ErrInvalidHostAddress},
		{"negative port", "127.0.0.1", -1, types.ErrInvalidListenPort},
		{"port too large", "127.0.0.1", 70000, types.ErrInvalidListenPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Listen(context.Background(), tt.host, tt.port)
			if !errors.Is(err, ErrBind) {
				t.Errorf("Listen() error = %v, want ErrBind", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("Listen() error = %v, want %v", err, tt.cause)
			}
		})
	}
}
