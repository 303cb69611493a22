// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"fmt"
	"net"

	"remotectl/pkg/types"
)

// ErrBind is the sentinel error wrapped by BindError.
var ErrBind = errors.New("bind failed")

// BindError reports that a listener could not claim its address, either
// because the address is invalid or because the OS refused it (in use,
// permission denied).
type BindError struct {
	Addr string
	Err  error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

// Unwrap returns ErrBind and the underlying cause so both errors.Is(err, ErrBind)
// and errors.Is(err, syscall.EADDRINUSE) hold.
func (e *BindError) Unwrap() []error { return []error{ErrBind, e.Err} }

// Listen validates host and port and binds a TCP listener. Port 0 selects a
// free port; the chosen address is available from the returned listener.
func Listen(ctx context.Context, host types.HostAddress, port types.ListenPort) (net.Listener, error) {
	addr := host.JoinPort(port)
	if err := host.Validate(); err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	if err := port.Validate(); err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	return ln, nil
}
