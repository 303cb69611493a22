// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// DefaultListenPort is the port a host binds when none is configured.
const DefaultListenPort ListenPort = 12345

// ErrInvalidListenPort is wrapped by InvalidListenPortError.
var ErrInvalidListenPort = errors.New("invalid listen port")

type (
	// ListenPort is a TCP port to bind or dial. Zero asks the OS for any
	// free port when binding.
	ListenPort int

	// InvalidListenPortError carries a port outside 0-65535.
	InvalidListenPortError struct {
		Value ListenPort
	}
)

// String returns the port in decimal.
func (p ListenPort) String() string { return strconv.Itoa(int(p)) }

// IsAutoSelect reports whether binding p lets the OS choose the port.
func (p ListenPort) IsAutoSelect() bool { return p == 0 }

// Validate rejects ports outside 0-65535.
func (p ListenPort) Validate() error {
	if p < 0 || p > 65535 {
		return &InvalidListenPortError{Value: p}
	}
	return nil
}

func (e *InvalidListenPortError) Error() string {
	return fmt.Sprintf("listen port %d out of range: want 0 (any free port) or 1-65535", e.Value)
}

func (e *InvalidListenPortError) Unwrap() error { return ErrInvalidListenPort }
