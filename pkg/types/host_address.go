// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// DefaultHostAddress binds every interface, matching the historical default of the service.
const DefaultHostAddress HostAddress = "0.0.0.0"

// ErrInvalidHostAddress is the sentinel error wrapped by InvalidHostAddressError.
var ErrInvalidHostAddress = errors.New("invalid host address")

type (
	// HostAddress represents a network host address (IP or hostname) for
	// server binding or client dialing.
	// A valid address must be non-empty, not whitespace-only, and must not
	// carry a port.
	HostAddress string

	// InvalidHostAddressError is returned when a HostAddress value is
	// empty, whitespace-only, or already includes a port.
	InvalidHostAddressError struct {
		Value  HostAddress
		Reason string
	}
)

// String returns the string representation of the HostAddress.
func (h HostAddress) String() string { return string(h) }

// Validate returns nil if the HostAddress is usable, or an error wrapping
// ErrInvalidHostAddress if it is not.
func (h HostAddress) Validate() error {
	if strings.TrimSpace(string(h)) == "" {
		return &InvalidHostAddressError{Value: h, Reason: "must be non-empty"}
	}
	if strings.ContainsAny(string(h), " \t\r\n") {
		return &InvalidHostAddressError{Value: h, Reason: "must not contain whitespace"}
	}
	// Bracketless IPv6 literals contain colons too, so only reject what parses as host:port.
	if _, _, err := net.SplitHostPort(string(h)); err == nil && net.ParseIP(string(h)) == nil {
		return &InvalidHostAddressError{Value: h, Reason: "must not include a port"}
	}
	return nil
}

// JoinPort combines the host with a port into a dialable "host:port" string.
func (h HostAddress) JoinPort(port ListenPort) string {
	return net.JoinHostPort(string(h), port.String())
}

// Error implements the error interface for InvalidHostAddressError.
func (e *InvalidHostAddressError) Error() string {
	return fmt.Sprintf("invalid host address %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidHostAddress for errors.Is() compatibility.
func (e *InvalidHostAddressError) Unwrap() error { return ErrInvalidHostAddress }
