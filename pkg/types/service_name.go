// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultServiceName is advertised when a host does not name its service.
const DefaultServiceName ServiceName = "unnamed"

// ErrInvalidServiceName is the sentinel error wrapped by InvalidServiceNameError.
var ErrInvalidServiceName = errors.New("invalid service name")

var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

type (
	// ServiceName is the discovery name a host advertises to connecting clients.
	// It must start with an alphanumeric character, contain only letters,
	// digits, dots, underscores or dashes, and be at most 64 characters long.
	ServiceName string

	// InvalidServiceNameError is returned when a ServiceName does not match
	// the allowed pattern.
	InvalidServiceNameError struct {
		Value ServiceName
	}
)

// String returns the string representation of the ServiceName.
func (n ServiceName) String() string { return string(n) }

// Validate returns nil if the ServiceName is well-formed, or an error
// wrapping ErrInvalidServiceName if it is not.
func (n ServiceName) Validate() error {
	if !serviceNamePattern.MatchString(string(n)) {
		return &InvalidServiceNameError{Value: n}
	}
	return nil
}

// OrDefault returns the name, or DefaultServiceName when the name is empty.
func (n ServiceName) OrDefault() ServiceName {
	if n == "" {
		return DefaultServiceName
	}
	return n
}

// Error implements the error interface for InvalidServiceNameError.
func (e *InvalidServiceNameError) Error() string {
	return fmt.Sprintf("invalid service name %q: must match %s", e.Value, serviceNamePattern)
}

// Unwrap returns ErrInvalidServiceName for errors.Is() compatibility.
func (e *InvalidServiceNameError) Unwrap() error { return ErrInvalidServiceName }
