// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"errors"
	"fmt"

	"remotectl/internal/protocol"
	"remotectl/pkg/store"
)

var (
	// ErrTransport is the sentinel error wrapped by TransportError.
	ErrTransport = errors.New("transport failure")
	// ErrClosed is reported by every call on a Proxy that was closed or whose
	// connection failed earlier.
	ErrClosed = errors.New("proxy closed")
	// ErrTypeMismatch is the sentinel error wrapped by TypeMismatchError.
	ErrTypeMismatch = errors.New("type mismatch")
)

type (
	// TransportError reports that a call could not complete because the
	// connection failed, timed out or was cancelled. The Proxy is unusable
	// afterwards.
	TransportError struct {
		Op   string
		Addr string
		Err  error
	}

	// RemoteError is a failure reported by the host. The connection remains
	// usable.
	RemoteError struct {
		Code    protocol.ErrorCode
		Message string
	}

	// TypeMismatchError is returned by the typed accessors when the stored
	// value has a different kind.
	TypeMismatchError struct {
		Key  string
		Want store.Kind
		Got  store.Kind
	}
)

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Addr, e.Err)
}

// Unwrap returns ErrTransport and the cause.
func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%s): %s", e.Code, e.Message)
}

// Unwrap maps well-known codes onto local sentinels, so that
// errors.Is(err, store.ErrKeyNotFound) holds for a missing remote key.
func (e *RemoteError) Unwrap() error {
	if e.Code == protocol.CodeKeyNotFound {
		return store.ErrKeyNotFound
	}
	return nil
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("key %q holds a %s, not a %s", e.Key, e.Got, e.Want)
}

// Unwrap returns ErrTypeMismatch for errors.Is() compatibility.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
