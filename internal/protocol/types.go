// SPDX-License-Identifier: MPL-2.0

package protocol

import (
	"errors"
	"fmt"

	"remotectl/pkg/store"
)

// Version is the protocol revision reported by the info operation.
const Version = 1

// Remote operations.
const (
	OpGet    Operation = "get"
	OpSet    Operation = "set"
	OpLen    Operation = "len"
	OpKeys   Operation = "keys"
	OpValues Operation = "values"
	OpItems  Operation = "items"
	OpPause  Operation = "pause"
	OpResume Operation = "resume"
	OpStatus Operation = "status"
	OpInfo   Operation = "info"
)

// Error codes carried in Response.Error.
const (
	CodeKeyNotFound      ErrorCode = "key_not_found"
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnknownOperation ErrorCode = "unknown_operation"
	CodeNoController     ErrorCode = "no_controller"
	CodeInternal         ErrorCode = "internal"
)

// ErrInvalidOperation is returned when an Operation value is not one of the defined operations.
var ErrInvalidOperation = errors.New("invalid operation")

type (
	// Operation names a remotely callable operation.
	Operation string

	// InvalidOperationError is returned when an Operation value is not recognized.
	// It wraps ErrInvalidOperation for errors.Is() compatibility.
	InvalidOperationError struct {
		Value Operation
	}

	// ErrorCode classifies a remote failure.
	ErrorCode string

	// Request is one call from a client.
	Request struct {
		// ID is echoed in the matching Response.
		ID uint64 `json:"id"`
		// Op is the operation to run.
		Op Operation `json:"op"`
		// Key is required by get and set.
		Key string `json:"key,omitempty"`
		// Value is required by set.
		Value *store.Value `json:"value,omitempty"`
	}

	// Response is the host's answer to one Request. Exactly one of the
	// result fields, or Error, is populated depending on the operation.
	Response struct {
		ID     uint64        `json:"id"`
		Value  *store.Value  `json:"value,omitempty"`
		Keys   []string      `json:"keys,omitempty"`
		Values []store.Value `json:"values,omitempty"`
		Items  []store.Entry `json:"items,omitempty"`
		Length *int          `json:"length,omitempty"`
		Status *StatusResult `json:"status,omitempty"`
		Info   *InfoResult   `json:"info,omitempty"`
		Error  *Error        `json:"error,omitempty"`
	}

	// StatusResult reports the pause controller state.
	StatusResult struct {
		Paused bool `json:"paused"`
		// Waiting is the number of host checkpoints currently blocked.
		Waiting int `json:"waiting"`
	}

	// InfoResult describes the service a client is connected to.
	InfoResult struct {
		Name          string      `json:"name"`
		Version       int         `json:"version"`
		Operations    []Operation `json:"operations"`
		HasController bool        `json:"has_controller"`
	}

	// Error is a failure reported by the host. It travels in Response.Error
	// and implements error on the client side.
	Error struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	}
)

// Operations lists every operation in a stable order.
func Operations() []Operation {
	return []Operation{OpGet, OpSet, OpLen, OpKeys, OpValues, OpItems, OpPause, OpResume, OpStatus, OpInfo}
}

// String returns the wire name of the operation.
func (o Operation) String() string { return string(o) }

// Validate returns nil if the Operation is one of the defined operations,
// or an error wrapping ErrInvalidOperation if it is not.
func (o Operation) Validate() error {
	switch o {
	case OpGet, OpSet, OpLen, OpKeys, OpValues, OpItems, OpPause, OpResume, OpStatus, OpInfo:
		return nil
	default:
		return &InvalidOperationError{Value: o}
	}
}

// NeedsKey reports whether the operation requires Request.Key.
func (o Operation) NeedsKey() bool { return o == OpGet || o == OpSet }

// Error implements the error interface for InvalidOperationError.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation %q (valid: get, set, len, keys, values, items, pause, resume, status, info)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidOperationError) Unwrap() error { return ErrInvalidOperation }

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
