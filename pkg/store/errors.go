// SPDX-License-Identifier: MPL-2.0

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is the sentinel error wrapped by KeyNotFoundError.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnsupportedValue is returned when a Go value has no Value representation.
	ErrUnsupportedValue = errors.New("unsupported value")
	// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid value kind")
)

type (
	// KeyNotFoundError is returned by Get when the key has never been set.
	KeyNotFoundError struct {
		Key string
	}

	// UnsupportedValueError is returned by FromAny for Go types outside the
	// Value model (channels, funcs, structs, ...).
	UnsupportedValueError struct {
		Type string
	}

	// InvalidKindError is returned when a kind name is not recognized.
	InvalidKindError struct {
		Value string
	}
)

// Error implements the error interface for KeyNotFoundError.
func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

// Unwrap returns ErrKeyNotFound for errors.Is() compatibility.
func (e *KeyNotFoundError) Unwrap() error { return ErrKeyNotFound }

// Error implements the error interface for UnsupportedValueError.
func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("unsupported value of type %s", e.Type)
}

// Unwrap returns ErrUnsupportedValue for errors.Is() compatibility.
func (e *UnsupportedValueError) Unwrap() error { return ErrUnsupportedValue }

// Error implements the error interface for InvalidKindError.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid value kind %q (valid: null, bool, number, string, bytes, list, map)", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }
