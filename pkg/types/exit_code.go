// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Exit statuses shared by the CLI and the console.
const (
	// ExitOK reports a completed command.
	ExitOK ExitCode = 0
	// ExitFailure reports a remote error or a transport failure.
	ExitFailure ExitCode = 1
	// ExitUsage reports a command line that could not be understood.
	ExitUsage ExitCode = 2
)

// ErrInvalidExitCode is wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process or console session exit status in 0-255.
	ExitCode int

	// InvalidExitCodeError carries an ExitCode outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// String returns the code in decimal.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// IsSuccess reports whether c is ExitOK.
func (c ExitCode) IsSuccess() bool { return c == ExitOK }

// Validate rejects codes a POSIX process cannot exit with.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d out of range 0-255", e.Value)
}

func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }
