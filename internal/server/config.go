// SPDX-License-Identifier: MPL-2.0

package server

import (
	"errors"
	"fmt"
	"time"

	"remotectl/internal/core/serverbase"
	"remotectl/pkg/types"
)

const (
	// DefaultStartupTimeout bounds the bind step of Start.
	DefaultStartupTimeout = 5 * time.Second
	// DefaultShutdownTimeout bounds how long Stop waits for connection goroutines.
	DefaultShutdownTimeout = 10 * time.Second
)

var (
	// ErrBind is returned (wrapped in *BindError) when Start cannot claim its address.
	ErrBind = serverbase.ErrBind
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid server config")
)

type (
	// BindError reports the address that could not be bound and why.
	BindError = serverbase.BindError

	// Config holds the immutable configuration of a Server.
	Config struct {
		// Host is the address to bind (default 0.0.0.0, all interfaces).
		Host types.HostAddress
		// Port is the TCP port (default 12345, 0 selects a free port).
		Port types.ListenPort
		// StartupTimeout bounds binding (default 5s).
		StartupTimeout time.Duration
		// ShutdownTimeout bounds Stop (default 10s).
		ShutdownTimeout time.Duration
	}

	// InvalidConfigError collects field-level validation errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Host:            types.DefaultHostAddress,
		Port:            types.DefaultListenPort,
		StartupTimeout:  DefaultStartupTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// withDefaults fills zero timeouts and an empty host. The port is kept as
// given because 0 is meaningful.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = types.DefaultHostAddress
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Validate returns nil if Host and Port are valid, or an *InvalidConfigError.
func (c Config) Validate() error {
	var errs []error
	if err := c.Host.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Address returns host:port.
func (c Config) Address() string { return c.Host.JoinPort(c.Port) }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid server config: %v", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
