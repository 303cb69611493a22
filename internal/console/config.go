// SPDX-License-Identifier: MPL-2.0

package console

import (
	"time"

	"remotectl/pkg/types"
)

const (
	// DefaultHost keeps the console off external interfaces.
	DefaultHost types.HostAddress = "127.0.0.1"
	// DefaultPort is the conventional console port.
	DefaultPort types.ListenPort = 2222
)

// Config holds immutable console settings.
type Config struct {
	Host types.HostAddress
	// Port 0 selects a free port.
	Port types.ListenPort
	// HostKeyPath is a PEM host key, created on first use. Empty means an
	// ephemeral key generated at start.
	HostKeyPath string
	// StartupTimeout bounds binding the listener (default 5s).
	StartupTimeout time.Duration
	// ShutdownTimeout bounds waiting for sessions on Stop (default 10s).
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the console defaults.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		StartupTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = d.StartupTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// Address returns the configured host:port.
func (c Config) Address() string { return c.Host.JoinPort(c.Port) }
