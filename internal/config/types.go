// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"remotectl/pkg/types"
)

const (
	// LogLevelDebug logs everything, including per-request traces.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs lifecycle events.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// DefaultConsolePort is the default SSH console port.
	DefaultConsolePort types.ListenPort = 2222
	// DefaultConsoleHost keeps the unauthenticated console on loopback.
	DefaultConsoleHost types.HostAddress = "127.0.0.1"
	// DefaultIterations is the number of host loop iterations.
	DefaultIterations = 100
	// DefaultStep is the pause between host loop iterations.
	DefaultStep = 5 * time.Second
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLoopConfig is returned for a negative iteration count or step.
	ErrInvalidLoopConfig = errors.New("invalid loop config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written by every component logger.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidLoopConfigError is returned when LoopConfig holds negative values.
	InvalidLoopConfigError struct {
		Iterations int
		Step       time.Duration
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete remotectl configuration.
	Config struct {
		Server  ServerConfig  `json:"server" mapstructure:"server"`
		Console ConsoleConfig `json:"console" mapstructure:"console"`
		Loop    LoopConfig    `json:"loop" mapstructure:"loop"`
		Seed    SeedConfig    `json:"seed" mapstructure:"seed"`
		Log     LogConfig     `json:"log" mapstructure:"log"`
	}

	// ServerConfig configures the TCP runtime that serves the shared store.
	ServerConfig struct {
		Host types.HostAddress `json:"host" mapstructure:"host"`
		Port types.ListenPort  `json:"port" mapstructure:"port"`
		Name types.ServiceName `json:"name" mapstructure:"name"`
	}

	// ConsoleConfig configures the optional SSH operator console.
	ConsoleConfig struct {
		Enabled bool              `json:"enabled" mapstructure:"enabled"`
		Host    types.HostAddress `json:"host" mapstructure:"host"`
		Port    types.ListenPort  `json:"port" mapstructure:"port"`
		// HostKeyPath is a PEM host key; empty generates an ephemeral key per run.
		HostKeyPath string `json:"host_key_path" mapstructure:"host_key_path"`
	}

	// LoopConfig drives the host loop run by 'remotectl serve'.
	LoopConfig struct {
		// Iterations is the number of steps; 0 runs until interrupted.
		Iterations int           `json:"iterations" mapstructure:"iterations"`
		Step       time.Duration `json:"step" mapstructure:"step"`
	}

	// SeedConfig names the file holding the initial shared values.
	SeedConfig struct {
		Path string `json:"path" mapstructure:"path"`
	}

	// LogConfig selects the log level.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: types.DefaultHostAddress,
			Port: types.DefaultListenPort,
			Name: types.DefaultServiceName,
		},
		Console: ConsoleConfig{
			Host: DefaultConsoleHost,
			Port: DefaultConsolePort,
		},
		Loop: LoopConfig{
			Iterations: DefaultIterations,
			Step:       DefaultStep,
		},
		Log: LogConfig{Level: LogLevelInfo},
	}
}

// Validate checks every field and reports all failures at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	add("server.host", c.Server.Host.Validate())
	add("server.port", c.Server.Port.Validate())
	add("server.name", c.Server.Name.Validate())
	add("console.host", c.Console.Host.Validate())
	add("console.port", c.Console.Port.Validate())
	add("loop", c.Loop.Validate())
	add("log.level", c.Log.Level.Validate())

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Validate rejects negative iteration counts and steps.
func (l LoopConfig) Validate() error {
	if l.Iterations < 0 || l.Step < 0 {
		return &InvalidLoopConfigError{Iterations: l.Iterations, Step: l.Step}
	}
	return nil
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// Validate returns an InvalidLogLevelError for unknown levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return &InvalidLogLevelError{Value: l}
	}
}

// Level converts to a charmbracelet/log level. Unknown values map to info.
func (l LogLevel) Level() log.Level {
	lvl, err := log.ParseLevel(string(l))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface.
func (e *InvalidLoopConfigError) Error() string {
	return fmt.Sprintf("invalid loop config: iterations=%d step=%s must not be negative", e.Iterations, e.Step)
}

// Unwrap returns ErrInvalidLoopConfig for errors.Is() compatibility.
func (e *InvalidLoopConfigError) Unwrap() error { return ErrInvalidLoopConfig }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the config sentinel and the field sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}
